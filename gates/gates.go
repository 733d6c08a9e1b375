// Copyright (c) 2024 The StageTrack Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package holds the two stage-gate rule families used to classify
// cases, tests, and samples against the pipeline stages: CompletedGate
// ("this stage is done") and PendingState ("this stage needs work or a
// sign-off"). Both families are fixed, ordered tables of named gates, and
// callers are expected to test them in pipeline order, stopping at the
// first match.
package gates

import "github.com/seqlab/stagetrack/model"

// shared predicates over sample lists and sign-off records

func anyPassed(samples []*model.Sample) bool {
	for _, sample := range samples {
		if sample.Passed() {
			return true
		}
	}
	return false
}

func anyPendingQc(samples []*model.Sample) bool {
	for _, sample := range samples {
		if sample.PendingQc() {
			return true
		}
	}
	return false
}

func anyPendingDataReview(samples []*model.Sample) bool {
	for _, sample := range samples {
		if sample.PendingDataReview() {
			return true
		}
	}
	return false
}

// true if the list has no sample that is passed, pending QC, or pending data
// review, i.e. the stage is genuinely not started or all attempts failed
// (pending data review implies passed, so the first two checks cover it)
func unstarted(samples []*model.Sample) bool {
	for _, sample := range samples {
		if sample.Passed() || sample.PendingQc() {
			return false
		}
	}
	return true
}

// true if the stage can act as a prerequisite for the next one: at least one
// passed sample and nothing still awaiting a QC decision or data review
func cleared(samples []*model.Sample, category model.Category) bool {
	if !anyPassed(samples) || anyPendingQc(samples) {
		return false
	}
	if model.IsRunCategory(category) && anyPendingDataReview(samples) {
		return false
	}
	return true
}

func extractionCleared(t *model.Test) bool {
	return t.ExtractionSkipped || cleared(t.Extractions, model.Extraction)
}

func libraryPreparationCleared(t *model.Test) bool {
	return t.LibraryPreparationSkipped ||
		cleared(t.LibraryPreparations, model.LibraryPreparation)
}

func libraryQualificationCleared(t *model.Test) bool {
	return cleared(t.LibraryQualifications, model.LibraryQualification)
}

func fullDepthCleared(t *model.Test) bool {
	return cleared(t.FullDepthSequencings, model.FullDepthSequencing)
}

func receiptCleared(c *model.Case) bool {
	return anyPassed(c.Receipts) && !anyPendingQc(c.Receipts)
}

func anySignoffPassed(signoffs []model.Signoff) bool {
	for _, signoff := range signoffs {
		if signoff.Passed() {
			return true
		}
	}
	return false
}

func anySignoffPending(signoffs []model.Signoff) bool {
	for _, signoff := range signoffs {
		if signoff.QcPassed == nil {
			return true
		}
	}
	return false
}

func notStopped(c *model.Case) bool {
	return !c.Stopped()
}
