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

// This package performs the aggregation pass: a single sweep over a case
// collection that buckets every test against every pipeline stage and rolls
// the results up into per-project counters.
package summary

import (
	"time"

	"github.com/seqlab/stagetrack/gates"
	"github.com/seqlab/stagetrack/model"
)

// Filter optionally restricts the completed buckets to items whose QC date
// falls in a time period, for period-bounded reporting. A nil Filter (or a
// Filter with both bounds nil) accepts any qualifying item.
type Filter struct {
	After  *time.Time
	Before *time.Time
}

// Matches reports whether the given QC date satisfies the filter. An item
// without a date never matches an active filter.
func (f *Filter) Matches(date *time.Time) bool {
	if f == nil || (f.After == nil && f.Before == nil) {
		return true
	}
	if date == nil {
		return false
	}
	if f.After != nil && !date.After(*f.After) {
		return false
	}
	if f.Before != nil && !date.Before(*f.Before) {
		return false
	}
	return true
}

func (f *Filter) active() bool {
	return f != nil && (f.After != nil || f.Before != nil)
}

// ProjectSummary accumulates stage progress counters for one project. Test
// counters count tests; the case-level counters (receipt and the
// requisition sign-offs) are weighted by each case's test count so the two
// kinds of counter stay comparable.
type ProjectSummary struct {
	Name     string `json:"name"`
	Pipeline string `json:"pipeline"`

	TotalTestCount int `json:"totalTestCount"`

	ReceiptPendingQcCount int `json:"receiptPendingQcCount"`
	ReceiptCompletedCount int `json:"receiptCompletedCount"`

	ExtractionPendingCount   int `json:"extractionPendingCount"`
	ExtractionPendingQcCount int `json:"extractionPendingQcCount"`
	ExtractionCompletedCount int `json:"extractionCompletedCount"`

	LibraryPreparationPendingCount   int `json:"libraryPreparationPendingCount"`
	LibraryPreparationPendingQcCount int `json:"libraryPreparationPendingQcCount"`
	LibraryPreparationCompletedCount int `json:"libraryPreparationCompletedCount"`

	LibraryQualificationPendingCount   int `json:"libraryQualificationPendingCount"`
	LibraryQualificationPendingQcCount int `json:"libraryQualificationPendingQcCount"`
	LibraryQualificationCompletedCount int `json:"libraryQualificationCompletedCount"`

	FullDepthSequencingPendingCount   int `json:"fullDepthSequencingPendingCount"`
	FullDepthSequencingPendingQcCount int `json:"fullDepthSequencingPendingQcCount"`
	FullDepthSequencingCompletedCount int `json:"fullDepthSequencingCompletedCount"`

	AnalysisReviewPendingCount   int `json:"analysisReviewPendingCount"`
	AnalysisReviewCompletedCount int `json:"analysisReviewCompletedCount"`

	ReleaseApprovalPendingCount   int `json:"releaseApprovalPendingCount"`
	ReleaseApprovalCompletedCount int `json:"releaseApprovalCompletedCount"`

	ReleasePendingCount   int `json:"releasePendingCount"`
	ReleaseCompletedCount int `json:"releaseCompletedCount"`
}

// one sample-bearing, test-level stage with its gate, pending states, and
// counter slots
type testStage struct {
	completed   *gates.CompletedGate
	pendingWork *gates.PendingState
	pendingQc   *gates.PendingState
	// nil for stages without data review
	pendingDataReview *gates.PendingState
	samples           func(*model.Test) []*model.Sample
	skipped           func(*model.Test) bool
	slots             func(*ProjectSummary) (pending, pendingQc, completed *int)
}

var testStages = []testStage{
	{
		completed:   gates.ExtractionCompleted,
		pendingWork: gates.PendingExtraction,
		pendingQc:   gates.PendingExtractionQc,
		samples:     func(t *model.Test) []*model.Sample { return t.Extractions },
		skipped:     func(t *model.Test) bool { return t.ExtractionSkipped },
		slots: func(s *ProjectSummary) (*int, *int, *int) {
			return &s.ExtractionPendingCount, &s.ExtractionPendingQcCount,
				&s.ExtractionCompletedCount
		},
	},
	{
		completed:   gates.LibraryPreparationCompleted,
		pendingWork: gates.PendingLibraryPreparation,
		pendingQc:   gates.PendingLibraryPreparationQc,
		samples:     func(t *model.Test) []*model.Sample { return t.LibraryPreparations },
		skipped:     func(t *model.Test) bool { return t.LibraryPreparationSkipped },
		slots: func(s *ProjectSummary) (*int, *int, *int) {
			return &s.LibraryPreparationPendingCount,
				&s.LibraryPreparationPendingQcCount,
				&s.LibraryPreparationCompletedCount
		},
	},
	{
		completed:         gates.LibraryQualificationCompleted,
		pendingWork:       gates.PendingLibraryQualification,
		pendingQc:         gates.PendingLibraryQualificationQc,
		pendingDataReview: gates.PendingLibraryQualificationDataReview,
		samples:           func(t *model.Test) []*model.Sample { return t.LibraryQualifications },
		skipped:           func(t *model.Test) bool { return false },
		slots: func(s *ProjectSummary) (*int, *int, *int) {
			return &s.LibraryQualificationPendingCount,
				&s.LibraryQualificationPendingQcCount,
				&s.LibraryQualificationCompletedCount
		},
	},
	{
		completed:         gates.FullDepthCompleted,
		pendingWork:       gates.PendingFullDepthSequencing,
		pendingQc:         gates.PendingFullDepthQc,
		pendingDataReview: gates.PendingFullDepthDataReview,
		samples:           func(t *model.Test) []*model.Sample { return t.FullDepthSequencings },
		skipped:           func(t *model.Test) bool { return false },
		slots: func(s *ProjectSummary) (*int, *int, *int) {
			return &s.FullDepthSequencingPendingCount,
				&s.FullDepthSequencingPendingQcCount,
				&s.FullDepthSequencingCompletedCount
		},
	},
}

// Build sweeps the given cases once and accumulates per-project counters.
// Projects are created lazily on first contribution, seeded with their
// pipeline label. Each test lands in exactly one bucket per stage: the
// stages are evaluated as an if/else-if chain in pipeline order, never as
// independent booleans.
func Build(cases []*model.Case, filter *Filter) map[string]*ProjectSummary {
	summaries := make(map[string]*ProjectSummary)

	for _, c := range cases {
		for _, project := range c.Projects {
			s, found := summaries[project.Name]
			if !found {
				s = &ProjectSummary{Name: project.Name, Pipeline: project.Pipeline}
				summaries[project.Name] = s
			}
			accumulateCase(s, c, filter)
		}
	}
	return summaries
}

func accumulateCase(s *ProjectSummary, c *model.Case, filter *Filter) {
	s.TotalTestCount += len(c.Tests)

	// case-level buckets are computed once per case and weighted by its
	// test count so they can sit beside the per-test counters
	weight := len(c.Tests)
	if weight == 0 {
		weight = 1
	}

	// receipt
	if anyPassedWithin(c.Receipts, filter) {
		s.ReceiptCompletedCount += weight
	} else if gates.PendingReceiptQc.QualifyCase(c) {
		s.ReceiptPendingQcCount += weight
	}

	// the four test-level stages
	for _, test := range c.Tests {
		for _, stage := range testStages {
			pending, pendingQc, completed := stage.slots(s)
			switch {
			case stageCompletedWithin(test, stage, filter):
				*completed++
			case stage.pendingWork.AppliesToTest(c, test):
				*pending++
			case stage.pendingQc.AppliesToTest(c, test):
				*pendingQc++
			case stage.pendingDataReview != nil &&
				stage.pendingDataReview.AppliesToTest(c, test):
				// awaiting a data-review decision counts with pending QC
				*pendingQc++
			}
		}
	}

	// requisition sign-offs
	if anySignoffPassedWithin(c.Requisition.AnalysisReviews, filter) {
		s.AnalysisReviewCompletedCount += weight
	} else if gates.PendingAnalysisReview.QualifyCase(c) {
		s.AnalysisReviewPendingCount += weight
	}
	if anySignoffPassedWithin(c.Requisition.ReleaseApprovals, filter) {
		s.ReleaseApprovalCompletedCount += weight
	} else if gates.PendingReleaseApproval.QualifyCase(c) {
		s.ReleaseApprovalPendingCount += weight
	}
	if anySignoffPassedWithin(c.Requisition.Releases, filter) {
		s.ReleaseCompletedCount += weight
	} else if gates.PendingRelease.QualifyCase(c) {
		s.ReleasePendingCount += weight
	}
}

// a skipped stage completes with no QC date, so it only counts when no date
// filter is in effect
func stageCompletedWithin(t *model.Test, stage testStage, filter *Filter) bool {
	if stage.skipped(t) {
		return !filter.active()
	}
	return stage.completed.QualifyTest(t) &&
		anyPassedWithin(stage.samples(t), filter)
}

func anyPassedWithin(samples []*model.Sample, filter *Filter) bool {
	for _, sample := range samples {
		if sample.Passed() && filter.Matches(sample.QcDate) {
			return true
		}
	}
	return false
}

func anySignoffPassedWithin(signoffs []model.Signoff, filter *Filter) bool {
	for _, signoff := range signoffs {
		if signoff.Passed() && filter.Matches(signoff.QcDate) {
			return true
		}
	}
	return false
}
