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

package gates

import "github.com/seqlab/stagetrack/model"

// A CompletedGate classifies a case, test, or sample as having finished one
// pipeline stage. Completion is a universal property of a case: unless a
// gate overrides qualifyCase, a case completes the gate only when every one
// of its tests does.
type CompletedGate struct {
	name     string
	category model.Category // zero for requisition-level gates

	qualifyCase   func(*model.Case) bool
	qualifyTest   func(*model.Test) bool
	qualifySample func(*model.Sample, model.Category) bool
}

// Name returns the gate's pipeline stage name.
func (g *CompletedGate) Name() string { return g.name }

// Category returns the sample category the gate reads, or "" for
// requisition-level gates.
func (g *CompletedGate) Category() model.Category { return g.category }

// QualifyCase reports whether the case has completed this gate.
func (g *CompletedGate) QualifyCase(c *model.Case) bool {
	if g.qualifyCase != nil {
		return g.qualifyCase(c)
	}
	for _, test := range c.Tests {
		if !g.qualifyTest(test) {
			return false
		}
	}
	return true
}

// QualifyTest reports whether the test has completed this gate. Gates that
// don't attach to tests (receipt and the requisition-level gates) report
// false.
func (g *CompletedGate) QualifyTest(t *model.Test) bool {
	if g.qualifyTest == nil {
		return false
	}
	return g.qualifyTest(t)
}

// QualifySample reports whether the sample satisfies this gate when found in
// the given category's list.
func (g *CompletedGate) QualifySample(s *model.Sample, category model.Category) bool {
	if g.qualifySample == nil {
		return false
	}
	return g.qualifySample(s, category)
}

func completedSample(gateCategory model.Category) func(*model.Sample, model.Category) bool {
	return func(s *model.Sample, category model.Category) bool {
		return category == gateCategory && s.Passed()
	}
}

// The completed gates, one per pipeline stage.
var (
	ReceiptCompleted = &CompletedGate{
		name:     "Receipt",
		category: model.Receipt,
		qualifyCase: func(c *model.Case) bool {
			return anyPassed(c.Receipts)
		},
		qualifySample: completedSample(model.Receipt),
	}

	ExtractionCompleted = &CompletedGate{
		name:     "Extraction",
		category: model.Extraction,
		qualifyTest: func(t *model.Test) bool {
			return t.ExtractionSkipped || anyPassed(t.Extractions)
		},
		qualifySample: completedSample(model.Extraction),
	}

	LibraryPreparationCompleted = &CompletedGate{
		name:     "Library Preparation",
		category: model.LibraryPreparation,
		qualifyTest: func(t *model.Test) bool {
			return t.LibraryPreparationSkipped || anyPassed(t.LibraryPreparations)
		},
		qualifySample: completedSample(model.LibraryPreparation),
	}

	LibraryQualificationCompleted = &CompletedGate{
		name:     "Library Qualification",
		category: model.LibraryQualification,
		qualifyTest: func(t *model.Test) bool {
			return anyPassed(t.LibraryQualifications)
		},
		qualifySample: completedSample(model.LibraryQualification),
	}

	FullDepthCompleted = &CompletedGate{
		name:     "Full-Depth Sequencing",
		category: model.FullDepthSequencing,
		qualifyTest: func(t *model.Test) bool {
			// Sample.Passed excludes top-up-required samples, so a test that
			// still needs supplementary sequencing does not complete here
			return anyPassed(t.FullDepthSequencings)
		},
		qualifySample: completedSample(model.FullDepthSequencing),
	}

	AnalysisReviewCompleted = &CompletedGate{
		name: "Analysis Review",
		qualifyCase: func(c *model.Case) bool {
			return anySignoffPassed(c.Requisition.AnalysisReviews)
		},
	}

	ReleaseApprovalCompleted = &CompletedGate{
		name: "Release Approval",
		qualifyCase: func(c *model.Case) bool {
			return anySignoffPassed(c.Requisition.ReleaseApprovals)
		},
	}

	ReleaseCompleted = &CompletedGate{
		name: "Release",
		qualifyCase: func(c *model.Case) bool {
			return anySignoffPassed(c.Requisition.Releases)
		},
	}
)

// CompletedGates lists every completed gate in pipeline order. Callers that
// classify against the whole family must traverse this slice in order.
var CompletedGates = []*CompletedGate{
	ReceiptCompleted,
	ExtractionCompleted,
	LibraryPreparationCompleted,
	LibraryQualificationCompleted,
	FullDepthCompleted,
	AnalysisReviewCompleted,
	ReleaseApprovalCompleted,
	ReleaseCompleted,
}

// CompletedGateByName finds a completed gate by its stage name, returning an
// UnknownGateError for names outside the fixed set.
func CompletedGateByName(name string) (*CompletedGate, error) {
	for _, gate := range CompletedGates {
		if gate.name == name {
			return gate, nil
		}
	}
	return nil, &UnknownGateError{Name: name}
}
