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

// A PendingState classifies a case, test, or sample as awaiting one kind of
// attention: lab work, a QC decision, or a data review. Pendingness is an
// existential property of a case: unless a state overrides qualifyCase, a
// case is pending when any of its tests is (subject to the state's
// case-level guard, e.g. "not stopped").
type PendingState struct {
	name     string
	category model.Category // zero for requisition-level states

	// case-level precondition applied before the test predicates (stopped
	// suppression, prerequisite stages at case scope)
	caseGuard func(*model.Case) bool

	qualifyCase   func(*model.Case) bool
	qualifyTest   func(*model.Test) bool
	qualifySample func(*model.Sample, model.Category) bool
}

// Name returns the state's display name.
func (s *PendingState) Name() string { return s.name }

// Category returns the sample category the state reads, or "" for
// requisition-level states.
func (s *PendingState) Category() model.Category { return s.category }

// QualifyCase reports whether any part of the case is pending this state.
func (s *PendingState) QualifyCase(c *model.Case) bool {
	if s.qualifyCase != nil {
		return s.qualifyCase(c)
	}
	if s.caseGuard != nil && !s.caseGuard(c) {
		return false
	}
	for _, test := range c.Tests {
		if s.qualifyTest(test) {
			return true
		}
	}
	return false
}

// QualifyTest reports whether the test is pending this state, ignoring
// case-level guards (see AppliesToTest for the guarded form). Case-level
// states report false.
func (s *PendingState) QualifyTest(t *model.Test) bool {
	if s.qualifyTest == nil {
		return false
	}
	return s.qualifyTest(t)
}

// AppliesToTest reports whether the test is pending this state within its
// case, honoring the state's case-level guard.
func (s *PendingState) AppliesToTest(c *model.Case, t *model.Test) bool {
	if s.qualifyTest == nil {
		return false
	}
	if s.caseGuard != nil && !s.caseGuard(c) {
		return false
	}
	return s.qualifyTest(t)
}

// QualifySample reports whether the sample matches this state when found in
// the given category's list.
func (s *PendingState) QualifySample(sample *model.Sample, category model.Category) bool {
	if s.qualifySample == nil {
		return false
	}
	return s.qualifySample(sample, category)
}

func pendingQcSample(gateCategory model.Category) func(*model.Sample, model.Category) bool {
	return func(s *model.Sample, category model.Category) bool {
		return category == gateCategory && s.PendingQc()
	}
}

func pendingDataReviewSample(gateCategory model.Category) func(*model.Sample, model.Category) bool {
	return func(s *model.Sample, category model.Category) bool {
		return category == gateCategory && s.PendingDataReview()
	}
}

// a pending-work state's sample predicate matches the preceding stage's
// passed samples: the material that is ready to move forward
func readySample(previousCategory model.Category) func(*model.Sample, model.Category) bool {
	return func(s *model.Sample, category model.Category) bool {
		return category == previousCategory && s.Passed()
	}
}

// The pending states, in pipeline order.
var (
	PendingReceiptQc = &PendingState{
		name:     "Receipt QC",
		category: model.Receipt,
		qualifyCase: func(c *model.Case) bool {
			return !c.Stopped() && anyPendingQc(c.Receipts)
		},
		qualifySample: pendingQcSample(model.Receipt),
	}

	PendingExtraction = &PendingState{
		name:     "Extraction",
		category: model.Extraction,
		caseGuard: func(c *model.Case) bool {
			return !c.Stopped() && receiptCleared(c)
		},
		qualifyTest: func(t *model.Test) bool {
			return !t.ExtractionSkipped && unstarted(t.Extractions)
		},
		qualifySample: readySample(model.Receipt),
	}

	PendingExtractionQc = &PendingState{
		name:      "Extraction QC",
		category:  model.Extraction,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingQc(t.Extractions)
		},
		qualifySample: pendingQcSample(model.Extraction),
	}

	PendingLibraryPreparation = &PendingState{
		name:      "Library Preparation",
		category:  model.LibraryPreparation,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return !t.LibraryPreparationSkipped &&
				unstarted(t.LibraryPreparations) &&
				extractionCleared(t)
		},
		qualifySample: readySample(model.Extraction),
	}

	PendingLibraryPreparationQc = &PendingState{
		name:      "Library Preparation QC",
		category:  model.LibraryPreparation,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingQc(t.LibraryPreparations)
		},
		qualifySample: pendingQcSample(model.LibraryPreparation),
	}

	PendingLibraryQualification = &PendingState{
		name:      "Library Qualification",
		category:  model.LibraryQualification,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return unstarted(t.LibraryQualifications) &&
				libraryPreparationCleared(t)
		},
		qualifySample: readySample(model.LibraryPreparation),
	}

	PendingLibraryQualificationQc = &PendingState{
		name:      "Library Qualification QC",
		category:  model.LibraryQualification,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingQc(t.LibraryQualifications)
		},
		qualifySample: pendingQcSample(model.LibraryQualification),
	}

	PendingLibraryQualificationDataReview = &PendingState{
		name:     "Library Qualification Data Review",
		category: model.LibraryQualification,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingDataReview(t.LibraryQualifications)
		},
		qualifySample: pendingDataReviewSample(model.LibraryQualification),
	}

	PendingFullDepthSequencing = &PendingState{
		name:      "Full-Depth Sequencing",
		category:  model.FullDepthSequencing,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			// a top-up-required sample is neither passed nor pending QC, so a
			// test waiting on supplementary sequencing lands here
			return unstarted(t.FullDepthSequencings) &&
				libraryQualificationCleared(t)
		},
		qualifySample: readySample(model.LibraryQualification),
	}

	PendingFullDepthQc = &PendingState{
		name:      "Full-Depth QC",
		category:  model.FullDepthSequencing,
		caseGuard: notStopped,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingQc(t.FullDepthSequencings)
		},
		qualifySample: pendingQcSample(model.FullDepthSequencing),
	}

	PendingFullDepthDataReview = &PendingState{
		name:     "Full-Depth Data Review",
		category: model.FullDepthSequencing,
		qualifyTest: func(t *model.Test) bool {
			return anyPendingDataReview(t.FullDepthSequencings)
		},
		qualifySample: pendingDataReviewSample(model.FullDepthSequencing),
	}

	PendingAnalysisReview = &PendingState{
		name: "Analysis Review",
		qualifyCase: func(c *model.Case) bool {
			if c.Stopped() {
				return false
			}
			if anySignoffPassed(c.Requisition.AnalysisReviews) {
				return false
			}
			for _, test := range c.Tests {
				if !fullDepthCleared(test) {
					return false
				}
			}
			return true
		},
	}

	// Release approval and release are deliberately not suppressed for
	// stopped cases: a stopped case still needs its release sign-offs.
	PendingReleaseApproval = &PendingState{
		name: "Release Approval",
		qualifyCase: func(c *model.Case) bool {
			return anySignoffPassed(c.Requisition.AnalysisReviews) &&
				!anySignoffPending(c.Requisition.AnalysisReviews) &&
				!anySignoffPassed(c.Requisition.ReleaseApprovals)
		},
	}

	PendingRelease = &PendingState{
		name: "Release",
		qualifyCase: func(c *model.Case) bool {
			return anySignoffPassed(c.Requisition.ReleaseApprovals) &&
				!anySignoffPending(c.Requisition.ReleaseApprovals) &&
				!anySignoffPassed(c.Requisition.Releases)
		},
	}
)

// PendingStates lists every pending state in pipeline order. Classification
// must traverse this slice in order and stop at the first match: the
// ordering is an if/else-if precedence chain, not a set of independent
// booleans.
var PendingStates = []*PendingState{
	PendingReceiptQc,
	PendingExtraction,
	PendingExtractionQc,
	PendingLibraryPreparation,
	PendingLibraryPreparationQc,
	PendingLibraryQualification,
	PendingLibraryQualificationQc,
	PendingLibraryQualificationDataReview,
	PendingFullDepthSequencing,
	PendingFullDepthQc,
	PendingFullDepthDataReview,
	PendingAnalysisReview,
	PendingReleaseApproval,
	PendingRelease,
}

// PendingStateByName finds a pending state by its display name, returning an
// UnknownPendingStateError for names outside the fixed set.
func PendingStateByName(name string) (*PendingState, error) {
	for _, state := range PendingStates {
		if state.name == name {
			return state, nil
		}
	}
	return nil, &UnknownPendingStateError{Name: name}
}

// FirstPendingForTest classifies a test against the pending states in
// pipeline order, returning the first state that applies within the test's
// case, or nil if the test is fully complete or blocked by a failed or
// stopped prerequisite.
func FirstPendingForTest(c *model.Case, t *model.Test) *PendingState {
	for _, state := range PendingStates {
		if state.AppliesToTest(c, t) {
			return state
		}
	}
	return nil
}

// FirstPendingForCase classifies a whole case, returning the first pending
// state that applies to it, or nil.
func FirstPendingForCase(c *model.Case) *PendingState {
	for _, state := range PendingStates {
		if state.QualifyCase(c) {
			return state
		}
	}
	return nil
}
