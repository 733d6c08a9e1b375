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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/stagetrack/labtest"
	"github.com/seqlab/stagetrack/model"
)

// a case whose receipt has cleared QC and whose single test has no
// extraction attempts yet
func pendingExtractionCase() *model.Case {
	return &model.Case{
		Id:       "CASE-1",
		Receipts: []*model.Sample{labtest.PassedSample("CASE-1-receipt")},
		Tests:    []*model.Test{{Name: "test-1"}},
	}
}

func TestPendingExtraction(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	state := FirstPendingForTest(c, c.Tests[0])
	assert.Equal(PendingExtraction, state)
	assert.False(ExtractionCompleted.QualifyCase(c))

	// the state's sample predicate picks out the passed receipt material
	assert.True(state.QualifySample(c.Receipts[0], model.Receipt))
	assert.False(state.QualifySample(labtest.PendingQcSample("x"), model.Receipt))
}

func TestPendingReceiptQcPrecedesExtraction(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	c.Receipts = append(c.Receipts, labtest.PendingQcSample("CASE-1-receipt-2"))

	// an undecided receipt blocks extraction in two ways: the case itself is
	// pending receipt QC, and the test's extraction prerequisite fails
	assert.Equal(PendingReceiptQc, FirstPendingForCase(c))
	assert.Nil(FirstPendingForTest(c, c.Tests[0]))
}

func TestFailedExtractionIsStillPendingExtraction(t *testing.T) {
	assert := assert.New(t)

	// all attempts failed: the stage has to be redone, not QC'd
	c := pendingExtractionCase()
	c.Tests[0].Extractions = []*model.Sample{labtest.FailedSample("CASE-1-ex")}
	assert.Equal(PendingExtraction, FirstPendingForTest(c, c.Tests[0]))
}

func TestPendingExtractionQc(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	c.Tests[0].Extractions = []*model.Sample{labtest.PendingQcSample("CASE-1-ex")}
	assert.Equal(PendingExtractionQc, FirstPendingForTest(c, c.Tests[0]))
}

func TestSkippedStagesAreVacuouslyComplete(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	c.Tests[0].ExtractionSkipped = true
	assert.True(ExtractionCompleted.QualifyTest(c.Tests[0]))
	assert.Equal(PendingLibraryPreparation, FirstPendingForTest(c, c.Tests[0]))

	c.Tests[0].LibraryPreparationSkipped = true
	assert.True(LibraryPreparationCompleted.QualifyTest(c.Tests[0]))
	assert.Equal(PendingLibraryQualification, FirstPendingForTest(c, c.Tests[0]))
}

func TestPendingDataReviewStates(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	test := c.Tests[0]
	test.Extractions = []*model.Sample{labtest.PassedSample("ex")}
	test.LibraryPreparations = []*model.Sample{labtest.PassedSample("lp")}
	test.LibraryQualifications = []*model.Sample{labtest.PassedSample("lq")}

	// passed but unreviewed library qualification
	assert.Equal(PendingLibraryQualificationDataReview, FirstPendingForTest(c, test))

	test.LibraryQualifications = []*model.Sample{labtest.ReviewedSample("lq")}
	assert.Equal(PendingFullDepthSequencing, FirstPendingForTest(c, test))

	test.FullDepthSequencings = []*model.Sample{labtest.PassedSample("fd")}
	assert.Equal(PendingFullDepthDataReview, FirstPendingForTest(c, test))

	test.FullDepthSequencings = []*model.Sample{labtest.ReviewedSample("fd")}
	assert.Nil(FirstPendingForTest(c, test))
}

func TestTopUpHoldsFullDepth(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	test := c.Tests[0]
	test.Extractions = []*model.Sample{labtest.PassedSample("ex")}
	test.LibraryPreparations = []*model.Sample{labtest.PassedSample("lp")}
	test.LibraryQualifications = []*model.Sample{labtest.ReviewedSample("lq")}
	test.FullDepthSequencings = []*model.Sample{labtest.TopUpSample("fd")}

	// a top-up-required sample does not complete full-depth sequencing, and
	// the test remains pending the sequencing itself
	assert.False(FullDepthCompleted.QualifyTest(test))
	assert.Equal(PendingFullDepthSequencing, FirstPendingForTest(c, test))
}

func TestStoppedSuppression(t *testing.T) {
	assert := assert.New(t)

	c := pendingExtractionCase()
	c.Requisition.Stopped = true
	assert.Nil(FirstPendingForTest(c, c.Tests[0]))
	assert.Nil(FirstPendingForCase(c))
}

func TestStoppedCaseStillPendingRelease(t *testing.T) {
	assert := assert.New(t)

	// a stopped case with a passed analysis review still owes its release
	// sign-offs
	c := labtest.CompletedCase("CASE-2", "PROJ", 1)
	c.Requisition.Stopped = true
	c.Requisition.ReleaseApprovals = nil
	c.Requisition.Releases = nil
	assert.Equal(PendingReleaseApproval, FirstPendingForCase(c))

	c.Requisition.ReleaseApprovals = []model.Signoff{labtest.PassedSignoff()}
	assert.Equal(PendingRelease, FirstPendingForCase(c))
}

func TestPendingAnalysisReview(t *testing.T) {
	assert := assert.New(t)

	c := labtest.CompletedCase("CASE-3", "PROJ", 2)
	c.Requisition.AnalysisReviews = nil
	c.Requisition.ReleaseApprovals = nil
	c.Requisition.Releases = nil
	assert.Equal(PendingAnalysisReview, FirstPendingForCase(c))

	// one test not fully sequenced holds the whole case back
	c.Tests[1].FullDepthSequencings = nil
	assert.NotEqual(PendingAnalysisReview, FirstPendingForCase(c))
}

func TestCompletedCaseHasNoPendingState(t *testing.T) {
	assert := assert.New(t)

	c := labtest.CompletedCase("CASE-4", "PROJ", 3)
	assert.Nil(FirstPendingForCase(c))
	for _, test := range c.Tests {
		assert.Nil(FirstPendingForTest(c, test))
	}
	for _, gate := range CompletedGates {
		assert.True(gate.QualifyCase(c), gate.Name())
	}
}

func TestFirstMatchWinsAcrossTests(t *testing.T) {
	assert := assert.New(t)

	// one test pending library preparation, another pending extraction QC:
	// the case classifies at the earlier state
	c := pendingExtractionCase()
	c.Tests = []*model.Test{
		{
			Name:        "test-1",
			Extractions: []*model.Sample{labtest.PassedSample("t1-ex")},
		},
		{
			Name:        "test-2",
			Extractions: []*model.Sample{labtest.PendingQcSample("t2-ex")},
		},
	}
	assert.Equal(PendingLibraryPreparation, FirstPendingForTest(c, c.Tests[0]))
	assert.Equal(PendingExtractionQc, FirstPendingForTest(c, c.Tests[1]))
	assert.Equal(PendingExtractionQc, FirstPendingForCase(c))
}

func TestGateLookup(t *testing.T) {
	assert := assert.New(t)

	gate, err := CompletedGateByName("Full-Depth Sequencing")
	assert.Nil(err)
	assert.Equal(FullDepthCompleted, gate)

	_, err = CompletedGateByName("Shipping")
	assert.NotNil(err)
	_, isUnknown := err.(*UnknownGateError)
	assert.True(isUnknown)

	state, err := PendingStateByName("Library Qualification Data Review")
	assert.Nil(err)
	assert.Equal(PendingLibraryQualificationDataReview, state)

	_, err = PendingStateByName("Shipping QC")
	assert.NotNil(err)
	_, isUnknownState := err.(*UnknownPendingStateError)
	assert.True(isUnknownState)
}

func TestReceiptCompletedRequiresOnlyOnePass(t *testing.T) {
	assert := assert.New(t)

	c := &model.Case{
		Receipts: []*model.Sample{
			labtest.FailedSample("r1"),
			labtest.PassedSample("r2"),
		},
	}
	assert.True(ReceiptCompleted.QualifyCase(c))
}
