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

package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/stagetrack/labtest"
	"github.com/seqlab/stagetrack/model"
)

const testRunName = "240601_A00000_0001_FLOWCELL"

// analyzed marks a sample as sequenced on the test run under an assay with
// no gating metrics, so its QC metrics count as arrived
func analyzed(sample *model.Sample) *model.Sample {
	sample.RunName = testRunName
	sample.AssayId = "assay-1"
	return sample
}

// unanalyzed marks a sample as sequenced on the test run with no assay, so
// its QC metrics count as still pending
func unanalyzed(sample *model.Sample) *model.Sample {
	sample.RunName = testRunName
	return sample
}

// a snapshot with one case, one test, and one run carrying the given
// samples in the two run-associated categories
func runSnapshot(run *model.Run,
	qualifications, sequencings []*model.Sample) *model.Snapshot {

	return &model.Snapshot{
		Timestamp: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		Cases: []*model.Case{{
			Id: "CASE-1",
			Tests: []*model.Test{{
				Name:                  "test-1",
				LibraryQualifications: qualifications,
				FullDepthSequencings:  sequencings,
			}},
		}},
		Runs:   map[string]*model.Run{run.Name: run},
		Assays: map[string]*model.Assay{"assay-1": {Id: "assay-1", Name: "WGS"}},
	}
}

func TestDerivePartitionsSamples(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, []*model.Sample{
		unanalyzed(labtest.PendingQcSample("SAM-1")),
		analyzed(labtest.PendingQcSample("SAM-2")),
		analyzed(labtest.PassedSample("SAM-3")),
		analyzed(labtest.ReviewedSample("SAM-4")),
	}, nil)

	n, err := Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)
	assert.NotNil(n)
	assert.Equal(testRunName, n.RunName)
	assert.Equal(model.LibraryQualification, n.Category)
	assert.Equal([]string{"SAM-1"}, model.SampleNames(n.PendingAnalysis))
	assert.Equal([]string{"SAM-2"}, model.SampleNames(n.PendingQc))
	assert.Equal([]string{"SAM-3"}, model.SampleNames(n.PendingDataReview))
}

func TestDeriveNilWhenFullyResolved(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{
		Name:           testRunName,
		QcDate:         labtest.Day(2024, time.June, 2),
		DataReviewDate: labtest.Day(2024, time.June, 3),
	}
	snap := runSnapshot(run,
		[]*model.Sample{analyzed(labtest.ReviewedSample("SAM-1"))}, nil)

	n, err := Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)
	assert.Nil(n)
}

func TestDeriveKeepsEmptyNotificationUntilRunReviewed(t *testing.T) {
	assert := assert.New(t)

	// the samples are all reviewed but the run's own sign-offs are not
	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run,
		[]*model.Sample{analyzed(labtest.ReviewedSample("SAM-1"))}, nil)

	n, err := Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)
	assert.NotNil(n)
	assert.True(n.Empty())
}

func TestShouldCreateQualificationWaitsForAllSamples(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, []*model.Sample{
		analyzed(labtest.PendingQcSample("SAM-1")),
		unanalyzed(labtest.PendingQcSample("SAM-2")),
	}, nil)

	n, err := Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)

	create, err := ShouldCreate(snap, run, model.LibraryQualification, n)
	assert.NoError(err)
	assert.False(create)

	// once the last sample's metrics arrive the ticket is due
	snap.Cases[0].Tests[0].LibraryQualifications[1].AssayId = "assay-1"
	n, err = Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)
	create, err = ShouldCreate(snap, run, model.LibraryQualification, n)
	assert.NoError(err)
	assert.True(create)
}

func TestShouldCreateQualificationNeedsSamples(t *testing.T) {
	assert := assert.New(t)

	// a run sequenced only at full depth has no library qualification work,
	// even though its empty derived notification is non-nil
	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, nil,
		[]*model.Sample{analyzed(labtest.PendingQcSample("SAM-1"))})

	n, err := Derive(snap, run, model.LibraryQualification)
	assert.NoError(err)
	assert.NotNil(n)
	assert.True(n.Empty())

	create, err := ShouldCreate(snap, run, model.LibraryQualification, n)
	assert.NoError(err)
	assert.False(create)
}

func TestShouldCreateFullDepthNeedsOneSample(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, nil, []*model.Sample{
		analyzed(labtest.PendingQcSample("SAM-1")),
		unanalyzed(labtest.PendingQcSample("SAM-2")),
	})

	n, err := Derive(snap, run, model.FullDepthSequencing)
	assert.NoError(err)

	create, err := ShouldCreate(snap, run, model.FullDepthSequencing, n)
	assert.NoError(err)
	assert.True(create)
}

func TestShouldCreateFullDepthWithoutAnalyzedSamples(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, nil, []*model.Sample{
		unanalyzed(labtest.PendingQcSample("SAM-1")),
	})

	n, err := Derive(snap, run, model.FullDepthSequencing)
	assert.NoError(err)

	create, err := ShouldCreate(snap, run, model.FullDepthSequencing, n)
	assert.NoError(err)
	assert.False(create)
}

func TestShouldCreateFullDepthForRunSignoffsAlone(t *testing.T) {
	assert := assert.New(t)

	// the samples are reviewed, but the run's own data review is outstanding
	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, nil,
		[]*model.Sample{analyzed(labtest.ReviewedSample("SAM-1"))})

	n, err := Derive(snap, run, model.FullDepthSequencing)
	assert.NoError(err)
	assert.True(n.Empty())

	create, err := ShouldCreate(snap, run, model.FullDepthSequencing, n)
	assert.NoError(err)
	assert.True(create)

	// once the run is signed off there is nothing to open a ticket for
	run.QcDate = labtest.Day(2024, time.June, 2)
	run.DataReviewDate = labtest.Day(2024, time.June, 3)
	create, err = ShouldCreate(snap, run, model.FullDepthSequencing, n)
	assert.NoError(err)
	assert.False(create)
}

func TestShouldCreateRejectsNonRunCategory(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: testRunName}
	snap := runSnapshot(run, nil, nil)
	_, err := ShouldCreate(snap, run, model.Extraction, &model.Notification{})
	assert.Error(err)
}
