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

package assay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/stagetrack/model"
)

// an assay gating library qualification on two metrics, one of them
// restricted to tumour tissue
func testAssay() map[string]*model.Assay {
	return map[string]*model.Assay{
		"assay-1": {
			Id:   "assay-1",
			Name: "WGS 2.0",
			MetricCategories: map[model.Category][]model.MetricSubcategory{
				model.LibraryQualification: {
					{
						Name: "Sequencing",
						Metrics: []model.Metric{
							{Name: "Mean Insert Size"},
							{Name: "Duplication Rate", TissueType: "T"},
						},
					},
				},
			},
		},
	}
}

func qualificationSample() *model.Sample {
	return &model.Sample{
		Id:         "SAM-1",
		Name:       "SAM-1",
		AssayId:    "assay-1",
		TissueType: "T",
		Metrics: map[string]float64{
			"Mean Insert Size": 412,
			"Duplication Rate": 0.11,
		},
	}
}

func TestAvailableWhenAllMetricsArrived(t *testing.T) {
	assert := assert.New(t)

	available, err := Available(qualificationSample(), nil, testAssay(),
		model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)
}

func TestUnavailableWhenMetricMissing(t *testing.T) {
	assert := assert.New(t)

	sample := qualificationSample()
	delete(sample.Metrics, "Mean Insert Size")
	available, err := Available(sample, nil, testAssay(),
		model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)
}

func TestCriteriaExcludeInapplicableMetrics(t *testing.T) {
	assert := assert.New(t)

	// a reference sample is not subject to the tumour-only duplication metric
	sample := qualificationSample()
	sample.TissueType = "R"
	delete(sample.Metrics, "Duplication Rate")
	available, err := Available(sample, nil, testAssay(),
		model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)
}

func TestNegatedTissueTypeCriterion(t *testing.T) {
	assert := assert.New(t)

	assays := testAssay()
	metrics := assays["assay-1"].MetricCategories[model.LibraryQualification]
	metrics[0].Metrics[1].NegateTissueType = true

	// with the criterion negated the tumour sample is exempt instead
	sample := qualificationSample()
	delete(sample.Metrics, "Duplication Rate")
	available, err := Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)

	sample.TissueType = "R"
	available, err = Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)
}

func TestRunCriteria(t *testing.T) {
	assert := assert.New(t)

	assays := testAssay()
	readLength := 151
	assays["assay-1"].MetricCategories[model.LibraryQualification] =
		[]model.MetricSubcategory{{
			Name: "Sequencing",
			Metrics: []model.Metric{{
				Name:           "Clusters Per Sample",
				ContainerModel: "Flow Cell v3",
				ReadLength:     &readLength,
			}},
		}}

	sample := qualificationSample()
	sample.Metrics = map[string]float64{}

	// criteria that need run attributes never match without a run
	available, err := Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)

	run := &model.Run{
		Name:           "240601_A00000_0001",
		ContainerModel: "Flow Cell v3",
		ReadLength:     151,
	}
	available, err = Available(sample, run, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)

	run.ReadLength = 101
	available, err = Available(sample, run, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)
}

func TestNonGatingMetricNeverBlocks(t *testing.T) {
	assert := assert.New(t)

	assays := testAssay()
	assays["assay-1"].MetricCategories[model.LibraryQualification] =
		[]model.MetricSubcategory{{
			Name:    "Informatics",
			Metrics: []model.Metric{{Name: "Median Insert Size"}},
		}}

	sample := qualificationSample()
	sample.Metrics = nil
	available, err := Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)
}

func TestLibraryDesignRestrictedSubcategory(t *testing.T) {
	assert := assert.New(t)

	assays := testAssay()
	metrics := assays["assay-1"].MetricCategories[model.LibraryQualification]
	metrics[0].LibraryDesignCode = "WG"

	sample := qualificationSample()
	sample.Metrics = nil

	// the subcategory only applies to matching library designs
	sample.LibraryDesignCode = "TS"
	available, err := Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.True(available)

	sample.LibraryDesignCode = "WG"
	available, err = Available(sample, nil, assays, model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)
}

func TestUnknownAssayIsUnavailable(t *testing.T) {
	assert := assert.New(t)

	sample := qualificationSample()
	sample.AssayId = "assay-9"
	available, err := Available(sample, nil, testAssay(),
		model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)

	sample.AssayId = ""
	available, err = Available(sample, nil, testAssay(),
		model.LibraryQualification)
	assert.NoError(err)
	assert.False(available)
}

func TestUnsupportedCategory(t *testing.T) {
	assert := assert.New(t)

	_, err := Available(qualificationSample(), nil, testAssay(), model.Extraction)
	assert.Error(err)
	assert.IsType(&UnsupportedCategoryError{}, err)
}
