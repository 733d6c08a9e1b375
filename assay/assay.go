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

// This package decides whether a sample's externally computed QC metrics
// have arrived, by matching the sample and its run against the metric
// criteria its assay defines for the pipeline category being checked.
package assay

import "github.com/seqlab/stagetrack/model"

// The metric names that gate QC readiness. A metric whose name falls
// outside this set never blocks a sample: its value is computed on demand
// rather than delivered by the analysis pipeline.
var gatingMetrics = map[string]bool{
	"Mean Insert Size":           true,
	"Clusters Per Sample":        true,
	"Pass Filter Clusters":       true,
	"Duplication Rate":           true,
	"Mapped to Coding":           true,
	"rRNA Contamination":         true,
	"Mean Coverage Deduplicated": true,
	"Coverage (Raw)":             true,
	"On Target Reads":            true,
}

// Available reports whether every applicable QC metric value has arrived for
// the given sample. Only the run-associated categories (library
// qualification and full-depth sequencing) have externally computed metrics;
// any other category is a programming error.
func Available(sample *model.Sample, run *model.Run,
	assays map[string]*model.Assay, category model.Category) (bool, error) {

	if !model.IsRunCategory(category) {
		return false, &UnsupportedCategoryError{Category: category}
	}

	// a sample without an assay has no metric definitions; treated as
	// unavailable
	if sample.AssayId == "" {
		return false, nil
	}
	theAssay, found := assays[sample.AssayId]
	if !found {
		return false, nil
	}

	for _, subcategory := range theAssay.MetricCategories[category] {
		if subcategory.LibraryDesignCode != "" &&
			subcategory.LibraryDesignCode != sample.LibraryDesignCode {
			continue
		}
		for _, metric := range subcategory.Metrics {
			if !criteriaMatch(&metric, sample, run) {
				continue
			}
			if !gatingMetrics[metric.Name] {
				continue
			}
			if _, present := sample.Metrics[metric.Name]; !present {
				return false, nil
			}
		}
	}
	return true, nil
}

// criteriaMatch checks a metric's filter criteria against the sample and its
// run; empty criteria match everything
func criteriaMatch(metric *model.Metric, sample *model.Sample, run *model.Run) bool {
	if metric.NucleicAcidType != "" &&
		metric.NucleicAcidType != sample.NucleicAcidType {
		return false
	}
	if metric.TissueMaterial != "" &&
		metric.TissueMaterial != sample.TissueMaterial {
		return false
	}
	if metric.TissueOrigin != "" && metric.TissueOrigin != sample.TissueOrigin {
		return false
	}
	if metric.TissueType != "" {
		matches := metric.TissueType == sample.TissueType
		if metric.NegateTissueType {
			matches = !matches
		}
		if !matches {
			return false
		}
	}
	if metric.ContainerModel != "" {
		if run == nil || metric.ContainerModel != run.ContainerModel {
			return false
		}
	}
	if metric.ReadLength != nil {
		if run == nil || *metric.ReadLength != run.ReadLength {
			return false
		}
	}
	if metric.ReadLength2 != nil {
		if run == nil || *metric.ReadLength2 != run.ReadLength2 {
			return false
		}
	}
	return true
}
