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

package model

// a metric definition within an assay, with optional filter criteria that
// restrict which samples/runs it applies to
type Metric struct {
	Name          string `json:"name"`
	ThresholdType string `json:"thresholdType"`
	Minimum       *float64 `json:"minimum"`
	Maximum       *float64 `json:"maximum"`

	// filter criteria; an empty/nil field means no restriction
	NucleicAcidType string `json:"nucleicAcidType"`
	TissueMaterial  string `json:"tissueMaterial"`
	TissueOrigin    string `json:"tissueOrigin"`
	TissueType      string `json:"tissueType"`
	// when set, the tissue-type criterion matches unless equal
	NegateTissueType bool   `json:"negateTissueType"`
	ContainerModel   string `json:"containerModel"`
	ReadLength       *int   `json:"readLength"`
	ReadLength2      *int   `json:"readLength2"`
}

// a group of metrics within an assay, optionally restricted to one library
// design code
type MetricSubcategory struct {
	Name              string   `json:"name"`
	LibraryDesignCode string   `json:"libraryDesignCode"`
	Metrics           []Metric `json:"metrics"`
}

// an assay: per pipeline category, the metric subcategories defining which
// QC metrics its samples are expected to carry
type Assay struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	// keyed by pipeline category; only run-associated categories are used by
	// the metrics-availability check
	MetricCategories map[Category][]MetricSubcategory `json:"metricCategories"`
}
