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

import "time"

// Category names one of the sample-bearing pipeline stages. Receipt samples
// attach to cases; the other four lists attach to tests.
type Category string

const (
	Receipt              Category = "Receipt"
	Extraction           Category = "Extraction"
	LibraryPreparation   Category = "Library Preparation"
	LibraryQualification Category = "Library Qualification"
	FullDepthSequencing  Category = "Full-Depth Sequencing"
)

// RunCategories lists the categories whose samples are associated with
// sequencing runs, in pipeline order.
var RunCategories = []Category{LibraryQualification, FullDepthSequencing}

// IsRunCategory reports whether samples of the given category carry run
// associations and data review outcomes.
func IsRunCategory(category Category) bool {
	return category == LibraryQualification || category == FullDepthSequencing
}

// a sample at some pipeline stage
type Sample struct {
	Id   string `json:"id"`
	Name string `json:"name"`

	// attributes matched against assay metric criteria
	TissueOrigin      string `json:"tissueOrigin"`
	TissueType        string `json:"tissueType"`
	TissueMaterial    string `json:"tissueMaterial"`
	NucleicAcidType   string `json:"nucleicAcidType"`
	LibraryDesignCode string `json:"libraryDesignCode"`

	// the assay governing this sample's QC metrics, if any
	AssayId string `json:"assayId"`

	// the run this sample was sequenced on (run-associated categories only)
	RunName string `json:"runName"`

	// nil means the QC decision has not been made yet
	QcPassed *bool      `json:"qcPassed"`
	QcDate   *time.Time `json:"qcDate"`

	// passed, but needs supplementary sequencing; distinct from a plain pass
	TopUpRequired bool `json:"topUpRequired"`

	// data review outcome (run-associated categories only)
	DataReviewPassed *bool      `json:"dataReviewPassed"`
	DataReviewDate   *time.Time `json:"dataReviewDate"`

	// externally computed QC metric values, keyed by metric name; a missing
	// key means the value has not arrived yet
	Metrics map[string]float64 `json:"metrics"`
}

// Passed returns true if the sample's QC decision has been made and is a
// plain pass. A top-up-required sample is not a plain pass: it still needs
// more sequencing.
func (s *Sample) Passed() bool {
	return s.QcPassed != nil && *s.QcPassed && !s.TopUpRequired
}

// PendingQc returns true if the sample's QC decision has not been made.
func (s *Sample) PendingQc() bool {
	return s.QcPassed == nil
}

// PendingDataReview returns true if the sample passed QC but its data review
// has not happened yet.
func (s *Sample) PendingDataReview() bool {
	return s.Passed() && s.DataReviewDate == nil
}

// a sequencing run; its QC and data review sign-offs are independent of its
// samples'
type Run struct {
	Id   string `json:"id"`
	Name string `json:"name"`

	ContainerModel string `json:"containerModel"`
	ReadLength     int    `json:"readLength"`
	ReadLength2    int    `json:"readLength2"`

	QcPassed *bool      `json:"qcPassed"`
	QcDate   *time.Time `json:"qcDate"`

	DataReviewPassed *bool      `json:"dataReviewPassed"`
	DataReviewDate   *time.Time `json:"dataReviewDate"`
}
