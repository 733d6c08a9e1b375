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

// This package holds the immutable case/run/assay graph produced by a
// snapshot refresh. Nothing in here is ever mutated after loading: a new
// refresh replaces the whole graph.
package model

import "time"

// a donor from whom case samples originate
type Donor struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	ExternalName string `json:"externalName"`
}

// a project to which a case belongs, with the label of the pipeline it
// reports under
type Project struct {
	Name     string `json:"name"`
	Pipeline string `json:"pipeline"`
}

// a single QC sign-off record attached to a requisition (analysis review,
// release approval, or release)
type Signoff struct {
	// nil means the decision has not been made yet
	QcPassed *bool      `json:"qcPassed"`
	QcDate   *time.Time `json:"qcDate"`
	QcUser   string     `json:"qcUser"`
}

// Passed returns true if the sign-off decision has been made and is positive.
func (s Signoff) Passed() bool {
	return s.QcPassed != nil && *s.QcPassed
}

// a requisition, which carries the stop/pause flags for its case and owns
// the case-level QC sign-off records
type Requisition struct {
	Id              string    `json:"id"`
	Name            string    `json:"name"`
	Stopped         bool      `json:"stopped"`
	Paused          bool      `json:"paused"`
	AnalysisReviews []Signoff `json:"analysisReviews"`
	ReleaseApprovals []Signoff `json:"releaseApprovals"`
	Releases        []Signoff `json:"releases"`
}

// a test within a case, owning the four ordered sample lists for the
// sample-bearing pipeline stages
type Test struct {
	Name    string `json:"name"`
	TissueOrigin string `json:"tissueOrigin"`
	TissueType   string `json:"tissueType"`
	Timepoint    string `json:"timepoint"`
	// a skipped stage is vacuously complete
	ExtractionSkipped         bool `json:"extractionSkipped"`
	LibraryPreparationSkipped bool `json:"libraryPreparationSkipped"`
	Extractions           []*Sample `json:"extractions"`
	LibraryPreparations   []*Sample `json:"libraryPreparations"`
	LibraryQualifications []*Sample `json:"libraryQualifications"`
	FullDepthSequencings  []*Sample `json:"fullDepthSequencings"`
}

// Samples returns the test's sample list for the given category, or nil for
// categories that don't attach samples to tests (receipt and the
// requisition-level stages).
func (t *Test) Samples(category Category) []*Sample {
	switch category {
	case Extraction:
		return t.Extractions
	case LibraryPreparation:
		return t.LibraryPreparations
	case LibraryQualification:
		return t.LibraryQualifications
	case FullDepthSequencing:
		return t.FullDepthSequencings
	}
	return nil
}

// a case, created fresh on every snapshot refresh and never mutated
type Case struct {
	Id          string    `json:"id"`
	Donor       Donor     `json:"donor"`
	Projects    []Project `json:"projects"`
	AssayId     string    `json:"assayId"`
	TissueOrigin string   `json:"tissueOrigin"`
	TissueType   string   `json:"tissueType"`
	Timepoint    string   `json:"timepoint"`
	Receipts    []*Sample   `json:"receipts"`
	Tests       []*Test     `json:"tests"`
	Requisition Requisition `json:"requisition"`
}

// Stopped reports whether the case's requisition has been stopped. The flag
// lives on the requisition and is never set independently.
func (c *Case) Stopped() bool {
	return c.Requisition.Stopped
}

// Paused reports whether the case's requisition has been paused.
func (c *Case) Paused() bool {
	return c.Requisition.Paused
}
