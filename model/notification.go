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

// a derived record describing which of a run's samples in one category are
// awaiting analysis, a QC decision, or a data review; superseded by the next
// reconciliation cycle
type Notification struct {
	RunName  string   `json:"runName"`
	Category Category `json:"category"`

	// samples whose QC metrics have not arrived yet
	PendingAnalysis []*Sample `json:"pendingAnalysis"`
	// samples with metrics but no QC decision
	PendingQc []*Sample `json:"pendingQc"`
	// samples with a QC decision but no data review
	PendingDataReview []*Sample `json:"pendingDataReview"`

	// key of the issue mirroring this notification, once one exists
	IssueKey string `json:"issueKey"`
}

// Empty reports whether all three pending sets are empty.
func (n *Notification) Empty() bool {
	return len(n.PendingAnalysis) == 0 && len(n.PendingQc) == 0 &&
		len(n.PendingDataReview) == 0
}

// SampleNames returns the names of the samples in the given set, preserving
// case/test order.
func SampleNames(samples []*Sample) []string {
	names := make([]string, len(samples))
	for i, sample := range samples {
		names[i] = sample.Name
	}
	return names
}
