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

// This package derives "pending QC" notifications for sequencing runs and
// reconciles them against the external issue tracker so lab staff are
// alerted exactly when a run needs attention and not otherwise.
package notify

import (
	"github.com/seqlab/stagetrack/assay"
	"github.com/seqlab/stagetrack/model"
)

// Derive partitions a run's samples in one category into the three pending
// sets. Samples whose data review is already done are excluded entirely. A
// nil notification (with nil error) means the run and all its samples in
// this category are fully resolved and any existing ticket can be cleared.
func Derive(snap *model.Snapshot, run *model.Run,
	category model.Category) (*model.Notification, error) {

	n := &model.Notification{RunName: run.Name, Category: category}
	for _, sample := range snap.SamplesForRun(run.Name, category) {
		if sample.DataReviewDate != nil {
			continue
		}
		available, err := assay.Available(sample, run, snap.Assays, category)
		if err != nil {
			return nil, err
		}
		switch {
		case !available:
			n.PendingAnalysis = append(n.PendingAnalysis, sample)
		case sample.QcDate == nil:
			n.PendingQc = append(n.PendingQc, sample)
		default:
			n.PendingDataReview = append(n.PendingDataReview, sample)
		}
	}

	if n.Empty() && run.DataReviewDate != nil {
		return nil, nil
	}
	return n, nil
}

// ShouldCreate applies the per-category gating for opening a fresh ticket
// for a notification that has no existing open issue. Library qualification
// runs wait until every sample is fully analyzed; full-depth runs need only
// one analyzed sample, and only open a ticket when a sign-off is actually
// outstanding.
func ShouldCreate(snap *model.Snapshot, run *model.Run,
	category model.Category, n *model.Notification) (bool, error) {

	samples := snap.SamplesForRun(run.Name, category)
	switch category {
	case model.LibraryQualification:
		// a run with no samples in this category has nothing to qualify
		if len(samples) == 0 {
			return false, nil
		}
		for _, sample := range samples {
			available, err := assay.Available(sample, run, snap.Assays, category)
			if err != nil {
				return false, err
			}
			if !available {
				return false, nil
			}
		}
		return true, nil

	case model.FullDepthSequencing:
		anyAvailable := false
		for _, sample := range samples {
			available, err := assay.Available(sample, run, snap.Assays, category)
			if err != nil {
				return false, err
			}
			if available {
				anyAvailable = true
				break
			}
		}
		if !anyAvailable {
			return false, nil
		}
		return len(n.PendingQc) > 0 || len(n.PendingDataReview) > 0 ||
			run.DataReviewDate == nil, nil
	}
	return false, &assay.UnsupportedCategoryError{Category: category}
}
