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

// This package contains testing utilities for the stage tracker: sample and
// case builders for exercising the gate rules, and a capturing fake issue
// tracker for exercising the reconciliation state machine.
package labtest

import (
	"log/slog"
	"os"
	"time"

	"github.com/seqlab/stagetrack/model"
)

// Enables DEBUG log messages for the tracker's structured log (slog).
func EnableDebugLogging() {
	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelDebug)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
}

// Bool returns a pointer to the given bool, for filling QC outcomes.
func Bool(b bool) *bool { return &b }

// Time returns a pointer to the given time, for filling QC dates.
func Time(t time.Time) *time.Time { return &t }

// Day returns a pointer to midnight UTC on the given date.
func Day(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// PassedSample builds a sample with a positive QC decision.
func PassedSample(name string) *model.Sample {
	return &model.Sample{
		Id:       name,
		Name:     name,
		QcPassed: Bool(true),
		QcDate:   Day(2024, time.March, 1),
	}
}

// FailedSample builds a sample with a negative QC decision.
func FailedSample(name string) *model.Sample {
	return &model.Sample{
		Id:       name,
		Name:     name,
		QcPassed: Bool(false),
		QcDate:   Day(2024, time.March, 1),
	}
}

// PendingQcSample builds a sample whose QC decision has not been made.
func PendingQcSample(name string) *model.Sample {
	return &model.Sample{Id: name, Name: name}
}

// ReviewedSample builds a sample that has passed both QC and data review.
func ReviewedSample(name string) *model.Sample {
	sample := PassedSample(name)
	sample.DataReviewPassed = Bool(true)
	sample.DataReviewDate = Day(2024, time.March, 2)
	return sample
}

// TopUpSample builds a full-depth sample that passed QC but requires
// supplementary sequencing.
func TopUpSample(name string) *model.Sample {
	sample := PassedSample(name)
	sample.TopUpRequired = true
	return sample
}

// PassedSignoff builds a positive requisition sign-off record.
func PassedSignoff() model.Signoff {
	return model.Signoff{QcPassed: Bool(true), QcDate: Day(2024, time.March, 3)}
}

// CompletedTest builds a test whose four sample-bearing stages have all
// passed QC and data review.
func CompletedTest(name string) *model.Test {
	return &model.Test{
		Name:                  name,
		Extractions:           []*model.Sample{PassedSample(name + "-ex")},
		LibraryPreparations:   []*model.Sample{PassedSample(name + "-lp")},
		LibraryQualifications: []*model.Sample{ReviewedSample(name + "-lq")},
		FullDepthSequencings:  []*model.Sample{ReviewedSample(name + "-fd")},
	}
}

// CompletedCase builds a case with the given number of fully completed tests
// and all case-level sign-offs in place, belonging to the named project.
func CompletedCase(id, project string, testCount int) *model.Case {
	c := &model.Case{
		Id:       id,
		Projects: []model.Project{{Name: project, Pipeline: "Clinical"}},
		Receipts: []*model.Sample{PassedSample(id + "-receipt")},
		Requisition: model.Requisition{
			Id:               id + "-req",
			AnalysisReviews:  []model.Signoff{PassedSignoff()},
			ReleaseApprovals: []model.Signoff{PassedSignoff()},
			Releases:         []model.Signoff{PassedSignoff()},
		},
	}
	for i := 0; i < testCount; i++ {
		c.Tests = append(c.Tests, CompletedTest(id+"-t"+string(rune('1'+i))))
	}
	return c
}
