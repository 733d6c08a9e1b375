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

package labtest

import (
	"fmt"
	"strings"

	"github.com/seqlab/stagetrack/tracker"
)

// FakeTracker is an in-memory IssueTracker that records every operation
// performed against it, for asserting on the reconciliation state machine's
// behavior.
type FakeTracker struct {
	// issues by key
	Issues map[string]*tracker.Issue
	// every mutating or querying operation, in order, e.g. "create RUN1 ..."
	Calls []string

	nextKey int
}

// NewFakeTracker creates an empty fake tracker.
func NewFakeTracker() *FakeTracker {
	return &FakeTracker{Issues: make(map[string]*tracker.Issue)}
}

func (f *FakeTracker) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallsLike returns the recorded calls whose first word matches op.
func (f *FakeTracker) CallsLike(op string) []string {
	var matched []string
	for _, call := range f.Calls {
		if strings.HasPrefix(call, op+" ") || call == op {
			matched = append(matched, call)
		}
	}
	return matched
}

func (f *FakeTracker) IssueByKey(key string) (*tracker.Issue, error) {
	f.record("get %s", key)
	issue, found := f.Issues[key]
	if !found {
		return nil, &tracker.NotFoundError{Key: key}
	}
	return issue, nil
}

func (f *FakeTracker) IssueBySummary(summary string) (*tracker.Issue, error) {
	f.record("search %s", summary)
	var newest *tracker.Issue
	for _, issue := range f.Issues {
		if issue.Summary == summary {
			if newest == nil || issue.Key > newest.Key {
				newest = issue
			}
		}
	}
	return newest, nil
}

func (f *FakeTracker) OpenIssues(summarySuffix string) ([]*tracker.Issue, error) {
	f.record("open-issues %s", summarySuffix)
	var issues []*tracker.Issue
	for _, issue := range f.Issues {
		if issue.State != tracker.StateClosed &&
			strings.HasSuffix(issue.Summary, summarySuffix) {
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

func (f *FakeTracker) CreateIssue(summary, description string) (string, error) {
	f.nextKey++
	key := fmt.Sprintf("QC-%d", f.nextKey)
	f.record("create %s %s", key, summary)
	f.Issues[key] = &tracker.Issue{
		Key:         key,
		Summary:     summary,
		Description: description,
		State:       tracker.StateOpen,
	}
	return key, nil
}

func (f *FakeTracker) PostComment(key, body string) error {
	f.record("comment %s", key)
	issue, found := f.Issues[key]
	if !found {
		return &tracker.NotFoundError{Key: key}
	}
	issue.Comments = append(issue.Comments, body)
	return nil
}

func (f *FakeTracker) CloseIssue(key, comment string) error {
	f.record("close %s", key)
	issue, found := f.Issues[key]
	if !found {
		return &tracker.NotFoundError{Key: key}
	}
	issue.Comments = append(issue.Comments, comment)
	issue.State = tracker.StateClosed
	issue.Resolution = tracker.ResolutionDone
	return nil
}

func (f *FakeTracker) PauseIssue(key, comment string) error {
	f.record("pause %s", key)
	issue, found := f.Issues[key]
	if !found {
		return &tracker.NotFoundError{Key: key}
	}
	issue.Comments = append(issue.Comments, comment)
	issue.State = tracker.StatePaused
	issue.Resolution = tracker.ResolutionPaused
	return nil
}

func (f *FakeTracker) ReopenIssue(key string) error {
	f.record("reopen %s", key)
	issue, found := f.Issues[key]
	if !found {
		return &tracker.NotFoundError{Key: key}
	}
	issue.State = tracker.StateOpen
	issue.Resolution = ""
	return nil
}

func (f *FakeTracker) IssueState(key string) (tracker.IssueState, string, error) {
	f.record("state %s", key)
	issue, found := f.Issues[key]
	if !found {
		return tracker.StateUnknown, "", &tracker.NotFoundError{Key: key}
	}
	return issue.State, issue.Resolution, nil
}
