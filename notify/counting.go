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
	"sync/atomic"

	"github.com/seqlab/stagetrack/telemetry"
	"github.com/seqlab/stagetrack/tracker"
)

// countingTracker wraps an IssueTracker and counts every call, feeding both
// the reconciler's running request total and the prometheus counter. It
// never throttles.
type countingTracker struct {
	inner tracker.IssueTracker
	count *atomic.Int64
}

func (c countingTracker) tick() {
	c.count.Add(1)
	telemetry.TrackerRequests.Inc()
}

func (c countingTracker) IssueByKey(key string) (*tracker.Issue, error) {
	c.tick()
	return c.inner.IssueByKey(key)
}

func (c countingTracker) IssueBySummary(summary string) (*tracker.Issue, error) {
	c.tick()
	return c.inner.IssueBySummary(summary)
}

func (c countingTracker) OpenIssues(summarySuffix string) ([]*tracker.Issue, error) {
	c.tick()
	return c.inner.OpenIssues(summarySuffix)
}

func (c countingTracker) CreateIssue(summary, description string) (string, error) {
	c.tick()
	return c.inner.CreateIssue(summary, description)
}

func (c countingTracker) PostComment(key, body string) error {
	c.tick()
	return c.inner.PostComment(key, body)
}

func (c countingTracker) CloseIssue(key, comment string) error {
	c.tick()
	return c.inner.CloseIssue(key, comment)
}

func (c countingTracker) PauseIssue(key, comment string) error {
	c.tick()
	return c.inner.PauseIssue(key, comment)
}

func (c countingTracker) ReopenIssue(key string) error {
	c.tick()
	return c.inner.ReopenIssue(key)
}

func (c countingTracker) IssueState(key string) (tracker.IssueState, string, error) {
	c.tick()
	return c.inner.IssueState(key)
}
