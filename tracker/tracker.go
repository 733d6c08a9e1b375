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

// This package defines the abstract issue-tracker operations consumed by the
// reconciliation state machine, plus a concrete Jira adapter. The state
// machine itself never sees anything but the IssueTracker interface.
package tracker

// IssueState is the lifecycle state of a tracked issue, as owned by the
// external tracker.
type IssueState int

const (
	StateUnknown IssueState = iota
	StateOpen
	StatePaused
	StateClosed
)

// String returns a human-friendly name for an issue state.
func (s IssueState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// resolutions understood by the reconciliation state machine
const (
	ResolutionPaused = "paused"
	ResolutionDone   = "done"
	// set manually by lab staff to permanently suppress automatic reopening
	ResolutionOverridden = "overridden"
)

// an issue as observed through the tracker
type Issue struct {
	Key         string
	Summary     string
	Description string
	State       IssueState
	Resolution  string
	// comment bodies, oldest first
	Comments []string
}

// IssueTracker is the abstract surface of the external issue tracker. All
// operations block on one network call; implementations own every transport
// detail.
type IssueTracker interface {
	// IssueByKey fetches an issue by its key, returning a NotFoundError if
	// no such issue exists.
	IssueByKey(key string) (*Issue, error)

	// IssueBySummary fetches the most recently created issue whose summary
	// matches exactly, or nil if there is none.
	IssueBySummary(summary string) (*Issue, error)

	// OpenIssues fetches all issues in the open or paused states whose
	// summaries end with the given suffix.
	OpenIssues(summarySuffix string) ([]*Issue, error)

	// CreateIssue opens a fresh issue and returns its key.
	CreateIssue(summary, description string) (string, error)

	// PostComment appends a comment to an issue.
	PostComment(key, body string) error

	// CloseIssue transitions an issue to the closed state with the "done"
	// resolution, posting the given comment first.
	CloseIssue(key, comment string) error

	// PauseIssue transitions an issue to the paused state with the "paused"
	// resolution, posting the given comment first.
	PauseIssue(key, comment string) error

	// ReopenIssue transitions a paused or closed issue back to open.
	ReopenIssue(key string) error

	// IssueState fetches just the lifecycle state and resolution of an
	// issue; the cheap check performed every cycle.
	IssueState(key string) (IssueState, string, error)
}
