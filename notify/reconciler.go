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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/seqlab/stagetrack/model"
	"github.com/seqlab/stagetrack/telemetry"
	"github.com/seqlab/stagetrack/tracker"
)

// kinds of reconciliation action, as recorded in the journal
const (
	ActionCreated   = "created"
	ActionCommented = "commented"
	ActionPaused    = "paused"
	ActionReopened  = "reopened"
	ActionClosed    = "closed"
	ActionOrphaned  = "orphaned"
)

// an Action describes one externally visible reconciliation step
type Action struct {
	CycleId  uuid.UUID      `json:"cycleId"`
	Time     time.Time      `json:"time"`
	Kind     string         `json:"kind"`
	RunName  string         `json:"runName"`
	Category model.Category `json:"category"`
	IssueKey string         `json:"issueKey"`
	Code     string         `json:"code"`

	PendingAnalysis   []string `json:"pendingAnalysis"`
	PendingQc         []string `json:"pendingQc"`
	PendingDataReview []string `json:"pendingDataReview"`
}

// Recorder receives every reconciliation action, e.g. for journaling. A
// Recorder must not block for long: it is called from the reconciliation
// goroutine.
type Recorder interface {
	Record(action Action)
}

type trackedKey struct {
	RunName  string
	Category model.Category
}

type trackedEntry struct {
	issueKey     string
	code         StateCode
	notification *model.Notification
}

// The Reconciler diffs freshly derived notifications against the ones it is
// already tracking and issues the minimal set of idempotent issue-tracker
// operations to bring the tickets back in line. It is driven by a single
// goroutine; none of its methods are safe for concurrent use.
type Reconciler struct {
	tracker       tracker.IssueTracker
	summarySuffix string
	recorder      Recorder

	tracked  map[trackedKey]*trackedEntry
	requests atomic.Int64
}

// NewReconciler creates a reconciler speaking to the given issue tracker.
// Issue summaries take the form "<run> - <category> - <suffix>". The
// recorder may be nil.
func NewReconciler(t tracker.IssueTracker, summarySuffix string,
	recorder Recorder) *Reconciler {
	return &Reconciler{
		tracker:       t,
		summarySuffix: summarySuffix,
		recorder:      recorder,
		tracked:       make(map[trackedKey]*trackedEntry),
	}
}

// Requests returns the running total of issue-tracker requests issued.
func (r *Reconciler) Requests() int64 {
	return r.requests.Load()
}

func (r *Reconciler) counting() tracker.IssueTracker {
	return countingTracker{inner: r.tracker, count: &r.requests}
}

func (r *Reconciler) record(action Action) {
	if r.recorder != nil {
		r.recorder.Record(action)
	}
}

func (r *Reconciler) summaryFor(runName string, category model.Category) string {
	return fmt.Sprintf("%s - %s - %s", runName, category, r.summarySuffix)
}

// parseSummary recovers the run name and category from an issue summary
// produced by summaryFor.
func (r *Reconciler) parseSummary(summary string) (string, model.Category, error) {
	rest, found := strings.CutSuffix(summary, " - "+r.summarySuffix)
	if !found {
		return "", "", &InvalidSummaryError{Summary: summary}
	}
	for _, category := range model.RunCategories {
		if runName, ok := strings.CutSuffix(rest, " - "+string(category)); ok {
			return runName, category, nil
		}
	}
	return "", "", &InvalidSummaryError{Summary: summary}
}

// Resume rebuilds the tracked notification table from the tracker's open
// issues, typically once at startup. Issues whose summaries don't follow
// the naming scheme are skipped with a warning.
func (r *Reconciler) Resume() error {
	issues, err := r.counting().OpenIssues(r.summarySuffix)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		runName, category, err := r.parseSummary(issue.Summary)
		if err != nil {
			slog.Warn(fmt.Sprintf("Skipping issue %s: %s", issue.Key, err.Error()))
			continue
		}
		code, _ := latestCode(issue)
		r.tracked[trackedKey{runName, category}] = &trackedEntry{
			issueKey: issue.Key,
			code:     code,
			notification: &model.Notification{
				RunName:  runName,
				Category: category,
				IssueKey: issue.Key,
			},
		}
		slog.Info(fmt.Sprintf("Run %s (%s): resumed tracking issue %s",
			runName, category, issue.Key))
	}
	return nil
}

// latestCode extracts the most recent state code embedded in an issue,
// preferring the newest comment over the description.
func latestCode(issue *tracker.Issue) (StateCode, bool) {
	for i := len(issue.Comments) - 1; i >= 0; i-- {
		if code, found := FindCode(issue.Comments[i]); found {
			return code, true
		}
	}
	return FindCode(issue.Description)
}

// Reconcile runs one full reconciliation cycle against the given snapshot
// and returns the notifications now being tracked, sorted by run and
// category. Failures are isolated per run: a run whose reconciliation
// fails is logged and retried on the next cycle without aborting the rest.
func (r *Reconciler) Reconcile(snap *model.Snapshot) []*model.Notification {
	cycleId := uuid.New()

	// previously tracked notifications first
	for key, entry := range r.tracked {
		run, found := snap.Run(key.RunName)
		if !found {
			// not an error: the run has simply aged out of the snapshot
			slog.Info(fmt.Sprintf("Run %s (%s): dropping orphaned notification",
				key.RunName, key.Category))
			r.record(Action{
				CycleId:  cycleId,
				Time:     time.Now(),
				Kind:     ActionOrphaned,
				RunName:  key.RunName,
				Category: key.Category,
				IssueKey: entry.issueKey,
			})
			delete(r.tracked, key)
			continue
		}
		if err := r.reconcileTracked(cycleId, snap, run, key, entry); err != nil {
			slog.Error(fmt.Sprintf("Run %s (%s): %s",
				key.RunName, key.Category, err.Error()))
			telemetry.ReconcileErrors.Inc()
		}
	}

	// then new notifications for runs not tracked yet
	for _, run := range snap.Runs {
		for _, category := range model.RunCategories {
			key := trackedKey{run.Name, category}
			if _, exists := r.tracked[key]; exists {
				continue
			}
			if err := r.reconcileNew(cycleId, snap, run, category); err != nil {
				slog.Error(fmt.Sprintf("Run %s (%s): %s",
					run.Name, category, err.Error()))
				telemetry.ReconcileErrors.Inc()
			}
		}
	}

	return r.notifications()
}

func (r *Reconciler) reconcileTracked(cycleId uuid.UUID, snap *model.Snapshot,
	run *model.Run, key trackedKey, entry *trackedEntry) error {

	n, err := Derive(snap, run, key.Category)
	if err != nil {
		return err
	}
	code := CodeFor(run, n)
	t := r.counting()

	state, resolution, err := t.IssueState(entry.issueKey)
	if err != nil {
		return err
	}

	if state == tracker.StateClosed {
		// closed outside our control; closed tickets don't count as an
		// existing notification, so forget the entry and let the creation
		// pass open a fresh ticket if one is still warranted
		slog.Info(fmt.Sprintf("Run %s (%s): issue %s was closed externally",
			key.RunName, key.Category, entry.issueKey))
		delete(r.tracked, key)
		return nil
	}

	if state == tracker.StatePaused && code.PendingSignoffs() {
		if resolution == tracker.ResolutionOverridden {
			// a human has shelved this ticket; leave it alone until the
			// override is cleared
			slog.Info(fmt.Sprintf("Run %s (%s): issue %s left paused (overridden)",
				key.RunName, key.Category, entry.issueKey))
			entry.code = code
			entry.notification = keepKey(n, entry)
			return nil
		}
		if err := t.ReopenIssue(entry.issueKey); err != nil {
			return err
		}
		r.record(r.action(cycleId, ActionReopened, key, entry.issueKey, code, n))
	}

	if code == entry.code {
		// nothing changed; the state check above was the only call
		return nil
	}

	switch {
	case code.PendingSignoffs():
		// samples still await QC or data review: the ticket stays open with
		// an update comment
		if err := t.PostComment(entry.issueKey, r.describe(n, code)); err != nil {
			return err
		}
		r.record(r.action(cycleId, ActionCommented, key, entry.issueKey, code, n))

	case n == nil || code.Resolved():
		if err := t.CloseIssue(entry.issueKey, r.closeComment(code)); err != nil {
			return err
		}
		r.record(r.action(cycleId, ActionClosed, key, entry.issueKey, code, n))
		delete(r.tracked, key)
		return nil

	case code.PendingAnalysis > 0:
		// nothing to sign off until the remaining samples are analyzed
		if err := t.PauseIssue(entry.issueKey, r.pauseComment(n, code)); err != nil {
			return err
		}
		r.record(r.action(cycleId, ActionPaused, key, entry.issueKey, code, n))

	default:
		// no pending samples, but the run itself still needs a sign-off
		if err := t.PostComment(entry.issueKey, r.describe(n, code)); err != nil {
			return err
		}
		r.record(r.action(cycleId, ActionCommented, key, entry.issueKey, code, n))
	}

	entry.code = code
	entry.notification = keepKey(n, entry)
	return nil
}

func (r *Reconciler) reconcileNew(cycleId uuid.UUID, snap *model.Snapshot,
	run *model.Run, category model.Category) error {

	n, err := Derive(snap, run, category)
	if err != nil || n == nil {
		return err
	}
	code := CodeFor(run, n)
	t := r.counting()
	key := trackedKey{run.Name, category}
	summary := r.summaryFor(run.Name, category)

	// an open ticket may already exist (e.g. filed before a restart that
	// predates Resume, or filed by hand); adopt it rather than duplicate it
	issue, err := t.IssueBySummary(summary)
	if err != nil {
		return err
	}
	if issue != nil && issue.State != tracker.StateClosed {
		adoptedCode, _ := latestCode(issue)
		n.IssueKey = issue.Key
		r.tracked[key] = &trackedEntry{
			issueKey:     issue.Key,
			code:         adoptedCode,
			notification: n,
		}
		slog.Info(fmt.Sprintf("Run %s (%s): adopted existing issue %s",
			run.Name, category, issue.Key))
		return nil
	}

	create, err := ShouldCreate(snap, run, category, n)
	if err != nil || !create {
		return err
	}
	issueKey, err := t.CreateIssue(summary, r.describe(n, code))
	if err != nil {
		return err
	}
	n.IssueKey = issueKey
	r.tracked[key] = &trackedEntry{issueKey: issueKey, code: code, notification: n}
	slog.Info(fmt.Sprintf("Run %s (%s): created issue %s (%s)",
		run.Name, category, issueKey, code))
	r.record(r.action(cycleId, ActionCreated, key, issueKey, code, n))
	return nil
}

// keepKey carries the issue key over onto a freshly derived notification; a
// nil notification (fully resolved) keeps the previous one for listing
func keepKey(n *model.Notification, entry *trackedEntry) *model.Notification {
	if n == nil {
		return entry.notification
	}
	n.IssueKey = entry.issueKey
	return n
}

func (r *Reconciler) action(cycleId uuid.UUID, kind string, key trackedKey,
	issueKey string, code StateCode, n *model.Notification) Action {
	action := Action{
		CycleId:  cycleId,
		Time:     time.Now(),
		Kind:     kind,
		RunName:  key.RunName,
		Category: key.Category,
		IssueKey: issueKey,
		Code:     code.String(),
	}
	if n != nil {
		action.PendingAnalysis = model.SampleNames(n.PendingAnalysis)
		action.PendingQc = model.SampleNames(n.PendingQc)
		action.PendingDataReview = model.SampleNames(n.PendingDataReview)
	}
	return action
}

// describe renders the ticket description/update comment, ending with the
// state code so it can be recovered later.
func (r *Reconciler) describe(n *model.Notification, code StateCode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", n.RunName, n.Category)
	describeSet(&b, "Pending analysis", n.PendingAnalysis)
	describeSet(&b, "Pending QC", n.PendingQc)
	describeSet(&b, "Pending data review", n.PendingDataReview)
	switch code.RunState {
	case RunPendingQc:
		b.WriteString("The run itself is pending QC.\n")
	case RunPendingDataReview:
		b.WriteString("The run itself is pending data review.\n")
	case RunSignoffsComplete:
		b.WriteString("The run's own sign-offs are complete.\n")
	}
	fmt.Fprintf(&b, "State: %s", code)
	return b.String()
}

func (r *Reconciler) pauseComment(n *model.Notification, code StateCode) string {
	var b strings.Builder
	b.WriteString("No QC or data review is possible yet: the remaining samples" +
		" are still being analyzed.\n")
	describeSet(&b, "Pending analysis", n.PendingAnalysis)
	fmt.Fprintf(&b, "State: %s", code)
	return b.String()
}

func (r *Reconciler) closeComment(code StateCode) string {
	return fmt.Sprintf("All samples and the run itself have been signed off.\nState: %s", code)
}

func describeSet(b *strings.Builder, label string, samples []*model.Sample) {
	if len(samples) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", label, len(samples))
	for _, sample := range samples {
		fmt.Fprintf(b, "  - %s\n", sample.Name)
	}
}

// notifications lists the tracked notifications sorted by run name and
// category.
func (r *Reconciler) notifications() []*model.Notification {
	list := make([]*model.Notification, 0, len(r.tracked))
	for _, entry := range r.tracked {
		if entry.notification != nil {
			list = append(list, entry.notification)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RunName != list[j].RunName {
			return list[i].RunName < list[j].RunName
		}
		return list[i].Category < list[j].Category
	})
	return list
}
