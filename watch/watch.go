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

// The watch package runs the service's refresh loop: on every heartbeat it
// loads a fresh snapshot, reclassifies every case, and reconciles run
// notifications against the issue tracker. All state is owned by a single
// goroutine; callers communicate with it over channels.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/seqlab/stagetrack/config"
	"github.com/seqlab/stagetrack/journal"
	"github.com/seqlab/stagetrack/loader"
	"github.com/seqlab/stagetrack/model"
	"github.com/seqlab/stagetrack/notify"
	"github.com/seqlab/stagetrack/summary"
	"github.com/seqlab/stagetrack/telemetry"
	"github.com/seqlab/stagetrack/tracker"
)

var running bool
var firstCall = true

// the snapshot source and issue tracker in use; Start() builds them from
// the configuration unless they've been injected beforehand
var snapshotLoader loader.Loader
var issueTracker tracker.IssueTracker
var reconciler *notify.Reconciler

// UseLoader substitutes the given snapshot source for the configured one.
// It must be called before Start(). Primarily for tests.
func UseLoader(l loader.Loader) {
	snapshotLoader = l
}

// UseTracker substitutes the given issue tracker for the configured one.
// It must be called before Start(). Primarily for tests.
func UseTracker(t tracker.IssueTracker) {
	issueTracker = t
}

// starts the refresh loop according to the service configuration, returning
// an informative error if anything prevents this
func Start() error {
	if running {
		return &AlreadyRunningError{}
	}

	if firstCall {
		level := slog.LevelInfo
		if config.Service.Debug {
			level = slog.LevelDebug
		}
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
		firstCall = false
	}

	// does the data directory exist, and is it readable/writable?
	err := validateDirectory("data", config.Service.DataDirectory)
	if err != nil {
		return err
	}

	if snapshotLoader == nil {
		snapshotLoader = loader.NewFileLoader(config.Loader.Path)
	}
	if issueTracker == nil && config.Tracker.BaseURL != "" {
		token, err := config.TrackerToken()
		if err != nil {
			return err
		}
		issueTracker = tracker.NewJiraTracker(config.Tracker.BaseURL,
			config.Tracker.Project, config.Tracker.IssueType, token)
	}
	if issueTracker != nil {
		var recorder notify.Recorder
		if journal.IsOpen() {
			recorder = journal.ActionRecorder{}
		}
		reconciler = notify.NewReconciler(issueTracker,
			config.Tracker.SummarySuffix, recorder)
	} else {
		slog.Info("No issue tracker configured; notifications will not be filed")
	}

	// allocate channels
	watchChannels = channelsType{
		GetSnapshot:         make(chan struct{}, 32),
		ReturnSnapshot:      make(chan *model.Snapshot, 32),
		GetSummaries:        make(chan *summary.Filter, 32),
		ReturnSummaries:     make(chan map[string]*summary.ProjectSummary, 32),
		GetNotifications:    make(chan struct{}, 32),
		ReturnNotifications: make(chan []*model.Notification, 32),
		GetFailures:         make(chan struct{}, 32),
		ReturnFailures:      make(chan int, 32),
		Error:               make(chan error, 32),
		Poll:                make(chan struct{}),
		Stop:                make(chan struct{}),
	}

	// start the refresh loop
	go processUpdates()

	// start the polling heartbeat
	slog.Info(fmt.Sprintf("Snapshots are refreshed every %d s",
		config.Service.PollInterval))
	pollInterval := time.Duration(config.Service.PollInterval) * time.Second
	go heartbeat(pollInterval, watchChannels.Poll)

	// okay, we're running now
	running = true

	return nil
}

// Stops the refresh loop. Snapshot and notification queries are disallowed
// in a stopped state.
func Stop() error {
	var err error
	if running {
		watchChannels.Stop <- struct{}{}
		err = <-watchChannels.Error
		running = false
	} else {
		err = &NotRunningError{}
	}
	return err
}

// Returns true if the refresh loop is currently running, false if not.
func Running() bool {
	return running
}

// Returns the current snapshot, or a NoSnapshotError if none has been
// loaded yet.
func Snapshot() (*model.Snapshot, error) {
	if !running {
		return nil, &NotRunningError{}
	}
	watchChannels.GetSnapshot <- struct{}{}
	select {
	case snap := <-watchChannels.ReturnSnapshot:
		return snap, nil
	case err := <-watchChannels.Error:
		return nil, err
	}
}

// Returns per-project summaries computed from the current snapshot, with
// stage completions restricted to the given time filter (which may be nil).
func Summaries(filter *summary.Filter) (map[string]*summary.ProjectSummary, error) {
	if !running {
		return nil, &NotRunningError{}
	}
	watchChannels.GetSummaries <- filter
	select {
	case summaries := <-watchChannels.ReturnSummaries:
		return summaries, nil
	case err := <-watchChannels.Error:
		return nil, err
	}
}

// Returns the run notifications currently being tracked.
func Notifications() ([]*model.Notification, error) {
	if !running {
		return nil, &NotRunningError{}
	}
	watchChannels.GetNotifications <- struct{}{}
	return <-watchChannels.ReturnNotifications, nil
}

// Returns the number of consecutive refresh failures, for health reporting.
func ConsecutiveFailures() (int, error) {
	if !running {
		return 0, &NotRunningError{}
	}
	watchChannels.GetFailures <- struct{}{}
	return <-watchChannels.ReturnFailures, nil
}

//-----------
// Internals
//-----------

// this type holds various channels used to communicate with the refresh
// goroutine
type channelsType struct {
	GetSnapshot         chan struct{}                      // used by client to request the snapshot
	ReturnSnapshot      chan *model.Snapshot               // returns the snapshot to client
	GetSummaries        chan *summary.Filter               // used by client to request summaries
	ReturnSummaries     chan map[string]*summary.ProjectSummary // returns summaries to client
	GetNotifications    chan struct{}                      // used by client to request notifications
	ReturnNotifications chan []*model.Notification         // returns notifications to client
	GetFailures         chan struct{}                      // used by client to request the failure count
	ReturnFailures      chan int                           // returns the failure count to client
	Error               chan error                         // returns error to client
	Poll                chan struct{}                      // carries heartbeat signal for refreshes
	Stop                chan struct{}                      // used by client to stop the refresh loop
}

var watchChannels channelsType

// this function runs in its own goroutine and owns the snapshot, the
// tracked notifications, and the failure count
func processUpdates() {
	var current *model.Snapshot
	var notifications []*model.Notification
	consecutiveFailures := 0

	// parse the channels into directional types as needed
	var getSnapshotChan <-chan struct{} = watchChannels.GetSnapshot
	var getSummariesChan <-chan *summary.Filter = watchChannels.GetSummaries
	var getNotificationsChan <-chan struct{} = watchChannels.GetNotifications
	var getFailuresChan <-chan struct{} = watchChannels.GetFailures
	var errorChan chan<- error = watchChannels.Error
	var pollChan <-chan struct{} = watchChannels.Poll
	var stopChan <-chan struct{} = watchChannels.Stop

	// pick up any tickets filed before a restart, then load the first
	// snapshot without waiting for the heartbeat
	if reconciler != nil {
		if err := reconciler.Resume(); err != nil {
			slog.Error(fmt.Sprintf("Couldn't resume tracked notifications: %s",
				err.Error()))
		}
	}
	current, notifications, consecutiveFailures =
		refresh(current, notifications, consecutiveFailures)

	running := true
	for running {
		select {
		case <-getSnapshotChan: // Snapshot() called
			if current != nil {
				watchChannels.ReturnSnapshot <- current
			} else {
				errorChan <- &NoSnapshotError{}
			}
		case filter := <-getSummariesChan: // Summaries() called
			if current != nil {
				watchChannels.ReturnSummaries <- summary.Build(current.Cases, filter)
			} else {
				errorChan <- &NoSnapshotError{}
			}
		case <-getNotificationsChan: // Notifications() called
			watchChannels.ReturnNotifications <- notifications
		case <-getFailuresChan: // ConsecutiveFailures() called
			watchChannels.ReturnFailures <- consecutiveFailures
		case <-pollChan: // time to refresh
			current, notifications, consecutiveFailures =
				refresh(current, notifications, consecutiveFailures)
		case <-stopChan: // Stop() called
			errorChan <- nil
			running = false
		}
	}
}

// refresh runs one poll cycle: load a snapshot, then reconcile
// notifications against it. A failed or stale load keeps the current
// snapshot; reconciliation still runs so externally made ticket changes
// are picked up.
func refresh(current *model.Snapshot, notifications []*model.Notification,
	consecutiveFailures int) (*model.Snapshot, []*model.Notification, int) {

	start := time.Now()

	snap, err := snapshotLoader.Load(context.Background())
	if err != nil {
		var stale *loader.StaleSnapshotError
		if errors.As(err, &stale) {
			// no new drop since the last cycle
			slog.Debug(err.Error())
		} else {
			slog.Error(fmt.Sprintf("Couldn't load snapshot: %s", err.Error()))
			consecutiveFailures++
			telemetry.RefreshFailures.Inc()
		}
	} else {
		current = snap
		consecutiveFailures = 0
		telemetry.SnapshotTimestamp.Set(float64(snap.Timestamp.Unix()))
		slog.Info(fmt.Sprintf("Loaded snapshot %s (%d cases, %d runs)",
			snap.Timestamp.Format(time.RFC3339), len(snap.Cases), len(snap.Runs)))
	}

	if reconciler != nil && current != nil {
		notifications = reconciler.Reconcile(current)
	}

	telemetry.CycleDuration.Observe(time.Since(start).Seconds())
	return current, notifications, consecutiveFailures
}

// this function sends a regular pulse on its poll channel until the global
// variable running is found to be false
func heartbeat(pollInterval time.Duration, pollChan chan<- struct{}) {
	for {
		time.Sleep(pollInterval)
		pollChan <- struct{}{}
		if !running {
			break
		}
	}
}

// this function checks for the existence of the given directory and whether
// it is readable/writable, returning a non-nil error if any of these
// conditions are not met
func validateDirectory(dirType, dir string) error {
	if dir == "" {
		return fmt.Errorf("no %s directory was specified!", dirType)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("could not read %s directory %s", dirType, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s directory %s is not a directory", dirType, dir)
	}
	return nil
}
