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

package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"
	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/seqlab/stagetrack/config"
	"github.com/seqlab/stagetrack/notify"
)

// This is the reconciliation journal, which logs every externally visible
// issue-tracker action. The journal is a table of action records (one per
// action), with a Frictionless manifest attached to each ticket creation.

// a record storing all information relevant to one reconciliation action
type Record struct {
	// UUID of this record
	Id uuid.UUID `json:"id"`
	// UUID of the reconciliation cycle the action belongs to
	CycleId uuid.UUID `json:"cycle_id"`
	// time at which the action was taken
	Time time.Time `json:"time"`
	// kind of action ("created", "commented", "paused", "reopened", "closed"
	// or "orphaned")
	Kind string `json:"kind"`
	// the run and pipeline category the notification concerns
	RunName  string `json:"run_name"`
	Category string `json:"category"`
	// key of the issue acted upon (empty for orphaned drops)
	IssueKey string `json:"issue_key"`
	// notification state code at the time of the action
	Code string `json:"code"`
	// names of the samples pending in each set
	PendingAnalysis   []string `json:"pending_analysis"`
	PendingQc         []string `json:"pending_qc"`
	PendingDataReview []string `json:"pending_data_review"`
	// manifest describing the newly filed notification (stored separate from
	// record; present only for "created" actions)
	Manifest *datapackage.Package `json:"-"`
}

// initialize the reconciliation journal
func Init() error {
	if !IsOpen() {
		go journalProcess()
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// saves and closes the reconciliation journal (if it's been opened)
func Finalize() error {
	if IsOpen() {
		channels_.Input.Shutdown <- struct{}{}
		closeChannels()
	}
	return nil
}

// returns true if the journal is open for writing, false if not
func IsOpen() bool {
	if channels_.Open { // has Init() been called?
		channels_.Input.CheckIfOpen <- struct{}{}
		select {
		case isOpen := <-channels_.Output.IsOpen:
			return isOpen
		case <-time.After(1 * time.Second): // after a second, we assume the goroutine has crashed
			closeChannels()
			return false
		}
	}
	return false
}

// records a reconciliation action
// record: the record containing all action information
func RecordAction(record Record) error {
	switch record.Kind {
	case notify.ActionCreated, notify.ActionCommented, notify.ActionPaused,
		notify.ActionReopened, notify.ActionClosed, notify.ActionOrphaned:
		// pass-through (see below)
	default:
		return &NewRecordError{
			Id:      record.Id,
			Message: fmt.Sprintf("Invalid kind: %s", record.Kind),
		}
	}

	if !IsOpen() {
		return &NotOpenError{}
	}

	channels_.Input.CreateRecord <- record
	return <-channels_.Output.Error
}

// retrieves records for actions taken within the time range with the given
// (inclusive) bounds
// start: the beginning of the time period of interest
// stop: the end of the time period of interest
func Records(start, stop time.Time) ([]Record, error) {
	if !IsOpen() {
		return nil, &NotOpenError{}
	}
	channels_.Input.FetchRecords <- TimeRange{Start: start, Stop: stop}
	var records []Record
	var err error
	select {
	case records = <-channels_.Output.Records:
		return records, err
	case err = <-channels_.Output.Error:
		return records, err
	}
}

// An ActionRecorder feeds reconciliation actions into the journal. Journal
// failures are logged, never propagated: journaling must not stall the
// reconciliation loop.
type ActionRecorder struct{}

func (ActionRecorder) Record(action notify.Action) {
	record := Record{
		Id:                uuid.New(),
		CycleId:           action.CycleId,
		Time:              action.Time,
		Kind:              action.Kind,
		RunName:           action.RunName,
		Category:          string(action.Category),
		IssueKey:          action.IssueKey,
		Code:              action.Code,
		PendingAnalysis:   action.PendingAnalysis,
		PendingQc:         action.PendingQc,
		PendingDataReview: action.PendingDataReview,
	}
	if record.Kind == notify.ActionCreated {
		manifest, err := Manifest(record)
		if err != nil {
			slog.Error(fmt.Sprintf("Couldn't build manifest for record %s: %s",
				record.Id.String(), err.Error()))
			return
		}
		record.Manifest = manifest
	}
	if err := RecordAction(record); err != nil {
		slog.Error(fmt.Sprintf("Couldn't journal record %s: %s",
			record.Id.String(), err.Error()))
	}
}

// Manifest builds the Frictionless manifest describing a newly filed
// notification: one inline-data resource listing the pending sample sets.
func Manifest(record Record) (*datapackage.Package, error) {
	descriptor := map[string]any{
		"name":    fmt.Sprintf("notification-%s", record.Id.String()),
		"profile": "data-package",
		"created": record.Time.Format(time.RFC3339),
		"resources": []any{
			map[string]any{
				"name":    "pending-samples",
				"profile": "data-resource",
				"format":  "json",
				"data": map[string]any{
					"runName":           record.RunName,
					"category":          record.Category,
					"code":              record.Code,
					"pendingAnalysis":   record.PendingAnalysis,
					"pendingQc":         record.PendingQc,
					"pendingDataReview": record.PendingDataReview,
				},
			},
		},
	}
	return datapackage.New(descriptor, ".", validator.InMemoryLoader())
}

//-----------
// Internals
//-----------

// The journal gets its own goroutine so it doesn't bring down the entire
// service if it crashes. Here we define "input" channels (main process ->
// goroutine) and "output" channels (goroutine -> main process) for passing
// data back and forth

type TimeRange struct {
	Start, Stop time.Time
}

var channels_ struct {
	Open  bool // true if channels are open, false if not
	Input struct {
		CreateRecord chan Record    // for creating new records
		CheckIfOpen  chan struct{}  // for checking to see whether the database is open
		FetchRecords chan TimeRange // for fetching records within a time range
		Shutdown     chan struct{}  // for shutting down the database
	}

	Output struct {
		Records chan []Record // for returning records
		Error   chan error    // for returning errors
		IsOpen  chan bool     // for answering queries about whether the database is open
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	time TEXT NOT NULL,
	kind TEXT NOT NULL,
	run_name TEXT NOT NULL,
	category TEXT NOT NULL,
	issue_key TEXT,
	code TEXT,
	pending_analysis TEXT,
	pending_qc TEXT,
	pending_data_review TEXT
);
CREATE INDEX IF NOT EXISTS actions_by_time ON actions(time);
CREATE TABLE IF NOT EXISTS manifests (
	id TEXT PRIMARY KEY,
	descriptor TEXT NOT NULL
);
`

func journalProcess() {

	// open the database, creating the schema if necessary
	dbPath := filepath.Join(config.Service.DataDirectory, "reconciliation_journal.db")
	conn, err := sqlite.OpenConn(dbPath,
		sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		channels_.Output.Error <- &CantOpenError{
			Message: err.Error(),
		}
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		channels_.Output.Error <- &CantOpenError{
			Message: err.Error(),
		}
	}

	openChannels()

	// handle requests
	running := true
	for running {
		select {

		case <-channels_.Input.CheckIfOpen:
			channels_.Output.IsOpen <- true // always true if this goroutine is running!

		case record := <-channels_.Input.CreateRecord:
			err := createRecord(conn, record)
			channels_.Output.Error <- err

		case timeRange := <-channels_.Input.FetchRecords:
			records, err := fetchRecords(conn, timeRange.Start, timeRange.Stop)
			if err != nil {
				channels_.Output.Error <- err
			} else {
				channels_.Output.Records <- records
			}

		case <-channels_.Input.Shutdown:
			err := conn.Close()
			if err != nil {
				channels_.Output.Error <- &CantCloseError{
					Message: err.Error(),
				}
			}
			running = false
		}
	}
}

func openChannels() {
	channels_.Open = true
	channels_.Input.CreateRecord = make(chan Record)
	channels_.Input.CheckIfOpen = make(chan struct{})
	channels_.Input.FetchRecords = make(chan TimeRange)
	channels_.Input.Shutdown = make(chan struct{})
	channels_.Output.Records = make(chan []Record)
	channels_.Output.Error = make(chan error)
	channels_.Output.IsOpen = make(chan bool)
}

func closeChannels() {
	channels_.Open = false
	close(channels_.Input.CreateRecord)
	close(channels_.Input.CheckIfOpen)
	close(channels_.Input.FetchRecords)
	close(channels_.Input.Shutdown)
	close(channels_.Output.Records)
	close(channels_.Output.Error)
	close(channels_.Output.IsOpen)
}

func createRecord(conn *sqlite.Conn, record Record) error {
	pendingAnalysis, err := json.Marshal(record.PendingAnalysis)
	if err != nil {
		return &NewRecordError{Id: record.Id, Message: err.Error()}
	}
	pendingQc, err := json.Marshal(record.PendingQc)
	if err != nil {
		return &NewRecordError{Id: record.Id, Message: err.Error()}
	}
	pendingDataReview, err := json.Marshal(record.PendingDataReview)
	if err != nil {
		return &NewRecordError{Id: record.Id, Message: err.Error()}
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO actions (id, cycle_id, time, kind, run_name, category,
			issue_key, code, pending_analysis, pending_qc, pending_data_review)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.Id.String(),
				record.CycleId.String(),
				record.Time.Format(time.RFC3339),
				record.Kind,
				record.RunName,
				record.Category,
				record.IssueKey,
				record.Code,
				string(pendingAnalysis),
				string(pendingQc),
				string(pendingDataReview),
			},
		})
	if err != nil {
		return &NewRecordError{Id: record.Id, Message: err.Error()}
	}

	// a ticket creation also stores its manifest (indexed by record UUID)
	if record.Manifest != nil {
		jsonManifest, err := json.Marshal(record.Manifest.Descriptor())
		if err != nil {
			return &NewRecordError{
				Id:      record.Id,
				Message: err.Error(),
			}
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO manifests (id, descriptor) VALUES (?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{record.Id.String(), string(jsonManifest)},
			})
		if err != nil {
			return &NewRecordError{Id: record.Id, Message: err.Error()}
		}
	}

	return nil
}

func fetchRecords(conn *sqlite.Conn, start, stop time.Time) ([]Record, error) {
	records := make([]Record, 0)
	err := sqlitex.Execute(conn,
		`SELECT id, cycle_id, time, kind, run_name, category, issue_key, code,
			pending_analysis, pending_qc, pending_data_review
		 FROM actions WHERE time >= ? AND time <= ? ORDER BY time`,
		&sqlitex.ExecOptions{
			Args: []any{
				start.Format(time.RFC3339),
				stop.Format(time.RFC3339),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := recordFromRow(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, err
	}

	// get manifests for each ticket creation (this can be slow)
	for i := range records {
		if records[i].Kind == notify.ActionCreated {
			var descriptor string
			err := sqlitex.Execute(conn,
				`SELECT descriptor FROM manifests WHERE id = ?`,
				&sqlitex.ExecOptions{
					Args: []any{records[i].Id.String()},
					ResultFunc: func(stmt *sqlite.Stmt) error {
						descriptor = stmt.ColumnText(0)
						return nil
					},
				})
			if err == nil && descriptor != "" {
				records[i].Manifest, err = datapackage.FromString(descriptor,
					"manifest.json", validator.InMemoryLoader())
			}
			if err != nil || descriptor == "" {
				return nil, &InvalidRecordError{
					Id:      records[i].Id,
					Message: "unable to retrieve manifest for ticket creation",
				}
			}
		}
	}
	return records, nil
}

func recordFromRow(stmt *sqlite.Stmt) (Record, error) {
	var record Record
	var err error

	record.Id, err = uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return record, err
	}
	record.CycleId, err = uuid.Parse(stmt.ColumnText(1))
	if err != nil {
		return record, err
	}
	record.Time, err = time.Parse(time.RFC3339, stmt.ColumnText(2))
	if err != nil {
		return record, err
	}
	record.Kind = stmt.ColumnText(3)
	record.RunName = stmt.ColumnText(4)
	record.Category = stmt.ColumnText(5)
	record.IssueKey = stmt.ColumnText(6)
	record.Code = stmt.ColumnText(7)

	if err := json.Unmarshal([]byte(stmt.ColumnText(8)), &record.PendingAnalysis); err != nil {
		return record, err
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(9)), &record.PendingQc); err != nil {
		return record, err
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(10)), &record.PendingDataReview); err != nil {
		return record, err
	}
	return record, nil
}
