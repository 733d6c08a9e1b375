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

// These tests must be run serially, since the refresh loop is coordinated by
// a single instance.

package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/stagetrack/config"
	"github.com/seqlab/stagetrack/labtest"
	"github.com/seqlab/stagetrack/model"
)

const watchConfig string = `
service:
  port: 8080
  maxConnections: 100
  pollInterval: 3600
  dataDirectory: TESTING_DIR/data
loader:
  path: TESTING_DIR/data/snapshot.json
`

var TESTING_DIR string

// a Loader handing out a fixed snapshot (or a fixed error)
type fakeLoader struct {
	snap *model.Snapshot
	err  error
}

func (l *fakeLoader) Load(ctx context.Context) (*model.Snapshot, error) {
	return l.snap, l.err
}

// a snapshot with one project-bearing case whose library qualification
// sample is sequenced on a run and awaits QC
func testSnapshot() *model.Snapshot {
	sample := labtest.PendingQcSample("SAM-1")
	sample.RunName = "240601_A00000_0001"
	sample.AssayId = "assay-1"
	return &model.Snapshot{
		Timestamp: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		Cases: []*model.Case{{
			Id:       "CASE-1",
			Projects: []model.Project{{Name: "PROJ", Pipeline: "Clinical"}},
			Receipts: []*model.Sample{labtest.PassedSample("CASE-1-receipt")},
			Tests: []*model.Test{{
				Name:                  "test-1",
				LibraryQualifications: []*model.Sample{sample},
			}},
		}},
		Runs: map[string]*model.Run{
			"240601_A00000_0001": {Id: "run-1", Name: "240601_A00000_0001"},
		},
		Assays: map[string]*model.Assay{"assay-1": {Id: "assay-1", Name: "WGS"}},
	}
}

// runs all tests serially
func TestRunner(t *testing.T) {
	tester := SerialTests{Test: t}
	tester.TestStartQueryStop()
	tester.TestFailingLoader()
}

// This runs setup, runs all tests, and does breakdown.
func TestMain(m *testing.M) {
	var status int
	setup()
	status = m.Run()
	breakdown()
	os.Exit(status)
}

// this function gets called at the beginning of a test session
func setup() {
	labtest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "stagetrack-watch-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}

	// read in the config file with TESTING_DIR replaced
	myConfig := strings.ReplaceAll(watchConfig, "TESTING_DIR", TESTING_DIR)
	err = config.Init([]byte(myConfig))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}

	err = os.Mkdir(config.Service.DataDirectory, 0755)
	if err != nil {
		log.Panicf("Couldn't create data directory: %s", err)
	}
}

// this function gets called after all tests have been run
func breakdown() {
	if Running() {
		Stop()
	}
	if TESTING_DIR != "" {
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// To run the tests serially, we attach them to a SerialTests type and
// have them run by a a single test runner.
type SerialTests struct{ Test *testing.T }

func (t *SerialTests) TestStartQueryStop() {
	assert := assert.New(t.Test)

	snap := testSnapshot()
	fake := labtest.NewFakeTracker()
	UseLoader(&fakeLoader{snap: snap})
	UseTracker(fake)

	assert.False(Running())
	err := Start()
	assert.Nil(err)
	assert.True(Running())

	err = Start()
	assert.NotNil(err)
	assert.IsType(&AlreadyRunningError{}, err)

	current, err := Snapshot()
	assert.Nil(err)
	assert.Equal(snap.Timestamp, current.Timestamp)

	summaries, err := Summaries(nil)
	assert.Nil(err)
	assert.NotNil(summaries["PROJ"])
	assert.Equal(1, summaries["PROJ"].TotalTestCount)
	assert.Equal(1, summaries["PROJ"].ReceiptCompletedCount)

	// the initial refresh reconciled the pending run into a ticket
	notifications, err := Notifications()
	assert.Nil(err)
	assert.Len(notifications, 1)
	assert.Equal("QC-1", notifications[0].IssueKey)
	assert.NotNil(fake.Issues["QC-1"])

	failures, err := ConsecutiveFailures()
	assert.Nil(err)
	assert.Equal(0, failures)

	err = Stop()
	assert.Nil(err)
	assert.False(Running())

	_, err = Snapshot()
	assert.IsType(&NotRunningError{}, err)
	assert.IsType(&NotRunningError{}, Stop())
}

func (t *SerialTests) TestFailingLoader() {
	assert := assert.New(t.Test)

	UseLoader(&fakeLoader{err: errors.New("exporter is down")})
	UseTracker(labtest.NewFakeTracker())

	err := Start()
	assert.Nil(err)

	// no snapshot has ever loaded, so queries report that and health degrades
	_, err = Snapshot()
	assert.IsType(&NoSnapshotError{}, err)
	_, err = Summaries(nil)
	assert.IsType(&NoSnapshotError{}, err)

	failures, err := ConsecutiveFailures()
	assert.Nil(err)
	assert.Equal(1, failures)

	assert.Nil(Stop())
}
