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

package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func snapshotDocument(timestamp string) string {
	return fmt.Sprintf(`{
  "timestamp": "%s",
  "cases": [
    {
      "id": "CASE-1",
      "projects": [{"name": "PROJ", "pipeline": "Clinical"}],
      "tests": [
        {
          "name": "test-1",
          "libraryQualifications": [
            {"id": "SAM-1", "name": "SAM-1", "runName": "240601_A00000_0001"}
          ]
        }
      ]
    }
  ],
  "runs": [{"id": "run-1", "name": "240601_A00000_0001"}],
  "assays": [{"id": "assay-1", "name": "WGS", "version": "2.0"}]
}`, timestamp)
}

func writeSnapshot(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := writeSnapshot(t, dir, "snapshot.json",
		snapshotDocument("2024-06-01T12:00:00Z"))

	l := NewFileLoader(path)
	snap, err := l.Load(context.Background())
	assert.NoError(err)
	assert.Equal(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		snap.Timestamp)
	assert.Len(snap.Cases, 1)
	assert.Equal("CASE-1", snap.Cases[0].Id)

	run, found := snap.Run("240601_A00000_0001")
	assert.True(found)
	assert.Equal("run-1", run.Id)
	_, found = snap.Assay("assay-1")
	assert.True(found)

	samples := snap.SamplesForRun("240601_A00000_0001", "Library Qualification")
	assert.Len(samples, 1)
	assert.Equal("SAM-1", samples[0].Name)
}

func TestLoadPicksNewestFromDirectory(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	writeSnapshot(t, dir, "2024-06-01T06:00:00Z.json",
		snapshotDocument("2024-06-01T06:00:00Z"))
	writeSnapshot(t, dir, "2024-06-01T12:00:00Z.json",
		snapshotDocument("2024-06-01T12:00:00Z"))
	writeSnapshot(t, dir, "notes.txt", "not a snapshot")

	l := NewFileLoader(dir)
	snap, err := l.Load(context.Background())
	assert.NoError(err)
	assert.Equal(12, snap.Timestamp.Hour())
}

func TestStaleSnapshotRejected(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := writeSnapshot(t, dir, "snapshot.json",
		snapshotDocument("2024-06-01T12:00:00Z"))

	l := NewFileLoader(path)
	_, err := l.Load(context.Background())
	assert.NoError(err)

	// the same document again has not advanced
	_, err = l.Load(context.Background())
	assert.Error(err)
	assert.IsType(&StaleSnapshotError{}, err)

	// nor has an older one
	writeSnapshot(t, dir, "snapshot.json", snapshotDocument("2024-06-01T06:00:00Z"))
	_, err = l.Load(context.Background())
	assert.IsType(&StaleSnapshotError{}, err)

	// a newer drop goes through
	writeSnapshot(t, dir, "snapshot.json", snapshotDocument("2024-06-01T18:00:00Z"))
	snap, err := l.Load(context.Background())
	assert.NoError(err)
	assert.Equal(18, snap.Timestamp.Hour())
}

func TestMissingTargets(t *testing.T) {
	assert := assert.New(t)

	l := NewFileLoader(filepath.Join(t.TempDir(), "nope.json"))
	_, err := l.Load(context.Background())
	assert.Error(err)
	assert.IsType(&NotFoundError{}, err)

	// a directory with no snapshot documents is just as missing
	l = NewFileLoader(t.TempDir())
	_, err = l.Load(context.Background())
	assert.IsType(&NotFoundError{}, err)
}

func TestInvalidDocuments(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	for name, content := range map[string]string{
		"garbage.json":       "{not json",
		"no-timestamp.json":  `{"cases": []}`,
		"unnamed-run.json":   `{"timestamp": "2024-06-01T12:00:00Z", "runs": [{"id": "run-1"}]}`,
		"duplicate-run.json": `{"timestamp": "2024-06-01T12:00:00Z", "runs": [{"name": "R1"}, {"name": "R1"}]}`,
		"assay-no-id.json":   `{"timestamp": "2024-06-01T12:00:00Z", "assays": [{"name": "WGS"}]}`,
	} {
		path := writeSnapshot(t, dir, name, content)
		l := NewFileLoader(path)
		_, err := l.Load(context.Background())
		assert.Error(err, name)
		assert.IsType(&InvalidSnapshotError{}, err, name)
	}
}

func TestLoadHonorsContext(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewFileLoader("irrelevant")
	_, err := l.Load(ctx)
	assert.ErrorIs(err, context.Canceled)
}
