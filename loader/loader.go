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

// The loader package supplies snapshots of the case/run/assay graph to the
// refresh loop. The service never talks to the lab information system
// directly; an upstream exporter drops snapshot documents where a Loader
// can pick them up.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seqlab/stagetrack/model"
)

// Loader produces a fresh snapshot on demand. Load blocks until the
// snapshot is assembled or the context is canceled.
type Loader interface {
	Load(ctx context.Context) (*model.Snapshot, error)
}

// the on-disk snapshot document; runs and assays are flat lists that get
// reindexed on load
type document struct {
	Timestamp time.Time      `json:"timestamp"`
	Cases     []*model.Case  `json:"cases"`
	Runs      []*model.Run   `json:"runs"`
	Assays    []*model.Assay `json:"assays"`
}

// A FileLoader reads snapshot documents from a JSON file or from a
// directory of them. For a directory, the lexically greatest *.json entry
// is taken to be the newest drop, so exporters should name their files
// sortably (e.g. with an RFC 3339 timestamp).
//
// A FileLoader enforces monotonic snapshot timestamps: a document whose
// timestamp does not advance past the previously loaded one is rejected
// with a StaleSnapshotError, leaving the caller on its current snapshot.
type FileLoader struct {
	path     string
	previous time.Time
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) Load(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := l.resolve()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: file}
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidSnapshotError{Path: file, Message: err.Error()}
	}
	snap, err := index(&doc, file)
	if err != nil {
		return nil, err
	}

	if !snap.Timestamp.After(l.previous) {
		return nil, &StaleSnapshotError{
			Current:  snap.Timestamp,
			Previous: l.previous,
		}
	}
	l.previous = snap.Timestamp
	slog.Debug(fmt.Sprintf("Loaded snapshot %s from %s (%d cases, %d runs)",
		snap.Timestamp.Format(time.RFC3339), file, len(snap.Cases), len(snap.Runs)))
	return snap, nil
}

// resolve maps the configured path to the file to read this cycle.
func (l *FileLoader) resolve() (string, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Path: l.path}
		}
		return "", err
	}
	if !info.IsDir() {
		return l.path, nil
	}

	entries, err := os.ReadDir(l.path)
	if err != nil {
		return "", err
	}
	names := snapshotNames(entries)
	if len(names) == 0 {
		return "", &NotFoundError{Path: l.path}
	}
	sort.Strings(names)
	return filepath.Join(l.path, names[len(names)-1]), nil
}

func snapshotNames(entries []fs.DirEntry) []string {
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	return names
}

// index validates a document and builds the keyed snapshot from it.
func index(doc *document, file string) (*model.Snapshot, error) {
	if doc.Timestamp.IsZero() {
		return nil, &InvalidSnapshotError{Path: file,
			Message: "document has no timestamp"}
	}

	runs := make(map[string]*model.Run, len(doc.Runs))
	for _, run := range doc.Runs {
		if run.Name == "" {
			return nil, &InvalidSnapshotError{Path: file,
				Message: "run without a name"}
		}
		if _, dup := runs[run.Name]; dup {
			return nil, &InvalidSnapshotError{Path: file,
				Message: fmt.Sprintf("duplicate run %s", run.Name)}
		}
		runs[run.Name] = run
	}

	assays := make(map[string]*model.Assay, len(doc.Assays))
	for _, assay := range doc.Assays {
		if assay.Id == "" {
			return nil, &InvalidSnapshotError{Path: file,
				Message: fmt.Sprintf("assay %q without an id", assay.Name)}
		}
		if _, dup := assays[assay.Id]; dup {
			return nil, &InvalidSnapshotError{Path: file,
				Message: fmt.Sprintf("duplicate assay %s", assay.Id)}
		}
		assays[assay.Id] = assay
	}

	// a sample naming an unknown run is tolerated (the exporter may trim old
	// runs before old cases) but logged, since no notification can be derived
	// for it
	for _, kase := range doc.Cases {
		for _, test := range kase.Tests {
			for _, category := range model.RunCategories {
				for _, sample := range test.Samples(category) {
					if sample.RunName == "" {
						continue
					}
					if _, found := runs[sample.RunName]; !found {
						slog.Warn(fmt.Sprintf("Sample %s references unknown run %s",
							sample.Name, sample.RunName))
					}
				}
			}
		}
	}

	return &model.Snapshot{
		Timestamp: doc.Timestamp,
		Cases:     doc.Cases,
		Runs:      runs,
		Assays:    assays,
	}, nil
}
