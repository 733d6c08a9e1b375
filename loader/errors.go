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
	"fmt"
	"time"
)

// indicates that no snapshot document was found at the configured path
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no snapshot document found at %s", e.Path)
}

// indicates that a snapshot document could not be parsed or validated
type InvalidSnapshotError struct {
	Path    string
	Message string
}

func (e InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot document %s: %s", e.Path, e.Message)
}

// indicates that a snapshot's timestamp did not advance past the previously
// loaded one
type StaleSnapshotError struct {
	Current  time.Time
	Previous time.Time
}

func (e StaleSnapshotError) Error() string {
	return fmt.Sprintf("stale snapshot: timestamp %s does not advance past %s",
		e.Current.Format(time.RFC3339), e.Previous.Format(time.RFC3339))
}
