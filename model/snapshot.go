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

package model

import "time"

// a complete, immutable view of the case/run/assay graph at one point in
// time; replaced wholesale by each successful refresh
type Snapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	Cases     []*Case           `json:"cases"`
	Runs      map[string]*Run   `json:"runs"`
	Assays    map[string]*Assay `json:"assays"`
}

// SamplesForRun collects the samples of the given run-associated category
// that were sequenced on the named run, in case/test order.
func (s *Snapshot) SamplesForRun(runName string, category Category) []*Sample {
	var samples []*Sample
	for _, kase := range s.Cases {
		for _, test := range kase.Tests {
			for _, sample := range test.Samples(category) {
				if sample.RunName == runName {
					samples = append(samples, sample)
				}
			}
		}
	}
	return samples
}

// Run looks up a run by name.
func (s *Snapshot) Run(name string) (*Run, bool) {
	run, found := s.Runs[name]
	return run, found
}

// Assay looks up an assay by id.
func (s *Snapshot) Assay(id string) (*Assay, bool) {
	assay, found := s.Assays[id]
	return assay, found
}
