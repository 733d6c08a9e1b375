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
	"regexp"
	"strconv"

	"github.com/seqlab/stagetrack/model"
)

// run sign-off progression encoded in a state code
const (
	RunPendingQc         = 1
	RunPendingDataReview = 2
	RunSignoffsComplete  = 3
)

// StateCode is the compact notification state round-tripped through a
// ticket's description and comments: the run's own sign-off progression
// plus the sizes of the three pending sample sets.
type StateCode struct {
	RunState          int
	PendingAnalysis   int
	PendingQc         int
	PendingDataReview int
}

// String renders the code in its wire form, e.g. "R1A0Q2D1".
func (c StateCode) String() string {
	return fmt.Sprintf("R%dA%dQ%dD%d",
		c.RunState, c.PendingAnalysis, c.PendingQc, c.PendingDataReview)
}

// PendingSignoffs reports whether any sample awaits a QC decision or data
// review.
func (c StateCode) PendingSignoffs() bool {
	return c.PendingQc > 0 || c.PendingDataReview > 0
}

// Resolved reports whether nothing remains to do: no pending samples and
// the run's own sign-offs complete.
func (c StateCode) Resolved() bool {
	return c.RunState == RunSignoffsComplete && c.PendingAnalysis == 0 &&
		c.PendingQc == 0 && c.PendingDataReview == 0
}

// CodeFor computes the state code for a run and its derived notification. A
// nil notification means the run is fully resolved.
func CodeFor(run *model.Run, n *model.Notification) StateCode {
	code := StateCode{RunState: runState(run)}
	if n != nil {
		code.PendingAnalysis = len(n.PendingAnalysis)
		code.PendingQc = len(n.PendingQc)
		code.PendingDataReview = len(n.PendingDataReview)
	}
	return code
}

func runState(run *model.Run) int {
	if run.QcDate == nil {
		return RunPendingQc
	}
	if run.DataReviewDate == nil {
		return RunPendingDataReview
	}
	return RunSignoffsComplete
}

var codePattern = regexp.MustCompile(`R(\d+)A(\d+)Q(\d+)D(\d+)`)
var strictCodePattern = regexp.MustCompile(`^R(\d+)A(\d+)Q(\d+)D(\d+)$`)

// ParseCode parses a state code in its wire form. Parsing a code and
// rendering it again yields the identical string.
func ParseCode(s string) (StateCode, error) {
	match := strictCodePattern.FindStringSubmatch(s)
	if match == nil {
		return StateCode{}, &InvalidCodeError{Text: s}
	}
	return codeFromMatch(match), nil
}

// FindCode extracts the last state code embedded in free text (a ticket
// comment or description), if there is one.
func FindCode(text string) (StateCode, bool) {
	matches := codePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return StateCode{}, false
	}
	return codeFromMatch(matches[len(matches)-1]), true
}

func codeFromMatch(match []string) StateCode {
	// the pattern guarantees digits, so these conversions cannot fail
	runState, _ := strconv.Atoi(match[1])
	analysis, _ := strconv.Atoi(match[2])
	qc, _ := strconv.Atoi(match[3])
	dataReview, _ := strconv.Atoi(match[4])
	return StateCode{
		RunState:          runState,
		PendingAnalysis:   analysis,
		PendingQc:         qc,
		PendingDataReview: dataReview,
	}
}
