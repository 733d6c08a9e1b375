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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seqlab/stagetrack/labtest"
	"github.com/seqlab/stagetrack/model"
)

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	code := StateCode{
		RunState:          RunPendingQc,
		PendingAnalysis:   0,
		PendingQc:         2,
		PendingDataReview: 1,
	}
	assert.Equal("R1A0Q2D1", code.String())
}

func TestParseCodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, text := range []string{"R1A0Q2D1", "R3A0Q0D0", "R2A12Q0D3"} {
		code, err := ParseCode(text)
		assert.NoError(err)
		assert.Equal(text, code.String())
	}
}

func TestParseCodeRejectsMalformedText(t *testing.T) {
	assert := assert.New(t)

	for _, text := range []string{"", "R1A0Q2", "r1a0q2d1", "xR1A0Q2D1y"} {
		_, err := ParseCode(text)
		assert.Error(err)
		assert.IsType(&InvalidCodeError{}, err)
	}
}

func TestFindCodeTakesTheLastEmbedded(t *testing.T) {
	assert := assert.New(t)

	text := "Previously R1A3Q0D0.\nNow 2 samples await QC.\nState: R2A0Q2D0"
	code, found := FindCode(text)
	assert.True(found)
	assert.Equal("R2A0Q2D0", code.String())

	_, found = FindCode("no code in this comment")
	assert.False(found)
}

func TestPendingSignoffsAndResolved(t *testing.T) {
	assert := assert.New(t)

	assert.True(StateCode{RunState: 2, PendingQc: 1}.PendingSignoffs())
	assert.True(StateCode{RunState: 2, PendingDataReview: 1}.PendingSignoffs())
	assert.False(StateCode{RunState: 2, PendingAnalysis: 4}.PendingSignoffs())

	assert.True(StateCode{RunState: RunSignoffsComplete}.Resolved())
	assert.False(StateCode{RunState: RunPendingDataReview}.Resolved())
	assert.False(
		StateCode{RunState: RunSignoffsComplete, PendingAnalysis: 1}.Resolved())
}

func TestCodeForTracksRunSignoffs(t *testing.T) {
	assert := assert.New(t)

	run := &model.Run{Name: "240601_A00000_0001"}
	n := &model.Notification{
		RunName:   run.Name,
		Category:  model.LibraryQualification,
		PendingQc: []*model.Sample{labtest.PendingQcSample("SAM-1")},
	}
	assert.Equal("R1A0Q1D0", CodeFor(run, n).String())

	run.QcDate = labtest.Day(2024, time.June, 1)
	assert.Equal("R2A0Q1D0", CodeFor(run, n).String())

	run.DataReviewDate = labtest.Day(2024, time.June, 2)
	assert.Equal("R3A0Q1D0", CodeFor(run, n).String())

	// a nil notification leaves only the run's own progression
	code := CodeFor(run, nil)
	assert.Equal("R3A0Q0D0", code.String())
	assert.True(code.Resolved())
}
