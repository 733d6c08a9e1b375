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

package tracker

import "fmt"

// indicates that an issue is sought but not found
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("The issue %s was not found.", e.Key)
}

// indicates that an expected workflow transition is missing from the issue's
// workflow; fatal for the reconciliation call that needed it
type TransitionNotFoundError struct {
	Key        string
	Transition string
}

func (e TransitionNotFoundError) Error() string {
	return fmt.Sprintf("The issue %s has no '%s' transition available.",
		e.Key, e.Transition)
}

// indicates an HTTP-level failure talking to the tracker
type RequestError struct {
	StatusCode int
	Message    string
}

func (e RequestError) Error() string {
	return fmt.Sprintf("The issue tracker returned status %d: %s",
		e.StatusCode, e.Message)
}

// indicates that a client was followed through a redirect from HTTPS to HTTP
type DowngradedRedirectError struct {
	Endpoint string
}

func (e DowngradedRedirectError) Error() string {
	return fmt.Sprintf("Redirected to non-HTTPS endpoint %s.", e.Endpoint)
}
