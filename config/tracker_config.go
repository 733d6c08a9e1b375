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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fernet/fernet-go"
)

// parameters for the issue tracker the reconciler talks to
type trackerConfig struct {
	// Base URL of the issue tracker's REST API (must be https).
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	// Project in which notification tickets are filed.
	Project string `json:"project" yaml:"project"`
	// Issue type used for notification tickets.
	IssueType string `json:"issueType" yaml:"issueType"`
	// Suffix appended to every ticket summary; also used to find the
	// service's tickets on startup.
	SummarySuffix string `json:"summarySuffix" yaml:"summarySuffix"`
	// Fernet key (base64) used to unseal the API token file.
	Key string `json:"key" yaml:"key"`
}

// the sealed tracker API token lives alongside the journal
const trackerTokenFile = "tracker_token.dat"

// This helper validates the given tracker parameters. An empty base URL
// disables the tracker entirely (the service then derives notifications
// without filing tickets).
func validateTrackerParameters(params trackerConfig) error {
	if params.BaseURL == "" {
		return nil
	}
	if !strings.HasPrefix(params.BaseURL, "https://") {
		return fmt.Errorf("Invalid tracker baseUrl: %s (must be https)",
			params.BaseURL)
	}
	if params.Project == "" {
		return fmt.Errorf("No tracker project was provided!")
	}
	if params.Key == "" {
		return fmt.Errorf("No tracker key was provided!")
	}
	if _, err := fernet.DecodeKeys(params.Key); err != nil {
		return fmt.Errorf("Invalid tracker key: %s", err.Error())
	}
	return nil
}

// TrackerToken unseals the issue tracker API token from the token file in
// the service's data directory.
func TrackerToken() (string, error) {
	keys, err := fernet.DecodeKeys(Tracker.Key)
	if err != nil {
		return "", err
	}
	sealed, err := os.ReadFile(filepath.Join(Service.DataDirectory, trackerTokenFile))
	if err != nil {
		return "", err
	}
	// tokens don't expire; rotation happens by resealing the file
	token := fernet.VerifyAndDecrypt(sealed, 0, keys)
	if token == nil {
		return "", fmt.Errorf("Couldn't unseal the tracker token (wrong key?)")
	}
	return string(token), nil
}

// SealTrackerToken writes the sealed token file that TrackerToken reads,
// typically from a one-off setup command.
func SealTrackerToken(token string) error {
	keys, err := fernet.DecodeKeys(Tracker.Key)
	if err != nil {
		return err
	}
	sealed, err := fernet.EncryptAndSign([]byte(token), keys[0])
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(Service.DataDirectory, trackerTokenFile),
		sealed, 0600)
}
