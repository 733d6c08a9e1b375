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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/StalkR/hsts"
)

// JiraTracker implements IssueTracker against Jira's REST API (v2). Only
// the handful of operations the reconciliation state machine needs are
// implemented.
type JiraTracker struct {
	// Jira base URL, e.g. https://tracker.example.org
	BaseURL string
	// key of the Jira project issues are filed under
	Project string
	// issue type used for created issues
	IssueType string
	// bearer token for authentication
	Token string

	client http.Client
}

// names of the Jira workflow transitions we drive
const (
	transitionClose  = "Close"
	transitionPause  = "Pause"
	transitionReopen = "Reopen"
)

// NewJiraTracker creates a Jira-backed issue tracker. The client enforces a
// request timeout, refuses redirects that downgrade to plain HTTP, and
// enables HTTP Strict Transport Security.
func NewJiraTracker(baseURL, project, issueType, token string) *JiraTracker {
	client := http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme == "http" {
				return &DowngradedRedirectError{
					Endpoint: fmt.Sprintf("%s%s", req.URL.Host, req.URL.Path),
				}
			}
			return http.ErrUseLastResponse
		},
	}
	client.Transport = hsts.New(client.Transport)
	return &JiraTracker{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Project:   project,
		IssueType: issueType,
		Token:     token,
		client:    client,
	}
}

// wire representations for the slice of Jira's API we use

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Resolution *struct {
			Name string `json:"name"`
		} `json:"resolution"`
		Comment struct {
			Comments []struct {
				Body string `json:"body"`
			} `json:"comments"`
		} `json:"comment"`
	} `json:"fields"`
}

func (j *jiraIssue) toIssue() *Issue {
	issue := &Issue{
		Key:         j.Key,
		Summary:     j.Fields.Summary,
		Description: j.Fields.Description,
		State:       stateFromStatus(j.Fields.Status.Name),
	}
	if j.Fields.Resolution != nil {
		issue.Resolution = strings.ToLower(j.Fields.Resolution.Name)
	}
	for _, comment := range j.Fields.Comment.Comments {
		issue.Comments = append(issue.Comments, comment.Body)
	}
	return issue
}

func stateFromStatus(status string) IssueState {
	switch strings.ToLower(status) {
	case "open", "reopened", "in progress", "to do":
		return StateOpen
	case "paused", "on hold":
		return StatePaused
	case "closed", "done", "resolved":
		return StateClosed
	}
	return StateUnknown
}

// performs a request against the Jira API and decodes the JSON response (if
// any) into result
func (t *JiraTracker) do(method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, t.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Key: path}
	}
	if resp.StatusCode >= 400 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}
	if result != nil && len(data) > 0 {
		return json.Unmarshal(data, result)
	}
	return nil
}

func (t *JiraTracker) IssueByKey(key string) (*Issue, error) {
	var raw jiraIssue
	err := t.do(http.MethodGet, "/rest/api/2/issue/"+key+"?fields=summary,description,status,resolution,comment", nil, &raw)
	if err != nil {
		if _, notFound := err.(*NotFoundError); notFound {
			return nil, &NotFoundError{Key: key}
		}
		return nil, err
	}
	return raw.toIssue(), nil
}

// runs a JQL search and returns the matching issues, newest first
func (t *JiraTracker) search(jql string) ([]*Issue, error) {
	var raw struct {
		Issues []jiraIssue `json:"issues"`
	}
	query := url.Values{}
	query.Add("jql", jql)
	query.Add("fields", "summary,description,status,resolution,comment")
	err := t.do(http.MethodGet, "/rest/api/2/search?"+query.Encode(), nil, &raw)
	if err != nil {
		return nil, err
	}
	issues := make([]*Issue, len(raw.Issues))
	for i := range raw.Issues {
		issues[i] = raw.Issues[i].toIssue()
	}
	return issues, nil
}

func (t *JiraTracker) IssueBySummary(summary string) (*Issue, error) {
	jql := fmt.Sprintf("project = %s AND summary ~ %q ORDER BY created DESC",
		t.Project, summary)
	issues, err := t.search(jql)
	if err != nil {
		return nil, err
	}
	// Jira's summary match is fuzzy; insist on an exact one
	for _, issue := range issues {
		if issue.Summary == summary {
			return issue, nil
		}
	}
	return nil, nil
}

func (t *JiraTracker) OpenIssues(summarySuffix string) ([]*Issue, error) {
	jql := fmt.Sprintf("project = %s AND summary ~ %q AND status not in (Closed, Done, Resolved) ORDER BY created DESC",
		t.Project, summarySuffix)
	issues, err := t.search(jql)
	if err != nil {
		return nil, err
	}
	matched := make([]*Issue, 0, len(issues))
	for _, issue := range issues {
		if strings.HasSuffix(issue.Summary, summarySuffix) {
			matched = append(matched, issue)
		}
	}
	return matched, nil
}

func (t *JiraTracker) CreateIssue(summary, description string) (string, error) {
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": t.Project},
			"issuetype":   map[string]string{"name": t.IssueType},
			"summary":     summary,
			"description": description,
		},
	}
	var created struct {
		Key string `json:"key"`
	}
	err := t.do(http.MethodPost, "/rest/api/2/issue", body, &created)
	if err != nil {
		return "", err
	}
	return created.Key, nil
}

func (t *JiraTracker) PostComment(key, comment string) error {
	body := map[string]string{"body": comment}
	return t.do(http.MethodPost, "/rest/api/2/issue/"+key+"/comment", body, nil)
}

// looks up the id of a named workflow transition currently available on an
// issue; the transition set depends on the issue's state
func (t *JiraTracker) transitionId(key, name string) (string, error) {
	var raw struct {
		Transitions []struct {
			Id   string `json:"id"`
			Name string `json:"name"`
		} `json:"transitions"`
	}
	err := t.do(http.MethodGet, "/rest/api/2/issue/"+key+"/transitions", nil, &raw)
	if err != nil {
		return "", err
	}
	for _, transition := range raw.Transitions {
		if strings.EqualFold(transition.Name, name) {
			return transition.Id, nil
		}
	}
	return "", &TransitionNotFoundError{Key: key, Transition: name}
}

// applies a named transition, optionally setting a resolution and posting a
// comment beforehand
func (t *JiraTracker) transition(key, name, resolution, comment string) error {
	if comment != "" {
		if err := t.PostComment(key, comment); err != nil {
			return err
		}
	}
	id, err := t.transitionId(key, name)
	if err != nil {
		return err
	}
	body := map[string]any{
		"transition": map[string]string{"id": id},
	}
	if resolution != "" {
		body["fields"] = map[string]any{
			"resolution": map[string]string{"name": resolution},
		}
	}
	return t.do(http.MethodPost, "/rest/api/2/issue/"+key+"/transitions", body, nil)
}

func (t *JiraTracker) CloseIssue(key, comment string) error {
	return t.transition(key, transitionClose, ResolutionDone, comment)
}

func (t *JiraTracker) PauseIssue(key, comment string) error {
	return t.transition(key, transitionPause, ResolutionPaused, comment)
}

func (t *JiraTracker) ReopenIssue(key string) error {
	return t.transition(key, transitionReopen, "", "")
}

func (t *JiraTracker) IssueState(key string) (IssueState, string, error) {
	var raw jiraIssue
	err := t.do(http.MethodGet, "/rest/api/2/issue/"+key+"?fields=status,resolution", nil, &raw)
	if err != nil {
		if _, notFound := err.(*NotFoundError); notFound {
			return StateUnknown, "", &NotFoundError{Key: key}
		}
		return StateUnknown, "", err
	}
	issue := raw.toIssue()
	return issue.State, issue.Resolution, nil
}
