package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/seqlab/stagetrack/summary"
)

// This package-specific helper function writes a JSON payload to an
// http.ResponseWriter.
func writeJson(w http.ResponseWriter, data []byte, code int) {
	w.WriteHeader(code)
	if len(data) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" example:"stagetrack" doc:"The name of the service API"`
	Version       string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" example:"/docs" doc:"The OpenAPI documentation endpoint"`
}

// This type holds information about an error that occurred responding to a
// request.
type ErrorResponse struct {
	// An HTTP error code
	Code int `json:"code"`
	// A descriptive error message
	Error string `json:"message"`
}

// This package-specific helper function writes an error to an
// http.ResponseWriter, giving it the proper status code, and encoding an
// ErrorResponse in the response body.
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	e := ErrorResponse{Code: code, Error: message}
	data, _ := json.Marshal(e)
	w.Write(data)
}

// a response for a project summary query (GET)
type ProjectSummariesResponse struct {
	// when the underlying snapshot was taken
	Timestamp string `json:"timestamp"`
	// per-project stage counters, keyed by project name
	Projects map[string]*summary.ProjectSummary `json:"projects"`
}

// one case in a case query response (GET)
type CaseResponse struct {
	Id string `json:"id"`
	// names of the projects the case reports under
	Projects []string `json:"projects"`
	// the case's first pending state in pipeline order, if any
	PendingState string `json:"pendingState,omitempty"`
}

// one tracked run notification in a notification query response (GET)
type NotificationResponse struct {
	RunName  string `json:"runName"`
	Category string `json:"category"`
	IssueKey string `json:"issueKey,omitempty"`
	// names of the samples pending in each set
	PendingAnalysis   []string `json:"pendingAnalysis"`
	PendingQc         []string `json:"pendingQc"`
	PendingDataReview []string `json:"pendingDataReview"`
}

// a response for a health query (GET)
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	// number of consecutive snapshot refresh failures
	ConsecutiveFailures int `json:"consecutiveFailures"`
	// timestamp of the snapshot currently being served
	SnapshotTimestamp string `json:"snapshotTimestamp,omitempty"`
}

// TrackingService defines the interface for our sample tracking service.
type TrackingService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}
