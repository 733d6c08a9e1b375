package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/seqlab/stagetrack/config"
	"github.com/seqlab/stagetrack/gates"
	"github.com/seqlab/stagetrack/model"
	"github.com/seqlab/stagetrack/summary"
	"github.com/seqlab/stagetrack/watch"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the TrackingService interface, serving case stage
// queries, project summaries, and run notifications from the snapshot
// maintained by the watch package.
type tracking struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root
func (service *tracking) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

// parses a query-string date, accepting RFC 3339 timestamps or plain
// YYYY-MM-DD dates
func parseDate(param, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Invalid %s date: %s", param, value))
	}
	return &t, nil
}

type ProjectSummariesOutput struct {
	Body ProjectSummariesResponse `doc:"Per-project stage counters computed from the current snapshot"`
}

// handler method for querying per-project summaries
func (service *tracking) getProjects(ctx context.Context,
	input *struct {
		After  string `query:"after" example:"2024-06-01" doc:"(Optional) Count only stage completions after this date"`
		Before string `query:"before" example:"2024-07-01" doc:"(Optional) Count only stage completions before this date"`
	}) (*ProjectSummariesOutput, error) {

	after, err := parseDate("after", input.After)
	if err != nil {
		return nil, err
	}
	before, err := parseDate("before", input.Before)
	if err != nil {
		return nil, err
	}
	var filter *summary.Filter
	if after != nil || before != nil {
		filter = &summary.Filter{After: after, Before: before}
	}

	slog.Info("Querying project summaries...")
	snap, err := watch.Snapshot()
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}
	summaries, err := watch.Summaries(filter)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}
	return &ProjectSummariesOutput{
		Body: ProjectSummariesResponse{
			Timestamp: snap.Timestamp.Format(time.RFC3339),
			Projects:  summaries,
		},
	}, nil
}

type CasesOutput struct {
	Body []CaseResponse `doc:"Cases matching the given stage filters"`
}

// handler method for querying cases by completed gate and/or pending state
func (service *tracking) getCases(ctx context.Context,
	input *struct {
		Gate    string `query:"gate" example:"Extraction" doc:"(Optional) Return only cases that have completed this gate"`
		Pending string `query:"pending" example:"Extraction QC" doc:"(Optional) Return only cases pending this state"`
	}) (*CasesOutput, error) {

	var completedGate *gates.CompletedGate
	var pendingState *gates.PendingState
	var err error
	if input.Gate != "" {
		completedGate, err = gates.CompletedGateByName(input.Gate)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}
	if input.Pending != "" {
		pendingState, err = gates.PendingStateByName(input.Pending)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
	}

	slog.Info(fmt.Sprintf("Querying cases (gate=%q, pending=%q)...",
		input.Gate, input.Pending))
	snap, err := watch.Snapshot()
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}

	output := &CasesOutput{
		Body: make([]CaseResponse, 0),
	}
	for _, kase := range snap.Cases {
		if completedGate != nil && !completedGate.QualifyCase(kase) {
			continue
		}
		if pendingState != nil && !pendingState.QualifyCase(kase) {
			continue
		}
		response := CaseResponse{
			Id:       kase.Id,
			Projects: projectNames(kase),
		}
		if state := gates.FirstPendingForCase(kase); state != nil {
			response.PendingState = state.Name()
		}
		output.Body = append(output.Body, response)
	}
	slices.SortFunc(output.Body, func(c1, c2 CaseResponse) int { // sort by id
		return strings.Compare(c1.Id, c2.Id)
	})
	return output, nil
}

func projectNames(kase *model.Case) []string {
	names := make([]string, len(kase.Projects))
	for i, project := range kase.Projects {
		names[i] = project.Name
	}
	return names
}

type NotificationsOutput struct {
	Body []NotificationResponse `doc:"The run notifications currently being tracked"`
}

// handler method for querying tracked run notifications
func (service *tracking) getNotifications(ctx context.Context,
	input *struct{}) (*NotificationsOutput, error) {

	slog.Info("Querying run notifications...")
	notifications, err := watch.Notifications()
	if err != nil {
		return nil, huma.Error503ServiceUnavailable(err.Error())
	}
	output := &NotificationsOutput{
		Body: make([]NotificationResponse, 0, len(notifications)),
	}
	for _, n := range notifications {
		output.Body = append(output.Body, NotificationResponse{
			RunName:           n.RunName,
			Category:          string(n.Category),
			IssueKey:          n.IssueKey,
			PendingAnalysis:   model.SampleNames(n.PendingAnalysis),
			PendingQc:         model.SampleNames(n.PendingQc),
			PendingDataReview: model.SampleNames(n.PendingDataReview),
		})
	}
	return output, nil
}

type HealthOutput struct {
	Body HealthResponse `doc:"The health of the service and its refresh loop"`
}

// handler method for health queries
func (service *tracking) getHealth(ctx context.Context,
	input *struct{}) (*HealthOutput, error) {

	response := HealthResponse{Status: "ok"}
	if failures, err := watch.ConsecutiveFailures(); err == nil {
		response.ConsecutiveFailures = failures
		if failures > 0 {
			response.Status = "degraded"
		}
	}
	if snap, err := watch.Snapshot(); err == nil {
		response.SnapshotTimestamp = snap.Timestamp.Format(time.RFC3339)
	} else {
		response.Status = "degraded"
	}
	return &HealthOutput{Body: response}, nil
}

// returns the uptime for the service in seconds
func (service *tracking) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a sample tracking service given our configuration
func NewTrackingService() (TrackingService, error) {

	// validate our configuration
	if config.Loader.Path == "" {
		return nil, fmt.Errorf("No snapshot path was specified.")
	}

	service := new(tracking)
	service.Name = "stagetrack"
	service.Version = version
	service.Port = -1

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)
	huma.Get(api, "/health", service.getHealth)

	// API v1
	huma.Get(api, "/api/v1/projects", service.getProjects)
	huma.Get(api, "/api/v1/cases", service.getCases)
	huma.Get(api, "/api/v1/notifications", service.getNotifications)

	// prometheus metrics
	service.Router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	AddDocEndpoints(service.Router)

	return service, nil
}

// starts the sample tracking service
func (service *tracking) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start the refresh loop
	err = watch.Start()
	if err != nil {
		return err
	}

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *tracking) Shutdown(ctx context.Context) error {
	watch.Stop()
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *tracking) Close() {
	watch.Stop()
	if service.Server != nil {
		service.Server.Close()
	}
}
