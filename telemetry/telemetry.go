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

// Prometheus collectors for the tracker's observable counters. None of
// these throttle anything; they exist purely for dashboards and alerting.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// total requests issued against the external issue tracker
	TrackerRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stagetrack",
		Name:      "issue_tracker_requests_total",
		Help:      "Total number of requests issued to the external issue tracker.",
	})

	// snapshot refresh failures (the previous snapshot stays active)
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stagetrack",
		Name:      "refresh_failures_total",
		Help:      "Total number of failed snapshot refreshes.",
	})

	// per-run reconciliation errors (isolated; the cycle continues)
	ReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stagetrack",
		Name:      "reconcile_errors_total",
		Help:      "Total number of per-run reconciliation failures.",
	})

	// wall time of a full refresh/aggregate/reconcile cycle
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stagetrack",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a complete refresh cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// timestamp of the currently active snapshot
	SnapshotTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stagetrack",
		Name:      "snapshot_timestamp_seconds",
		Help:      "Unix timestamp of the currently active snapshot.",
	})
)
