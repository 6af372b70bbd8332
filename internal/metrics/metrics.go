// Package metrics reports run progress as Prometheus metrics pushed to a
// Pushgateway: this is a short-lived CLI run rather than a long-running
// service, so metrics are pushed rather than scraped.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Reporter tracks per-stage row counts and durations for one run and
// optionally pushes them to a Pushgateway on Flush.
type Reporter struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	rowsTotal    *prometheus.CounterVec // status: succeeded|failed
	stageSeconds *prometheus.SummaryVec // stage: convert|upload
	uploadsTotal prometheus.Counter
}

// NewReporter constructs a Reporter. gatewayURL may be empty, in which case
// Flush is a no-op — progress is still tracked in-process for the run
// summary.
func NewReporter(jobName, gatewayURL string) (*Reporter, error) {
	if jobName == "" {
		jobName = "rowsync"
	}

	reg := prometheus.NewRegistry()

	rowsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowsync_rows_total",
			Help: "Total number of input rows processed, partitioned by status.",
		},
		[]string{"status"},
	)
	stageSeconds := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "rowsync_stage_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by stage.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage"},
	)
	uploadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rowsync_file_uploads_total",
		Help: "Total number of distinct file uploads performed this run.",
	})

	for _, c := range []prometheus.Collector{rowsTotal, stageSeconds, uploadsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}

	return &Reporter{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		rowsTotal:    rowsTotal,
		stageSeconds: stageSeconds,
		uploadsTotal: uploadsTotal,
	}, nil
}

// RowSucceeded records one successfully written row.
func (r *Reporter) RowSucceeded() { r.rowsTotal.WithLabelValues("succeeded").Inc() }

// RowFailed records one per-row failure.
func (r *Reporter) RowFailed() { r.rowsTotal.WithLabelValues("failed").Inc() }

// FileUploaded records one completed file upload.
func (r *Reporter) FileUploaded() { r.uploadsTotal.Inc() }

// ObserveStage records how long one pipeline stage took for one row.
func (r *Reporter) ObserveStage(stage string, seconds float64) {
	r.stageSeconds.WithLabelValues(stage).Observe(seconds)
}

// Flush pushes the current registry to the configured Pushgateway. A no-op
// when no gateway URL was configured.
func (r *Reporter) Flush() error {
	if r.gatewayURL == "" {
		return nil
	}
	return push.New(r.gatewayURL, r.jobName).Gatherer(r.reg).Push()
}
