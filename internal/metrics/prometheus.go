// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"jbossmon/internal/store"
)

var (
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jbossmon_check_duration_seconds",
			Help:    "Time spent checking one instance",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"environment", "result"},
	)

	CheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbossmon_checks_total",
			Help: "Total number of instance checks executed",
		},
		[]string{"environment", "result"},
	)

	CheckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbossmon_check_failures_total",
			Help: "Failed instance checks by failure kind",
		},
		[]string{"environment", "kind"},
	)

	InstanceStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jbossmon_instance_up",
			Help: "Last observed instance status (1=up, 0=down/unknown)",
		},
		[]string{"environment", "host", "instance"},
	)

	ChecksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jbossmon_checks_in_flight",
			Help: "Checks currently held by pool workers",
		},
	)

	MonitoredHosts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jbossmon_monitored_hosts",
			Help: "Number of registered hosts per environment",
		},
		[]string{"environment"},
	)

	ReportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbossmon_report_jobs_total",
			Help: "Report and comparison jobs by terminal status",
		},
		[]string{"kind", "status"},
	)

	SchedulerSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jbossmon_scheduler_skips_total",
			Help: "Scheduled runs skipped per environment",
		},
		[]string{"environment", "reason"},
	)
)

type Collector struct {
	store store.Store
}

func NewCollector(s store.Store) *Collector {
	return &Collector{store: s}
}

func (c *Collector) RecordCheck(environment, host, instance, status string, duration time.Duration) {
	CheckDuration.WithLabelValues(environment, status).Observe(duration.Seconds())
	CheckTotal.WithLabelValues(environment, status).Inc()

	up := 0.0
	if status == store.StatusUp {
		up = 1.0
	}
	InstanceStatus.WithLabelValues(environment, host, instance).Set(up)
}

func (c *Collector) RecordCheckFailure(environment, kind string) {
	CheckFailures.WithLabelValues(environment, kind).Inc()
}

func (c *Collector) CheckStarted() {
	ChecksInFlight.Inc()
}

func (c *Collector) CheckFinished() {
	ChecksInFlight.Dec()
}

func (c *Collector) RecordReportJob(kind string, status store.JobStatus) {
	ReportJobs.WithLabelValues(kind, string(status)).Inc()
}

func (c *Collector) RecordSchedulerSkip(environment, reason string) {
	SchedulerSkips.WithLabelValues(environment, reason).Inc()
}

// UpdateSystemMetrics refreshes the per-environment host gauges.
func (c *Collector) UpdateSystemMetrics(ctx context.Context) error {
	for _, env := range store.Environments() {
		hosts, err := c.store.GetHosts(ctx, env)
		if err != nil {
			return err
		}
		MonitoredHosts.WithLabelValues(env).Set(float64(len(hosts)))
	}
	return nil
}
