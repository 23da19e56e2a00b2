// internal/reports/engine.go
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/metrics"
	"jbossmon/internal/monitor"
	"jbossmon/internal/render"
	"jbossmon/internal/store"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownFormat      = errors.New("unknown report format")
)

// Engine owns the report job lifecycle: it creates a generating record,
// produces the artifact in the background and drives the record to a
// terminal state exactly once.
type Engine struct {
	store   store.Store
	agg     *monitor.Aggregator
	metrics *metrics.Collector

	maxPerEnv     int
	defaultFormat string

	// renderFor is swapped out in tests.
	renderFor func(format string) (render.Renderer, error)

	wg sync.WaitGroup
}

func NewEngine(s store.Store, agg *monitor.Aggregator, collector *metrics.Collector, maxPerEnv int, defaultFormat string) *Engine {
	return &Engine{
		store:         s,
		agg:           agg,
		metrics:       collector,
		maxPerEnv:     maxPerEnv,
		defaultFormat: defaultFormat,
		renderFor:     render.ForFormat,
	}
}

// Wait blocks until all background jobs have reached a terminal state. Used
// during shutdown and by tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Generate creates a report job and returns it immediately in the
// generating state. Validation errors are returned synchronously and leave
// no record behind. When creds is nil the environment's stored system
// credentials are used for the status refresh.
func (e *Engine) Generate(ctx context.Context, environment, format, createdBy string, creds *store.Credentials) (*store.Report, error) {
	if !store.ValidEnvironment(environment) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnvironment, environment)
	}
	if format == "" {
		format = e.defaultFormat
	}
	if _, err := e.renderFor(format); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	now := time.Now()
	report := &store.Report{
		ID:          uuid.New().String(),
		Environment: environment,
		Format:      format,
		Status:      store.JobGenerating,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	report.Filename = fmt.Sprintf("jboss_monitor_%s_%s_%s.%s", environment, now.Format("20060102"), shortID(report.ID), format)

	if err := e.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report record: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordReportJob("report", store.JobGenerating)
	}

	e.wg.Add(1)
	go e.generate(*report, creds)

	return report, nil
}

// generate runs detached from the request. The record may be deleted while
// it runs; the terminal write surfaces that as ErrNotFound and the result is
// discarded.
func (e *Engine) generate(report store.Report, creds *store.Credentials) {
	defer e.wg.Done()
	ctx := context.Background()
	log := logrus.WithFields(logrus.Fields{
		"report_id":   report.ID,
		"environment": report.Environment,
		"format":      report.Format,
	})

	snapshot, err := e.snapshot(ctx, report.Environment, creds)
	if err != nil {
		e.fail(ctx, report, log, err)
		return
	}

	renderer, err := e.renderFor(report.Format)
	if err != nil {
		e.fail(ctx, report, log, err)
		return
	}
	artifact, err := renderer.RenderStatus(render.StatusDocument{
		ReportID:    report.ID,
		Environment: report.Environment,
		GeneratedAt: time.Now(),
		Hosts:       snapshot,
	})
	if err != nil {
		e.fail(ctx, report, log, err)
		return
	}

	switch err := e.store.CompleteReport(ctx, report.ID, artifact, snapshot); {
	case errors.Is(err, store.ErrNotFound):
		log.Info("Report deleted during generation, discarding result")
		return
	case err != nil:
		log.WithError(err).Error("Failed to complete report")
		return
	}
	if e.metrics != nil {
		e.metrics.RecordReportJob("report", store.JobCompleted)
	}
	log.WithField("hosts", len(snapshot)).Info("Report generated")

	if deleted, err := e.Cleanup(ctx, report.Environment, 0); err != nil {
		log.WithError(err).Warn("Report rotation failed")
	} else if deleted > 0 {
		log.WithField("deleted", deleted).Info("Rotated old reports")
	}
}

// snapshot refreshes every host in the environment and returns the frozen
// host list with its freshest known status. The refresh is best effort: with
// no credentials, or when the sweep itself fails, the last stored status is
// used instead.
func (e *Engine) snapshot(ctx context.Context, environment string, creds *store.Credentials) ([]store.HostStatus, error) {
	hosts, err := e.store.GetHosts(ctx, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load hosts: %w", err)
	}

	if creds == nil {
		stored, err := e.store.GetCredentials(ctx, environment)
		switch {
		case errors.Is(err, store.ErrNotFound):
			logrus.WithField("environment", environment).Warn("No credentials configured, reporting last known status")
		case err != nil:
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		default:
			creds = stored
		}
	}
	if creds != nil {
		if _, err := e.agg.CheckAll(ctx, environment, hosts, *creds); err != nil {
			logrus.WithError(err).WithField("environment", environment).
				Warn("Status refresh failed, reporting last known status")
		}
	}

	status, err := e.store.GetStatus(ctx, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}

	snapshot := make([]store.HostStatus, 0, len(hosts))
	for _, host := range hosts {
		hs := store.HostStatus{Host: host}
		if result, ok := status[host.ID]; ok {
			r := result
			hs.Status = &r
		}
		snapshot = append(snapshot, hs)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Key() < snapshot[j].Key()
	})
	return snapshot, nil
}

func (e *Engine) fail(ctx context.Context, report store.Report, log *logrus.Entry, cause error) {
	log.WithError(cause).Error("Report generation failed")
	switch err := e.store.FailReport(ctx, report.ID, cause.Error()); {
	case errors.Is(err, store.ErrNotFound):
		log.Info("Report deleted during generation, discarding failure")
	case err != nil:
		log.WithError(err).Error("Failed to mark report as failed")
	default:
		if e.metrics != nil {
			e.metrics.RecordReportJob("report", store.JobFailed)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
