// internal/monitor/scheduler.go
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"jbossmon/internal/metrics"
	"jbossmon/internal/store"
)

// Scheduler drives one periodic check-all loop per environment using that
// environment's stored system credentials. Runs are fire-and-forget: a tick
// that fires while the previous run for the same environment is still in
// flight is dropped, never queued.
type Scheduler struct {
	agg      *Aggregator
	store    store.Store
	metrics  *metrics.Collector
	interval time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	running  bool
}

func NewScheduler(agg *Aggregator, s store.Store, collector *metrics.Collector, interval time.Duration) *Scheduler {
	return &Scheduler{
		agg:      agg,
		store:    s,
		metrics:  collector,
		interval: interval,
		inFlight: make(map[string]bool),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	logrus.WithField("interval", s.interval).Info("Starting monitoring scheduler")

	for _, env := range store.Environments() {
		go s.loop(ctx, env)
	}
}

func (s *Scheduler) loop(ctx context.Context, environment string) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx, environment)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, environment)
		}
	}
}

// runOnce launches one check-all run unless one is already in flight for
// this environment.
func (s *Scheduler) runOnce(ctx context.Context, environment string) {
	s.mu.Lock()
	if s.inFlight[environment] {
		s.mu.Unlock()
		logrus.WithField("environment", environment).Debug("Previous run still in flight, dropping tick")
		if s.metrics != nil {
			s.metrics.RecordSchedulerSkip(environment, "in_flight")
		}
		return
	}
	s.inFlight[environment] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.inFlight[environment] = false
			s.mu.Unlock()
		}()
		s.run(ctx, environment)
	}()
}

func (s *Scheduler) run(ctx context.Context, environment string) {
	creds, err := s.store.GetCredentials(ctx, environment)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logrus.WithField("environment", environment).Warn("No system credentials on file, skipping scheduled run")
			if s.metrics != nil {
				s.metrics.RecordSchedulerSkip(environment, "no_credentials")
			}
			return
		}
		logrus.WithError(err).WithField("environment", environment).Error("Failed to load credentials")
		return
	}

	hosts, err := s.store.GetHosts(ctx, environment)
	if err != nil {
		logrus.WithError(err).WithField("environment", environment).Error("Failed to load hosts")
		return
	}
	if len(hosts) == 0 {
		return
	}

	start := time.Now()
	results, err := s.agg.CheckAll(ctx, environment, hosts, *creds)
	if err != nil {
		logrus.WithError(err).WithField("environment", environment).Error("Scheduled check-all failed")
		return
	}

	up := 0
	for _, r := range results {
		if r.InstanceStatus == store.StatusUp {
			up++
		}
	}
	logrus.WithFields(logrus.Fields{
		"environment": environment,
		"hosts":       len(results),
		"up":          up,
		"duration":    time.Since(start),
	}).Info("Scheduled check-all completed")
}
