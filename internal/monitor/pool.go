// internal/monitor/pool.go - shared bounded worker pool for instance checks
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"jbossmon/internal/jboss"
	"jbossmon/internal/metrics"
	"jbossmon/internal/store"
)

// ErrPoolStopped is returned for checks submitted after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Executor issues one management check against one instance.
type Executor interface {
	Check(ctx context.Context, target jboss.Target, creds store.Credentials) (*store.CheckResult, error)
}

type checkJob struct {
	ctx         context.Context
	environment string
	host        store.Host
	creds       store.Credentials
	results     chan<- hostResult
}

type hostResult struct {
	hostID string
	result store.CheckResult
}

// Pool is the single system-wide worker pool. Its size caps the number of
// concurrent outbound management connections across all callers: scheduled
// runs, on-demand checks and report generation all share the same workers.
type Pool struct {
	executor Executor
	metrics  *metrics.Collector
	timeout  time.Duration
	jobs     chan checkJob
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewPool(executor Executor, collector *metrics.Collector, size int, checkTimeout time.Duration) *Pool {
	p := &Pool{
		executor: executor,
		metrics:  collector,
		timeout:  checkTimeout,
		jobs:     make(chan checkJob),
		quit:     make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logrus.WithField("workers", size).Info("Started check worker pool")

	return p
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

// submit queues one job, giving up when the batch context expires or the
// pool is stopped.
func (p *Pool) submit(job checkJob) bool {
	select {
	case p.jobs <- job:
		return true
	case <-job.ctx.Done():
		return false
	case <-p.quit:
		return false
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			p.run(job)
		}
	}
}

func (p *Pool) run(job checkJob) {
	if p.metrics != nil {
		p.metrics.CheckStarted()
		defer p.metrics.CheckFinished()
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(job.ctx, p.timeout)
	res, err := p.executor.Check(ctx, jboss.Target{
		Host:     job.host.Host,
		Port:     job.host.Port,
		Instance: job.host.Instance,
	}, job.creds)
	cancel()

	var result store.CheckResult
	if err != nil {
		kind := jboss.KindOf(err)
		logrus.WithError(err).WithFields(logrus.Fields{
			"environment": job.environment,
			"host":        job.host.Host,
			"instance":    job.host.Instance,
			"kind":        string(kind),
		}).Warn("Instance check failed")

		if p.metrics != nil {
			p.metrics.RecordCheckFailure(job.environment, string(kind))
		}
		result = downResult(time.Now())
	} else {
		result = *res
	}

	if p.metrics != nil {
		p.metrics.RecordCheck(job.environment, job.host.Host, job.host.Instance, result.InstanceStatus, time.Since(start))
	}

	// results is buffered to the batch size, so this never blocks a worker.
	job.results <- hostResult{hostID: job.host.ID, result: result}
}

// downResult is the status recorded for an unreachable instance: the
// last-known datasource and deployment lists are not trusted and come back
// empty, but last_check still advances.
func downResult(at time.Time) store.CheckResult {
	return store.CheckResult{
		InstanceStatus: store.StatusDown,
		LastCheck:      at,
		Datasources:    []store.Datasource{},
		Deployments:    []store.Deployment{},
	}
}
