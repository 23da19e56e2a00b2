// internal/monitor/aggregator.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"jbossmon/internal/store"
)

// Aggregator fans host checks out through the shared pool and publishes the
// merged batch into the store in a single transaction.
type Aggregator struct {
	store        store.Store
	pool         *Pool
	batchTimeout time.Duration
	notify       func(environment string)
}

func NewAggregator(s store.Store, pool *Pool, batchTimeout time.Duration) *Aggregator {
	return &Aggregator{
		store:        s,
		pool:         pool,
		batchTimeout: batchTimeout,
	}
}

// SetNotify installs a hook invoked after each status publish, used to push
// update notifications to dashboard clients.
func (a *Aggregator) SetNotify(fn func(environment string)) {
	a.notify = fn
}

// CheckAll checks every given host and returns a result for each one,
// regardless of individual failures. The whole batch is bounded by the batch
// timeout; hosts still outstanding when it elapses are recorded as down.
func (a *Aggregator) CheckAll(ctx context.Context, environment string, hosts []store.Host, creds store.Credentials) (map[string]store.CheckResult, error) {
	if len(hosts) == 0 {
		return map[string]store.CheckResult{}, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, a.batchTimeout)
	defer cancel()

	results := make(chan hostResult, len(hosts))
	submitted := 0
	for _, host := range hosts {
		if !a.pool.submit(checkJob{
			ctx:         batchCtx,
			environment: environment,
			host:        host,
			creds:       creds,
			results:     results,
		}) {
			break
		}
		submitted++
	}

	collected := make(map[string]store.CheckResult, len(hosts))
collect:
	for len(collected) < submitted {
		select {
		case r := <-results:
			collected[r.hostID] = r.result
		case <-batchCtx.Done():
			// Take what has already arrived, then give up waiting.
			drainResults(results, collected)
			logrus.WithFields(logrus.Fields{
				"environment": environment,
				"collected":   len(collected),
				"total":       len(hosts),
			}).Warn("Check batch deadline elapsed")
			break collect
		}
	}

	// Hosts never submitted or never resolved are reported down.
	now := time.Now()
	for _, host := range hosts {
		if _, ok := collected[host.ID]; !ok {
			collected[host.ID] = downResult(now)
		}
	}

	if err := a.store.UpdateStatusBatch(ctx, environment, collected); err != nil {
		return nil, fmt.Errorf("failed to publish status batch: %w", err)
	}
	if a.notify != nil {
		a.notify(environment)
	}

	return collected, nil
}

// drainResults empties the already-delivered results without blocking.
func drainResults(results <-chan hostResult, collected map[string]store.CheckResult) {
	for {
		select {
		case r := <-results:
			collected[r.hostID] = r.result
		default:
			return
		}
	}
}

// CheckOne refreshes a single host on demand.
func (a *Aggregator) CheckOne(ctx context.Context, environment, hostID string, creds store.Credentials) (*store.CheckResult, error) {
	host, err := a.store.GetHost(ctx, environment, hostID)
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, a.batchTimeout)
	defer cancel()

	results := make(chan hostResult, 1)
	if !a.pool.submit(checkJob{
		ctx:         checkCtx,
		environment: environment,
		host:        *host,
		creds:       creds,
		results:     results,
	}) {
		if err := checkCtx.Err(); err != nil {
			return nil, fmt.Errorf("check of %s aborted: %w", host.Key(), err)
		}
		return nil, fmt.Errorf("check of %s aborted: %w", host.Key(), ErrPoolStopped)
	}

	var result store.CheckResult
	select {
	case r := <-results:
		result = r.result
	case <-checkCtx.Done():
		result = downResult(time.Now())
	}

	if err := a.store.UpdateStatus(ctx, environment, hostID, result); err != nil {
		return nil, fmt.Errorf("failed to store check result: %w", err)
	}
	if a.notify != nil {
		a.notify(environment)
	}

	return &result, nil
}
