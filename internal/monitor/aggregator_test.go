// internal/monitor/aggregator_test.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jbossmon/internal/jboss"
	"jbossmon/internal/store"
)

// fakeExecutor answers checks from a canned table and tracks how many run at
// the same time.
type fakeExecutor struct {
	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	delay      time.Duration
	failHosts  map[string]error
	checkCount int32
}

func (f *fakeExecutor) Check(ctx context.Context, target jboss.Target, creds store.Credentials) (*store.CheckResult, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	atomic.AddInt32(&f.checkCount, 1)

	f.mu.Lock()
	if current > f.maxSeen {
		f.maxSeen = current
	}
	err := f.failHosts[target.Host]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return &store.CheckResult{
		InstanceStatus: store.StatusUp,
		LastCheck:      time.Now(),
		Datasources:    []store.Datasource{{Name: "ExampleDS", Status: store.StatusUp}},
		Deployments:    []store.Deployment{{Name: "app.war", Status: store.StatusUp}},
	}, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedHosts(t *testing.T, s store.Store, env string, n int) []store.Host {
	t.Helper()
	hosts := make([]store.Host, 0, n)
	for i := 0; i < n; i++ {
		host := &store.Host{
			Environment: env,
			Host:        fmt.Sprintf("app%02d", i),
			Port:        9990,
			Instance:    "node1",
			AddedAt:     time.Now(),
		}
		require.NoError(t, s.CreateHost(context.Background(), host))
		hosts = append(hosts, *host)
	}
	return hosts
}

func TestCheckAllPublishesEveryHost(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{}
	pool := NewPool(exec, nil, 4, time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 5*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 8)

	results, err := agg.CheckAll(context.Background(), store.EnvProduction, hosts, store.Credentials{})
	require.NoError(t, err)
	assert.Len(t, results, len(hosts))

	status, err := s.GetStatus(context.Background(), store.EnvProduction)
	require.NoError(t, err)
	require.Len(t, status, len(hosts))
	for _, host := range hosts {
		assert.Equal(t, store.StatusUp, status[host.ID].InstanceStatus)
	}
}

func TestCheckAllBoundedConcurrency(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{delay: 30 * time.Millisecond}
	pool := NewPool(exec, nil, 3, time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 10*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 12)

	_, err := agg.CheckAll(context.Background(), store.EnvProduction, hosts, store.Credentials{})
	require.NoError(t, err)

	assert.LessOrEqual(t, exec.maxSeen, int32(3), "pool must cap concurrent checks")
	assert.Equal(t, int32(12), exec.checkCount)
}

func TestCheckAllFailureIsolation(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{
		failHosts: map[string]error{
			"app01": &jboss.CheckError{Kind: jboss.KindConnectionRefused, Err: errors.New("connection refused")},
		},
	}
	pool := NewPool(exec, nil, 4, time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 5*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 3)

	before := time.Now()
	results, err := agg.CheckAll(context.Background(), store.EnvProduction, hosts, store.Credentials{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var failed store.Host
	for _, h := range hosts {
		if h.Host == "app01" {
			failed = h
		}
	}

	down := results[failed.ID]
	assert.Equal(t, store.StatusDown, down.InstanceStatus)
	assert.Empty(t, down.Datasources)
	assert.Empty(t, down.Deployments)
	assert.False(t, down.LastCheck.Before(before), "last_check advances even on failure")

	for _, h := range hosts {
		if h.ID == failed.ID {
			continue
		}
		assert.Equal(t, store.StatusUp, results[h.ID].InstanceStatus)
	}
}

func TestCheckAllBatchDeadline(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{delay: 5 * time.Second}
	pool := NewPool(exec, nil, 2, 10*time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 100*time.Millisecond)
	hosts := seedHosts(t, s, store.EnvProduction, 4)

	results, err := agg.CheckAll(context.Background(), store.EnvProduction, hosts, store.Credentials{})
	require.NoError(t, err)
	require.Len(t, results, 4, "every host gets a result even past the deadline")
	for _, host := range hosts {
		assert.Equal(t, store.StatusDown, results[host.ID].InstanceStatus)
	}
}

func TestCheckOne(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{}
	pool := NewPool(exec, nil, 2, time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 5*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 1)

	result, err := agg.CheckOne(context.Background(), store.EnvProduction, hosts[0].ID, store.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusUp, result.InstanceStatus)

	stored, err := s.GetHostStatus(context.Background(), store.EnvProduction, hosts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusUp, stored.InstanceStatus)

	_, err = agg.CheckOne(context.Background(), store.EnvProduction, "missing", store.Credentials{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifyFiresAfterPublish(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{}
	pool := NewPool(exec, nil, 2, time.Second)
	defer pool.Stop()

	agg := NewAggregator(s, pool, 5*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 2)

	var notified []string
	agg.SetNotify(func(environment string) {
		notified = append(notified, environment)
	})

	_, err := agg.CheckAll(context.Background(), store.EnvProduction, hosts, store.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []string{store.EnvProduction}, notified)
}

func TestCheckOneAfterPoolStopped(t *testing.T) {
	s := newTestStore(t)
	exec := &fakeExecutor{}
	pool := NewPool(exec, nil, 2, time.Second)
	agg := NewAggregator(s, pool, 5*time.Second)
	hosts := seedHosts(t, s, store.EnvProduction, 1)

	pool.Stop()

	_, err := agg.CheckOne(context.Background(), store.EnvProduction, hosts[0].ID, store.Credentials{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.NotContains(t, err.Error(), "%!w")
}
