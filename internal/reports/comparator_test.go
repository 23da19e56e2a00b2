// internal/reports/comparator_test.go
package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jbossmon/internal/store"
)

func hostStatus(host string, port int, instance, status string) store.HostStatus {
	return store.HostStatus{
		Host: store.Host{Host: host, Port: port, Instance: instance},
		Status: &store.CheckResult{
			InstanceStatus: status,
			LastCheck:      time.Now(),
		},
	}
}

func TestBuildDiffMembership(t *testing.T) {
	base := []store.HostStatus{
		hostStatus("app01", 9990, "node1", store.StatusUp),
		hostStatus("app02", 9990, "node1", store.StatusUp),
	}
	target := []store.HostStatus{
		hostStatus("app02", 9990, "node1", store.StatusUp),
		hostStatus("app03", 9990, "node1", store.StatusUp),
	}

	diff, summary := BuildDiff(base, target)

	assert.Equal(t, []string{"app03:9990:node1"}, diff.AddedHosts)
	assert.Equal(t, []string{"app01:9990:node1"}, diff.RemovedHosts)
	// Hosts on only one side contribute no status changes.
	assert.Empty(t, diff.StatusChanges)

	assert.Equal(t, 2, summary.TotalHosts)
	assert.Equal(t, 1, summary.AddedHosts)
	assert.Equal(t, 1, summary.RemovedHosts)
	assert.Equal(t, 0, summary.StatusChanges)
}

func TestBuildDiffStatusChanges(t *testing.T) {
	base := []store.HostStatus{
		{
			Host: store.Host{Host: "app01", Port: 9990, Instance: "node1"},
			Status: &store.CheckResult{
				InstanceStatus: store.StatusUp,
				Datasources: []store.Datasource{
					{Name: "OrdersDS", Status: store.StatusUp},
					{Name: "LegacyDS", Status: store.StatusUp},
				},
				Deployments: []store.Deployment{
					{Name: "shop.war", Status: store.StatusUp},
				},
			},
		},
	}
	target := []store.HostStatus{
		{
			Host: store.Host{Host: "app01", Port: 9990, Instance: "node1"},
			Status: &store.CheckResult{
				InstanceStatus: store.StatusDown,
				Datasources: []store.Datasource{
					{Name: "OrdersDS", Status: store.StatusDown},
					{Name: "ReportsDS", Status: store.StatusUp},
				},
				Deployments: []store.Deployment{
					{Name: "shop.war", Status: store.StatusUp},
				},
			},
		},
	}

	diff, summary := BuildDiff(base, target)

	byField := map[string]store.StatusChange{}
	for _, change := range diff.StatusChanges {
		byField[change.Field] = change
	}

	instance := byField["instance"]
	assert.Equal(t, store.StatusUp, instance.From)
	assert.Equal(t, store.StatusDown, instance.To)

	orders := byField["datasource/OrdersDS"]
	assert.Equal(t, store.StatusUp, orders.From)
	assert.Equal(t, store.StatusDown, orders.To)

	// Appeared only in the target report.
	reports := byField["datasource/ReportsDS"]
	assert.Equal(t, "", reports.From)
	assert.Equal(t, store.StatusUp, reports.To)

	// Disappeared from the target report.
	legacy := byField["datasource/LegacyDS"]
	assert.Equal(t, store.StatusUp, legacy.From)
	assert.Equal(t, "", legacy.To)

	_, unchanged := byField["deployment/shop.war"]
	assert.False(t, unchanged, "unchanged deployment must not be reported")

	assert.Equal(t, 1, summary.StatusChanges)
	assert.Equal(t, 3, summary.DatasourceChanges)
	assert.Equal(t, 0, summary.DeploymentChanges)
}

func TestBuildDiffNeverCheckedHost(t *testing.T) {
	base := []store.HostStatus{
		{Host: store.Host{Host: "app01", Port: 9990, Instance: "node1"}},
	}
	target := []store.HostStatus{
		hostStatus("app01", 9990, "node1", store.StatusUp),
	}

	diff, _ := BuildDiff(base, target)

	require.Len(t, diff.StatusChanges, 1)
	assert.Equal(t, store.StatusUnknown, diff.StatusChanges[0].From)
	assert.Equal(t, store.StatusUp, diff.StatusChanges[0].To)
}

func completedReport(t *testing.T, s store.Store, env string, snapshot []store.HostStatus) *store.Report {
	t.Helper()

	report := &store.Report{Environment: env, Format: "pdf"}
	require.NoError(t, s.CreateReport(context.Background(), report))
	require.NoError(t, s.CompleteReport(context.Background(), report.ID, []byte("pdf"), snapshot))
	return report
}

func TestCompareCompletes(t *testing.T) {
	s := newTestStore(t)
	engine := newTestEngine(t, s, 20)
	ctx := context.Background()

	base := completedReport(t, s, store.EnvProduction, []store.HostStatus{
		hostStatus("app01", 9990, "node1", store.StatusUp),
	})
	target := completedReport(t, s, store.EnvProduction, []store.HostStatus{
		hostStatus("app01", 9990, "node1", store.StatusDown),
		hostStatus("app02", 9990, "node1", store.StatusUp),
	})

	cmp, err := engine.Compare(ctx, base.ID, target.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, store.JobGenerating, cmp.Status)
	assert.Equal(t, store.EnvProduction, cmp.Environment)

	engine.Wait()

	stored, err := s.GetComparison(ctx, cmp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobCompleted, stored.Status)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, 1, stored.Summary.AddedHosts)
	assert.Equal(t, 1, stored.Summary.StatusChanges)

	artifact, err := s.GetComparisonArtifact(ctx, cmp.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, artifact)
}

func TestCompareValidation(t *testing.T) {
	s := newTestStore(t)
	engine := newTestEngine(t, s, 20)
	ctx := context.Background()

	completed := completedReport(t, s, store.EnvProduction, nil)
	otherEnv := completedReport(t, s, store.EnvNonProduction, nil)

	generating := &store.Report{Environment: store.EnvProduction, Format: "pdf"}
	require.NoError(t, s.CreateReport(ctx, generating))

	_, err := engine.Compare(ctx, completed.ID, completed.ID, "tester")
	assert.ErrorIs(t, err, ErrSameReport)

	_, err = engine.Compare(ctx, completed.ID, generating.ID, "tester")
	assert.ErrorIs(t, err, ErrReportNotCompleted)

	_, err = engine.Compare(ctx, completed.ID, otherEnv.ID, "tester")
	assert.ErrorIs(t, err, ErrEnvironmentMismatch)

	_, err = engine.Compare(ctx, completed.ID, "missing", "tester")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Validation failures leave no comparison record behind.
	all, err := s.GetComparisons(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
