// internal/render/render_test.go
package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jbossmon/internal/store"
)

func sampleStatusDocument() StatusDocument {
	checked := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	return StatusDocument{
		ReportID:    "r-1",
		Environment: store.EnvProduction,
		GeneratedAt: checked,
		Hosts: []store.HostStatus{
			{
				Host: store.Host{Host: "app01", Port: 9990, Instance: "node1"},
				Status: &store.CheckResult{
					InstanceStatus: store.StatusUp,
					LastCheck:      checked,
					Datasources: []store.Datasource{
						{Name: "OrdersDS", Status: store.StatusUp},
						{Name: "LegacyDS", Status: store.StatusDown},
					},
					Deployments: []store.Deployment{
						{Name: "shop.war", Status: store.StatusUp},
					},
				},
			},
			{
				// Never checked.
				Host: store.Host{Host: "app02", Port: 9990, Instance: "node2"},
			},
		},
	}
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("pdf")
	require.NoError(t, err)
	assert.IsType(t, &PDFRenderer{}, r)

	r, err = ForFormat("csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVRenderer{}, r)

	_, err = ForFormat("docx")
	assert.Error(t, err)
}

func TestCSVStatus(t *testing.T) {
	out, err := (&CSVRenderer{}).RenderStatus(sampleStatusDocument())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.GreaterOrEqual(t, len(lines), 7)

	assert.Contains(t, lines[4], "Host,Port,Instance,Status")
	assert.Equal(t, "app01,9990,node1,UP,2026-08-30 14:30:00,1,2,1,1", lines[5])
	assert.Equal(t, "app02,9990,node2,UNKNOWN,Never,0,0,0,0", lines[6])
}

func TestCSVComparison(t *testing.T) {
	out, err := (&CSVRenderer{}).RenderComparison(ComparisonDocument{
		ComparisonID: "c-1",
		Environment:  store.EnvProduction,
		BaseID:       "r-1",
		TargetID:     "r-2",
		GeneratedAt:  time.Now(),
		Diff: store.ComparisonDiff{
			AddedHosts:   []string{"app03:9990:node1"},
			RemovedHosts: []string{"app01:9990:node1"},
			StatusChanges: []store.StatusChange{
				{Host: "app02:9990:node1", Field: "instance", From: store.StatusUp, To: store.StatusDown},
			},
		},
		Summary: store.ComparisonSummary{TotalHosts: 2, AddedHosts: 1, RemovedHosts: 1, StatusChanges: 1},
	})
	require.NoError(t, err)

	content := string(out)
	assert.Contains(t, content, "added,app03:9990:node1")
	assert.Contains(t, content, "removed,app01:9990:node1")
	assert.Contains(t, content, "changed,app02:9990:node1,instance,up,down")
}

func TestPDFStatus(t *testing.T) {
	out, err := (&PDFRenderer{}).RenderStatus(sampleStatusDocument())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"), "output must be a PDF document")
}

func TestPDFComparison(t *testing.T) {
	out, err := (&PDFRenderer{}).RenderComparison(ComparisonDocument{
		ComparisonID: "c-1",
		Environment:  store.EnvNonProduction,
		GeneratedAt:  time.Now(),
		Diff: store.ComparisonDiff{
			AddedHosts:    []string{"app03:9990:node1"},
			StatusChanges: []store.StatusChange{{Host: "app02:9990:node1", Field: "instance", From: "", To: store.StatusUp}},
		},
		Summary: store.ComparisonSummary{TotalHosts: 2, AddedHosts: 1},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestUpCount(t *testing.T) {
	assert.Equal(t, "0/0", upCount(nil))
	assert.Equal(t, "2/3", upCount([]string{store.StatusUp, store.StatusDown, store.StatusUp}))
}
