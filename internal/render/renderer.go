// internal/render/renderer.go
package render

import (
	"fmt"
	"time"

	"jbossmon/internal/store"
)

// StatusDocument is the input for a point-in-time status report.
type StatusDocument struct {
	ReportID    string
	Environment string
	GeneratedAt time.Time
	Hosts       []store.HostStatus
}

// ComparisonDocument is the input for a report-to-report comparison.
type ComparisonDocument struct {
	ComparisonID    string
	Environment     string
	BaseID          string
	TargetID        string
	BaseCreatedAt   time.Time
	TargetCreatedAt time.Time
	GeneratedAt     time.Time
	Diff            store.ComparisonDiff
	Summary         store.ComparisonSummary
}

// Renderer turns a document into artifact bytes.
type Renderer interface {
	RenderStatus(doc StatusDocument) ([]byte, error)
	RenderComparison(doc ComparisonDocument) ([]byte, error)
}

// ForFormat returns the renderer for a report format.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "pdf":
		return &PDFRenderer{}, nil
	case "csv":
		return &CSVRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

func statusText(status string) string {
	if status == "" {
		return "UNKNOWN"
	}
	switch status {
	case store.StatusUp:
		return "UP"
	case store.StatusDown:
		return "DOWN"
	case store.StatusPending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// upCount renders the "up/total" summary cell for a resource list.
func upCount(statuses []string) string {
	up := 0
	for _, s := range statuses {
		if s == store.StatusUp {
			up++
		}
	}
	return fmt.Sprintf("%d/%d", up, len(statuses))
}

func datasourceStatuses(result *store.CheckResult) []string {
	if result == nil {
		return nil
	}
	statuses := make([]string, 0, len(result.Datasources))
	for _, ds := range result.Datasources {
		statuses = append(statuses, ds.Status)
	}
	return statuses
}

func deploymentStatuses(result *store.CheckResult) []string {
	if result == nil {
		return nil
	}
	statuses := make([]string, 0, len(result.Deployments))
	for _, dep := range result.Deployments {
		statuses = append(statuses, dep.Status)
	}
	return statuses
}

func lastCheckText(result *store.CheckResult) string {
	if result == nil || result.LastCheck.IsZero() {
		return "Never"
	}
	return result.LastCheck.Format("2006-01-02 15:04:05")
}

func instanceStatusText(result *store.CheckResult) string {
	if result == nil {
		return "UNKNOWN"
	}
	return statusText(result.InstanceStatus)
}
