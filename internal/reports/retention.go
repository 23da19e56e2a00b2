// internal/reports/retention.go
package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"jbossmon/internal/store"
)

// Cleanup rotates terminal report and comparison jobs, keeping the newest
// maxReports per environment. A maxReports of zero or less falls back to the
// configured per-environment cap. Jobs still generating are never touched.
func (e *Engine) Cleanup(ctx context.Context, environment string, maxReports int) (int, error) {
	if maxReports <= 0 {
		maxReports = e.maxPerEnv
	}
	environments := store.Environments()
	if environment != "" {
		if !store.ValidEnvironment(environment) {
			return 0, fmt.Errorf("%w: %s", ErrUnknownEnvironment, environment)
		}
		environments = []string{environment}
	}

	reports, err := e.store.GetReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}
	comparisons, err := e.store.GetComparisons(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list comparisons: %w", err)
	}

	deleted := 0
	for _, env := range environments {
		for _, id := range rotatable(reportJobs(reports, env), maxReports) {
			if err := e.store.DeleteReport(ctx, id); err != nil {
				return deleted, fmt.Errorf("failed to delete report %s: %w", id, err)
			}
			logrus.WithFields(logrus.Fields{
				"report_id":   id,
				"environment": env,
			}).Debug("Rotated report")
			deleted++
		}
		for _, id := range rotatable(comparisonJobs(comparisons, env), maxReports) {
			if err := e.store.DeleteComparison(ctx, id); err != nil {
				return deleted, fmt.Errorf("failed to delete comparison %s: %w", id, err)
			}
			logrus.WithFields(logrus.Fields{
				"comparison_id": id,
				"environment":   env,
			}).Debug("Rotated comparison")
			deleted++
		}
	}
	return deleted, nil
}

// job is the minimal view retention needs of a report or comparison record.
type job struct {
	id      string
	status  store.JobStatus
	created int64
}

func reportJobs(reports []store.Report, environment string) []job {
	var jobs []job
	for _, r := range reports {
		if r.Environment == environment {
			jobs = append(jobs, job{id: r.ID, status: r.Status, created: r.CreatedAt.UnixNano()})
		}
	}
	return jobs
}

func comparisonJobs(comparisons []store.Comparison, environment string) []job {
	var jobs []job
	for _, c := range comparisons {
		if c.Environment == environment {
			jobs = append(jobs, job{id: c.ID, status: c.Status, created: c.CreatedAt.UnixNano()})
		}
	}
	return jobs
}

// rotatable returns the ids of terminal jobs beyond the newest keep.
func rotatable(jobs []job, keep int) []string {
	terminal := jobs[:0:0]
	for _, j := range jobs {
		if j.status == store.JobCompleted || j.status == store.JobFailed {
			terminal = append(terminal, j)
		}
	}
	if len(terminal) <= keep {
		return nil
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].created > terminal[j].created
	})

	ids := make([]string, 0, len(terminal)-keep)
	for _, j := range terminal[keep:] {
		ids = append(ids, j.id)
	}
	return ids
}
