// internal/reports/comparator.go
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/render"
	"jbossmon/internal/store"
)

var (
	ErrSameReport          = errors.New("cannot compare a report with itself")
	ErrReportNotCompleted  = errors.New("report is not completed")
	ErrEnvironmentMismatch = errors.New("reports belong to different environments")
)

// Compare creates a comparison job between two completed reports and returns
// it immediately in the generating state. Both reports are validated up
// front; validation failures leave no record behind.
func (e *Engine) Compare(ctx context.Context, baseID, targetID, createdBy string) (*store.Comparison, error) {
	if baseID == targetID {
		return nil, ErrSameReport
	}

	base, err := e.completedReport(ctx, baseID)
	if err != nil {
		return nil, err
	}
	target, err := e.completedReport(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if base.Environment != target.Environment {
		return nil, ErrEnvironmentMismatch
	}

	now := time.Now()
	cmp := &store.Comparison{
		ID:             uuid.New().String(),
		Environment:    base.Environment,
		BaseReportID:   base.ID,
		TargetReportID: target.ID,
		Status:         store.JobGenerating,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}
	cmp.Filename = fmt.Sprintf("jboss_comparison_%s_%s_%s.pdf", cmp.Environment, now.Format("20060102"), shortID(cmp.ID))

	if err := e.store.CreateComparison(ctx, cmp); err != nil {
		return nil, fmt.Errorf("failed to create comparison record: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordReportJob("comparison", store.JobGenerating)
	}

	e.wg.Add(1)
	go e.compare(*cmp, *base, *target)

	return cmp, nil
}

func (e *Engine) completedReport(ctx context.Context, id string) (*store.Report, error) {
	report, err := e.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != store.JobCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrReportNotCompleted, id, report.Status)
	}
	return report, nil
}

func (e *Engine) compare(cmp store.Comparison, base, target store.Report) {
	defer e.wg.Done()
	ctx := context.Background()
	log := logrus.WithFields(logrus.Fields{
		"comparison_id": cmp.ID,
		"base":          base.ID,
		"target":        target.ID,
	})

	baseSnap, err := e.store.GetReportSnapshot(ctx, base.ID)
	if err != nil {
		e.failComparison(ctx, cmp, log, fmt.Errorf("failed to load base snapshot: %w", err))
		return
	}
	targetSnap, err := e.store.GetReportSnapshot(ctx, target.ID)
	if err != nil {
		e.failComparison(ctx, cmp, log, fmt.Errorf("failed to load target snapshot: %w", err))
		return
	}

	diff, summary := BuildDiff(baseSnap, targetSnap)

	renderer, err := e.renderFor("pdf")
	if err != nil {
		e.failComparison(ctx, cmp, log, err)
		return
	}
	artifact, err := renderer.RenderComparison(render.ComparisonDocument{
		ComparisonID:    cmp.ID,
		Environment:     cmp.Environment,
		BaseID:          base.ID,
		TargetID:        target.ID,
		BaseCreatedAt:   base.CreatedAt,
		TargetCreatedAt: target.CreatedAt,
		GeneratedAt:     time.Now(),
		Diff:            *diff,
		Summary:         *summary,
	})
	if err != nil {
		e.failComparison(ctx, cmp, log, err)
		return
	}

	switch err := e.store.CompleteComparison(ctx, cmp.ID, artifact, diff, summary); {
	case errors.Is(err, store.ErrNotFound):
		log.Info("Comparison deleted during generation, discarding result")
		return
	case err != nil:
		log.WithError(err).Error("Failed to complete comparison")
		return
	}
	if e.metrics != nil {
		e.metrics.RecordReportJob("comparison", store.JobCompleted)
	}
	log.WithFields(logrus.Fields{
		"added":   summary.AddedHosts,
		"removed": summary.RemovedHosts,
		"changes": summary.StatusChanges,
	}).Info("Comparison generated")
}

func (e *Engine) failComparison(ctx context.Context, cmp store.Comparison, log *logrus.Entry, cause error) {
	log.WithError(cause).Error("Comparison generation failed")
	switch err := e.store.FailComparison(ctx, cmp.ID, cause.Error()); {
	case errors.Is(err, store.ErrNotFound):
		log.Info("Comparison deleted during generation, discarding failure")
	case err != nil:
		log.WithError(err).Error("Failed to mark comparison as failed")
	default:
		if e.metrics != nil {
			e.metrics.RecordReportJob("comparison", store.JobFailed)
		}
	}
}

// BuildDiff computes host membership and status changes between two report
// snapshots. Hosts are matched by host:port:instance; a host present on only
// one side appears in added or removed and contributes no status changes.
func BuildDiff(base, target []store.HostStatus) (*store.ComparisonDiff, *store.ComparisonSummary) {
	baseByKey := make(map[string]store.HostStatus, len(base))
	for _, hs := range base {
		baseByKey[hs.Key()] = hs
	}
	targetByKey := make(map[string]store.HostStatus, len(target))
	for _, hs := range target {
		targetByKey[hs.Key()] = hs
	}

	diff := &store.ComparisonDiff{
		AddedHosts:    []string{},
		RemovedHosts:  []string{},
		StatusChanges: []store.StatusChange{},
	}
	summary := &store.ComparisonSummary{TotalHosts: len(target)}

	for key := range targetByKey {
		if _, ok := baseByKey[key]; !ok {
			diff.AddedHosts = append(diff.AddedHosts, key)
		}
	}
	for key := range baseByKey {
		if _, ok := targetByKey[key]; !ok {
			diff.RemovedHosts = append(diff.RemovedHosts, key)
		}
	}
	sort.Strings(diff.AddedHosts)
	sort.Strings(diff.RemovedHosts)
	summary.AddedHosts = len(diff.AddedHosts)
	summary.RemovedHosts = len(diff.RemovedHosts)

	hostsWithInstanceChange := map[string]bool{}
	for key, after := range targetByKey {
		before, ok := baseByKey[key]
		if !ok {
			continue
		}

		if from, to := instanceStatus(before.Status), instanceStatus(after.Status); from != to {
			diff.StatusChanges = append(diff.StatusChanges, store.StatusChange{
				Host: key, Field: "instance", From: from, To: to,
			})
			hostsWithInstanceChange[key] = true
		}

		dsChanges := resourceChanges(key, "datasource", datasourceMap(before.Status), datasourceMap(after.Status))
		summary.DatasourceChanges += len(dsChanges)
		diff.StatusChanges = append(diff.StatusChanges, dsChanges...)

		depChanges := resourceChanges(key, "deployment", deploymentMap(before.Status), deploymentMap(after.Status))
		summary.DeploymentChanges += len(depChanges)
		diff.StatusChanges = append(diff.StatusChanges, depChanges...)
	}
	summary.StatusChanges = len(hostsWithInstanceChange)

	sort.Slice(diff.StatusChanges, func(i, j int) bool {
		a, b := diff.StatusChanges[i], diff.StatusChanges[j]
		if a.Host != b.Host {
			return a.Host < b.Host
		}
		return a.Field < b.Field
	})

	return diff, summary
}

func instanceStatus(result *store.CheckResult) string {
	if result == nil {
		return store.StatusUnknown
	}
	return result.InstanceStatus
}

func datasourceMap(result *store.CheckResult) map[string]string {
	if result == nil {
		return nil
	}
	m := make(map[string]string, len(result.Datasources))
	for _, ds := range result.Datasources {
		m[ds.Name] = ds.Status
	}
	return m
}

func deploymentMap(result *store.CheckResult) map[string]string {
	if result == nil {
		return nil
	}
	m := make(map[string]string, len(result.Deployments))
	for _, dep := range result.Deployments {
		m[dep.Name] = dep.Status
	}
	return m
}

// resourceChanges diffs named sub-resources of one host. A resource present
// on only one side is reported with an empty counterpart status.
func resourceChanges(hostKey, kind string, before, after map[string]string) []store.StatusChange {
	var changes []store.StatusChange
	for name, to := range after {
		from, ok := before[name]
		if !ok || from != to {
			changes = append(changes, store.StatusChange{
				Host: hostKey, Field: kind + "/" + name, From: from, To: to,
			})
		}
	}
	for name, from := range before {
		if _, ok := after[name]; !ok {
			changes = append(changes, store.StatusChange{
				Host: hostKey, Field: kind + "/" + name, From: from, To: "",
			})
		}
	}
	return changes
}
