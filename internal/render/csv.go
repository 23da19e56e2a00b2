// internal/render/csv.go
package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"jbossmon/internal/store"
)

// CSVRenderer produces flat CSV documents for spreadsheet import.
type CSVRenderer struct{}

func (r *CSVRenderer) RenderStatus(doc StatusDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"Environment", doc.Environment},
		{"Report ID", doc.ReportID},
		{"Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Host", "Port", "Instance", "Status", "Last Check", "Datasources Up", "Datasources Total", "Deployments Up", "Deployments Total"},
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, host := range doc.Hosts {
		dsUp, dsTotal := countUp(datasourceStatuses(host.Status))
		depUp, depTotal := countUp(deploymentStatuses(host.Status))
		row := []string{
			host.Host.Host,
			strconv.Itoa(host.Port),
			host.Instance,
			instanceStatusText(host.Status),
			lastCheckText(host.Status),
			strconv.Itoa(dsUp),
			strconv.Itoa(dsTotal),
			strconv.Itoa(depUp),
			strconv.Itoa(depTotal),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render status CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *CSVRenderer) RenderComparison(doc ComparisonDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"Environment", doc.Environment},
		{"Base Report", doc.BaseID, doc.BaseCreatedAt.Format("2006-01-02 15:04:05")},
		{"Target Report", doc.TargetID, doc.TargetCreatedAt.Format("2006-01-02 15:04:05")},
		{"Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Change", "Host", "Field", "From", "To"},
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, host := range doc.Diff.AddedHosts {
		if err := w.Write([]string{"added", host, "", "", ""}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	for _, host := range doc.Diff.RemovedHosts {
		if err := w.Write([]string{"removed", host, "", "", ""}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	for _, change := range doc.Diff.StatusChanges {
		row := []string{"changed", change.Host, change.Field, change.From, change.To}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render comparison CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func countUp(statuses []string) (up, total int) {
	for _, s := range statuses {
		if s == store.StatusUp {
			up++
		}
	}
	return up, len(statuses)
}
