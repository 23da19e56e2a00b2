// internal/render/pdf.go
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer produces the tabular PDF documents served for download.
type PDFRenderer struct{}

func (r *PDFRenderer) RenderStatus(doc StatusDocument) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s JBoss Monitor Report", environmentTitle(doc.Environment)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Report ID: %s", doc.ReportID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated on: %s", doc.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{60, 18, 45, 22, 40, 30, 30}
	headers := []string{"Host", "Port", "Instance", "Status", "Last Check", "Datasources", "Deployments"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(90, 90, 90)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for _, host := range doc.Hosts {
		cells := []string{
			host.Host.Host,
			strconv.Itoa(host.Port),
			host.Instance,
			instanceStatusText(host.Status),
			lastCheckText(host.Status),
			upCount(datasourceStatuses(host.Status)),
			upCount(deploymentStatuses(host.Status)),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render status PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) RenderComparison(doc ComparisonDocument) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s JBoss Status Comparison", environmentTitle(doc.Environment)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Comparing reports from %s and %s",
		doc.BaseCreatedAt.Format("2006-01-02 15:04:05"),
		doc.TargetCreatedAt.Format("2006-01-02 15:04:05")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Summary table
	pdf.SetFont("Helvetica", "B", 10)
	summaryRows := [][2]string{
		{"Total Hosts", strconv.Itoa(doc.Summary.TotalHosts)},
		{"Added Hosts", strconv.Itoa(doc.Summary.AddedHosts)},
		{"Removed Hosts", strconv.Itoa(doc.Summary.RemovedHosts)},
		{"Hosts with Status Changes", strconv.Itoa(doc.Summary.StatusChanges)},
		{"Datasource Changes", strconv.Itoa(doc.Summary.DatasourceChanges)},
		{"Deployment Changes", strconv.Itoa(doc.Summary.DeploymentChanges)},
	}
	pdf.SetFillColor(220, 220, 220)
	for _, row := range summaryRows {
		pdf.CellFormat(80, 7, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(40, 7, row[1], "1", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
	}
	pdf.Ln(6)

	if len(doc.Diff.AddedHosts) > 0 {
		r.hostList(pdf, "Added Hosts", doc.Diff.AddedHosts)
	}
	if len(doc.Diff.RemovedHosts) > 0 {
		r.hostList(pdf, "Removed Hosts", doc.Diff.RemovedHosts)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Status Changes", "", 1, "L", false, 0, "")
	if len(doc.Diff.StatusChanges) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, "No status changes detected between the two reports.", "", 1, "L", false, 0, "")
	} else {
		widths := []float64{60, 60, 30, 30}
		headers := []string{"Host", "Field", "From", "To"}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(0, 0, 139)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, change := range doc.Diff.StatusChanges {
			pdf.CellFormat(widths[0], 7, change.Host, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 7, change.Field, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[2], 7, transitionText(change.From), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[3], 7, transitionText(change.To), "1", 1, "C", false, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Comparison generated on %s", doc.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render comparison PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) hostList(pdf *fpdf.Fpdf, title string, hosts []string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, h := range hosts {
		pdf.CellFormat(0, 6, h, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func transitionText(status string) string {
	if status == "" {
		return "N/A"
	}
	return strings.ToUpper(status)
}

func environmentTitle(environment string) string {
	title := strings.ReplaceAll(environment, "_", " ")
	if title == "" {
		return title
	}
	return strings.ToUpper(title[:1]) + title[1:]
}
