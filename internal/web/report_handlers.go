// internal/web/report_handlers.go
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/reports"
	"jbossmon/internal/store"
)

type GenerateRequest struct {
	Format    string `json:"format"`
	CreatedBy string `json:"created_by"`
	// Optional per-request credentials for the status refresh; when absent
	// the environment's stored system credentials are used.
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/reports/generate/:environment - returns 202 with the job in the
// generating state; clients poll GET /api/reports/:id for completion.
func (s *Server) generateReport(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var creds *store.Credentials
	if req.Username != "" {
		creds = &store.Credentials{Username: req.Username, Password: req.Password}
	}

	report, err := s.engine.Generate(c.Request.Context(), env, req.Format, req.CreatedBy, creds)
	if err != nil {
		if errors.Is(err, reports.ErrUnknownFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("Failed to start report generation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start report generation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": report})
}

// GET /api/reports
func (s *Server) getReports(c *gin.Context) {
	all, err := s.store.GetReports(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reports"})
		return
	}

	if env := c.Query("environment"); env != "" {
		filtered := make([]store.Report, 0, len(all))
		for _, r := range all {
			if r.Environment == env {
				filtered = append(filtered, r)
			}
		}
		all = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  all,
		"count": len(all),
	})
}

// GET /api/reports/:id
func (s *Server) getReport(c *gin.Context) {
	report, err := s.store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// GET /api/reports/:id/download
func (s *Server) downloadReport(c *gin.Context) {
	id := c.Param("id")
	report, err := s.store.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}
	if report.Status != store.JobCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Report is " + string(report.Status)})
		return
	}

	artifact, err := s.store.GetReportArtifact(c.Request.Context(), id)
	if err != nil {
		logrus.WithError(err).Error("Failed to load report artifact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report artifact"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	c.Data(http.StatusOK, contentType(report.Format), artifact)
}

// DELETE /api/reports/:id - deleting a generating job is allowed; its
// in-flight result is discarded when the worker tries to finish.
func (s *Server) deleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeleteReport(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}

	logrus.WithField("report_id", id).Info("Report deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}

type CompareRequest struct {
	BaseReportID   string `json:"base_report_id" binding:"required"`
	TargetReportID string `json:"target_report_id" binding:"required"`
	CreatedBy      string `json:"created_by"`
}

// POST /api/comparisons
func (s *Server) createComparison(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmp, err := s.engine.Compare(c.Request.Context(), req.BaseReportID, req.TargetReportID, req.CreatedBy)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	case errors.Is(err, reports.ErrSameReport),
		errors.Is(err, reports.ErrReportNotCompleted),
		errors.Is(err, reports.ErrEnvironmentMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		logrus.WithError(err).Error("Failed to start comparison")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start comparison"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": cmp})
}

// GET /api/comparisons
func (s *Server) getComparisons(c *gin.Context) {
	all, err := s.store.GetComparisons(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get comparisons")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comparisons"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  all,
		"count": len(all),
	})
}

// GET /api/comparisons/:id
func (s *Server) getComparison(c *gin.Context) {
	cmp, err := s.store.GetComparison(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comparison"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cmp})
}

// GET /api/comparisons/:id/download
func (s *Server) downloadComparison(c *gin.Context) {
	id := c.Param("id")
	cmp, err := s.store.GetComparison(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comparison"})
		return
	}
	if cmp.Status != store.JobCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Comparison is " + string(cmp.Status)})
		return
	}

	artifact, err := s.store.GetComparisonArtifact(c.Request.Context(), id)
	if err != nil {
		logrus.WithError(err).Error("Failed to load comparison artifact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comparison artifact"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+cmp.Filename+`"`)
	c.Data(http.StatusOK, contentType("pdf"), artifact)
}

// DELETE /api/comparisons/:id
func (s *Server) deleteComparison(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.DeleteComparison(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete comparison")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comparison"})
		return
	}

	logrus.WithField("comparison_id", id).Info("Comparison deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Comparison deleted"})
}

func contentType(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	default:
		return "application/pdf"
	}
}
