// internal/web/admin_handlers.go
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/reports"
	"jbossmon/internal/store"
)

// GET /api/stats - database counters plus per-environment up/down totals.
func (s *Server) getStats(c *gin.Context) {
	dbStats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get store stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	environments := gin.H{}
	for _, env := range store.Environments() {
		status, err := s.store.GetStatus(c.Request.Context(), env)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
			return
		}
		counts := map[string]int{
			store.StatusUp:      0,
			store.StatusDown:    0,
			store.StatusPending: 0,
			store.StatusUnknown: 0,
		}
		for _, result := range status {
			if _, ok := counts[result.InstanceStatus]; ok {
				counts[result.InstanceStatus]++
			} else {
				counts[store.StatusUnknown]++
			}
		}
		environments[env] = counts
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"database":     dbStats,
			"environments": environments,
		},
	})
}

// POST /api/admin/compact - reclaim space from deleted report artifacts.
func (s *Server) compactDatabase(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := s.store.Compact(ctx); err != nil {
		logrus.WithError(err).Error("Failed to compact database")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compact database"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Database compacted successfully",
		"timestamp": time.Now(),
	})
}

// CleanupRequest overrides the retention defaults for one run. A zero
// MaxReports keeps the configured per-environment cap.
type CleanupRequest struct {
	MaxReports int `json:"max_reports"`
}

// POST /api/admin/cleanup - rotate old reports now instead of waiting for
// the next generation to trigger it. Optional ?environment= narrows scope.
func (s *Server) cleanupReports(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxReports < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_reports must not be negative"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.engine.Cleanup(ctx, c.Query("environment"), req.MaxReports)
	if err != nil {
		if errors.Is(err, reports.ErrUnknownEnvironment) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("Failed to clean up reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clean up reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Report cleanup completed",
		"deleted":   deleted,
		"timestamp": time.Now(),
	})
}
