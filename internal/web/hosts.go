// internal/web/hosts.go
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/store"
)

type HostRequest struct {
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port" binding:"required"`
	Instance string `json:"instance" binding:"required"`
	AddedBy  string `json:"added_by"`
}

type BulkRequest struct {
	Hosts   string `json:"hosts" binding:"required"`
	AddedBy string `json:"added_by"`
}

// BulkResponse reports per-line outcomes of a bulk registration.
type BulkResponse struct {
	Added        []store.Host  `json:"added"`
	InvalidLines []InvalidLine `json:"invalid_lines"`
	Duplicates   []string      `json:"duplicates"`
}

// environment resolves and validates the :environment path parameter. It
// writes the error response itself and reports whether to continue.
func (s *Server) environment(c *gin.Context) (string, bool) {
	env := c.Param("environment")
	if !store.ValidEnvironment(env) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown environment: " + env})
		return "", false
	}
	return env, true
}

// GET /api/hosts/:environment
func (s *Server) getHosts(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	hosts, err := s.store.GetHosts(c.Request.Context(), env)
	if err != nil {
		logrus.WithError(err).Error("Failed to get hosts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get hosts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  hosts,
		"count": len(hosts),
	})
}

// GET /api/hosts/:environment/:id
func (s *Server) getHost(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	host, err := s.store.GetHost(c.Request.Context(), env, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get host"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

// POST /api/hosts/:environment
func (s *Server) createHost(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	var req HostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Port < 1 || req.Port > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Port must be between 1 and 65535"})
		return
	}

	host := &store.Host{
		ID:          uuid.New().String(),
		Environment: env,
		Host:        req.Host,
		Port:        req.Port,
		Instance:    req.Instance,
		AddedBy:     req.AddedBy,
		AddedAt:     time.Now(),
	}

	if err := s.store.CreateHost(c.Request.Context(), host); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Host already registered: " + host.Key()})
			return
		}
		logrus.WithError(err).Error("Failed to create host")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create host"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"environment": env,
		"host":        host.Key(),
	}).Info("Host registered")
	c.JSON(http.StatusCreated, gin.H{"data": host})
}

// POST /api/hosts/:environment/bulk
func (s *Server) createHostsBulk(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs, invalid := ParseBulk(req.Hosts)
	resp := BulkResponse{
		Added:        []store.Host{},
		InvalidLines: invalid,
		Duplicates:   []string{},
	}

	now := time.Now()
	for _, in := range inputs {
		host := &store.Host{
			ID:          uuid.New().String(),
			Environment: env,
			Host:        in.Host,
			Port:        in.Port,
			Instance:    in.Instance,
			AddedBy:     req.AddedBy,
			AddedAt:     now,
		}
		err := s.store.CreateHost(c.Request.Context(), host)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			resp.Duplicates = append(resp.Duplicates, host.Key())
		case err != nil:
			logrus.WithError(err).Error("Failed to create host in bulk")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create host " + host.Key()})
			return
		default:
			resp.Added = append(resp.Added, *host)
		}
	}

	logrus.WithFields(logrus.Fields{
		"environment": env,
		"added":       len(resp.Added),
		"invalid":     len(resp.InvalidLines),
		"duplicates":  len(resp.Duplicates),
	}).Info("Bulk host registration")

	status := http.StatusCreated
	if len(resp.Added) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"data": resp})
}

// DELETE /api/hosts/:environment/:id
func (s *Server) deleteHost(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := s.store.DeleteHost(c.Request.Context(), env, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete host")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete host"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"environment": env,
		"host_id":     id,
	}).Info("Host removed")
	c.JSON(http.StatusOK, gin.H{"message": "Host deleted"})
}
