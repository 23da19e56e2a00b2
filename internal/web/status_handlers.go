// internal/web/status_handlers.go
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jbossmon/internal/store"
)

// GET /api/status/:environment
func (s *Server) getStatus(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	hosts, err := s.store.GetHosts(c.Request.Context(), env)
	if err != nil {
		logrus.WithError(err).Error("Failed to get hosts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}
	status, err := s.store.GetStatus(c.Request.Context(), env)
	if err != nil {
		logrus.WithError(err).Error("Failed to get status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}

	response := make([]store.HostStatus, 0, len(hosts))
	up := 0
	for _, host := range hosts {
		hs := store.HostStatus{Host: host}
		if result, ok := status[host.ID]; ok {
			r := result
			hs.Status = &r
			if r.InstanceStatus == store.StatusUp {
				up++
			}
		}
		response = append(response, hs)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  response,
		"count": len(response),
		"up":    up,
	})
}

// POST /api/status/:environment/check - refresh every host now.
func (s *Server) checkEnvironment(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	creds, err := s.store.GetCredentials(c.Request.Context(), env)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "No credentials configured for " + env})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credentials"})
		return
	}

	hosts, err := s.store.GetHosts(c.Request.Context(), env)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get hosts"})
		return
	}

	results, err := s.agg.CheckAll(c.Request.Context(), env, hosts, *creds)
	if err != nil {
		logrus.WithError(err).Error("On-demand check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check failed"})
		return
	}

	up := 0
	for _, r := range results {
		if r.InstanceStatus == store.StatusUp {
			up++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"checked": len(results),
		"up":      up,
	})
}

// POST /api/status/:environment/check/:id - refresh one host now.
func (s *Server) checkHost(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	creds, err := s.store.GetCredentials(c.Request.Context(), env)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "No credentials configured for " + env})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credentials"})
		return
	}

	result, err := s.agg.CheckOne(c.Request.Context(), env, c.Param("id"), *creds)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
			return
		}
		logrus.WithError(err).Error("On-demand host check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GET /api/credentials/:environment - existence check only, the secret
// never leaves the store.
func (s *Server) getCredentials(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	creds, err := s.store.GetCredentials(c.Request.Context(), env)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"configured": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured": true,
		"username":   creds.Username,
	})
}

type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PUT /api/credentials/:environment
func (s *Server) storeCredentials(c *gin.Context) {
	env, ok := s.environment(c)
	if !ok {
		return
	}

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds := store.Credentials{Username: req.Username, Password: req.Password}
	if err := s.store.StoreCredentials(c.Request.Context(), env, creds); err != nil {
		logrus.WithError(err).Error("Failed to store credentials")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store credentials"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"environment": env,
		"username":    req.Username,
	}).Info("Credentials updated")
	c.JSON(http.StatusOK, gin.H{"message": "Credentials stored"})
}
