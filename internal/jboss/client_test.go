// internal/jboss/client_test.go
package jboss

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jbossmon/internal/store"
)

// targetFor points a check at a local test server.
func targetFor(t *testing.T, server *httptest.Server) Target {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return Target{Host: u.Hostname(), Port: port, Instance: "node1"}
}

// managementStub answers the three operations a check issues.
func managementStub(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		var op mgmtRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&op))

		var result interface{}
		switch {
		case op.Operation == "read-attribute" && op.Name == "server-state":
			result = "running"
		case op.Operation == "read-resource":
			result = map[string]interface{}{
				"data-source": map[string]interface{}{
					"ExampleDS": map[string]interface{}{
						"enabled":     true,
						"jndi-name":   "java:jboss/datasources/ExampleDS",
						"driver-name": "h2",
					},
					"BrokenDS": map[string]interface{}{
						"enabled":            true,
						"statistics-enabled": true,
						"failed":             true,
					},
				},
				"xa-data-source": map[string]interface{}{
					"OrdersXA": map[string]interface{}{
						"enabled":     true,
						"jndi-name":   "java:jboss/datasources/OrdersXA",
						"driver-name": "postgresql",
					},
				},
			}
		case op.Operation == "read-children-resources" && op.ChildType == "deployment":
			result = map[string]interface{}{
				"shop.war": map[string]interface{}{
					"enabled":      true,
					"runtime-name": "shop.war",
				},
				"legacy.ear": map[string]interface{}{
					"enabled": false,
				},
			}
		default:
			t.Fatalf("unexpected operation %q", op.Operation)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"outcome": "success",
			"result":  result,
		})
	}
}

func TestCheckParsesRunningInstance(t *testing.T) {
	server := httptest.NewServer(managementStub(t))
	defer server.Close()

	client := NewClient()
	result, err := client.Check(context.Background(), targetFor(t, server), store.Credentials{
		Username: "monitor",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, store.StatusUp, result.InstanceStatus)
	assert.False(t, result.LastCheck.IsZero())

	require.Len(t, result.Datasources, 3)
	assert.Equal(t, "BrokenDS", result.Datasources[0].Name)
	assert.Equal(t, store.StatusDown, result.Datasources[0].Status)
	assert.Equal(t, "ExampleDS", result.Datasources[1].Name)
	assert.Equal(t, store.StatusUp, result.Datasources[1].Status)
	assert.Equal(t, "java:jboss/datasources/ExampleDS", result.Datasources[1].JNDIName)
	assert.Equal(t, "h2", result.Datasources[1].Driver)
	assert.Equal(t, "xa-data-source", result.Datasources[2].Type)

	require.Len(t, result.Deployments, 2)
	assert.Equal(t, "legacy.ear", result.Deployments[0].Name)
	assert.Equal(t, store.StatusDown, result.Deployments[0].Status)
	assert.Equal(t, "ear", result.Deployments[0].Type)
	assert.Equal(t, "shop.war", result.Deployments[1].Name)
	assert.Equal(t, store.StatusUp, result.Deployments[1].Status)
}

func TestCheckReloadRequiredIsUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"outcome": "success",
			"result":  "reload-required",
		})
	}))
	defer server.Close()

	client := NewClient()
	result, err := client.Check(context.Background(), targetFor(t, server), store.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusUp, result.InstanceStatus)
}

func TestCheckAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Check(context.Background(), targetFor(t, server), store.Credentials{
		Username: "monitor",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, KindAuthFailure, KindOf(err))
}

func TestCheckConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	client := NewClient()
	_, err = client.Check(context.Background(), Target{Host: "127.0.0.1", Port: port, Instance: "node1"}, store.Credentials{})
	require.Error(t, err)
	assert.Equal(t, KindConnectionRefused, KindOf(err))
}

func TestCheckTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		server.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient()
	_, err := client.Check(ctx, targetFor(t, server), store.Credentials{})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestCheckProtocolErrorOnFailedOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"outcome":             "failed",
			"failure-description": "WFLYCTL0030: No resource definition is registered",
		})
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.Check(context.Background(), targetFor(t, server), store.Credentials{})
	require.Error(t, err)
	assert.Equal(t, KindProtocolError, KindOf(err))
}

func TestCheckSubResourceFailureKeepsInstanceUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var op mgmtRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&op))

		if op.Operation == "read-attribute" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"outcome": "success",
				"result":  "running",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"outcome":             "failed",
			"failure-description": "subsystem unavailable",
		})
	}))
	defer server.Close()

	client := NewClient()
	result, err := client.Check(context.Background(), targetFor(t, server), store.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, store.StatusUp, result.InstanceStatus)
	assert.Empty(t, result.Datasources)
	assert.Empty(t, result.Deployments)
}
