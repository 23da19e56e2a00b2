// internal/jboss/client.go - management API client for JBoss/WildFly instances
package jboss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"jbossmon/internal/store"
)

// Target identifies one application-server instance.
type Target struct {
	Host     string
	Port     int
	Instance string
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d (%s)", t.Host, t.Port, t.Instance)
}

// Client issues operations against the HTTP management endpoint of a single
// instance at a time. It holds no shared state; one Client is safe for
// concurrent use by all workers.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{},
	}
}

type mgmtRequest struct {
	Operation string              `json:"operation"`
	Address   []map[string]string `json:"address"`
	Name      string              `json:"name,omitempty"`
	ChildType string              `json:"child-type,omitempty"`
	Recursive bool                `json:"recursive,omitempty"`
}

type mgmtResponse struct {
	Outcome            string          `json:"outcome"`
	Result             json.RawMessage `json:"result"`
	FailureDescription json.RawMessage `json:"failure-description"`
}

// Check queries server state, datasources and deployments for one instance.
// On any failure the typed error carries the failure kind; the caller maps
// all kinds to a down status.
func (c *Client) Check(ctx context.Context, target Target, creds store.Credentials) (*store.CheckResult, error) {
	state, err := c.serverState(ctx, target, creds)
	if err != nil {
		return nil, err
	}

	result := &store.CheckResult{
		InstanceStatus: instanceStatus(state),
		LastCheck:      time.Now(),
		Datasources:    []store.Datasource{},
		Deployments:    []store.Deployment{},
	}

	// Sub-resource failures do not take a running instance down; the lists
	// simply stay empty for this check.
	if datasources, err := c.datasources(ctx, target, creds); err != nil {
		logrus.WithError(err).WithField("target", target.String()).Debug("Failed to read datasources")
	} else {
		result.Datasources = datasources
	}

	if deployments, err := c.deployments(ctx, target, creds); err != nil {
		logrus.WithError(err).WithField("target", target.String()).Debug("Failed to read deployments")
	} else {
		result.Deployments = deployments
	}

	return result, nil
}

func instanceStatus(state string) string {
	switch state {
	case "running", "reload-required", "restart-required":
		return store.StatusUp
	default:
		return store.StatusDown
	}
}

func (c *Client) serverState(ctx context.Context, target Target, creds store.Credentials) (string, error) {
	raw, err := c.execute(ctx, target, creds, mgmtRequest{
		Operation: "read-attribute",
		Address:   []map[string]string{},
		Name:      "server-state",
	})
	if err != nil {
		return "", err
	}

	var state string
	if err := json.Unmarshal(raw, &state); err != nil {
		return "", &CheckError{Kind: KindProtocolError, Err: fmt.Errorf("unexpected server-state payload: %w", err)}
	}
	return state, nil
}

func (c *Client) datasources(ctx context.Context, target Target, creds store.Credentials) ([]store.Datasource, error) {
	raw, err := c.execute(ctx, target, creds, mgmtRequest{
		Operation: "read-resource",
		Address:   []map[string]string{{"subsystem": "datasources"}},
		Recursive: true,
	})
	if err != nil {
		return nil, err
	}
	return parseDatasources(raw), nil
}

func (c *Client) deployments(ctx context.Context, target Target, creds store.Credentials) ([]store.Deployment, error) {
	raw, err := c.execute(ctx, target, creds, mgmtRequest{
		Operation: "read-children-resources",
		Address:   []map[string]string{},
		ChildType: "deployment",
	})
	if err != nil {
		return nil, err
	}
	return parseDeployments(raw), nil
}

func (c *Client) execute(ctx context.Context, target Target, creds store.Credentials, op mgmtRequest) (json.RawMessage, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, &CheckError{Kind: KindProtocolError, Err: err}
	}

	url := fmt.Sprintf("http://%s:%d/management", target.Host, target.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &CheckError{Kind: KindProtocolError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &CheckError{Kind: KindAuthFailure, Err: fmt.Errorf("management endpoint returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		return nil, &CheckError{Kind: KindProtocolError, Err: fmt.Errorf("management endpoint returned %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var mgmt mgmtResponse
	if err := json.Unmarshal(data, &mgmt); err != nil {
		return nil, &CheckError{Kind: KindProtocolError, Err: fmt.Errorf("invalid management response: %w", err)}
	}
	if mgmt.Outcome != "success" {
		return nil, &CheckError{Kind: KindProtocolError, Err: fmt.Errorf("operation %s failed: %s", op.Operation, string(mgmt.FailureDescription))}
	}

	return mgmt.Result, nil
}

func classifyTransportError(err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &CheckError{Kind: KindTimeout, Err: err}
	case errors.As(err, &nerr) && nerr.Timeout():
		return &CheckError{Kind: KindTimeout, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &CheckError{Kind: KindConnectionRefused, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &CheckError{Kind: KindConnectionRefused, Err: err}
	}
	return &CheckError{Kind: KindProtocolError, Err: err}
}
