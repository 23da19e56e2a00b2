// internal/store/models.go
package store

import (
	"fmt"
	"time"
)

// Monitored environments. The two domains are fully isolated: separate host
// lists, credentials and schedules.
const (
	EnvProduction    = "production"
	EnvNonProduction = "non_production"
)

func Environments() []string {
	return []string{EnvProduction, EnvNonProduction}
}

func ValidEnvironment(env string) bool {
	return env == EnvProduction || env == EnvNonProduction
}

// Instance / resource status values.
const (
	StatusUp      = "up"
	StatusDown    = "down"
	StatusPending = "pending"
	StatusUnknown = "unknown"
)

type Host struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Instance    string    `json:"instance"`
	AddedBy     string    `json:"added_by,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Key identifies a host across reports taken at different times, where the
// internal id may reference a since-deleted record.
func (h *Host) Key() string {
	return fmt.Sprintf("%s:%d:%s", h.Host, h.Port, h.Instance)
}

type Datasource struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	JNDIName string `json:"jndi_name,omitempty"`
	Driver   string `json:"driver,omitempty"`
}

type Deployment struct {
	Name        string `json:"name"`
	RuntimeName string `json:"runtime_name,omitempty"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status"`
}

// CheckResult is the outcome of one management check of one instance. It is
// overwritten wholesale on every check; sub-resource lists from a previous
// check are never trusted once the instance itself is unreachable.
type CheckResult struct {
	InstanceStatus string       `json:"instance_status"`
	LastCheck      time.Time    `json:"last_check"`
	Datasources    []Datasource `json:"datasources"`
	Deployments    []Deployment `json:"deployments"`
}

// HostStatus pairs a host record with its last check result. Status is nil
// for a host that has never been checked.
type HostStatus struct {
	Host
	Status *CheckResult `json:"status,omitempty"`
}

type JobStatus string

const (
	JobGenerating JobStatus = "generating"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type Report struct {
	ID          string     `json:"id"`
	Environment string     `json:"environment"`
	Format      string     `json:"format"`
	Status      JobStatus  `json:"status"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Filename    string     `json:"filename,omitempty"`
}

type Comparison struct {
	ID             string             `json:"id"`
	Environment    string             `json:"environment"`
	BaseReportID   string             `json:"base_report_id"`
	TargetReportID string             `json:"target_report_id"`
	Status         JobStatus          `json:"status"`
	CreatedBy      string             `json:"created_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Error          string             `json:"error,omitempty"`
	Filename       string             `json:"filename,omitempty"`
	Summary        *ComparisonSummary `json:"summary,omitempty"`
	Diff           *ComparisonDiff    `json:"diff,omitempty"`
}

// StatusChange records one status transition between two reports. Field is
// "instance", "datasource/<name>" or "deployment/<name>".
type StatusChange struct {
	Host  string `json:"host"`
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type ComparisonDiff struct {
	AddedHosts    []string       `json:"added_hosts"`
	RemovedHosts  []string       `json:"removed_hosts"`
	StatusChanges []StatusChange `json:"status_changes"`
}

type ComparisonSummary struct {
	TotalHosts        int `json:"total_hosts"`
	AddedHosts        int `json:"added_hosts"`
	RemovedHosts      int `json:"removed_hosts"`
	StatusChanges     int `json:"status_changes"`
	DatasourceChanges int `json:"datasource_changes"`
	DeploymentChanges int `json:"deployment_changes"`
}

// Credentials are per-environment management credentials. They are stored in
// their own collection and never embedded in host or report records.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
