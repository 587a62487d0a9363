package domain

import (
	"time"
)

// Run statuses. Transitions only go running -> completed or running -> failed.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// JobRun represents a single execution of a crawl job.
// A run is immutable once it reaches a terminal status; runs form an
// append-only audit trail for the job.
type JobRun struct {
	ID               string     `db:"id"                json:"id"`
	JobID            string     `db:"job_id"            json:"job_id"`
	Status           string     `db:"status"            json:"status"`
	StartedAt        time.Time  `db:"started_at"        json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at"      json:"completed_at,omitempty"`
	URLsProcessed    int        `db:"urls_processed"    json:"urls_processed"`
	URLsSuccessful   int        `db:"urls_successful"   json:"urls_successful"`
	URLsFailed       int        `db:"urls_failed"       json:"urls_failed"`
	DocumentsCreated int        `db:"documents_created" json:"documents_created"`
	DocumentsUpdated int        `db:"documents_updated" json:"documents_updated"`
	ChangesDetected  int        `db:"changes_detected"  json:"changes_detected"`
	ErrorMessage     *string    `db:"error_message"     json:"error_message,omitempty"`
	Logs             RunLogs    `db:"logs"              json:"logs"`
}

// RunLogEntry is one structured error entry from a crawl run.
// These fields are the contract dashboards and alerting depend on.
type RunLogEntry struct {
	URL              string `json:"url"`
	Error            string `json:"error"`
	NeedsCredentials bool   `json:"needsCredentials,omitempty"`
	LoginMethod      string `json:"loginMethod,omitempty"`
}

// RunLogs is a JSONB-backed slice of run log entries.
type RunLogs []RunLogEntry
