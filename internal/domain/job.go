// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Job statuses.
const (
	JobStatusIdle      = "idle"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// CrawlJob represents a recurring crawl job for one site.
type CrawlJob struct {
	ID             string     `db:"id"              json:"id"`
	TenantID       string     `db:"tenant_id"       json:"tenant_id"`
	Name           string     `db:"name"            json:"name"`
	BaseURL        string     `db:"base_url"        json:"base_url"`
	Schedule       string     `db:"schedule"        json:"schedule"` // 5-field cron expression
	TemplateID     string     `db:"template_id"     json:"template_id,omitempty"`
	CredentialID   *string    `db:"credential_id"   json:"credential_id,omitempty"`
	MaxDepth       int        `db:"max_depth"       json:"max_depth"`
	MaxPages       int        `db:"max_pages"       json:"max_pages"`
	DelayMS        int        `db:"delay_ms"        json:"delay_ms,omitempty"`        // 0 inherits template delay
	TimeoutSeconds int        `db:"timeout_seconds" json:"timeout_seconds,omitempty"` // 0 inherits template timeout
	Active         bool       `db:"active"          json:"active"`
	Status         string     `db:"status"          json:"status"`
	LastRun        *time.Time `db:"last_run"        json:"last_run,omitempty"`
	NextRun        *time.Time `db:"next_run"        json:"next_run,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}
