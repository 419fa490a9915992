package dto

// MigrateUpRequest represents an up request. The body is optional.
type MigrateUpRequest struct {
	DryRun bool `json:"dry_run"` // Optional, default false
}

// MigrateResponse represents the outcome of an up or rollback request
type MigrateResponse struct {
	Operation      string   `json:"operation"`
	Success        bool     `json:"success"`
	Applied        []int64  `json:"applied"`
	Skipped        []int64  `json:"skipped"`
	Pending        []int64  `json:"pending,omitempty"`
	RolledBack     int64    `json:"rolled_back,omitempty"`
	RolledBackName string   `json:"rolled_back_name,omitempty"`
	Errors         []string `json:"errors"`
	Queued         bool     `json:"queued,omitempty"`
	JobID          string   `json:"job_id,omitempty"`
}
