package dto

// MigrationListResponse represents the migration status listing
type MigrationListResponse struct {
	Current    int64               `json:"current"`
	HasCurrent bool                `json:"has_current"` // false when nothing is applied
	Applied    int                 `json:"applied"`
	Pending    int                 `json:"pending"`
	Total      int                 `json:"total"`
	Items      []MigrationListItem `json:"items"`
}

// MigrationListItem represents a single migration in the list
type MigrationListItem struct {
	Version   int64  `json:"version"`
	Name      string `json:"name"`
	Applied   bool   `json:"applied"`
	AppliedAt string `json:"applied_at,omitempty"`
	Orphaned  bool   `json:"orphaned,omitempty"` // Applied but no longer registered
}
