package response

import "time"

type HealthResponse struct {
	Status      string     `json:"status"`
	Cycles      int64      `json:"cycles"`
	LastCycle   *time.Time `json:"last_cycle,omitempty"`
	Processed   int        `json:"processed"`
	Quarantined int        `json:"quarantined"`
	DryRun      bool       `json:"dry_run"`
}

// StatusResponse reports what the poll loop knows about one URL.
type StatusResponse struct {
	URL    string `json:"url"`
	Status string `json:"status"` // "processed", "quarantined"
}

type ErrorResponse struct {
	Error string `json:"error"`
}
