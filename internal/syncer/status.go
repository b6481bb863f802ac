package syncer

import "time"

// Status is the user-visible sync state pushed to subscribers and rendered
// by status UI.
type Status struct {
	IsOnline        bool      `json:"is_online"`
	PendingRequests int       `json:"pending_requests"`
	SyncInProgress  bool      `json:"sync_in_progress"`
	LastSyncTime    time.Time `json:"last_sync_time"`
}

// Result aggregates one drain cycle. It is returned to the caller instead of
// thrown: per-operation failures never abort a cycle.
type Result struct {
	// Synced counts operations confirmed by the server and removed.
	Synced int `json:"synced"`

	// Failed counts operations that failed this cycle, whether or not they
	// stayed in the queue for another attempt.
	Failed int `json:"failed"`

	// Completed counts terminal submissions specifically.
	Completed int `json:"completed"`

	// Errors holds descriptions for operations dropped this cycle
	// (retry budget exhausted or permanently rejected).
	Errors []string `json:"errors,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
