// Package audit bridges the UI's save/complete actions to the dual
// local/remote persistence strategy, keeping exactly one authoritative
// draft per audit on this device.
package audit

import (
	"encoding/json"
	"time"
)

// Response is one answered question in the working draft.
type Response struct {
	Answer string   `json:"answer"`
	Notes  string   `json:"notes,omitempty"`
	Photos []string `json:"photos,omitempty"`
}

// Draft is the payload of a save action: the working responses plus
// optional contextual snapshots captured by the app.
type Draft struct {
	Responses map[string]Response `json:"responses"`
	StoreInfo json.RawMessage     `json:"store_info,omitempty"`
	Location  json.RawMessage     `json:"location,omitempty"`
	Media     json.RawMessage     `json:"media,omitempty"`
}

// ProgressRecord is the locally persisted draft of one in-progress audit.
// It is the single source of truth for a not-yet-submitted audit on this
// device and is deleted the moment the server confirms terminal submission.
type ProgressRecord struct {
	AuditID   string              `json:"audit_id"`
	Responses map[string]Response `json:"responses"`
	StoreInfo json.RawMessage     `json:"store_info,omitempty"`
	Location  json.RawMessage     `json:"location,omitempty"`
	Media     json.RawMessage     `json:"media,omitempty"`
	Completed bool                `json:"completed"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SaveResult reports the two independent outcomes of a save: local
// durability and remote sync.
type SaveResult struct {
	Saved  bool `json:"saved"`
	Synced bool `json:"synced"`
}
