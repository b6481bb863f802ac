// Package queue implements the durable, ordered queue of pending remote
// mutations captured while the device is offline or a call fails.
package queue

import (
	"encoding/json"
	"time"
)

// Kind determines the remote semantics of a queued operation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindSubmit Kind = "submit"
)

// Priority is the primary replay-order key. Enqueue time breaks ties.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight maps a priority to a sortable rank; unknown values rank lowest.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Operation is one pending remote mutation. Payload is a snapshot captured
// at enqueue time and never mutated afterward; only RetryCount changes over
// the operation's lifetime.
type Operation struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RecordID   string          `json:"record_id,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	Priority   Priority        `json:"priority"`
}

// Stats summarizes queue contents for status surfaces.
type Stats struct {
	Total      int              `json:"total"`
	ByKind     map[Kind]int     `json:"by_kind"`
	ByPriority map[Priority]int `json:"by_priority"`
	Oldest     *time.Time       `json:"oldest,omitempty"`
}
