package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldvisor/auditsync/internal/common"
	"github.com/fieldvisor/auditsync/internal/kv"
	"github.com/fieldvisor/auditsync/internal/logging"
)

const (
	storeKey          = "sync/queue"
	DefaultMaxRetries = 3
)

// Queue is a durable FIFO of Operations. The whole queue is the unit of
// persistence: every mutation rewrites the serialized queue under one store
// key, so a crash can never leave a partially-written queue. All mutations
// are serialized through one mutex; read-modify-write is never split across
// a suspension point.
type Queue struct {
	store kv.Store
	log   logging.Logger

	mu  sync.Mutex
	ops []Operation
}

// New constructs a Queue and loads any previously persisted state. An absent
// prior state is an empty queue, not an error.
func New(ctx context.Context, store kv.Store, log logging.Logger) (*Queue, error) {
	if log == nil {
		log = logging.NewDiscard()
	}
	q := &Queue{store: store, log: log}

	data, err := store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return q, nil
		}
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if err := json.Unmarshal(data, &q.ops); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}

	log.Info(ctx, "queue loaded", "pending", len(q.ops))
	return q, nil
}

// Enqueue assigns identity and timestamp to op, appends it and persists the
// queue. ID, EnqueuedAt and RetryCount on the passed value are ignored.
//
// Submit coalescing: enqueueing a Submit drops any pending operations for
// the same record, since the submit payload snapshot subsumes them. This
// keeps at most one terminal submission in flight per record.
func (q *Queue) Enqueue(ctx context.Context, op Operation) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op.ID = uuid.NewString()
	op.EnqueuedAt = time.Now().UTC()
	op.RetryCount = 0
	if op.MaxRetries <= 0 {
		op.MaxRetries = DefaultMaxRetries
	}
	if op.Priority.Weight() == 0 {
		op.Priority = PriorityMedium
	}

	prev := q.ops

	if op.Kind == KindSubmit && op.RecordID != "" {
		kept := make([]Operation, 0, len(q.ops))
		for _, existing := range q.ops {
			if existing.RecordID == op.RecordID {
				q.log.Info(ctx, "coalescing queued operation into submit",
					"record_id", op.RecordID, "dropped_id", existing.ID, "dropped_kind", existing.Kind)
				continue
			}
			kept = append(kept, existing)
		}
		q.ops = kept
	}

	q.ops = append(q.ops, op)

	if err := q.persist(ctx); err != nil {
		// roll the in-memory state back so memory and disk agree
		q.ops = prev
		return "", err
	}

	q.log.Debug(ctx, "operation enqueued", "id", op.ID, "kind", op.Kind, "priority", op.Priority)
	return op.ID, nil
}

// Remove deletes one operation by id and persists. It reports whether an
// entry was found.
func (q *Queue) Remove(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	removed := q.ops[idx]
	q.ops = append(q.ops[:idx], q.ops[idx+1:]...)

	if err := q.persist(ctx); err != nil {
		q.ops = append(q.ops[:idx], append([]Operation{removed}, q.ops[idx:]...)...)
		return false, err
	}
	return true, nil
}

// IncrementRetry bumps the retry counter of one operation and persists.
// Returns the new count.
func (q *Queue) IncrementRetry(ctx context.Context, id string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexOf(id)
	if idx < 0 {
		return 0, common.ErrOperationNotFound
	}

	q.ops[idx].RetryCount++
	if err := q.persist(ctx); err != nil {
		q.ops[idx].RetryCount--
		return 0, err
	}
	return q.ops[idx].RetryCount, nil
}

// List returns a snapshot of the queue in insertion (FIFO) order. Replay
// ordering is the sync engine's concern, not the queue's.
func (q *Queue) List() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Operation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// GetStats summarizes the queue for status surfaces.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Total:      len(q.ops),
		ByKind:     make(map[Kind]int),
		ByPriority: make(map[Priority]int),
	}
	for _, op := range q.ops {
		stats.ByKind[op.Kind]++
		stats.ByPriority[op.Priority]++
		if stats.Oldest == nil || op.EnqueuedAt.Before(*stats.Oldest) {
			at := op.EnqueuedAt
			stats.Oldest = &at
		}
	}
	return stats
}

func (q *Queue) indexOf(id string) int {
	for i := range q.ops {
		if q.ops[i].ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) persist(ctx context.Context) error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.store.Set(ctx, storeKey, data); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}
