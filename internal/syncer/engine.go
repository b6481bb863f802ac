// Package syncer drives replay of queued operations against the remote API:
// a single-flight drain cycle with priority ordering, retry ceilings,
// explicit error classification and an aggregated per-cycle result.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldvisor/auditsync/internal/api"
	"github.com/fieldvisor/auditsync/internal/common"
	"github.com/fieldvisor/auditsync/internal/logging"
	"github.com/fieldvisor/auditsync/internal/queue"
)

// Connectivity is the slice of the connectivity monitor the engine needs.
type Connectivity interface {
	Check(ctx context.Context) bool
	Online() bool
}

// Engine drains the operation queue. At most one drain cycle runs at a
// time; a trigger arriving while one is running gets common.ErrSyncInProgress
// and must re-trigger later (the periodic scheduler does).
type Engine struct {
	queue   *queue.Queue
	client  api.Caller
	conn    Connectivity
	log     logging.Logger
	metrics *Metrics

	// onSynced fires after an operation is confirmed and removed, letting
	// the audit progress store reconcile its local drafts.
	onSynced func(ctx context.Context, op queue.Operation)

	running atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
	subs     map[int]func(Status)
	nextID   int
}

type EngineOption func(*Engine)

func WithLogger(log logging.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithOnSynced(fn func(ctx context.Context, op queue.Operation)) EngineOption {
	return func(e *Engine) { e.onSynced = fn }
}

func NewEngine(q *queue.Queue, client api.Caller, conn Connectivity, opts ...EngineOption) *Engine {
	e := &Engine{
		queue:  q,
		client: client,
		conn:   conn,
		log:    logging.NewDiscard(),
		subs:   make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Drain executes one drain cycle: guard, connectivity check, snapshot, then
// strictly sequential replay in (priority desc, enqueuedAt asc) order.
// A failing operation never blocks the ones after it. lastSyncTime advances
// at cycle end even when every item failed.
func (e *Engine) Drain(ctx context.Context) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "drain trigger dropped, cycle already running")
		return nil, common.ErrSyncInProgress
	}

	// the flag is cleared BEFORE the final status push so subscribers always
	// end on an idle status; clearing it again from a defer could release a
	// cycle that started in the meantime, so the defer only covers panics
	finished := false
	finish := func() {
		finished = true
		e.running.Store(false)
	}
	defer func() {
		if !finished {
			e.running.Store(false)
		}
	}()

	if !e.conn.Check(ctx) {
		e.log.Debug(ctx, "drain skipped, offline")
		finish()
		e.publish(ctx)
		return nil, common.ErrOffline
	}

	e.publish(ctx) // syncInProgress=true visible to status UI

	snapshot := e.queue.List()
	sortForReplay(snapshot)

	result := &Result{StartedAt: time.Now().UTC()}
	dropped := 0

	for _, op := range snapshot {
		if ctx.Err() != nil {
			break
		}
		wasDropped, authExpired := e.replayOne(ctx, op, result)
		if wasDropped {
			dropped++
		}
		if authExpired {
			// every remaining call would fail the same way until the user
			// logs back in; the queue keeps the operations for later
			break
		}
	}

	result.FinishedAt = time.Now().UTC()

	e.mu.Lock()
	e.lastSync = result.FinishedAt
	e.mu.Unlock()

	e.metrics.observeCycle(result, dropped, e.queue.Len())

	finish()
	e.publish(ctx)

	e.log.Info(ctx, "drain cycle finished",
		"synced", result.Synced, "failed", result.Failed,
		"completed", result.Completed, "dropped", dropped,
		"pending", e.queue.Len())
	return result, nil
}

// replayOne attempts a single operation. It reports whether the operation
// left the queue (confirmed or dropped) and whether the session expired.
func (e *Engine) replayOne(ctx context.Context, op queue.Operation, result *Result) (wasDropped, authExpired bool) {
	err := e.client.Do(ctx, op.Method, op.Endpoint, op.Payload)
	if err == nil {
		if _, rmErr := e.queue.Remove(ctx, op.ID); rmErr != nil {
			e.log.Error(ctx, "failed to remove synced operation", "id", op.ID, "error", rmErr)
		}
		result.Synced++
		if op.Kind == queue.KindSubmit {
			result.Completed++
		}
		if e.onSynced != nil {
			e.onSynced(ctx, op)
		}
		return false, false
	}

	result.Failed++

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case api.KindAuthExpired:
			// session invalidated; keep the operation without touching its
			// retry budget so it replays after re-login
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %s", op.Kind, op.RecordID, err))
			return false, true
		case api.KindPermanent:
			// retrying can never succeed; drop with a descriptive error
			// instead of burning retry budget
			e.drop(ctx, op, result, err)
			return true, false
		}
	}

	retries, incErr := e.queue.IncrementRetry(ctx, op.ID)
	if incErr != nil {
		e.log.Error(ctx, "failed to increment retry", "id", op.ID, "error", incErr)
		return false, false
	}
	if retries >= op.MaxRetries {
		e.drop(ctx, op, result, err)
		return true, false
	}

	e.log.Warn(ctx, "operation failed, will retry",
		"id", op.ID, "kind", op.Kind, "retries", retries, "max", op.MaxRetries, "error", err)
	return false, false
}

func (e *Engine) drop(ctx context.Context, op queue.Operation, result *Result, cause error) {
	if _, err := e.queue.Remove(ctx, op.ID); err != nil {
		e.log.Error(ctx, "failed to remove dropped operation", "id", op.ID, "error", err)
	}
	result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %s", op.Kind, op.RecordID, cause))
	e.log.Error(ctx, "operation dropped",
		"id", op.ID, "kind", op.Kind, "record_id", op.RecordID, "error", cause)
}

// Status reports the current sync state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	last := e.lastSync
	e.mu.Unlock()

	return Status{
		IsOnline:        e.conn.Online(),
		PendingRequests: e.queue.Len(),
		SyncInProgress:  e.running.Load(),
		LastSyncTime:    last,
	}
}

// Subscribe registers fn for status pushes and returns a disposer.
func (e *Engine) Subscribe(fn func(Status)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Publish pushes the current status to all subscribers. The audit progress
// store calls this after enqueueing so pending counts stay fresh.
func (e *Engine) Publish(ctx context.Context) {
	e.publish(ctx)
}

func (e *Engine) publish(ctx context.Context) {
	status := e.Status()
	e.metrics.setPending(status.PendingRequests)

	e.mu.Lock()
	subs := make([]func(Status), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error(ctx, "status subscriber panicked", "panic", r)
				}
			}()
			fn(status)
		}()
	}
}

// sortForReplay orders a snapshot by priority (high first), breaking ties by
// enqueue time (oldest first). The sort is stable so equal operations keep
// queue order.
func sortForReplay(ops []queue.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Priority.Weight() != ops[j].Priority.Weight() {
			return ops[i].Priority.Weight() > ops[j].Priority.Weight()
		}
		return ops[i].EnqueuedAt.Before(ops[j].EnqueuedAt)
	})
}
