package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldvisor/auditsync/internal/api"
	"github.com/fieldvisor/auditsync/internal/common"
	"github.com/fieldvisor/auditsync/internal/kv"
	"github.com/fieldvisor/auditsync/internal/logging"
	"github.com/fieldvisor/auditsync/internal/queue"
)

const progressPrefix = "audit/progress/"

// RemoteClient is the slice of the audit API the progress store uses for
// immediate best-effort calls. *api.Client satisfies it.
type RemoteClient interface {
	UpdateProgress(ctx context.Context, auditID string, payload json.RawMessage) error
	SubmitAudit(ctx context.Context, auditID string, payload json.RawMessage) error
}

// Connectivity answers the point-in-time online question before an
// immediate remote attempt.
type Connectivity interface {
	Check(ctx context.Context) bool
}

// StatusPublisher lets the store nudge the sync status surface after an
// enqueue changes the pending count. Optional.
type StatusPublisher interface {
	Publish(ctx context.Context)
}

// ProgressStore implements the save/get/clear contract over the durable
// store, with opportunistic remote sync and queue fallback.
type ProgressStore struct {
	store  kv.Store
	queue  *queue.Queue
	remote RemoteClient
	conn   Connectivity
	status StatusPublisher
	log    logging.Logger
}

type ProgressOption func(*ProgressStore)

func WithStatusPublisher(p StatusPublisher) ProgressOption {
	return func(s *ProgressStore) { s.status = p }
}

func WithProgressLogger(log logging.Logger) ProgressOption {
	return func(s *ProgressStore) { s.log = log }
}

func NewProgressStore(store kv.Store, q *queue.Queue, remote RemoteClient, conn Connectivity, opts ...ProgressOption) *ProgressStore {
	s := &ProgressStore{
		store:  store,
		queue:  q,
		remote: remote,
		conn:   conn,
		log:    logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveProgress writes the draft locally first — local durability is never
// contingent on connectivity — then attempts an immediate remote call when
// online, falling back to the operation queue. The returned Saved and
// Synced flags are independent.
//
// Only the local write failure propagates as an error; remote failures are
// absorbed into Synced=false.
func (s *ProgressStore) SaveProgress(ctx context.Context, auditID string, draft Draft, completed bool) (SaveResult, error) {
	record := ProgressRecord{
		AuditID:   auditID,
		Responses: draft.Responses,
		StoreInfo: draft.StoreInfo,
		Location:  draft.Location,
		Media:     draft.Media,
		Completed: completed,
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode progress: %w", err)
	}
	if err := s.store.Set(ctx, progressPrefix+auditID, data); err != nil {
		return SaveResult{}, fmt.Errorf("save progress locally: %w", err)
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return SaveResult{Saved: true}, fmt.Errorf("encode payload: %w", err)
	}

	if s.conn.Check(ctx) {
		var callErr error
		if completed {
			callErr = s.remote.SubmitAudit(ctx, auditID, payload)
		} else {
			callErr = s.remote.UpdateProgress(ctx, auditID, payload)
		}
		if callErr == nil {
			if completed {
				// terminal submission confirmed synchronously
				if err := s.ClearProgress(ctx, auditID); err != nil {
					s.log.Warn(ctx, "failed to clear submitted draft", "audit_id", auditID, "error", err)
				}
			}
			return SaveResult{Saved: true, Synced: true}, nil
		}
		s.log.Warn(ctx, "immediate sync failed, queueing for replay",
			"audit_id", auditID, "completed", completed, "error", callErr)
	}

	if err := s.enqueue(ctx, auditID, payload, completed); err != nil {
		return SaveResult{Saved: true}, err
	}
	return SaveResult{Saved: true, Synced: false}, nil
}

func (s *ProgressStore) enqueue(ctx context.Context, auditID string, payload json.RawMessage, completed bool) error {
	op := queue.Operation{
		Kind:     queue.KindUpdate,
		Endpoint: api.AuditEndpoint(auditID, "progress"),
		Method:   http.MethodPut,
		Payload:  payload,
		RecordID: auditID,
		Priority: queue.PriorityMedium,
	}
	if completed {
		op.Kind = queue.KindSubmit
		op.Endpoint = api.AuditEndpoint(auditID, "submit")
		op.Method = http.MethodPost
		op.Priority = queue.PriorityHigh
	}

	if _, err := s.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("enqueue %s for audit %s: %w", op.Kind, auditID, err)
	}
	if s.status != nil {
		s.status.Publish(ctx)
	}
	return nil
}

// GetProgress reads the local draft. It never touches the network.
// Returns common.ErrNotFound when no draft exists.
func (s *ProgressStore) GetProgress(ctx context.Context, auditID string) (*ProgressRecord, error) {
	data, err := s.store.Get(ctx, progressPrefix+auditID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var record ProgressRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &record, nil
}

// ClearProgress deletes the local draft. Callers invoke it only after the
// server confirmed terminal submission, never speculatively.
func (s *ProgressStore) ClearProgress(ctx context.Context, auditID string) error {
	if err := s.store.Delete(ctx, progressPrefix+auditID); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// ListPending returns the audit ids that still have local drafts.
func (s *ProgressStore) ListPending(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx, progressPrefix)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(progressPrefix):])
	}
	return ids, nil
}

// HandleSynced reconciles local drafts after the sync engine confirms an
// operation: a replayed Submit supersedes the draft, which is deleted.
// Wire it via syncer.WithOnSynced.
func (s *ProgressStore) HandleSynced(ctx context.Context, op queue.Operation) {
	if op.Kind != queue.KindSubmit || op.RecordID == "" {
		return
	}
	if err := s.ClearProgress(ctx, op.RecordID); err != nil {
		s.log.Error(ctx, "failed to clear draft after replayed submit",
			"audit_id", op.RecordID, "error", err)
		return
	}
	s.log.Info(ctx, "draft cleared after confirmed submission", "audit_id", op.RecordID)
}
