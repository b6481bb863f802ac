package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvisor/auditsync/internal/kv"
)

func newQueue(t *testing.T, store kv.Store) *Queue {
	t.Helper()
	q, err := New(context.Background(), store, nil)
	require.NoError(t, err)
	return q
}

func TestEnqueue_AssignsIdentityAndDefaults(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	id, err := q.Enqueue(ctx, Operation{
		Kind:     KindUpdate,
		Endpoint: "/audits/a1/progress",
		Method:   "PUT",
		RecordID: "a1",
		Payload:  json.RawMessage(`{"x":1}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ops := q.List()
	require.Len(t, ops, 1)
	assert.Equal(t, id, ops[0].ID)
	assert.False(t, ops[0].EnqueuedAt.IsZero())
	assert.Equal(t, 0, ops[0].RetryCount)
	assert.Equal(t, DefaultMaxRetries, ops[0].MaxRetries)
	assert.Equal(t, PriorityMedium, ops[0].Priority)
}

func TestList_IsFIFOSnapshot(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	id1, err := q.Enqueue(ctx, Operation{Kind: KindCreate, Priority: PriorityLow, RecordID: "r1"})
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, Operation{Kind: KindUpdate, Priority: PriorityHigh, RecordID: "r2"})
	require.NoError(t, err)

	ops := q.List()
	require.Len(t, ops, 2)
	// insertion order, not priority order
	assert.Equal(t, id1, ops[0].ID)
	assert.Equal(t, id2, ops[1].ID)

	// mutating the snapshot does not touch the queue
	ops[0].RetryCount = 99
	assert.Equal(t, 0, q.List()[0].RetryCount)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	id, err := q.Enqueue(ctx, Operation{Kind: KindCreate, RecordID: "r1"})
	require.NoError(t, err)

	found, err := q.Remove(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, q.Len())

	// once removed, an id can never reappear
	found, err = q.Remove(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
	for _, op := range q.List() {
		assert.NotEqual(t, id, op.ID)
	}
}

func TestIncrementRetry(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	id, err := q.Enqueue(ctx, Operation{Kind: KindUpdate, RecordID: "r1"})
	require.NoError(t, err)

	n, err := q.IncrementRetry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = q.IncrementRetry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = q.IncrementRetry(ctx, "nope")
	require.Error(t, err)
}

func TestPersistence_SurvivesReconstruction(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	q1 := newQueue(t, store)
	id, err := q1.Enqueue(ctx, Operation{Kind: KindSubmit, RecordID: "a1", Priority: PriorityHigh})
	require.NoError(t, err)
	_, err = q1.IncrementRetry(ctx, id)
	require.NoError(t, err)

	// a second queue over the same store sees the same state
	q2 := newQueue(t, store)
	ops := q2.List()
	require.Len(t, ops, 1)
	assert.Equal(t, id, ops[0].ID)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Equal(t, PriorityHigh, ops[0].Priority)
}

func TestNew_AbsentStateIsEmptyQueue(t *testing.T) {
	q := newQueue(t, kv.NewMemory())
	assert.Equal(t, 0, q.Len())
}

func TestEnqueue_SubmitCoalescesPendingForRecord(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	_, err := q.Enqueue(ctx, Operation{Kind: KindUpdate, RecordID: "a1"})
	require.NoError(t, err)
	otherID, err := q.Enqueue(ctx, Operation{Kind: KindUpdate, RecordID: "a2"})
	require.NoError(t, err)
	submit1, err := q.Enqueue(ctx, Operation{Kind: KindSubmit, RecordID: "a1"})
	require.NoError(t, err)

	ops := q.List()
	require.Len(t, ops, 2)
	assert.Equal(t, otherID, ops[0].ID)
	assert.Equal(t, submit1, ops[1].ID)

	// a second submit for the same record replaces the first
	submit2, err := q.Enqueue(ctx, Operation{Kind: KindSubmit, RecordID: "a1"})
	require.NoError(t, err)

	ops = q.List()
	require.Len(t, ops, 2)
	assert.Equal(t, submit2, ops[1].ID)
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	q := newQueue(t, kv.NewMemory())

	_, err := q.Enqueue(ctx, Operation{Kind: KindUpdate, RecordID: "r1", Priority: PriorityLow})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Operation{Kind: KindUpdate, RecordID: "r2", Priority: PriorityHigh})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, Operation{Kind: KindSubmit, RecordID: "r3", Priority: PriorityHigh})
	require.NoError(t, err)

	stats := q.GetStats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByKind[KindUpdate])
	assert.Equal(t, 1, stats.ByKind[KindSubmit])
	assert.Equal(t, 2, stats.ByPriority[PriorityHigh])
	require.NotNil(t, stats.Oldest)
}
