package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/features/sync/call_history/service"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
)

/* ====================== in-memory store ====================== */

type memStore struct {
	mu       sync.Mutex
	rows     []model.CallHistoryModel
	nextID   uint
	lastSync map[uint]time.Time
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, lastSync: map[uint]time.Time{}}
}

func (s *memStore) Begin(context.Context) (service.SyncTx, error) {
	return &memTx{store: s}, nil
}

type memTx struct {
	store    *memStore
	staged   []model.CallHistoryModel
	mark     int
	lastSync map[uint]time.Time
}

func (t *memTx) Savepoint(string) error  { t.mark = len(t.staged); return nil }
func (t *memTx) RollbackTo(string) error { t.staged = t.staged[:t.mark]; return nil }
func (t *memTx) Rollback() error         { t.staged = nil; return nil }

func (t *memTx) TouchLastSync(userID uint, at time.Time) error {
	if t.lastSync == nil {
		t.lastSync = map[uint]time.Time{}
	}
	t.lastSync[userID] = at
	return nil
}

func (t *memTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rows = append(t.store.rows, t.staged...)
	for k, v := range t.lastSync {
		t.store.lastSync[k] = v
	}
	return nil
}

func (t *memTx) CallExists(key dedup.CallKey) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, r := range append(append([]model.CallHistoryModel{}, t.store.rows...), t.staged...) {
		if dedup.CallKeyOf(&r) == key {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertCall(rec *model.CallHistoryModel) error {
	t.store.mu.Lock()
	rec.ID = t.store.nextID
	t.store.nextID++
	t.store.mu.Unlock()
	t.staged = append(t.staged, *rec)
	return nil
}

/* ====================== helpers ====================== */

var now = time.Date(2023, 11, 15, 8, 0, 0, 0, time.UTC)

func newIngester(store service.Store) *service.Ingester {
	return service.NewIngester(store, pipeline.Runner{Clock: func() time.Time { return now }})
}

var owner = pipeline.Owner{UserID: 7, AdminID: 3}

func call(number string, ts any, callType any, duration any) map[string]any {
	return map[string]any{
		"phone_number": number,
		"timestamp":    ts,
		"call_type":    callType,
		"duration":     duration,
	}
}

// entries turns typed records into the decoded JSON array the ingester takes.
func entries(ms []map[string]any) []any {
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

/* ====================== tests ====================== */

func TestIngest_PartialBatch(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	batch := make([]map[string]any, 0, 10)
	for i := 0; i < 10; i++ {
		batch = append(batch, call("+62811000"+string(rune('0'+i)), float64(1700000000+i), "incoming", float64(30)))
	}
	batch[4]["timestamp"] = "yesterday-ish"

	res, err := newIngester(store).Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)

	assert.Equal(t, 9, res.Saved)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Index)
	assert.Equal(t, "Invalid timestamp", res.Errors[0].Reason)
	assert.Equal(t, batch[4], res.Errors[0].Input)
	assert.Len(t, store.rows, 9)
	assert.Equal(t, now, store.lastSync[7])
}

func TestIngest_SecondSyncIsNoop(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := newIngester(store)
	batch := []map[string]any{
		call("0811", float64(1700000000), "incoming", float64(12)),
		call("0812", "2023-11-14T10:00:00Z", "missed", float64(0)),
		call("0813", "1700000000000", float64(2), "45"),
	}

	first, err := ing.Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)
	assert.Equal(t, 3, first.Saved)
	assert.Len(t, first.CreatedIDs, 3)

	second, err := ing.Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)
	assert.Zero(t, second.Saved)
	assert.Equal(t, 3, second.Duplicates)
	assert.Empty(t, second.Errors)
	assert.Len(t, store.rows, 3)
}

func TestIngest_TimestampEncodingsCollapse(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	batch := []map[string]any{
		call("0811", float64(1700000000), "incoming", float64(10)),
		call("0811", float64(1700000000000), "INCOMING", float64(10)),
		call("0811", "2023-11-14T22:13:20Z", float64(1), float64(10)),
		call("0811", "2023-11-15T05:13:20+07:00", "incoming", "10"),
	}
	res, err := newIngester(store).Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 3, res.Duplicates)

	require.Len(t, store.rows, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), store.rows[0].Timestamp)
	assert.Equal(t, time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC), store.rows[0].CallDate)
}

func TestIngest_DayGranularityKey(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	batch := []map[string]any{
		call("0811", "2023-11-14T08:00:00Z", "outgoing", float64(60)),
		// same day, drifted clock: same call
		call("0811", "2023-11-14T08:00:03Z", "outgoing", float64(60)),
		// next UTC day
		call("0811", "2023-11-15T08:00:00Z", "outgoing", float64(60)),
		// different duration
		call("0811", "2023-11-14T08:00:00Z", "outgoing", float64(61)),
		// different type
		call("0811", "2023-11-14T08:00:00Z", "missed", float64(60)),
	}
	res, err := newIngester(store).Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Saved)
	assert.Equal(t, 1, res.Duplicates)
}

func TestIngest_EntryValidation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	batch := []map[string]any{
		{"number": "0811", "timestamp": float64(1700000000), "name": "Budi", "call_type": "weird"},
		{"timestamp": float64(1700000000)},
		{"phone_number": "0812"},
		call("0813", float64(1700000000), "incoming", float64(-5)),
		call("0814", true, "incoming", float64(5)),
	}
	res, err := newIngester(store).Ingest(context.Background(), owner, entries(batch))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Saved)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, "Missing timestamp or phone_number", res.Errors[0].Reason)
	assert.Equal(t, "Missing timestamp or phone_number", res.Errors[1].Reason)
	assert.Equal(t, "Invalid duration", res.Errors[2].Reason)
	assert.Equal(t, "Invalid timestamp", res.Errors[3].Reason)

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "0811", row.PhoneNumber)
	assert.Equal(t, model.CallUnknown, row.CallType)
	require.NotNil(t, row.ContactName)
	assert.Equal(t, "Budi", *row.ContactName)
	assert.Zero(t, row.Duration)
	assert.Equal(t, uint(7), row.UserID)
}

type raceTx struct {
	*memTx
	lost bool
}

// InsertCall loses the first race: another batch commits the same key first.
func (t *raceTx) InsertCall(rec *model.CallHistoryModel) error {
	if !t.lost {
		t.lost = true
		t.store.mu.Lock()
		t.store.rows = append(t.store.rows, *rec)
		t.store.mu.Unlock()
		return pipeline.ErrDuplicateKey
	}
	return t.memTx.InsertCall(rec)
}

type raceStore struct{ *memStore }

func (s raceStore) Begin(context.Context) (service.SyncTx, error) {
	return &raceTx{memTx: &memTx{store: s.memStore}}, nil
}

func TestIngest_ConcurrentWriterWinsRace(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	res, err := newIngester(raceStore{store}).Ingest(context.Background(), owner,
		entries([]map[string]any{call("0811", float64(1700000000), "incoming", float64(10))}))
	require.NoError(t, err)

	assert.Zero(t, res.Saved)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Errors)
	assert.Len(t, store.rows, 1)
}
