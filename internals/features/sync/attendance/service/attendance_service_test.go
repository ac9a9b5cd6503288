package service_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/features/sync/attendance/model"
	"callmanager_backend/internals/features/sync/attendance/service"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/storage"
)

/* ====================== in-memory store ====================== */

type memStore struct {
	mu         sync.Mutex
	rows       map[string]model.AttendanceModel
	failCommit bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]model.AttendanceModel{}}
}

func (s *memStore) Begin(context.Context) (service.SyncTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{store: s, work: maps.Clone(s.rows)}, nil
}

type memTx struct {
	store *memStore
	work  map[string]model.AttendanceModel
	mark  map[string]model.AttendanceModel
}

func (t *memTx) Savepoint(string) error  { t.mark = maps.Clone(t.work); return nil }
func (t *memTx) RollbackTo(string) error { t.work = maps.Clone(t.mark); return nil }
func (t *memTx) Rollback() error         { t.work = nil; return nil }

func (t *memTx) TouchLastSync(uint, time.Time) error { return nil }

func (t *memTx) Commit() error {
	if t.store.failCommit {
		return errors.New("connection reset")
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rows = t.work
	return nil
}

func (t *memTx) FindByKey(key dedup.AttendanceKey) (*model.AttendanceModel, error) {
	for _, r := range t.work {
		if dedup.AttendanceKeyOf(r.UserID, r.CheckIn) == key {
			row := r
			return &row, nil
		}
	}
	return nil, nil
}

func (t *memTx) IDTaken(id string) (bool, error) {
	_, ok := t.work[id]
	return ok, nil
}

func (t *memTx) Insert(rec *model.AttendanceModel) error {
	if _, ok := t.work[rec.ID]; ok {
		return pipeline.ErrDuplicateKey
	}
	t.work[rec.ID] = *rec
	return nil
}

func (t *memTx) Update(rec *model.AttendanceModel) error {
	t.work[rec.ID] = *rec
	return nil
}

/* ====================== fake image store ====================== */

type fakeImages struct {
	mu      sync.Mutex
	n       int
	saved   []string
	removed []string
}

func (f *fakeImages) SaveBase64(_ context.Context, adminID, userID uint, payload string) (string, error) {
	switch payload {
	case "big":
		return "", storage.ErrImageTooLarge
	case "pdf":
		return "", fmt.Errorf("%w: application/pdf", storage.ErrUnsupportedImage)
	case "slow":
		return "", storage.ErrImageDecodeTimeout
	case "disk-full":
		return "", errors.New("write image: no space left on device")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	rel := fmt.Sprintf("%d/%d/img-%d.webp", adminID, userID, f.n)
	f.saved = append(f.saved, rel)
	return rel, nil
}

func (f *fakeImages) Remove(rel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, rel)
	return nil
}

/* ====================== helpers ====================== */

var (
	now   = time.Date(2024, 2, 5, 17, 0, 0, 0, time.UTC)
	owner = pipeline.Owner{UserID: 9, AdminID: 4}
)

func newIngester(store service.Store, images service.ImageSaver) *service.Ingester {
	return service.NewIngester(store, images, pipeline.Runner{Clock: func() time.Time { return now }})
}

func onlyRow(t *testing.T, s *memStore) model.AttendanceModel {
	t.Helper()
	require.Len(t, s.rows, 1)
	for _, r := range s.rows {
		return r
	}
	return model.AttendanceModel{}
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

func TestIngest_RepeatedCheckInMerges(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := newIngester(store, nil)

	first, err := ing.Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_in": "2024-02-05T08:00:00Z", "latitude": -6.2, "longitude": 106.8},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Saved)
	require.Len(t, first.CreatedIDs, 1)

	second, err := ing.Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_in": "2024-02-05T08:00:00Z", "check_out": "2024-02-05T16:00:00Z", "status": "late"},
	}))
	require.NoError(t, err)
	assert.Zero(t, second.Saved)
	assert.Equal(t, 1, second.Merged)
	assert.Empty(t, second.CreatedIDs)

	row := onlyRow(t, store)
	assert.Equal(t, first.CreatedIDs[0], row.ID)
	require.NotNil(t, row.CheckOut)
	assert.Equal(t, time.Date(2024, 2, 5, 16, 0, 0, 0, time.UTC), *row.CheckOut)
	assert.Equal(t, model.StatusLate, row.Status)
	require.NotNil(t, row.Latitude)
	assert.InDelta(t, -6.2, *row.Latitude, 1e-9)
	assert.True(t, row.Synced)

	// an earlier check_out never moves the stored one back
	third, err := ing.Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_in": float64(1707120000), "check_out": "2024-02-05T09:00:00Z", "status": "late"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, third.Duplicates)
	assert.Zero(t, third.Merged)
	row = onlyRow(t, store)
	assert.Equal(t, time.Date(2024, 2, 5, 16, 0, 0, 0, time.UTC), *row.CheckOut)
}

func TestIngest_InBatchRepeatMerges(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	res, err := newIngester(store, nil).Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_in": "2024-02-05T08:00:00Z"},
		{"check_in": "2024-02-05T08:00:00.400Z", "address": "Jl. Sudirman 1"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Merged)

	row := onlyRow(t, store)
	require.NotNil(t, row.Address)
	assert.Equal(t, "Jl. Sudirman 1", *row.Address)
	assert.Equal(t, model.StatusPresent, row.Status)
}

func TestIngest_ClientIDs(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	res, err := newIngester(store, nil).Ingest(context.Background(), owner, entries([]map[string]any{
		{"id": "dev-001", "check_in": "2024-02-05T08:00:00Z"},
		{"id": "dev-001", "check_in": "2024-02-06T08:00:00Z"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-001"}, res.CreatedIDs)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "id conflicts with an existing record", res.Errors[0].Reason)
	assert.Len(t, store.rows, 1)
}

func TestIngest_Images(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	images := &fakeImages{}
	res, err := newIngester(store, images).Ingest(context.Background(), owner, entries([]map[string]any{
		{"id": "a", "check_in": "2024-02-01T08:00:00Z", "image": "ok"},
		{"id": "b", "check_in": "2024-02-02T08:00:00Z", "image": "big"},
		{"id": "c", "check_in": "2024-02-03T08:00:00Z", "image": "pdf"},
		{"id": "d", "check_in": "2024-02-04T08:00:00Z", "image": "slow"},
		{"id": "e", "check_in": "2024-02-05T08:00:00Z", "image": "disk-full"},
	}))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Saved)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "image processing timed out", res.Errors[0].Reason)
	assert.Equal(t, "failed to store image", res.Errors[1].Reason)

	require.Contains(t, store.rows, "a")
	require.NotNil(t, store.rows["a"].ImagePath)
	assert.Equal(t, "4/9/img-1.webp", *store.rows["a"].ImagePath)
	assert.Nil(t, store.rows["b"].ImagePath)
	assert.Nil(t, store.rows["c"].ImagePath)
	assert.NotContains(t, store.rows, "d")
	assert.Empty(t, images.removed)
}

func TestIngest_ImageOnlyAttachedOnce(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	images := &fakeImages{}
	ing := newIngester(store, images)
	batch := entries([]map[string]any{{"check_in": "2024-02-05T08:00:00Z", "image": "ok"}})

	_, err := ing.Ingest(context.Background(), owner, batch)
	require.NoError(t, err)
	res, err := ing.Ingest(context.Background(), owner, batch)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, images.saved, 1)
}

func TestIngest_CommitFailureDiscardsImages(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.failCommit = true
	images := &fakeImages{}
	_, err := newIngester(store, images).Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_in": "2024-02-05T08:00:00Z", "image": "ok"},
	}))
	require.ErrorIs(t, err, pipeline.ErrCommitFailed)
	assert.Equal(t, images.saved, images.removed)
	assert.Empty(t, store.rows)
}

func TestIngest_AttendanceValidation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	res, err := newIngester(store, nil).Ingest(context.Background(), owner, entries([]map[string]any{
		{"check_out": "2024-02-05T16:00:00Z"},
		{"check_in": "not a time"},
		{"check_in": "2024-02-05T08:00:00Z", "check_out": "2024-02-05T07:00:00Z"},
		{"check_in": "2024-02-05T08:00:00Z", "latitude": float64(120)},
		{"check_in": "2024-02-05T08:00:00Z", "status": "sick"},
	}))
	require.NoError(t, err)

	require.Len(t, res.Errors, 4)
	assert.Equal(t, "Missing check_in", res.Errors[0].Reason)
	assert.Equal(t, "Invalid check_in", res.Errors[1].Reason)
	assert.Equal(t, "check_out is before check_in", res.Errors[2].Reason)
	assert.Equal(t, "Invalid latitude/longitude", res.Errors[3].Reason)

	row := onlyRow(t, store)
	assert.Equal(t, model.StatusOther, row.Status)
	require.NotNil(t, row.SyncTimestamp)
	assert.Equal(t, now, *row.SyncTimestamp)
}
