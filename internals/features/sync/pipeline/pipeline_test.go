package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/events"
)

type fakeTx struct {
	savepoints  int
	rollbacksTo int
	committed   bool
	rolledBack  bool
	commitErr   error
	touched     map[uint]time.Time
}

func (f *fakeTx) Savepoint(string) error  { f.savepoints++; return nil }
func (f *fakeTx) RollbackTo(string) error { f.rollbacksTo++; return nil }
func (f *fakeTx) Commit() error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}
func (f *fakeTx) Rollback() error { f.rolledBack = true; return nil }
func (f *fakeTx) TouchLastSync(userID uint, at time.Time) error {
	if f.touched == nil {
		f.touched = map[uint]time.Time{}
	}
	f.touched[userID] = at
	return nil
}

type recordingPublisher struct {
	got []events.SyncCompleted
}

func (p *recordingPublisher) PublishSyncCompleted(_ context.Context, ev events.SyncCompleted) error {
	p.got = append(p.got, ev)
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func runner(pub events.Publisher) *pipeline.Runner {
	return &pipeline.Runner{
		Kind:   pipeline.KindCallLog,
		Clock:  func() time.Time { return fixedNow },
		Events: pub,
	}
}

func batch(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"n": i}
	}
	return out
}

func TestRun_PartialBatchStillCommits(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	pub := &recordingPublisher{}
	invalidated := 0
	r := runner(pub)
	r.AfterCommit = func(context.Context, pipeline.Owner) { invalidated++ }

	step := func(_ context.Context, _ *fakeTx, raw map[string]any) (pipeline.Applied, error) {
		if raw["n"] == 4 {
			return pipeline.Applied{}, pipeline.Reject("Invalid timestamp")
		}
		return pipeline.Applied{Outcome: pipeline.Created, ID: fmt.Sprint(raw["n"])}, nil
	}
	begin := func(context.Context) (*fakeTx, error) { return tx, nil }

	res, err := pipeline.Run(context.Background(), r, begin, pipeline.Owner{UserID: 9, AdminID: 2}, batch(10), step)
	require.NoError(t, err)

	assert.Equal(t, 9, res.Saved)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Index)
	assert.Equal(t, "Invalid timestamp", res.Errors[0].Reason)
	assert.Equal(t, map[string]any{"n": 4}, res.Errors[0].Input)
	assert.Len(t, res.CreatedIDs, 9)

	assert.True(t, tx.committed)
	assert.Equal(t, 10, tx.savepoints)
	assert.Equal(t, 1, tx.rollbacksTo)
	assert.Equal(t, fixedNow, tx.touched[9])
	assert.Equal(t, fixedNow, res.SyncedAt)
	assert.Equal(t, 1, invalidated)

	require.Len(t, pub.got, 1)
	assert.Equal(t, events.SyncCompleted{
		Kind: "call_log", UserID: 9, AdminID: 2, Saved: 9, Errors: 1, At: fixedNow,
	}, pub.got[0])
}

func TestRun_CommitFailureReportsBatchError(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{commitErr: errors.New("connection reset")}
	var discarded []string
	r := runner(nil)
	r.Discard = func(paths []string) { discarded = append(discarded, paths...) }
	r.AfterCommit = func(context.Context, pipeline.Owner) { t.Fatal("must not run after a failed commit") }

	step := func(_ context.Context, _ *fakeTx, raw map[string]any) (pipeline.Applied, error) {
		return pipeline.Applied{Outcome: pipeline.Created, ID: "x", Files: []string{fmt.Sprintf("f%v", raw["n"])}}, nil
	}
	res, err := pipeline.Run(context.Background(), r, func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 1}, batch(3), step)

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrCommitFailed)
	assert.Zero(t, res.Saved)
	assert.Empty(t, res.CreatedIDs)
	assert.True(t, tx.rolledBack)
	assert.ElementsMatch(t, []string{"f0", "f1", "f2"}, discarded)
}

func TestRun_BeginFailure(t *testing.T) {
	t.Parallel()

	_, err := pipeline.Run(context.Background(), runner(nil),
		func(context.Context) (*fakeTx, error) { return nil, errors.New("pool exhausted") },
		pipeline.Owner{UserID: 1}, batch(1),
		func(context.Context, *fakeTx, map[string]any) (pipeline.Applied, error) {
			return pipeline.Applied{}, nil
		})
	assert.ErrorIs(t, err, pipeline.ErrCommitFailed)
}

func TestRun_OutcomesAreCounted(t *testing.T) {
	t.Parallel()

	outcomes := []pipeline.Outcome{pipeline.Created, pipeline.Merged, pipeline.Duplicate, pipeline.Duplicate}
	i := 0
	step := func(context.Context, *fakeTx, map[string]any) (pipeline.Applied, error) {
		o := outcomes[i]
		i++
		return pipeline.Applied{Outcome: o, ID: "id"}, nil
	}
	tx := &fakeTx{}
	r := runner(nil)
	called := false
	r.AfterCommit = func(context.Context, pipeline.Owner) { called = true }

	res, err := pipeline.Run(context.Background(), r, func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 1}, batch(4), step)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Merged)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, []string{"id"}, res.CreatedIDs)
	assert.True(t, called)
}

func TestRun_DuplicateKeyRaceIsRetriedOnce(t *testing.T) {
	t.Parallel()

	attempts := 0
	step := func(context.Context, *fakeTx, map[string]any) (pipeline.Applied, error) {
		attempts++
		if attempts == 1 {
			return pipeline.Applied{}, fmt.Errorf("insert: %w", pipeline.ErrDuplicateKey)
		}
		return pipeline.Applied{Outcome: pipeline.Duplicate}, nil
	}
	tx := &fakeTx{}
	res, err := pipeline.Run(context.Background(), runner(nil), func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 1}, batch(1), step)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, tx.rollbacksTo)
}

func TestRun_DeadlineFailsRemainingRecords(t *testing.T) {
	t.Parallel()

	r := runner(nil)
	r.Deadline = 30 * time.Millisecond
	step := func(ctx context.Context, _ *fakeTx, raw map[string]any) (pipeline.Applied, error) {
		if raw["n"] == 1 {
			<-ctx.Done()
			return pipeline.Applied{}, ctx.Err()
		}
		return pipeline.Applied{Outcome: pipeline.Created, ID: fmt.Sprint(raw["n"])}, nil
	}
	tx := &fakeTx{}
	res, err := pipeline.Run(context.Background(), r, func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 1}, batch(4), step)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Saved)
	require.Len(t, res.Errors, 3)
	for _, e := range res.Errors {
		assert.Equal(t, "batch deadline exceeded", e.Reason)
	}
	assert.True(t, tx.committed, "work done before the deadline is kept")
}

func TestRun_NonObjectEntriesRejectedOneByOne(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	step := func(_ context.Context, _ *fakeTx, raw map[string]any) (pipeline.Applied, error) {
		return pipeline.Applied{Outcome: pipeline.Created, ID: fmt.Sprint(raw["n"])}, nil
	}
	raws := []any{map[string]any{"n": 1}, "garbage", float64(3), []any{"x"}, nil, map[string]any{"n": 2}}

	res, err := pipeline.Run(context.Background(), runner(nil), func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 4}, raws, step)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, []string{"1", "2"}, res.CreatedIDs)
	require.Len(t, res.Errors, 4)
	for i, e := range res.Errors {
		assert.Equal(t, i+1, e.Index)
		assert.Equal(t, "entry must be an object", e.Reason)
	}
	assert.Equal(t, "garbage", res.Errors[0].Input)
	assert.Equal(t, 2, tx.savepoints)
	assert.True(t, tx.committed)
}

func TestRun_EmptyBatchTouchesLastSync(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	res, err := pipeline.Run(context.Background(), runner(nil), func(context.Context) (*fakeTx, error) { return tx, nil },
		pipeline.Owner{UserID: 4}, nil,
		func(context.Context, *fakeTx, map[string]any) (pipeline.Applied, error) {
			return pipeline.Applied{}, nil
		})
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	assert.NotNil(t, res.Errors)
	assert.True(t, tx.committed)
	assert.Contains(t, tx.touched, uint(4))
}

type stubIngester struct{ kind pipeline.Kind }

func (s stubIngester) Ingest(context.Context, pipeline.Owner, []any) (pipeline.Result, error) {
	return pipeline.Result{Kind: s.kind}, nil
}

func TestRegistry_Dispatch(t *testing.T) {
	t.Parallel()

	reg := pipeline.Registry{
		pipeline.KindCallLog:    stubIngester{pipeline.KindCallLog},
		pipeline.KindAttendance: stubIngester{pipeline.KindAttendance},
	}
	res, err := reg.IngestBatch(context.Background(), pipeline.Owner{}, pipeline.KindAttendance, nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindAttendance, res.Kind)

	_, err = reg.IngestBatch(context.Background(), pipeline.Owner{}, "sms", nil)
	assert.Error(t, err)
}
