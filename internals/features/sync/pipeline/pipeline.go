// Package pipeline runs one device sync batch: every record is processed on its
// own savepoint so a bad record never poisons the rest, and the whole batch is
// committed exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/helpers/events"
	"callmanager_backend/internals/helpers/metrics"
)

type Kind string

const (
	KindCallLog    Kind = "call_log"
	KindAttendance Kind = "attendance"
)

var (
	ErrCommitFailed  = errors.New("batch commit failed")
	ErrBatchDeadline = errors.New("batch deadline exceeded")
	// ErrDuplicateKey is returned by stores when an insert hits the natural key
	// constraint, i.e. a concurrent batch stored the same record first.
	ErrDuplicateKey = errors.New("natural key already stored")
	ErrNotObject    = errors.New("entry must be an object")
)

// Owner identifies whose batch this is.
type Owner struct {
	UserID  uint
	AdminID uint
}

type Outcome int

const (
	Created Outcome = iota + 1
	Merged
	Duplicate
)

// Applied is what a step did with one record.
type Applied struct {
	Outcome Outcome
	ID      string
	// Files written while applying the record, removed again if the batch
	// does not commit.
	Files []string
}

// RecordError is a per-record failure whose Reason is safe to return to the client.
type RecordError struct {
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *RecordError) Unwrap() error { return e.Err }

func Reject(reason string) error { return &RecordError{Reason: reason} }

func Rejectf(err error, format string, args ...any) error {
	return &RecordError{Reason: fmt.Sprintf(format, args...), Err: err}
}

type EntryError struct {
	Index  int    `json:"index"`
	Input  any    `json:"entry"`
	Reason string `json:"error"`
}

type Result struct {
	Kind       Kind         `json:"kind"`
	Saved      int          `json:"saved"`
	Merged     int          `json:"merged"`
	Duplicates int          `json:"duplicates"`
	CreatedIDs []string     `json:"created_ids"`
	Errors     []EntryError `json:"errors"`
	SyncedAt   time.Time    `json:"synced_at"`
}

// Tx is the unit of work a batch runs in.
type Tx interface {
	Savepoint(name string) error
	RollbackTo(name string) error
	TouchLastSync(userID uint, at time.Time) error
	Commit() error
	Rollback() error
}

// Step applies one raw record inside tx.
type Step[T Tx] func(ctx context.Context, tx T, raw map[string]any) (Applied, error)

type Runner struct {
	Kind     Kind
	Deadline time.Duration
	Clock    dbtime.Clock
	Events   events.Publisher
	Log      *zap.Logger
	// AfterCommit runs once the batch is durable (cache invalidation).
	AfterCommit func(ctx context.Context, owner Owner)
	// Discard removes files written by a batch that did not commit.
	Discard func(paths []string)
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return dbtime.SystemClock()
}

func (r *Runner) logger() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.L()
}

const savepoint = "sync_record"

// Run processes raws in order. An entry that is not a JSON object is rejected
// on its own. Per-record failures land in Result.Errors and
// the rest of the batch still commits. A failure of the batch itself (begin,
// savepoint, last_sync or commit) rolls everything back and returns an error
// wrapping ErrCommitFailed.
func Run[T Tx](ctx context.Context, r *Runner, begin func(context.Context) (T, error), owner Owner, raws []any, step Step[T]) (Result, error) {
	started := time.Now()
	log := r.logger().With(zap.String("kind", string(r.Kind)), zap.Uint("user_id", owner.UserID))
	res := Result{Kind: r.Kind, CreatedIDs: []string{}, Errors: []EntryError{}}

	tx, err := begin(ctx)
	if err != nil {
		metrics.SyncCommitFailures.WithLabelValues(string(r.Kind)).Inc()
		return res, fmt.Errorf("%w: begin: %v", ErrCommitFailed, err)
	}

	runCtx := ctx
	if r.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Deadline)
		defer cancel()
	}

	var files []string
	fail := func(cause error) (Result, error) {
		_ = tx.Rollback()
		if r.Discard != nil && len(files) > 0 {
			r.Discard(files)
		}
		metrics.SyncCommitFailures.WithLabelValues(string(r.Kind)).Inc()
		log.Error("sync batch rolled back", zap.Error(cause))
		return Result{Kind: r.Kind, CreatedIDs: []string{}, Errors: []EntryError{}}, fmt.Errorf("%w: %v", ErrCommitFailed, cause)
	}

	for i, entry := range raws {
		if runCtx.Err() != nil {
			for j := i; j < len(raws); j++ {
				res.Errors = append(res.Errors, EntryError{Index: j, Input: raws[j], Reason: ErrBatchDeadline.Error()})
			}
			log.Warn("sync batch deadline reached", zap.Int("processed", i), zap.Int("total", len(raws)))
			break
		}

		raw, ok := entry.(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, EntryError{Index: i, Input: entry, Reason: ErrNotObject.Error()})
			continue
		}
		if err := tx.Savepoint(savepoint); err != nil {
			return fail(err)
		}
		applied, err := step(runCtx, tx, raw)
		if errors.Is(err, ErrDuplicateKey) {
			// lost a race with a concurrent batch; the row is visible now, so
			// one more pass takes the duplicate/merge path
			if rbErr := tx.RollbackTo(savepoint); rbErr != nil {
				return fail(rbErr)
			}
			if r.Discard != nil && len(applied.Files) > 0 {
				r.Discard(applied.Files)
			}
			applied, err = step(runCtx, tx, raw)
		}
		if err != nil {
			if rbErr := tx.RollbackTo(savepoint); rbErr != nil {
				return fail(rbErr)
			}
			if r.Discard != nil && len(applied.Files) > 0 {
				r.Discard(applied.Files)
			}
			res.Errors = append(res.Errors, EntryError{Index: i, Input: raw, Reason: reasonOf(err)})
			var re *RecordError
			if !errors.As(err, &re) {
				log.Warn("sync record failed", zap.Int("index", i), zap.Error(err))
			}
			continue
		}

		files = append(files, applied.Files...)
		switch applied.Outcome {
		case Created:
			res.Saved++
			if applied.ID != "" {
				res.CreatedIDs = append(res.CreatedIDs, applied.ID)
			}
		case Merged:
			res.Merged++
		case Duplicate:
			res.Duplicates++
		}
	}

	res.SyncedAt = r.now()
	if err := tx.TouchLastSync(owner.UserID, res.SyncedAt); err != nil {
		return fail(err)
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}

	kind := string(r.Kind)
	metrics.SyncRecordsTotal.WithLabelValues(kind, metrics.OutcomeSaved).Add(float64(res.Saved))
	metrics.SyncRecordsTotal.WithLabelValues(kind, metrics.OutcomeMerged).Add(float64(res.Merged))
	metrics.SyncRecordsTotal.WithLabelValues(kind, metrics.OutcomeDuplicate).Add(float64(res.Duplicates))
	metrics.SyncRecordsTotal.WithLabelValues(kind, metrics.OutcomeFailed).Add(float64(len(res.Errors)))
	metrics.SyncBatchSeconds.WithLabelValues(kind).Observe(time.Since(started).Seconds())

	if r.AfterCommit != nil && (res.Saved > 0 || res.Merged > 0) {
		r.AfterCommit(ctx, owner)
	}
	if r.Events != nil {
		ev := events.SyncCompleted{
			Kind:       kind,
			UserID:     owner.UserID,
			AdminID:    owner.AdminID,
			Saved:      res.Saved,
			Merged:     res.Merged,
			Duplicates: res.Duplicates,
			Errors:     len(res.Errors),
			At:         res.SyncedAt,
		}
		if err := r.Events.PublishSyncCompleted(context.WithoutCancel(ctx), ev); err != nil {
			log.Warn("publish sync event failed", zap.Error(err))
		}
	}

	log.Info("sync batch committed",
		zap.Int("records", len(raws)),
		zap.Int("saved", res.Saved),
		zap.Int("merged", res.Merged),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

func reasonOf(err error) string {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBatchDeadline.Error()
	}
	if errors.Is(err, ErrDuplicateKey) {
		return "conflicting concurrent write, retry the record"
	}
	return "failed to store record"
}
