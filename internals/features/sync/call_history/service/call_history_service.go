package service

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/call_history/dto"
	"callmanager_backend/internals/features/sync/call_history/model"
	"callmanager_backend/internals/features/sync/call_history/repository"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
)

// SyncTx is what a call log batch needs from its transaction.
type SyncTx interface {
	pipeline.Tx
	CallExists(key dedup.CallKey) (bool, error)
	InsertCall(rec *model.CallHistoryModel) error
}

type Store interface {
	Begin(ctx context.Context) (SyncTx, error)
}

type gormStore struct {
	repo *repository.Store
}

// NewGormStore backs an Ingester with postgres.
func NewGormStore(db *gorm.DB) Store {
	return gormStore{repo: repository.NewStore(db)}
}

func (g gormStore) Begin(ctx context.Context) (SyncTx, error) {
	tx, err := g.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Ingester stores call log batches. Repeats of a natural key are no-ops:
// stored calls are never updated by a later sync.
type Ingester struct {
	store  Store
	runner pipeline.Runner
}

func NewIngester(store Store, runner pipeline.Runner) *Ingester {
	runner.Kind = pipeline.KindCallLog
	return &Ingester{store: store, runner: runner}
}

func (s *Ingester) Ingest(ctx context.Context, owner pipeline.Owner, raws []any) (pipeline.Result, error) {
	// keys stored by this batch, so in-batch repeats skip the lookup
	seen := make(map[dedup.CallKey]struct{}, len(raws))

	step := func(ctx context.Context, tx SyncTx, raw map[string]any) (pipeline.Applied, error) {
		entry, err := dto.ParseEntry(raw)
		if err != nil {
			return pipeline.Applied{}, pipeline.Reject(err.Error())
		}
		rec := entry.ToModel(owner.UserID)
		key := dedup.CallKeyOf(&rec)

		if _, ok := seen[key]; ok {
			return pipeline.Applied{Outcome: pipeline.Duplicate}, nil
		}
		exists, err := tx.CallExists(key)
		if err != nil {
			return pipeline.Applied{}, err
		}
		if exists {
			seen[key] = struct{}{}
			return pipeline.Applied{Outcome: pipeline.Duplicate}, nil
		}
		if err := tx.InsertCall(&rec); err != nil {
			return pipeline.Applied{}, err
		}
		seen[key] = struct{}{}
		return pipeline.Applied{Outcome: pipeline.Created, ID: strconv.FormatUint(uint64(rec.ID), 10)}, nil
	}

	return pipeline.Run[SyncTx](ctx, &s.runner, s.store.Begin, owner, raws, step)
}
