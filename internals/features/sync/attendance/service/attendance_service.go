package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"callmanager_backend/internals/features/sync/attendance/dto"
	"callmanager_backend/internals/features/sync/attendance/model"
	"callmanager_backend/internals/features/sync/attendance/repository"
	"callmanager_backend/internals/features/sync/dedup"
	"callmanager_backend/internals/features/sync/pipeline"
	"callmanager_backend/internals/helpers/dbtime"
	"callmanager_backend/internals/helpers/storage"
)

// SyncTx is what an attendance batch needs from its transaction.
type SyncTx interface {
	pipeline.Tx
	FindByKey(key dedup.AttendanceKey) (*model.AttendanceModel, error)
	IDTaken(id string) (bool, error)
	Insert(rec *model.AttendanceModel) error
	Update(rec *model.AttendanceModel) error
}

type Store interface {
	Begin(ctx context.Context) (SyncTx, error)
}

type gormStore struct {
	repo *repository.Store
}

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

// ImageSaver stores check-in photos. *storage.ImageStore satisfies it.
type ImageSaver interface {
	SaveBase64(ctx context.Context, adminID, userID uint, payload string) (string, error)
	Remove(rel string) error
}

// Ingester stores attendance batches. A record whose (user, check_in) is
// already stored is merged into that row instead of inserted again.
type Ingester struct {
	store  Store
	images ImageSaver
	runner pipeline.Runner
}

func NewIngester(store Store, images ImageSaver, runner pipeline.Runner) *Ingester {
	runner.Kind = pipeline.KindAttendance
	if runner.Discard == nil && images != nil {
		runner.Discard = func(paths []string) {
			for _, p := range paths {
				if err := images.Remove(p); err != nil {
					zap.L().Warn("remove orphan image failed", zap.String("path", p), zap.Error(err))
				}
			}
		}
	}
	return &Ingester{store: store, images: images, runner: runner}
}

func (s *Ingester) clock() time.Time {
	if s.runner.Clock != nil {
		return s.runner.Clock()
	}
	return dbtime.SystemClock()
}

func (s *Ingester) log() *zap.Logger {
	if s.runner.Log != nil {
		return s.runner.Log
	}
	return zap.L()
}

func (s *Ingester) Ingest(ctx context.Context, owner pipeline.Owner, raws []any) (pipeline.Result, error) {
	now := s.clock()

	step := func(ctx context.Context, tx SyncTx, raw map[string]any) (pipeline.Applied, error) {
		entry, err := dto.ParseEntry(raw)
		if err != nil {
			return pipeline.Applied{}, pipeline.Reject(err.Error())
		}
		key := dedup.AttendanceKeyOf(owner.UserID, entry.CheckIn)

		existing, err := tx.FindByKey(key)
		if err != nil {
			return pipeline.Applied{}, err
		}
		if existing != nil {
			return s.merge(ctx, tx, owner, existing, entry, now)
		}
		return s.create(ctx, tx, owner, key, entry, now)
	}

	return pipeline.Run[SyncTx](ctx, &s.runner, s.store.Begin, owner, raws, step)
}

func (s *Ingester) merge(ctx context.Context, tx SyncTx, owner pipeline.Owner, existing *model.AttendanceModel, entry dto.Entry, now time.Time) (pipeline.Applied, error) {
	patch := entry.Patch()
	var files []string
	if entry.Image != "" && existing.ImagePath == nil {
		rel, err := s.saveImage(ctx, owner, entry.Image)
		if err != nil {
			return pipeline.Applied{}, err
		}
		if rel != "" {
			patch.ImagePath = &rel
			files = append(files, rel)
		}
	}

	if !dedup.MergeAttendance(existing, patch) {
		return pipeline.Applied{Outcome: pipeline.Duplicate}, nil
	}
	existing.Synced = true
	existing.SyncTimestamp = &now
	if err := tx.Update(existing); err != nil {
		return pipeline.Applied{Files: files}, err
	}
	return pipeline.Applied{Outcome: pipeline.Merged, ID: existing.ID, Files: files}, nil
}

func (s *Ingester) create(ctx context.Context, tx SyncTx, owner pipeline.Owner, key dedup.AttendanceKey, entry dto.Entry, now time.Time) (pipeline.Applied, error) {
	id := uuid.NewString()
	if entry.ClientID != nil {
		taken, err := tx.IDTaken(*entry.ClientID)
		if err != nil {
			return pipeline.Applied{}, err
		}
		if taken {
			return pipeline.Applied{}, pipeline.Reject("id conflicts with an existing record")
		}
		id = *entry.ClientID
	}

	rec := entry.ToModel(id, owner.UserID, now)
	rec.CheckIn = key.CheckIn

	var files []string
	if entry.Image != "" {
		rel, err := s.saveImage(ctx, owner, entry.Image)
		if err != nil {
			return pipeline.Applied{}, err
		}
		if rel != "" {
			rec.ImagePath = &rel
			files = append(files, rel)
		}
	}

	if err := tx.Insert(&rec); err != nil {
		return pipeline.Applied{Files: files}, err
	}
	return pipeline.Applied{Outcome: pipeline.Created, ID: rec.ID, Files: files}, nil
}

// saveImage returns "" when the photo is dropped and the record kept.
func (s *Ingester) saveImage(ctx context.Context, owner pipeline.Owner, payload string) (string, error) {
	if s.images == nil {
		return "", nil
	}
	rel, err := s.images.SaveBase64(ctx, owner.AdminID, owner.UserID, payload)
	switch {
	case err == nil:
		return rel, nil
	case errors.Is(err, storage.ErrImageTooLarge),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrInvalidImage):
		s.log().Warn("attendance image dropped", zap.Uint("user_id", owner.UserID), zap.Error(err))
		return "", nil
	case errors.Is(err, storage.ErrImageDecodeTimeout):
		return "", pipeline.Rejectf(err, "image processing timed out")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "", err
	default:
		return "", pipeline.Rejectf(err, "failed to store image")
	}
}
