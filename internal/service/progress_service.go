package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"
	"degree-service/internal/progress"
)

// Write conflicts are retried a bounded number of times before surfacing
// to the caller; each retry reloads the document so the losing writer
// re-applies its change on top of the winner's state.
const (
	maxWriteRetries = 3
	writeRetryDelay = 50 * time.Millisecond
)

// ProgressStore is the persistence contract for progress mirrors.
// FindByUserAndDegree returns (nil, nil) when no mirror exists yet; Save
// must reject stale versions with errs.ErrConflict.
type ProgressStore interface {
	FindByUserAndDegree(ctx context.Context, userID, degreeID string) (*models.DegreeProgress, error)
	Save(ctx context.Context, mirror *models.DegreeProgress) error
}

type ProgressService struct {
	Store  ProgressStore
	Oracle ContentOracle
	engine *progress.Manager
}

func NewProgressService(store ProgressStore, oracle ContentOracle) *ProgressService {
	return &ProgressService{
		Store:  store,
		Oracle: oracle,
		engine: progress.NewManager(),
	}
}

// CompleteLesson marks a lesson (or one of its sub-lessons) complete for
// the user and returns the updated degree-level mirror. The mirror is
// created lazily from the live tree on first use and reconciled against it
// on every call.
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, degreeID, lessonID, subLessonID string) (*models.DegreeProgress, error) {
	if userID == "" || degreeID == "" || lessonID == "" {
		return nil, fmt.Errorf("user, degree and lesson ids are required: %w", errs.ErrValidation)
	}

	tree, err := s.Oracle.GetTree(ctx, degreeID)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(writeRetryDelay * time.Duration(attempt))
		}

		mirror, err := s.Store.FindByUserAndDegree(ctx, userID, degreeID)
		if err != nil {
			return nil, fmt.Errorf("load progress: %v: %w", err, errs.ErrUpstream)
		}
		if mirror == nil {
			mirror = s.engine.NewMirror(userID, tree)
		}
		s.engine.Reconcile(mirror, tree)

		if err := s.engine.RecordCompletion(mirror, lessonID, subLessonID); err != nil {
			return nil, err
		}

		err = s.Store.Save(ctx, mirror)
		if err == nil {
			return mirror, nil
		}
		if !errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("save progress: %v: %w", err, errs.ErrUpstream)
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetProgress returns the user's mirror for a degree, reconciled against
// the live tree. When the user has not touched the degree yet, a zeroed
// snapshot is returned without being persisted.
func (s *ProgressService) GetProgress(ctx context.Context, userID, degreeID string) (*models.DegreeProgress, error) {
	tree, err := s.Oracle.GetTree(ctx, degreeID)
	if err != nil {
		return nil, err
	}

	mirror, err := s.Store.FindByUserAndDegree(ctx, userID, degreeID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %v: %w", err, errs.ErrUpstream)
	}
	if mirror == nil {
		return s.engine.NewMirror(userID, tree), nil
	}
	s.engine.Reconcile(mirror, tree)
	return mirror, nil
}
