package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"
	"degree-service/internal/scoring"
)

// ScoreSheetStore is the persistence contract for score sheets, with the
// same find/save semantics as ProgressStore.
type ScoreSheetStore interface {
	FindByUserAndDegree(ctx context.Context, userID, degreeID string) (*models.ScoreSheet, error)
	FindByDegree(ctx context.Context, degreeID string) ([]models.ScoreSheet, error)
	Save(ctx context.Context, sheet *models.ScoreSheet) error
}

type ScoringService struct {
	Store  ScoreSheetStore
	Oracle ContentOracle
	engine *scoring.Manager
}

func NewScoringService(store ScoreSheetStore, oracle ContentOracle) *ScoringService {
	return &ScoringService{
		Store:  store,
		Oracle: oracle,
		engine: scoring.NewManager(),
	}
}

// SubmitAttempt grades a submission against the node's question set and
// appends it to the user's attempt ledger. Grading happens before any
// persistence, and the sheet is written as one document, so a failed
// submission never leaves a partial attempt behind.
func (s *ScoringService) SubmitAttempt(ctx context.Context, userID, degreeID string, kind models.NodeKind, nodeID string, answers []scoring.SubmittedAnswer) (*models.ScoreSheet, error) {
	if userID == "" || degreeID == "" || nodeID == "" {
		return nil, fmt.Errorf("user, degree and node ids are required: %w", errs.ErrValidation)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown node kind %q: %w", kind, errs.ErrValidation)
	}

	questions, err := s.Oracle.GetQuestionSet(ctx, degreeID, kind, nodeID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%s %s has no test: %w", kind, nodeID, errs.ErrNotFound)
	}

	graded, err := s.engine.Grade(questions, answers)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(writeRetryDelay * time.Duration(attempt))
		}

		sheet, err := s.Store.FindByUserAndDegree(ctx, userID, degreeID)
		if err != nil {
			return nil, fmt.Errorf("load score sheet: %v: %w", err, errs.ErrUpstream)
		}
		if sheet == nil {
			sheet = &models.ScoreSheet{UserID: userID, DegreeID: degreeID}
		}

		if err := s.engine.RecordAttempt(sheet, kind, nodeID, graded, time.Now()); err != nil {
			return nil, err
		}

		err = s.Store.Save(ctx, sheet)
		if err == nil {
			return sheet, nil
		}
		if !errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("save score sheet: %v: %w", err, errs.ErrUpstream)
		}
		lastErr = err
	}
	return nil, lastErr
}

// AmendMarks applies manual grading corrections (answer id -> new mark) to
// the user's free-response answers and re-derives every dependent total.
// Safe to run any time after submission and idempotent for identical
// corrections.
func (s *ScoringService) AmendMarks(ctx context.Context, userID, degreeID string, corrections map[string]float64) (*models.ScoreSheet, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(writeRetryDelay * time.Duration(attempt))
		}

		sheet, err := s.Store.FindByUserAndDegree(ctx, userID, degreeID)
		if err != nil {
			return nil, fmt.Errorf("load score sheet: %v: %w", err, errs.ErrUpstream)
		}
		if sheet == nil {
			return nil, fmt.Errorf("score sheet for user %s degree %s: %w", userID, degreeID, errs.ErrNotFound)
		}

		if _, err := s.engine.ApplyCorrections(sheet, corrections); err != nil {
			return nil, err
		}

		err = s.Store.Save(ctx, sheet)
		if err == nil {
			return sheet, nil
		}
		if !errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("save score sheet: %v: %w", err, errs.ErrUpstream)
		}
		lastErr = err
	}
	return nil, lastErr
}

// ListScoreSheets returns every user's score sheet for a degree, the view
// graders work through when marking free-response answers.
func (s *ScoringService) ListScoreSheets(ctx context.Context, degreeID string) ([]models.ScoreSheet, error) {
	sheets, err := s.Store.FindByDegree(ctx, degreeID)
	if err != nil {
		return nil, fmt.Errorf("list score sheets: %v: %w", err, errs.ErrUpstream)
	}
	return sheets, nil
}

func (s *ScoringService) GetScoreSheet(ctx context.Context, userID, degreeID string) (*models.ScoreSheet, error) {
	sheet, err := s.Store.FindByUserAndDegree(ctx, userID, degreeID)
	if err != nil {
		return nil, fmt.Errorf("load score sheet: %v: %w", err, errs.ErrUpstream)
	}
	if sheet == nil {
		return nil, fmt.Errorf("score sheet for user %s degree %s: %w", userID, degreeID, errs.ErrNotFound)
	}
	return sheet, nil
}
