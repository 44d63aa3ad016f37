package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"
	"degree-service/internal/repository"

	"github.com/redis/go-redis/v9"
)

// ContentOracle is the engines' read-only view of the authored tree.
type ContentOracle interface {
	GetTree(ctx context.Context, degreeID string) (*models.Degree, error)
	GetQuestionSet(ctx context.Context, degreeID string, kind models.NodeKind, nodeID string) ([]models.Question, error)
}

const degreeTreeCacheTTL = 5 * time.Minute

// DegreeService serves the content tree, with a Redis cache in front of
// the degrees collection. Cache failures fall through to Mongo; the cache
// is never load-bearing.
type DegreeService struct {
	Repo  *repository.DegreeRepository
	Cache *redis.Client
}

func NewDegreeService(repo *repository.DegreeRepository, cache *redis.Client) *DegreeService {
	return &DegreeService{Repo: repo, Cache: cache}
}

func (s *DegreeService) ListDegrees(ctx context.Context) ([]models.Degree, error) {
	degrees, err := s.Repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list degrees: %v: %w", err, errs.ErrUpstream)
	}
	return degrees, nil
}

func (s *DegreeService) GetTree(ctx context.Context, degreeID string) (*models.Degree, error) {
	key := "degree:tree:" + degreeID
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, key).Bytes(); err == nil {
			var degree models.Degree
			if err := json.Unmarshal(raw, &degree); err == nil {
				return &degree, nil
			}
		}
	}

	degree, err := s.Repo.FindByID(ctx, degreeID)
	if err != nil {
		return nil, fmt.Errorf("load degree %s: %v: %w", degreeID, err, errs.ErrUpstream)
	}
	if degree == nil {
		return nil, fmt.Errorf("degree %s: %w", degreeID, errs.ErrNotFound)
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(degree); err == nil {
			if err := s.Cache.Set(ctx, key, raw, degreeTreeCacheTTL).Err(); err != nil {
				log.Printf("degree cache set failed: %v", err)
			}
		}
	}
	return degree, nil
}

func (s *DegreeService) GetQuestionSet(ctx context.Context, degreeID string, kind models.NodeKind, nodeID string) ([]models.Question, error) {
	degree, err := s.GetTree(ctx, degreeID)
	if err != nil {
		return nil, err
	}
	questions, ok := degree.QuestionSet(kind, nodeID)
	if !ok {
		return nil, fmt.Errorf("%s %s in degree %s: %w", kind, nodeID, degreeID, errs.ErrNotFound)
	}
	return questions, nil
}
