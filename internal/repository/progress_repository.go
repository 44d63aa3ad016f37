package repository

import (
	"context"
	"fmt"

	"degree-service/internal/errs"
	"degree-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProgressRepository persists one progress mirror document per
// (user, degree) pair, whole-document reads and writes with optimistic
// versioning.
type ProgressRepository struct {
	Col *mongo.Collection
}

func NewProgressRepository(db *mongo.Database) *ProgressRepository {
	return &ProgressRepository{Col: db.Collection("progress")}
}

// EnsureIndexes creates the unique (user, degree) index that backs the
// one-document-per-pair invariant.
func (r *ProgressRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "degree_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ProgressRepository) FindByUserAndDegree(ctx context.Context, userID, degreeID string) (*models.DegreeProgress, error) {
	var mirror models.DegreeProgress
	err := r.Col.FindOne(ctx, bson.M{"user_id": userID, "degree_id": degreeID}).Decode(&mirror)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &mirror, nil
}

// Save inserts a fresh mirror or replaces an existing one guarded by its
// version. A lost race surfaces as ErrConflict so the caller can reload
// and retry.
func (r *ProgressRepository) Save(ctx context.Context, mirror *models.DegreeProgress) error {
	if mirror.ID == "" {
		mirror.ID = primitive.NewObjectID().Hex()
		mirror.Version = 1
		_, err := r.Col.InsertOne(ctx, mirror)
		if mongo.IsDuplicateKeyError(err) {
			mirror.ID = ""
			mirror.Version = 0
			return fmt.Errorf("mirror already created for user %s degree %s: %w",
				mirror.UserID, mirror.DegreeID, errs.ErrConflict)
		}
		return err
	}

	prev := mirror.Version
	mirror.Version = prev + 1
	res, err := r.Col.ReplaceOne(ctx, bson.M{"_id": mirror.ID, "version": prev}, mirror)
	if err != nil {
		mirror.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		mirror.Version = prev
		return fmt.Errorf("mirror version %d superseded: %w", prev, errs.ErrConflict)
	}
	return nil
}
