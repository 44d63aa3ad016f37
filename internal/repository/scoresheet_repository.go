package repository

import (
	"context"
	"fmt"
	"time"

	"degree-service/internal/errs"
	"degree-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScoreSheetRepository persists one score sheet document per
// (user, degree) pair with the same optimistic-versioning contract as the
// progress repository. Serializing writers through the version guard is
// what keeps the attempt cap intact under concurrent submissions.
type ScoreSheetRepository struct {
	Col *mongo.Collection
}

func NewScoreSheetRepository(db *mongo.Database) *ScoreSheetRepository {
	return &ScoreSheetRepository{Col: db.Collection("scoresheets")}
}

func (r *ScoreSheetRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "degree_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ScoreSheetRepository) FindByUserAndDegree(ctx context.Context, userID, degreeID string) (*models.ScoreSheet, error) {
	var sheet models.ScoreSheet
	err := r.Col.FindOne(ctx, bson.M{"user_id": userID, "degree_id": degreeID}).Decode(&sheet)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &sheet, nil
}

func (r *ScoreSheetRepository) FindByDegree(ctx context.Context, degreeID string) ([]models.ScoreSheet, error) {
	cur, err := r.Col.Find(ctx, bson.M{"degree_id": degreeID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var sheets []models.ScoreSheet
	for cur.Next(ctx) {
		var s models.ScoreSheet
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func (r *ScoreSheetRepository) Save(ctx context.Context, sheet *models.ScoreSheet) error {
	if sheet.ID == "" {
		sheet.ID = primitive.NewObjectID().Hex()
		sheet.Version = 1
		sheet.CreatedAt = time.Now()
		_, err := r.Col.InsertOne(ctx, sheet)
		if mongo.IsDuplicateKeyError(err) {
			sheet.ID = ""
			sheet.Version = 0
			return fmt.Errorf("score sheet already created for user %s degree %s: %w",
				sheet.UserID, sheet.DegreeID, errs.ErrConflict)
		}
		return err
	}

	prev := sheet.Version
	sheet.Version = prev + 1
	res, err := r.Col.ReplaceOne(ctx, bson.M{"_id": sheet.ID, "version": prev}, sheet)
	if err != nil {
		sheet.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		sheet.Version = prev
		return fmt.Errorf("score sheet version %d superseded: %w", prev, errs.ErrConflict)
	}
	return nil
}
