package repository

import (
	"context"

	"degree-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DegreeRepository is the read side of the authored content tree. The
// authoring service owns writes to this collection.
type DegreeRepository struct {
	Col *mongo.Collection
}

func NewDegreeRepository(db *mongo.Database) *DegreeRepository {
	return &DegreeRepository{Col: db.Collection("degrees")}
}

func (r *DegreeRepository) FindByID(ctx context.Context, id string) (*models.Degree, error) {
	var degree models.Degree
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&degree)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &degree, nil
}

func (r *DegreeRepository) FindAll(ctx context.Context) ([]models.Degree, error) {
	cur, err := r.Col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var degrees []models.Degree
	for cur.Next(ctx) {
		var d models.Degree
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		degrees = append(degrees, d)
	}
	return degrees, nil
}
