package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

type odRequestDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	StudentEmail string             `bson:"student_email"`
	Name         string             `bson:"name"`
	DeptName     string             `bson:"dept_name"`
	RollNo       string             `bson:"roll_no"`
	Section      string             `bson:"section"`
	Reason       string             `bson:"reason"`
	Venue        string             `bson:"venue"`
	Description  string             `bson:"description"`
	Status       string             `bson:"status"`
	AppliedAt    time.Time          `bson:"applied_at"`
}

type statusCount struct {
	Status string `bson:"_id"`
	Count  int64  `bson:"count"`
}

type mongoODRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoODRequestRepository constructs a repository backed by a MongoDB collection.
func NewMongoODRequestRepository(collection *mongo.Collection) ODRequestRepository {
	return &mongoODRequestRepository{collection: collection}
}

func (r *mongoODRequestRepository) Create(ctx context.Context, request *models.ODRequest) error {
	doc := newODRequestDocument(*request)
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert od request: %w", err)
	}

	request.ID = doc.ID.Hex()
	return nil
}

func (r *mongoODRequestRepository) List(ctx context.Context, filter ODRequestFilter) ([]models.ODRequest, error) {
	query := bson.M{}
	if filter.RollNo != "" {
		query["roll_no"] = filter.RollNo
	}
	if filter.StudentEmail != "" {
		query["student_email"] = filter.StudentEmail
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find od requests: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []odRequestDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode od requests: %w", err)
	}

	out := make([]models.ODRequest, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toModel())
	}
	return out, nil
}

func (r *mongoODRequestRepository) FindByID(ctx context.Context, id string) (models.ODRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ODRequest{}, ErrInvalidID
	}

	var doc odRequestDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ODRequest{}, ErrNotFound
		}
		return models.ODRequest{}, fmt.Errorf("find od request: %w", err)
	}

	return doc.toModel(), nil
}

func (r *mongoODRequestRepository) UpdateStatus(ctx context.Context, id string, current, next models.ODStatus) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrInvalidID
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(current)},
		bson.M{"$set": bson.M{"status": string(next)}},
	)
	if err != nil {
		return false, fmt.Errorf("update od request status: %w", err)
	}

	return result.MatchedCount > 0, nil
}

func (r *mongoODRequestRepository) CountByStatus(ctx context.Context) (map[models.ODStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate od request status counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []statusCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode od request status counts: %w", err)
	}

	counts := make(map[models.ODStatus]int64, len(rows))
	for _, row := range rows {
		counts[models.ODStatus(row.Status)] += row.Count
	}
	return counts, nil
}

func (r *mongoODRequestRepository) Ping(ctx context.Context) error {
	return r.collection.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

func newODRequestDocument(request models.ODRequest) odRequestDocument {
	return odRequestDocument{
		StudentEmail: request.StudentEmail,
		Name:         request.Name,
		DeptName:     request.DeptName,
		RollNo:       request.RollNo,
		Section:      request.Section,
		Reason:       request.Reason,
		Venue:        request.Venue,
		Description:  request.Description,
		Status:       string(request.Status),
		AppliedAt:    request.AppliedAt,
	}
}

func (d odRequestDocument) toModel() models.ODRequest {
	return models.ODRequest{
		ID:           d.ID.Hex(),
		StudentEmail: d.StudentEmail,
		Name:         d.Name,
		DeptName:     d.DeptName,
		RollNo:       d.RollNo,
		Section:      d.Section,
		Reason:       d.Reason,
		Venue:        d.Venue,
		Description:  d.Description,
		Status:       models.ODStatus(d.Status),
		AppliedAt:    d.AppliedAt.UTC(),
	}
}
