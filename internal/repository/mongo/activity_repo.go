// internal/repository/mongo/activity_repo.go
package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityCollectionName = "activities"

// mongoActivityRepository implements repository.ActivityRepository
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new Activity repository.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// Upsert stores synced activities, replacing earlier copies of the same
// provider activity. It returns the number of activities written.
func (r *mongoActivityRepository) Upsert(ctx context.Context, athleteID string, activities []domain.Activity) (int, error) {
	if athleteID == "" {
		return 0, errors.New("athlete ID is required")
	}
	if len(activities) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(activities))
	for _, a := range activities {
		a.ObjectID = primitive.NilObjectID // the stored document keeps its _id
		a.AthleteID = athleteID
		a.SyncedAt = now
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"athleteId": athleteID, "activityId": a.ID}).
			SetReplacement(a).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		log.Printf("ERROR: Failed to upsert %d activities for athlete %s: %v", len(activities), athleteID, err)
		return 0, err
	}
	return int(result.UpsertedCount + result.MatchedCount), nil
}

// GetByActivityID retrieves one activity by its provider ID.
func (r *mongoActivityRepository) GetByActivityID(ctx context.Context, athleteID string, activityID int64) (*domain.Activity, error) {
	var activity domain.Activity
	filter := bson.M{"athleteId": athleteID, "activityId": activityID}
	err := r.collection.FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// ListSince retrieves the athlete's activities started at or after since.
func (r *mongoActivityRepository) ListSince(ctx context.Context, athleteID string, since time.Time) ([]domain.Activity, error) {
	var activities []domain.Activity
	filter := bson.M{
		"athleteId": athleteID,
		"startDate": bson.M{"$gte": since},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// EnsureActivityIndexes creates necessary indexes. Call during startup.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "activityId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Baseline queries read recent activities per athlete
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "startDate", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
