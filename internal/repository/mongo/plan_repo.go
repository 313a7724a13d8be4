// internal/repository/mongo/plan_repo.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "training_plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a decoded plan. The plan must already carry its plan_id.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	if plan.AthleteID == "" || plan.Meta.PlanID == "" {
		return errors.New("plan requires athleteId and meta.plan_id")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.ImportedAt = now
	plan.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, plan); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByPlanID retrieves a single plan of an athlete.
func (r *mongoPlanRepository) GetByPlanID(ctx context.Context, athleteID, planID string) (*domain.Plan, error) {
	var plan domain.Plan
	filter := bson.M{"athleteId": athleteID, "meta.plan_id": planID}
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByAthlete retrieves all plans of an athlete, newest import first.
func (r *mongoPlanRepository) ListByAthlete(ctx context.Context, athleteID string) ([]domain.Plan, error) {
	var plans []domain.Plan
	findOptions := options.Find().SetSort(bson.D{{Key: "importedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"athleteId": athleteID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	// Return empty slice if no plans found (not an error)
	return plans, nil
}

// UpdateDayStatus sets completion fields of one day, addressed by position.
func (r *mongoPlanRepository) UpdateDayStatus(ctx context.Context, athleteID, planID string, weekPos, dayPos int, update repository.DayStatusUpdate) error {
	if weekPos < 0 || dayPos < 0 {
		return repository.ErrNotFound
	}
	dayPath := fmt.Sprintf("schedule.%d.days.%d", weekPos, dayPos)

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.IsCompleted != nil {
		set[dayPath+".is_completed"] = *update.IsCompleted
	}
	if update.IsMissed != nil {
		set[dayPath+".is_missed"] = *update.IsMissed
	}
	if update.MatchedActivityID != nil {
		set[dayPath+".matched_activity_id"] = *update.MatchedActivityID
	}

	// The $exists guard keeps $set from creating days that were never planned.
	filter := bson.M{
		"athleteId":    athleteID,
		"meta.plan_id": planID,
		dayPath:        bson.M{"$exists": true},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		log.Printf("ERROR: Failed to update %s of plan %s: %v", dayPath, planID, err)
		return repository.ErrUpdateFailed
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// A generator plan_id is unique per athlete
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "meta.plan_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "importedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
