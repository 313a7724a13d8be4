package repository

import (
	"context"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain" // Import our defined domain models
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// DayStatusUpdate carries the completion state an external sync (or the
// athlete) sets on a single plan day. Nil fields are left unchanged.
type DayStatusUpdate struct {
	IsCompleted       *bool
	IsMissed          *bool
	MatchedActivityID *domain.ActivityRef
}

// PlanRepository defines the interface for interacting with decoded plans.
// Plans are addressed by their meta.plan_id and always scoped to an athlete.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByPlanID(ctx context.Context, athleteID, planID string) (*domain.Plan, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]domain.Plan, error)
	// UpdateDayStatus addresses the day by its position in the schedule
	// (0-based week and day positions), not by its encoded day_index.
	UpdateDayStatus(ctx context.Context, athleteID, planID string, weekPos, dayPos int, update DayStatusUpdate) error
}

// ActivityRepository defines the interface for synced activity records.
type ActivityRepository interface {
	Upsert(ctx context.Context, athleteID string, activities []domain.Activity) (int, error)
	GetByActivityID(ctx context.Context, athleteID string, activityID int64) (*domain.Activity, error)
	// ListSince returns the athlete's activities that started at or after since, newest first.
	ListSince(ctx context.Context, athleteID string, since time.Time) ([]domain.Activity, error)
}
