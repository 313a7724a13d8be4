// internal/service/activity_service.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
)

// --- Error Definitions ---
var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidActivity  = errors.New("activity requires an id and a type")
)

// ActivityClassification is a classification placed next to the activity
// and baseline it was computed from. Classification is nil for activities
// outside the running taxonomy.
type ActivityClassification struct {
	ActivityID     int64                        `json:"activityId"`
	Name           string                       `json:"name"`
	Type           string                       `json:"type"`
	Classification *domain.ClassificationResult `json:"classification"`
	Baseline       *domain.AthleteBaseline      `json:"baseline,omitempty"`
}

type ActivityService interface {
	SaveActivities(ctx context.Context, athleteID string, activities []domain.Activity) (int, error)
	ClassifyActivity(ctx context.Context, athleteID string, activityID int64) (*ActivityClassification, error)
	ClassifyRecent(ctx context.Context, athleteID string) ([]ActivityClassification, error)
}

// activityService implements the ActivityService interface.
type activityService struct {
	activityRepo   repository.ActivityRepository
	classifier     ActivityClassifier
	baselineWindow time.Duration
	now            func() time.Time
}

// NewActivityService creates a new instance of activityService. Activities
// started within baselineWindow form the athlete baseline.
func NewActivityService(activityRepo repository.ActivityRepository, baselineWindow time.Duration) ActivityService {
	if baselineWindow <= 0 {
		baselineWindow = 8 * 7 * 24 * time.Hour
	}
	return &activityService{
		activityRepo:   activityRepo,
		classifier:     NewActivityClassifier(),
		baselineWindow: baselineWindow,
		now:            time.Now,
	}
}

// SaveActivities stores synced activity records.
func (s *activityService) SaveActivities(ctx context.Context, athleteID string, activities []domain.Activity) (int, error) {
	if athleteID == "" {
		return 0, ErrAthleteRequired
	}
	for _, a := range activities {
		if a.ID == 0 || a.Type == "" {
			return 0, ErrInvalidActivity
		}
	}
	return s.activityRepo.Upsert(ctx, athleteID, activities)
}

// ClassifyActivity classifies one stored activity against the athlete's
// baseline, built from the other recent activities.
func (s *activityService) ClassifyActivity(ctx context.Context, athleteID string, activityID int64) (*ActivityClassification, error) {
	activity, err := s.activityRepo.GetByActivityID(ctx, athleteID, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	history, err := s.recentActivities(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	others := make([]domain.Activity, 0, len(history))
	for _, a := range history {
		if a.ID != activityID {
			others = append(others, a)
		}
	}
	baseline := BuildBaseline(others)

	return &ActivityClassification{
		ActivityID:     activity.ID,
		Name:           activity.Name,
		Type:           activity.Type,
		Classification: s.classifier.Classify(activity, baseline),
		Baseline:       baseline,
	}, nil
}

// ClassifyRecent classifies every activity in the baseline window.
func (s *activityService) ClassifyRecent(ctx context.Context, athleteID string) ([]ActivityClassification, error) {
	activities, err := s.recentActivities(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	baseline := BuildBaseline(activities)
	results := s.classifier.ClassifyAll(activities, baseline)

	out := make([]ActivityClassification, len(activities))
	for i, a := range activities {
		out[i] = ActivityClassification{
			ActivityID:     a.ID,
			Name:           a.Name,
			Type:           a.Type,
			Classification: results[i],
			Baseline:       baseline,
		}
	}
	return out, nil
}

func (s *activityService) recentActivities(ctx context.Context, athleteID string) ([]domain.Activity, error) {
	if athleteID == "" {
		return nil, ErrAthleteRequired
	}
	return s.activityRepo.ListSince(ctx, athleteID, s.now().Add(-s.baselineWindow))
}
