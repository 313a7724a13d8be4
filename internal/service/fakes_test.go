package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
)

// memPlanRepo is an in-memory repository.PlanRepository.
type memPlanRepo struct {
	mu        sync.Mutex
	plans     map[string]domain.Plan // athleteID/planID
	createErr error
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: map[string]domain.Plan{}}
}

func (r *memPlanRepo) Create(_ context.Context, plan *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	key := plan.AthleteID + "/" + plan.Meta.PlanID
	if _, ok := r.plans[key]; ok {
		return repository.ErrDuplicate
	}
	plan.ImportedAt = time.Now().UTC()
	r.plans[key] = *plan
	return nil
}

func (r *memPlanRepo) GetByPlanID(_ context.Context, athleteID, planID string) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan, ok := r.plans[athleteID+"/"+planID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &plan, nil
}

func (r *memPlanRepo) ListByAthlete(_ context.Context, athleteID string) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	plans := []domain.Plan{}
	for _, p := range r.plans {
		if p.AthleteID == athleteID {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (r *memPlanRepo) UpdateDayStatus(_ context.Context, athleteID, planID string, weekPos, dayPos int, update repository.DayStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := athleteID + "/" + planID
	plan, ok := r.plans[key]
	if !ok || weekPos >= len(plan.Schedule) || dayPos >= len(plan.Schedule[weekPos].Days) {
		return repository.ErrNotFound
	}
	// Copy the nested slices so stored plans are not shared with callers.
	schedule := make([]domain.Week, len(plan.Schedule))
	copy(schedule, plan.Schedule)
	days := make([]domain.Day, len(schedule[weekPos].Days))
	copy(days, schedule[weekPos].Days)

	day := &days[dayPos]
	if update.IsCompleted != nil {
		day.IsCompleted = *update.IsCompleted
	}
	if update.IsMissed != nil {
		day.IsMissed = *update.IsMissed
	}
	if update.MatchedActivityID != nil {
		day.MatchedActivityID = *update.MatchedActivityID
	}
	schedule[weekPos].Days = days
	plan.Schedule = schedule
	r.plans[key] = plan
	return nil
}

// memArchive is an in-memory storage.PlanArchive.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemArchive() *memArchive {
	return &memArchive{objects: map[string][]byte{}}
}

func (a *memArchive) PutRawPlan(_ context.Context, objectKey string, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.putErr != nil {
		return a.putErr
	}
	a.objects[objectKey] = append([]byte(nil), payload...)
	return nil
}

func (a *memArchive) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.objects[objectKey]; !ok {
		return "", errors.New("no such key")
	}
	return "https://archive.test/" + objectKey + "?signature=x", nil
}

func (a *memArchive) DeleteObject(_ context.Context, objectKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, objectKey)
	return nil
}

func (a *memArchive) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// memActivityRepo is an in-memory repository.ActivityRepository.
type memActivityRepo struct {
	mu         sync.Mutex
	activities map[string]map[int64]domain.Activity
}

func newMemActivityRepo() *memActivityRepo {
	return &memActivityRepo{activities: map[string]map[int64]domain.Activity{}}
}

func (r *memActivityRepo) Upsert(_ context.Context, athleteID string, activities []domain.Activity) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activities[athleteID] == nil {
		r.activities[athleteID] = map[int64]domain.Activity{}
	}
	for _, a := range activities {
		a.AthleteID = athleteID
		r.activities[athleteID][a.ID] = a
	}
	return len(activities), nil
}

func (r *memActivityRepo) GetByActivityID(_ context.Context, athleteID string, activityID int64) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[athleteID][activityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memActivityRepo) ListSince(_ context.Context, athleteID string, since time.Time) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Activity{}
	for _, a := range r.activities[athleteID] {
		if !a.StartDate.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}
