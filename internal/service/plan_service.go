// internal/service/plan_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
	"github.com/deweiiss/sportMe-sub001/internal/storage"
	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound          = errors.New("training plan not found")
	ErrPlanAlreadyExists     = errors.New("a training plan with this plan_id already exists")
	ErrDayNotFound           = errors.New("plan day not found")
	ErrEmptyPayload          = errors.New("plan payload is empty")
	ErrAthleteRequired       = errors.New("athlete ID is required")
	ErrRawPayloadUnavailable = errors.New("raw plan payload is not archived")
	ErrInvalidDate           = errors.New("date must use the YYYY-MM-DD format")
)

// ImportResult is a stored plan together with its decoding warnings.
type ImportResult struct {
	Plan     *domain.Plan           `json:"plan"`
	Warnings []domain.DecodeWarning `json:"warnings"`
}

// ComplianceOverview bundles the compliance report with what the UI needs
// to act on it.
type ComplianceOverview struct {
	AsOf         time.Time                `json:"asOf"`
	Report       *domain.ComplianceReport `json:"report"`
	Suggestions  []domain.Suggestion      `json:"suggestions"`
	CheckInWeeks []int                    `json:"checkInWeeks"` // week_number of finished, incomplete weeks
}

type PlanService interface {
	ImportPlan(ctx context.Context, athleteID string, payload []byte) (*ImportResult, error)
	GetPlan(ctx context.Context, athleteID, planID string) (*domain.Plan, error)
	ListPlans(ctx context.Context, athleteID string) ([]domain.Plan, error)
	UpdateDayStatus(ctx context.Context, athleteID, planID string, weekPos, dayPos int, update repository.DayStatusUpdate) (*domain.Plan, error)
	// AnalyzeCompliance evaluates the plan as of the given time; a zero asOf means now.
	AnalyzeCompliance(ctx context.Context, athleteID, planID string, asOf time.Time) (*ComplianceOverview, error)
	// AnalyzeComplianceOnDate evaluates the plan on a YYYY-MM-DD calendar day
	// of the coaching timezone.
	AnalyzeComplianceOnDate(ctx context.Context, athleteID, planID, date string) (*ComplianceOverview, error)
	GetRawPayloadURL(ctx context.Context, athleteID, planID string) (string, error)
}

// planService implements the PlanService interface.
type planService struct {
	planRepo repository.PlanRepository
	archive  storage.PlanArchive // nil when archiving is disabled
	decoder  PlanDecoder
	analyzer ComplianceAnalyzer
	location *time.Location
	now      func() time.Time
}

// NewPlanService creates a new instance of planService. archive may be nil.
func NewPlanService(planRepo repository.PlanRepository, archive storage.PlanArchive, location *time.Location) PlanService {
	if location == nil {
		location = time.UTC
	}
	return &planService{
		planRepo: planRepo,
		archive:  archive,
		decoder:  NewPlanDecoder(),
		analyzer: NewComplianceAnalyzer(),
		location: location,
		now:      time.Now,
	}
}

// ImportPlan archives, decodes and stores a generator payload.
func (s *planService) ImportPlan(ctx context.Context, athleteID string, payload []byte) (*ImportResult, error) {
	// 1. Validate Inputs
	if athleteID == "" {
		return nil, ErrAthleteRequired
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	// 2. Archive the raw payload first so rejected payloads stay inspectable
	objectKey := ""
	if s.archive != nil {
		key := path.Join("plans", athleteID, uuid.NewString()+".json")
		if err := s.archive.PutRawPlan(ctx, key, payload); err != nil {
			log.Printf("WARN: Continuing import without raw payload archive: %v", err)
		} else {
			objectKey = key
		}
	}

	// 3. Decode
	plan, warnings, err := s.decoder.DecodePlan(payload)
	if err != nil {
		return nil, err
	}
	if plan.Meta.PlanID == "" {
		plan.Meta.PlanID = uuid.NewString()
	}
	plan.AthleteID = athleteID
	plan.RawPayloadKey = objectKey

	// 4. Persist, dropping the archived copy if the plan cannot be stored
	if err := s.planRepo.Create(ctx, plan); err != nil {
		s.discardArchived(objectKey)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPlanAlreadyExists
		}
		return nil, fmt.Errorf("store plan: %w", err)
	}

	log.Printf("INFO: Imported plan %s for athlete %s with %d warning(s)", plan.Meta.PlanID, athleteID, len(warnings))
	if warnings == nil {
		warnings = []domain.DecodeWarning{}
	}
	return &ImportResult{Plan: plan, Warnings: warnings}, nil
}

func (s *planService) discardArchived(objectKey string) {
	if objectKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.archive.DeleteObject(ctx, objectKey); err != nil {
		log.Printf("ERROR: Failed to remove archived payload %s: %v", objectKey, err)
	}
}

// GetPlan retrieves one of the athlete's plans.
func (s *planService) GetPlan(ctx context.Context, athleteID, planID string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByPlanID(ctx, athleteID, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// ListPlans retrieves all plans of the athlete.
func (s *planService) ListPlans(ctx context.Context, athleteID string) ([]domain.Plan, error) {
	if athleteID == "" {
		return nil, ErrAthleteRequired
	}
	return s.planRepo.ListByAthlete(ctx, athleteID)
}

// UpdateDayStatus records completion state for one day and returns the
// updated plan.
func (s *planService) UpdateDayStatus(ctx context.Context, athleteID, planID string, weekPos, dayPos int, update repository.DayStatusUpdate) (*domain.Plan, error) {
	plan, err := s.GetPlan(ctx, athleteID, planID)
	if err != nil {
		return nil, err
	}
	if weekPos < 0 || weekPos >= len(plan.Schedule) || dayPos < 0 || dayPos >= len(plan.Schedule[weekPos].Days) {
		return nil, ErrDayNotFound
	}

	if err := s.planRepo.UpdateDayStatus(ctx, athleteID, planID, weekPos, dayPos, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	return s.GetPlan(ctx, athleteID, planID)
}

// AnalyzeCompliance computes the compliance overview of a stored plan.
func (s *planService) AnalyzeCompliance(ctx context.Context, athleteID, planID string, asOf time.Time) (*ComplianceOverview, error) {
	plan, err := s.GetPlan(ctx, athleteID, planID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = asOf.In(s.location)

	report := s.analyzer.AnalyzePlanCompliance(plan, asOf)
	overview := &ComplianceOverview{
		AsOf:         asOf,
		Report:       report,
		Suggestions:  s.analyzer.GeneratePlanAdjustmentSuggestions(report),
		CheckInWeeks: []int{},
	}
	for _, week := range report.WeeklyCompliance {
		if s.analyzer.NeedsWeeklyCheckIn(week, asOf) {
			overview.CheckInWeeks = append(overview.CheckInWeeks, week.WeekNumber)
		}
	}
	return overview, nil
}

// AnalyzeComplianceOnDate reads date as midnight in the coaching timezone so
// the evaluated day matches the one the athlete asked for.
func (s *planService) AnalyzeComplianceOnDate(ctx context.Context, athleteID, planID, date string) (*ComplianceOverview, error) {
	asOf, err := time.ParseInLocation(domain.DateLayout, date, s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return s.AnalyzeCompliance(ctx, athleteID, planID, asOf)
}

// GetRawPayloadURL returns a temporary download URL for the archived payload.
func (s *planService) GetRawPayloadURL(ctx context.Context, athleteID, planID string) (string, error) {
	plan, err := s.GetPlan(ctx, athleteID, planID)
	if err != nil {
		return "", err
	}
	if s.archive == nil || plan.RawPayloadKey == "" {
		return "", ErrRawPayloadUnavailable
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, plan.RawPayloadKey, storage.DefaultPresignedURLExpiry)
}
