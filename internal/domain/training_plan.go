// internal/domain/training_plan.go
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanType is the broad goal a generated plan was built for.
type PlanType string

const (
	PlanTypeBeginner    PlanType = "BEGINNER"
	PlanTypeFitness     PlanType = "FITNESS"
	PlanTypeWeightLoss  PlanType = "WEIGHT_LOSS"
	PlanTypeCompetition PlanType = "COMPETITION"
)

// AthleteLevel as stated by the generator.
type AthleteLevel string

const (
	LevelNovice       AthleteLevel = "Novice"
	LevelIntermediate AthleteLevel = "Intermediate"
	LevelAdvanced     AthleteLevel = "Advanced"
)

// ActivityCategory is the kind of session scheduled on a plan day.
type ActivityCategory string

const (
	CategoryRun        ActivityCategory = "RUN"
	CategoryWalk       ActivityCategory = "WALK"
	CategoryStrength   ActivityCategory = "STRENGTH"
	CategoryCrossTrain ActivityCategory = "CROSS_TRAIN"
	CategoryRest       ActivityCategory = "REST"
	CategoryMobility   ActivityCategory = "MOBILITY"
)

// SegmentType labels one portion of a workout. The set is open: unknown
// labels coming from the generator are kept as-is.
type SegmentType string

const (
	SegmentWarmup   SegmentType = "WARMUP"
	SegmentMain     SegmentType = "MAIN"
	SegmentCooldown SegmentType = "COOLDOWN"
	SegmentInterval SegmentType = "INTERVAL"
	SegmentRecovery SegmentType = "RECOVERY"
)

// DurationUnit of a segment.
type DurationUnit string

const (
	UnitMinutes    DurationUnit = "min"
	UnitKilometers DurationUnit = "km"
)

// DateLayout is the calendar date format used by plan payloads.
const DateLayout = "2006-01-02"

// Plan is the canonical, structured training plan produced by the decoder.
// ID, AthleteID and the timestamps belong to the persistence layer and are
// empty on a freshly decoded plan.
type Plan struct {
	ID                    primitive.ObjectID    `bson:"_id,omitempty" json:"id,omitempty"`
	AthleteID             string                `bson:"athleteId,omitempty" json:"athleteId,omitempty"`
	Meta                  PlanMeta              `bson:"meta" json:"meta"`
	PeriodizationOverview PeriodizationOverview `bson:"periodization_overview" json:"periodization_overview"`
	Schedule              []Week                `bson:"schedule" json:"schedule"`
	RawPayloadKey         string                `bson:"rawPayloadKey,omitempty" json:"-"` // Object key of the archived generator output
	ImportedAt            time.Time             `bson:"importedAt,omitempty" json:"importedAt,omitempty"`
	UpdatedAt             time.Time             `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// PlanMeta describes the plan as a whole. Dates are kept exactly as the
// generator wrote them; use StartTime to interpret StartDate.
type PlanMeta struct {
	PlanID             string       `bson:"plan_id" json:"plan_id"`
	PlanName           string       `bson:"plan_name" json:"plan_name"`
	PlanType           PlanType     `bson:"plan_type" json:"plan_type"`
	AthleteLevel       AthleteLevel `bson:"athlete_level" json:"athlete_level"`
	TotalDurationWeeks int          `bson:"total_duration_weeks" json:"total_duration_weeks"`
	StartDate          string       `bson:"start_date" json:"start_date"`
	CreatedAt          string       `bson:"created_at" json:"created_at"`
}

// StartTime parses StartDate as a calendar date (or a full RFC 3339 timestamp).
func (m PlanMeta) StartTime() (time.Time, error) {
	if t, err := time.Parse(DateLayout, m.StartDate); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, m.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid plan start date %q", m.StartDate)
	}
	return t, nil
}

type PeriodizationOverview struct {
	MacrocycleGoal string   `bson:"macrocycle_goal" json:"macrocycle_goal"`
	Phases         []string `bson:"phases" json:"phases"`
}

// Week is one entry of the chronological schedule.
type Week struct {
	WeekNumber  int    `bson:"week_number" json:"week_number"`
	PhaseName   string `bson:"phase_name" json:"phase_name"`
	WeeklyFocus string `bson:"weekly_focus" json:"weekly_focus"`
	Days        []Day  `bson:"days" json:"days"`
}

// Day is a single scheduled day. DayIndex is carried exactly as the
// generator encoded it (0-based and 1-based payloads both exist).
type Day struct {
	DayName                   string           `bson:"day_name" json:"day_name"`
	DayIndex                  int              `bson:"day_index" json:"day_index"`
	IsRestDay                 bool             `bson:"is_rest_day" json:"is_rest_day"`
	IsCompleted               bool             `bson:"is_completed" json:"is_completed"`
	IsMissed                  bool             `bson:"is_missed" json:"is_missed"`
	MatchedActivityID         ActivityRef      `bson:"matched_activity_id,omitempty" json:"matched_activity_id,omitempty"`
	ActivityCategory          ActivityCategory `bson:"activity_category" json:"activity_category"`
	ActivityTitle             string           `bson:"activity_title" json:"activity_title"`
	TotalEstimatedDurationMin int              `bson:"total_estimated_duration_min" json:"total_estimated_duration_min"`
	WorkoutStructure          []Segment        `bson:"workout_structure" json:"workout_structure"`
}

// HasMatchedActivity reports whether an external activity has been linked to the day.
func (d Day) HasMatchedActivity() bool {
	return d.MatchedActivityID != ""
}

// Segment is one labeled portion of a workout.
type Segment struct {
	SegmentType   SegmentType  `bson:"segment_type" json:"segment_type"`
	Description   string       `bson:"description" json:"description"`
	DurationValue float64      `bson:"duration_value" json:"duration_value"`
	DurationUnit  DurationUnit `bson:"duration_unit" json:"duration_unit"`
	IntensityZone int          `bson:"intensity_zone" json:"intensity_zone"`
}

// ActivityRef is a weak reference to an externally owned activity. Sync
// services send the id either as a JSON number or a string.
type ActivityRef string

// ActivityRefFromID formats a numeric activity id as a reference.
func ActivityRefFromID(id int64) ActivityRef {
	return ActivityRef(strconv.FormatInt(id, 10))
}

func (r *ActivityRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ActivityRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("matched_activity_id must be a string or number: %w", err)
	}
	*r = ActivityRef(n.String())
	return nil
}

// DecodeWarning describes a non-fatal problem found while decoding a plan.
// Week and Day are 1-based positions in the payload (0 when not applicable).
type DecodeWarning struct {
	Code    string `json:"code"`
	Week    int    `json:"week,omitempty"`
	Day     int    `json:"day,omitempty"`
	Message string `json:"message"`
}

func (w DecodeWarning) String() string {
	return fmt.Sprintf("week %d day %d: %s (%s)", w.Week, w.Day, w.Message, w.Code)
}
