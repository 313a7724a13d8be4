// internal/domain/compliance.go
package domain

import "time"

// WeekStatus places a plan week relative to the current date.
type WeekStatus string

const (
	WeekPast    WeekStatus = "past"
	WeekCurrent WeekStatus = "current"
	WeekFuture  WeekStatus = "future"
)

// Severity / priority levels shared by trends, warnings and suggestions.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// WeekStats is the adherence of a single week.
type WeekStats struct {
	TotalWorkouts     int      `json:"totalWorkouts"`
	CompletedWorkouts int      `json:"completedWorkouts"`
	MissedWorkouts    int      `json:"missedWorkouts"`
	ComplianceRate    int      `json:"complianceRate"` // 0-100
	MissedDays        []string `json:"missedDays"`
}

// WeekCompliance is a WeekStats placed on the calendar.
type WeekCompliance struct {
	WeekNumber int        `json:"weekNumber"`
	PhaseName  string     `json:"phaseName,omitempty"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    time.Time  `json:"endDate"`
	Status     WeekStatus `json:"status"`
	WeekStats
}

// TrendType names a multi-week compliance pattern.
type TrendType string

const (
	TrendLowCompliance      TrendType = "low_compliance"
	TrendModerateCompliance TrendType = "moderate_compliance"
	TrendImproving          TrendType = "improving"
	TrendDeclining          TrendType = "declining"
)

type Trend struct {
	Type     TrendType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// WarningType names a compliance warning.
type WarningType string

const (
	WarningMissedWorkouts       WarningType = "missed_workouts"
	WarningPlanTooAggressive    WarningType = "plan_too_aggressive"
	WarningConsistencyDeclining WarningType = "consistency_declining"
)

type ComplianceWarning struct {
	Type            WarningType `json:"type"`
	Severity        Severity    `json:"severity"`
	Message         string      `json:"message"`
	SuggestedAction string      `json:"suggestedAction"`
}

// ComplianceReport is the adherence of a whole plan at a given date.
type ComplianceReport struct {
	OverallComplianceRate int                 `json:"overallComplianceRate"` // 0-100, past and current weeks only
	EvaluatedWeeks        int                 `json:"evaluatedWeeks"`
	WeeklyCompliance      []WeekCompliance    `json:"weeklyCompliance"`
	Trends                []Trend             `json:"trends"`
	Warnings              []ComplianceWarning `json:"warnings"`
}

// SuggestionType names a plan adjustment.
type SuggestionType string

const (
	SuggestionReduceVolume       SuggestionType = "reduce_volume"
	SuggestionAddRestDays        SuggestionType = "add_rest_days"
	SuggestionIncreaseDifficulty SuggestionType = "increase_difficulty"
)

type Suggestion struct {
	Type     SuggestionType `json:"type"`
	Priority Severity       `json:"priority"`
	Message  string         `json:"message"`
}
