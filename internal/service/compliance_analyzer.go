// internal/service/compliance_analyzer.go
package service

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/montanaflynn/stats"
)

const (
	trendWindowWeeks      = 3
	minTrendWeeks         = 2
	lowComplianceLimit    = 50.0
	moderateComplianceMax = 70.0
	trendChangeThreshold  = 20
	missedWorkoutsWarning = 2
	reduceVolumeBelowRate = 60
	progressFromRate      = 90
	daysPerWeek           = 7
)

// ComplianceAnalyzer measures how well an athlete follows a plan.
// All methods are pure and safe for concurrent use.
type ComplianceAnalyzer interface {
	CalculateWeekCompliance(week *domain.Week) domain.WeekStats
	WeekDateRange(planStart time.Time, weekNumber int) (start, end time.Time)
	AnalyzePlanCompliance(plan *domain.Plan, now time.Time) *domain.ComplianceReport
	DetectTrends(weeks []domain.WeekCompliance) []domain.Trend
	GenerateWarnings(weeks []domain.WeekCompliance, trends []domain.Trend) []domain.ComplianceWarning
	GeneratePlanAdjustmentSuggestions(report *domain.ComplianceReport) []domain.Suggestion
	NeedsWeeklyCheckIn(week domain.WeekCompliance, now time.Time) bool
}

type complianceAnalyzer struct{}

// NewComplianceAnalyzer creates a new ComplianceAnalyzer.
func NewComplianceAnalyzer() ComplianceAnalyzer {
	return &complianceAnalyzer{}
}

// CalculateWeekCompliance counts the workout (non-rest) days of a week. A
// day is completed when flagged so or linked to an activity; a nil week
// yields zeroed stats.
func (a *complianceAnalyzer) CalculateWeekCompliance(week *domain.Week) domain.WeekStats {
	ws := domain.WeekStats{MissedDays: []string{}}
	if week == nil {
		return ws
	}
	for _, day := range week.Days {
		if day.IsRestDay {
			continue
		}
		ws.TotalWorkouts++
		completed := day.IsCompleted || day.HasMatchedActivity()
		if completed {
			ws.CompletedWorkouts++
		}
		if day.IsMissed || !completed {
			ws.MissedWorkouts++
			ws.MissedDays = append(ws.MissedDays, day.DayName)
		}
	}
	ws.ComplianceRate = percentage(ws.CompletedWorkouts, ws.TotalWorkouts)
	return ws
}

// WeekDateRange returns the inclusive calendar range of a 1-based week.
// Week 1 runs from the plan start through the following Sunday; later
// weeks are full Monday-Sunday weeks.
func (a *complianceAnalyzer) WeekDateRange(planStart time.Time, weekNumber int) (time.Time, time.Time) {
	start := calendarDay(planStart)
	firstEnd := start.AddDate(0, 0, (daysPerWeek-int(start.Weekday()))%daysPerWeek)
	if weekNumber <= 1 {
		return start, firstEnd
	}
	weekStart := firstEnd.AddDate(0, 0, 1+daysPerWeek*(weekNumber-2))
	return weekStart, weekStart.AddDate(0, 0, daysPerWeek-1)
}

// AnalyzePlanCompliance builds the full report at the given date. Future
// weeks are listed but excluded from the overall rate.
func (a *complianceAnalyzer) AnalyzePlanCompliance(plan *domain.Plan, now time.Time) *domain.ComplianceReport {
	report := &domain.ComplianceReport{
		WeeklyCompliance: []domain.WeekCompliance{},
		Trends:           []domain.Trend{},
		Warnings:         []domain.ComplianceWarning{},
	}
	if plan == nil {
		return report
	}
	planStart, err := plan.Meta.StartTime()
	if err != nil {
		log.Printf("WARN: compliance for plan %q skipped: %v", plan.Meta.PlanID, err)
		return report
	}

	today := calendarDay(now)
	var total, completed int
	// Weeks are dated by schedule position, which is the chronological order.
	for i := range plan.Schedule {
		week := &plan.Schedule[i]
		start, end := a.WeekDateRange(planStart, i+1)
		entry := domain.WeekCompliance{
			WeekNumber: week.WeekNumber,
			PhaseName:  week.PhaseName,
			StartDate:  start,
			EndDate:    end,
			Status:     weekStatus(today, start, end),
			WeekStats:  a.CalculateWeekCompliance(week),
		}
		if entry.Status != domain.WeekFuture {
			report.EvaluatedWeeks++
			total += entry.TotalWorkouts
			completed += entry.CompletedWorkouts
		}
		report.WeeklyCompliance = append(report.WeeklyCompliance, entry)
	}

	report.OverallComplianceRate = percentage(completed, total)
	report.Trends = a.DetectTrends(report.WeeklyCompliance)
	report.Warnings = a.GenerateWarnings(report.WeeklyCompliance, report.Trends)
	return report
}

// DetectTrends looks at the last (up to three) past weeks.
func (a *complianceAnalyzer) DetectTrends(weeks []domain.WeekCompliance) []domain.Trend {
	trends := []domain.Trend{}
	var rates []float64
	for _, w := range weeks {
		if w.Status == domain.WeekPast {
			rates = append(rates, float64(w.ComplianceRate))
		}
	}
	if len(rates) < minTrendWeeks {
		return trends
	}
	if len(rates) > trendWindowWeeks {
		rates = rates[len(rates)-trendWindowWeeks:]
	}

	avg, _ := stats.Mean(rates)
	switch {
	case avg < lowComplianceLimit:
		trends = append(trends, domain.Trend{
			Type:     domain.TrendLowCompliance,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Average compliance over the last %d weeks is %.0f%%", len(rates), avg),
		})
	case avg < moderateComplianceMax:
		trends = append(trends, domain.Trend{
			Type:     domain.TrendModerateCompliance,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("Average compliance over the last %d weeks is %.0f%%", len(rates), avg),
		})
	}

	if len(rates) == trendWindowWeeks {
		first, mid, last := rates[0], rates[1], rates[2]
		switch {
		case first < mid && mid < last && last-first > trendChangeThreshold:
			trends = append(trends, domain.Trend{
				Type:     domain.TrendImproving,
				Severity: domain.SeverityLow,
				Message:  fmt.Sprintf("Compliance improved from %.0f%% to %.0f%%", first, last),
			})
		case first > mid && mid > last && first-last > trendChangeThreshold:
			trends = append(trends, domain.Trend{
				Type:     domain.TrendDeclining,
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Compliance dropped from %.0f%% to %.0f%%", first, last),
			})
		}
	}
	return trends
}

// GenerateWarnings turns the current week and detected trends into warnings.
func (a *complianceAnalyzer) GenerateWarnings(weeks []domain.WeekCompliance, trends []domain.Trend) []domain.ComplianceWarning {
	warnings := []domain.ComplianceWarning{}
	for _, w := range weeks {
		if w.Status == domain.WeekCurrent && w.MissedWorkouts >= missedWorkoutsWarning {
			warnings = append(warnings, domain.ComplianceWarning{
				Type:            domain.WarningMissedWorkouts,
				Severity:        domain.SeverityMedium,
				Message:         fmt.Sprintf("%d workouts missed this week", w.MissedWorkouts),
				SuggestedAction: "Reschedule the key session of the week or swap it for a shorter one.",
			})
		}
	}
	for _, t := range trends {
		switch t.Type {
		case domain.TrendLowCompliance:
			warnings = append(warnings, domain.ComplianceWarning{
				Type:            domain.WarningPlanTooAggressive,
				Severity:        domain.SeverityHigh,
				Message:         "Less than half of the planned workouts were completed recently.",
				SuggestedAction: "Reduce the number of weekly sessions until the routine is sustainable.",
			})
		case domain.TrendDeclining:
			warnings = append(warnings, domain.ComplianceWarning{
				Type:            domain.WarningConsistencyDeclining,
				Severity:        domain.SeverityMedium,
				Message:         "Compliance has dropped for three weeks in a row.",
				SuggestedAction: "Check in on fatigue, schedule and motivation before the next block.",
			})
		}
	}
	return warnings
}

// GeneratePlanAdjustmentSuggestions proposes plan changes from the overall
// rate. A report without evaluated weeks yields no suggestions.
func (a *complianceAnalyzer) GeneratePlanAdjustmentSuggestions(report *domain.ComplianceReport) []domain.Suggestion {
	suggestions := []domain.Suggestion{}
	if report == nil || report.EvaluatedWeeks == 0 {
		return suggestions
	}
	switch rate := report.OverallComplianceRate; {
	case rate < reduceVolumeBelowRate:
		suggestions = append(suggestions,
			domain.Suggestion{
				Type:     domain.SuggestionReduceVolume,
				Priority: domain.SeverityHigh,
				Message:  fmt.Sprintf("Only %d%% of workouts were completed. Reduce weekly volume by about 20%%.", rate),
			},
			domain.Suggestion{
				Type:     domain.SuggestionAddRestDays,
				Priority: domain.SeverityHigh,
				Message:  "Add an extra rest day per week to make the plan easier to follow.",
			},
		)
	case rate >= progressFromRate:
		suggestions = append(suggestions, domain.Suggestion{
			Type:     domain.SuggestionIncreaseDifficulty,
			Priority: domain.SeverityLow,
			Message:  fmt.Sprintf("%d%% of workouts were completed. The plan can progress in difficulty.", rate),
		})
	}
	return append(suggestions, missPatternSuggestions(report)...)
}

// missPatternSuggestions would suggest changes for workout types that are
// missed repeatedly.
// TODO: needs per-workout-type miss history, which the report does not carry yet.
func missPatternSuggestions(*domain.ComplianceReport) []domain.Suggestion {
	return nil
}

// NeedsWeeklyCheckIn is true for a finished week that was not fully completed.
func (a *complianceAnalyzer) NeedsWeeklyCheckIn(week domain.WeekCompliance, now time.Time) bool {
	if week.EndDate.IsZero() {
		return false
	}
	if !calendarDay(week.EndDate).Before(calendarDay(now)) {
		return false
	}
	return week.ComplianceRate < 100 || week.MissedWorkouts > 0
}

func weekStatus(today, start, end time.Time) domain.WeekStatus {
	switch {
	case today.After(end):
		return domain.WeekPast
	case !today.Before(start):
		return domain.WeekCurrent
	default:
		return domain.WeekFuture
	}
}

// calendarDay drops the clock and zone, keeping the date as seen in t's location.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
