package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/deweiiss/sportMe-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const athlete = "athlete-1"

// threeWeekPlan starts on Wednesday 2025-03-05; weeks end on 03-09, 03-16 and 03-23.
var threeWeekPlan = []byte(`{
	"meta": {"plan_id": "plan-3w", "plan_name": "Base", "start_date": "2025-03-05"},
	"periodization_overview": {"macrocycle_goal": "5k", "phases": ["Base"]},
	"schedule": [
		{"week_number": 1, "phase_name": "Base", "days": [
			"Wednesday|2|false|true|STRENGTH|Core|30|MAIN:Core circuit,30 min,Zone 2",
			"Saturday|5|false|false|STRENGTH|Legs|30|MAIN:Squats,30 min,Zone 2"
		]},
		{"week_number": 2, "phase_name": "Base", "days": [
			"Monday|0|true|false|REST|Rest Day|0|",
			"Tuesday|1|false|true|STRENGTH|Core|30|MAIN:Core circuit,30 min,Zone 2"
		]},
		{"week_number": 3, "phase_name": "Base", "days": [
			"Tuesday|1|false|false|STRENGTH|Core|30|MAIN:Core circuit,30 min,Zone 2"
		]}
	]
}`)

func newTestPlanService(archive *memArchive, now time.Time) (*planService, *memPlanRepo) {
	repo := newMemPlanRepo()
	var svc PlanService
	if archive != nil {
		svc = NewPlanService(repo, archive, time.UTC)
	} else {
		svc = NewPlanService(repo, nil, time.UTC)
	}
	ps := svc.(*planService)
	ps.now = func() time.Time { return now }
	return ps, repo
}

func TestImportPlan(t *testing.T) {
	archive := newMemArchive()
	svc, repo := newTestPlanService(archive, time.Now())
	ctx := context.Background()

	result, err := svc.ImportPlan(ctx, athlete, planJSON(`"`+tuesdayRun+`"`))
	require.NoError(t, err)

	assert.NotNil(t, result.Warnings)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, athlete, result.Plan.AthleteID)
	assert.Equal(t, "p-1", result.Plan.Meta.PlanID)

	keys := archive.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "plans/"+athlete+"/"))
	assert.Equal(t, keys[0], result.Plan.RawPayloadKey)

	stored, err := repo.GetByPlanID(ctx, athlete, "p-1")
	require.NoError(t, err)
	require.Len(t, stored.Schedule, 1)
	assert.Len(t, stored.Schedule[0].Days[0].WorkoutStructure, 3)
}

func TestImportPlan_ReturnsWarnings(t *testing.T) {
	svc, _ := newTestPlanService(nil, time.Now())

	result, err := svc.ImportPlan(context.Background(), athlete, planJSON(`"Thursday|3|false|false|RUN|Short|20|MAIN:Run,20 min,Zone 2"`))
	require.NoError(t, err)
	assert.Equal(t, []string{WarnMissingSegmentSeparator, WarnInsufficientSegments}, warningCodes(result.Warnings))
}

func TestImportPlan_AssignsPlanID(t *testing.T) {
	svc, _ := newTestPlanService(nil, time.Now())

	result, err := svc.ImportPlan(context.Background(), athlete,
		[]byte(`{"meta": {"plan_name": "No id"}, "periodization_overview": {"phases": ["Base"]}, "schedule": []}`))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Plan.Meta.PlanID)
	assert.Empty(t, result.Plan.RawPayloadKey)
}

func TestImportPlan_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing athlete", func(t *testing.T) {
		svc, _ := newTestPlanService(nil, time.Now())
		_, err := svc.ImportPlan(ctx, "", threeWeekPlan)
		assert.ErrorIs(t, err, ErrAthleteRequired)
	})

	t.Run("empty payload", func(t *testing.T) {
		svc, _ := newTestPlanService(nil, time.Now())
		_, err := svc.ImportPlan(ctx, athlete, nil)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("malformed payload stays archived", func(t *testing.T) {
		archive := newMemArchive()
		svc, _ := newTestPlanService(archive, time.Now())
		_, err := svc.ImportPlan(ctx, athlete, []byte(`{"meta": {}}`))

		var malformed *MalformedPlanError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, []string{"periodization_overview", "schedule"}, malformed.Missing)
		assert.Len(t, archive.keys(), 1)
	})

	t.Run("duplicate plan drops its archived copy", func(t *testing.T) {
		archive := newMemArchive()
		svc, _ := newTestPlanService(archive, time.Now())
		_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
		require.NoError(t, err)

		_, err = svc.ImportPlan(ctx, athlete, threeWeekPlan)
		assert.ErrorIs(t, err, ErrPlanAlreadyExists)
		assert.Len(t, archive.keys(), 1)
	})

	t.Run("storage failure", func(t *testing.T) {
		archive := newMemArchive()
		svc, repo := newTestPlanService(archive, time.Now())
		repo.createErr = errors.New("connection reset")

		_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Empty(t, archive.keys())
	})

	t.Run("archive failure does not block the import", func(t *testing.T) {
		archive := newMemArchive()
		archive.putErr = errors.New("bucket unavailable")
		svc, _ := newTestPlanService(archive, time.Now())

		result, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
		require.NoError(t, err)
		assert.Empty(t, result.Plan.RawPayloadKey)
	})
}

func TestGetAndListPlans(t *testing.T) {
	svc, _ := newTestPlanService(nil, time.Now())
	ctx := context.Background()
	_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	plan, err := svc.GetPlan(ctx, athlete, "plan-3w")
	require.NoError(t, err)
	assert.Len(t, plan.Schedule, 3)

	_, err = svc.GetPlan(ctx, "someone-else", "plan-3w")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	plans, err := svc.ListPlans(ctx, athlete)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	_, err = svc.ListPlans(ctx, "")
	assert.ErrorIs(t, err, ErrAthleteRequired)
}

func TestUpdateDayStatus(t *testing.T) {
	svc, _ := newTestPlanService(nil, time.Now())
	ctx := context.Background()
	_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	completed := true
	ref := domain.ActivityRefFromID(13371337)
	plan, err := svc.UpdateDayStatus(ctx, athlete, "plan-3w", 2, 0, repository.DayStatusUpdate{
		IsCompleted:       &completed,
		MatchedActivityID: &ref,
	})
	require.NoError(t, err)

	day := plan.Schedule[2].Days[0]
	assert.True(t, day.IsCompleted)
	assert.Equal(t, domain.ActivityRef("13371337"), day.MatchedActivityID)
	assert.False(t, day.IsMissed)

	_, err = svc.UpdateDayStatus(ctx, athlete, "plan-3w", 2, 5, repository.DayStatusUpdate{IsCompleted: &completed})
	assert.ErrorIs(t, err, ErrDayNotFound)
	_, err = svc.UpdateDayStatus(ctx, athlete, "plan-3w", -1, 0, repository.DayStatusUpdate{IsCompleted: &completed})
	assert.ErrorIs(t, err, ErrDayNotFound)
	_, err = svc.UpdateDayStatus(ctx, athlete, "missing", 0, 0, repository.DayStatusUpdate{IsCompleted: &completed})
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestAnalyzeCompliance(t *testing.T) {
	now := time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestPlanService(nil, now)
	ctx := context.Background()
	_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	overview, err := svc.AnalyzeCompliance(ctx, athlete, "plan-3w", time.Time{})
	require.NoError(t, err)

	assert.True(t, now.Equal(overview.AsOf))
	report := overview.Report
	require.Len(t, report.WeeklyCompliance, 3)
	assert.Equal(t, 50, report.WeeklyCompliance[0].ComplianceRate)
	assert.Equal(t, 100, report.WeeklyCompliance[1].ComplianceRate)
	assert.Equal(t, domain.WeekCurrent, report.WeeklyCompliance[2].Status)
	// 1 of 2, 1 of 1 and 0 of 1 workouts.
	assert.Equal(t, 50, report.OverallComplianceRate)

	assert.Equal(t, []int{1}, overview.CheckInWeeks)
	require.Len(t, overview.Suggestions, 2)
	assert.Equal(t, domain.SuggestionReduceVolume, overview.Suggestions[0].Type)
}

func TestAnalyzeCompliance_UsesConfiguredTimezone(t *testing.T) {
	repo := newMemPlanRepo()
	svc := NewPlanService(repo, nil, time.FixedZone("UTC+14", 14*3600))
	ctx := context.Background()
	_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	// Still Sunday in UTC, already Monday 03-17 for the athlete.
	overview, err := svc.AnalyzeCompliance(ctx, athlete, "plan-3w", time.Date(2025, 3, 16, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.WeekPast, overview.Report.WeeklyCompliance[1].Status)
	assert.Equal(t, domain.WeekCurrent, overview.Report.WeeklyCompliance[2].Status)
}

func TestAnalyzeComplianceOnDate_WestOfUTC(t *testing.T) {
	newYork := time.FixedZone("UTC-5", -5*3600)
	svc := NewPlanService(newMemPlanRepo(), nil, newYork)
	ctx := context.Background()
	_, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	// Monday of week 3 for the athlete, whatever UTC says.
	overview, err := svc.AnalyzeComplianceOnDate(ctx, athlete, "plan-3w", "2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, newYork, overview.AsOf.Location())
	assert.Equal(t, 17, overview.AsOf.Day())
	assert.Equal(t, domain.WeekPast, overview.Report.WeeklyCompliance[1].Status)
	assert.Equal(t, domain.WeekCurrent, overview.Report.WeeklyCompliance[2].Status)

	_, err = svc.AnalyzeComplianceOnDate(ctx, athlete, "plan-3w", "17.03.2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = svc.AnalyzeComplianceOnDate(ctx, athlete, "missing", "2025-03-17")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestGetRawPayloadURL(t *testing.T) {
	ctx := context.Background()

	archive := newMemArchive()
	svc, _ := newTestPlanService(archive, time.Now())
	result, err := svc.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)

	url, err := svc.GetRawPayloadURL(ctx, athlete, "plan-3w")
	require.NoError(t, err)
	assert.Contains(t, url, result.Plan.RawPayloadKey)

	noArchive, _ := newTestPlanService(nil, time.Now())
	_, err = noArchive.ImportPlan(ctx, athlete, threeWeekPlan)
	require.NoError(t, err)
	_, err = noArchive.GetRawPayloadURL(ctx, athlete, "plan-3w")
	assert.ErrorIs(t, err, ErrRawPayloadUnavailable)
}
