package service

import (
	"testing"
	"time"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBaseline(t *testing.T) {
	start := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	activities := []domain.Activity{
		{ID: 1, Type: domain.ActivityTypeRun, Distance: 5000, MovingTime: 5 * 5 * 60, StartDate: start},
		{ID: 2, Type: domain.ActivityTypeRun, Distance: 10000, MovingTime: 10 * 6 * 60, StartDate: start.AddDate(0, 0, 7)},
		{ID: 3, Type: domain.ActivityTypeRun, Distance: 15000, MovingTime: 15 * 7 * 60, StartDate: start.AddDate(0, 0, 14)},
		{ID: 4, Type: "Ride", Distance: 60000, MovingTime: 7200, StartDate: start.AddDate(0, 0, 3)},
		{ID: 5, Type: domain.ActivityTypeRun, Distance: 0, MovingTime: 600, StartDate: start.AddDate(0, 0, 20)},
	}

	baseline := BuildBaseline(activities)
	require.NotNil(t, baseline)
	assert.InDelta(t, 6.0, baseline.AvgPace, 1e-9)
	assert.InDelta(t, 10.0, baseline.AvgDistance, 1e-9)
	assert.InDelta(t, 15.0, baseline.LongestDistance, 1e-9)
	// Three runs over a two week span.
	assert.InDelta(t, 1.5, baseline.AvgRunsPerWeek, 1e-9)
}

func TestBuildBaseline_Edges(t *testing.T) {
	assert.Nil(t, BuildBaseline(nil))
	assert.Nil(t, BuildBaseline([]domain.Activity{{Type: "Swim", Distance: 1500, MovingTime: 1800}}))

	t.Run("single day counts as one week", func(t *testing.T) {
		day := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
		baseline := BuildBaseline([]domain.Activity{
			{Type: domain.ActivityTypeRun, Distance: 5000, MovingTime: 1500, StartDate: day},
			{Type: domain.ActivityTypeRun, Distance: 5000, MovingTime: 1500, StartDate: day.Add(10 * time.Hour)},
		})
		require.NotNil(t, baseline)
		assert.InDelta(t, 2.0, baseline.AvgRunsPerWeek, 1e-9)
	})

	t.Run("no start dates", func(t *testing.T) {
		baseline := BuildBaseline([]domain.Activity{{Type: domain.ActivityTypeRun, Distance: 8000, MovingTime: 2400}})
		require.NotNil(t, baseline)
		assert.InDelta(t, 5.0, baseline.AvgPace, 1e-9)
		assert.Zero(t, baseline.AvgRunsPerWeek)
	})
}
