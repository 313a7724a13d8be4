// internal/service/baseline.go
package service

import (
	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/montanaflynn/stats"
)

const hoursPerWeek = 24 * 7

// BuildBaseline aggregates the running history used as the classifier's
// reference. Non-running activities and runs without distance or time are
// ignored. It returns nil when no usable run is left.
func BuildBaseline(activities []domain.Activity) *domain.AthleteBaseline {
	var paces, distances []float64
	var first, last domain.Activity
	for _, a := range activities {
		if !a.IsRun() || a.Distance <= 0 || a.MovingTime <= 0 {
			continue
		}
		km := a.Distance / metersPerKilometer
		distances = append(distances, km)
		paces = append(paces, a.MovingTime/secondsPerMinute/km)

		if a.StartDate.IsZero() {
			continue
		}
		if first.StartDate.IsZero() || a.StartDate.Before(first.StartDate) {
			first = a
		}
		if last.StartDate.IsZero() || a.StartDate.After(last.StartDate) {
			last = a
		}
	}
	if len(distances) == 0 {
		return nil
	}

	baseline := &domain.AthleteBaseline{}
	baseline.AvgPace, _ = stats.Mean(paces)
	baseline.AvgDistance, _ = stats.Mean(distances)
	baseline.LongestDistance, _ = stats.Max(distances)

	if !first.StartDate.IsZero() {
		weeks := last.StartDate.Sub(first.StartDate).Hours() / hoursPerWeek
		if weeks < 1 {
			weeks = 1
		}
		baseline.AvgRunsPerWeek = float64(len(distances)) / weeks
	}
	return baseline
}
