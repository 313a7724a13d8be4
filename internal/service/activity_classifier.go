// internal/service/activity_classifier.go
package service

import (
	"log"
	"math"
	"runtime"
	"strings"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// Thresholds of the numeric rules. Distance ratios are relative to the
// baseline's longest (long run) or average (recovery) distance; the pace
// ratio is relative to the baseline pace, lower meaning faster.
const (
	intervalPaceVariation = 0.15
	longRunDistanceRatio  = 0.75
	longRunMinutes        = 90.0
	recoveryDistanceRatio = 0.40
	recoveryMinutes       = 25.0
	tempoPaceRatio        = 0.92
	atypicalFastPaceRatio = 0.90
	minSplitsForVariation = 2
	secondsPerMinute      = 60.0
	metersPerKilometer    = 1000.0
)

// Confidence scoring.
const (
	keywordConfidence    = 0.7
	defaultConfidence    = 0.4
	paceSignalBonus      = 0.1
	heartRateBonus       = 0.05
	cadenceBonus         = 0.05
	splitDataBonus       = 0.05
	agreementBonus       = 0.1
	disagreementPenalty  = 0.1
	atypicalComboPenalty = 0.15
	noBaselinePenalty    = 0.1
)

// workoutKeywords is searched in order; earlier entries take precedence.
var workoutKeywords = []struct {
	term    string
	workout domain.WorkoutType
}{
	{"race", domain.WorkoutRace},
	{"parkrun", domain.WorkoutRace},
	{"wettkampf", domain.WorkoutRace},
	{"interval", domain.WorkoutInterval},
	{"fartlek", domain.WorkoutInterval},
	{"repeats", domain.WorkoutInterval},
	{"tempo", domain.WorkoutTempo},
	{"threshold", domain.WorkoutTempo},
	{"schwelle", domain.WorkoutTempo},
	{"long run", domain.WorkoutLongRun},
	{"langer lauf", domain.WorkoutLongRun},
	{"easy", domain.WorkoutEasyRun},
	{"locker", domain.WorkoutEasyRun},
	{"recovery", domain.WorkoutRecovery},
	{"regeneration", domain.WorkoutRecovery},
	{"shakeout", domain.WorkoutRecovery},
}

// activitySignals holds everything the rules look at. Pointer fields are
// nil when the underlying data is missing.
type activitySignals struct {
	keyword                 *domain.WorkoutType
	relativePace            *float64
	relativeDistanceLongest *float64
	relativeDistanceAvg     *float64
	durationMinutes         *float64
	paceVariation           *float64
	hasHeartRate            bool
	hasCadence              bool
}

// classificationRule decides a workout type when its predicate holds.
type classificationRule struct {
	name   string
	decide func(s activitySignals) (domain.WorkoutType, bool)
}

// classificationRules is evaluated top to bottom; the first match wins.
// The last rule always matches.
var classificationRules = []classificationRule{
	{name: "keyword", decide: func(s activitySignals) (domain.WorkoutType, bool) {
		if s.keyword == nil {
			return "", false
		}
		return *s.keyword, true
	}},
	{name: "pace_variation", decide: func(s activitySignals) (domain.WorkoutType, bool) {
		return domain.WorkoutInterval, s.paceVariation != nil && *s.paceVariation > intervalPaceVariation
	}},
	{name: "long_run", decide: func(s activitySignals) (domain.WorkoutType, bool) {
		long := (s.relativeDistanceLongest != nil && *s.relativeDistanceLongest > longRunDistanceRatio) ||
			(s.durationMinutes != nil && *s.durationMinutes > longRunMinutes)
		return domain.WorkoutLongRun, long
	}},
	{name: "recovery", decide: func(s activitySignals) (domain.WorkoutType, bool) {
		short := s.relativeDistanceAvg != nil && *s.relativeDistanceAvg < recoveryDistanceRatio &&
			s.durationMinutes != nil && *s.durationMinutes < recoveryMinutes
		return domain.WorkoutRecovery, short
	}},
	{name: "relative_pace", decide: func(s activitySignals) (domain.WorkoutType, bool) {
		if s.relativePace != nil && *s.relativePace < tempoPaceRatio {
			return domain.WorkoutTempo, true
		}
		return domain.WorkoutEasyRun, true
	}},
}

// ActivityClassifier labels running activities with a workout type.
type ActivityClassifier interface {
	// Classify returns nil for a nil or non-running activity. A nil
	// baseline is allowed and only lowers the confidence.
	Classify(activity *domain.Activity, baseline *domain.AthleteBaseline) *domain.ClassificationResult
	// ClassifyAll classifies independent activities concurrently. The
	// result has one entry per activity, in input order.
	ClassifyAll(activities []domain.Activity, baseline *domain.AthleteBaseline) []*domain.ClassificationResult
}

type activityClassifier struct{}

// NewActivityClassifier creates a new ActivityClassifier.
func NewActivityClassifier() ActivityClassifier {
	return &activityClassifier{}
}

// Classify implements ActivityClassifier.
func (c *activityClassifier) Classify(activity *domain.Activity, baseline *domain.AthleteBaseline) *domain.ClassificationResult {
	if !activity.IsRun() {
		return nil
	}
	signals := extractSignals(activity, baseline)

	workout, ruleName := applyRules(classificationRules, signals)
	numeric, numericRule := applyRules(classificationRules[1:], signals)

	return &domain.ClassificationResult{
		Type:       workout,
		Confidence: scoreConfidence(signals, baseline, numeric, numericRule),
		Rule:       ruleName,
		Signals: domain.ClassificationSignals{
			RelativePace:     signals.relativePace,
			RelativeDistance: signals.relativeDistanceLongest,
			PaceVariation:    signals.paceVariation,
		},
	}
}

// ClassifyAll implements ActivityClassifier.
func (c *activityClassifier) ClassifyAll(activities []domain.Activity, baseline *domain.AthleteBaseline) []*domain.ClassificationResult {
	results := make([]*domain.ClassificationResult, len(activities))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range activities {
		i := i
		g.Go(func() error {
			results[i] = c.Classify(&activities[i], baseline)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("ERROR: ClassifyAll: %v", err)
	}
	return results
}

func applyRules(rules []classificationRule, s activitySignals) (domain.WorkoutType, string) {
	for _, rule := range rules {
		if workout, ok := rule.decide(s); ok {
			return workout, rule.name
		}
	}
	return domain.WorkoutEasyRun, ""
}

func extractSignals(a *domain.Activity, baseline *domain.AthleteBaseline) activitySignals {
	s := activitySignals{
		keyword:       matchKeyword(a.Name),
		paceVariation: splitPaceVariation(a.Splits),
		hasHeartRate:  a.AverageHeartrate != nil && *a.AverageHeartrate > 0,
		hasCadence:    a.AverageCadence != nil && *a.AverageCadence > 0,
	}
	if a.MovingTime > 0 {
		s.durationMinutes = ptr(a.MovingTime / secondsPerMinute)
	}
	if baseline == nil {
		return s
	}
	if a.AverageSpeed != nil && *a.AverageSpeed > 0 && baseline.AvgPace > 0 {
		pace := metersPerKilometer / (*a.AverageSpeed * secondsPerMinute)
		s.relativePace = ptr(pace / baseline.AvgPace)
	}
	if a.Distance > 0 {
		km := a.Distance / metersPerKilometer
		if baseline.LongestDistance > 0 {
			s.relativeDistanceLongest = ptr(km / baseline.LongestDistance)
		}
		if baseline.AvgDistance > 0 {
			s.relativeDistanceAvg = ptr(km / baseline.AvgDistance)
		}
	}
	return s
}

func matchKeyword(name string) *domain.WorkoutType {
	lower := strings.ToLower(name)
	if lower == "" {
		return nil
	}
	for _, kw := range workoutKeywords {
		if strings.Contains(lower, kw.term) {
			workout := kw.workout
			return &workout
		}
	}
	return nil
}

// splitPaceVariation is the coefficient of variation of per-split pace.
func splitPaceVariation(splits []domain.Split) *float64 {
	paces := make([]float64, 0, len(splits))
	for _, sp := range splits {
		if sp.Distance <= 0 || sp.MovingTime <= 0 {
			continue
		}
		paces = append(paces, sp.MovingTime/sp.Distance*metersPerKilometer)
	}
	if len(paces) < minSplitsForVariation {
		return nil
	}
	mean, err := stats.Mean(paces)
	if err != nil || mean == 0 {
		return nil
	}
	sd, err := stats.StandardDeviationPopulation(paces)
	if err != nil {
		return nil
	}
	return ptr(sd / mean)
}

// scoreConfidence starts from the keyword or default level, adds a bonus
// per corroborating signal and subtracts for conflicts or missing context.
func scoreConfidence(s activitySignals, baseline *domain.AthleteBaseline, numeric domain.WorkoutType, numericRule string) float64 {
	confidence := defaultConfidence
	if s.keyword != nil {
		confidence = keywordConfidence
		switch {
		case *s.keyword == numeric:
			confidence += agreementBonus
		case numericRule != "relative_pace":
			// A decisive numeric rule points elsewhere.
			confidence -= disagreementPenalty
		}
	}
	if s.relativePace != nil {
		confidence += paceSignalBonus
	}
	if s.hasHeartRate {
		confidence += heartRateBonus
	}
	if s.hasCadence {
		confidence += cadenceBonus
	}
	if s.paceVariation != nil {
		confidence += splitDataBonus
	}
	if baseline == nil {
		confidence -= noBaselinePenalty
	}
	// Very fast and very long at once is rare outside races.
	if s.relativePace != nil && *s.relativePace < atypicalFastPaceRatio &&
		s.relativeDistanceLongest != nil && *s.relativeDistanceLongest > longRunDistanceRatio {
		confidence -= atypicalComboPenalty
	}
	return clamp01(confidence)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func ptr[T any](v T) *T {
	return &v
}
