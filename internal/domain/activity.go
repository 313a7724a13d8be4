// internal/domain/activity.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityTypeRun is the only activity type the workout taxonomy covers.
const ActivityTypeRun = "Run"

// Activity is a synced record from the fitness-tracking provider. Optional
// sensor fields are pointers; nil means the device did not record them.
type Activity struct {
	ObjectID  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AthleteID string             `bson:"athleteId" json:"-"`
	ID        int64              `bson:"activityId" json:"id"`
	Type      string             `bson:"type" json:"type"`
	Name      string             `bson:"name" json:"name"`
	StartDate time.Time          `bson:"startDate,omitempty" json:"start_date,omitempty"`

	// Distance in meters, MovingTime in seconds, AverageSpeed in m/s.
	Distance         float64  `bson:"distance" json:"distance"`
	MovingTime       float64  `bson:"movingTime" json:"moving_time"`
	AverageSpeed     *float64 `bson:"averageSpeed,omitempty" json:"average_speed,omitempty"`
	AverageHeartrate *float64 `bson:"averageHeartrate,omitempty" json:"average_heartrate,omitempty"`
	AverageCadence   *float64 `bson:"averageCadence,omitempty" json:"average_cadence,omitempty"`

	Splits   []Split   `bson:"splits,omitempty" json:"splits_metric,omitempty"`
	SyncedAt time.Time `bson:"syncedAt,omitempty" json:"-"`
}

// IsRun reports whether the activity belongs to the running taxonomy.
func (a *Activity) IsRun() bool {
	return a != nil && a.Type == ActivityTypeRun
}

// Split is one raw split (usually per kilometer), meters and seconds.
type Split struct {
	Distance   float64 `bson:"distance" json:"distance"`
	MovingTime float64 `bson:"movingTime" json:"moving_time"`
}

// AthleteBaseline aggregates the athlete's recent running history. Zero
// values mean "unknown".
type AthleteBaseline struct {
	AvgPace         float64 `json:"avgPace"`         // min/km
	LongestDistance float64 `json:"longestDistance"` // km
	AvgDistance     float64 `json:"avgDistance"`     // km
	AvgRunsPerWeek  float64 `json:"avgRunsPerWeek"`
}

// WorkoutType is the running workout taxonomy.
type WorkoutType string

const (
	WorkoutInterval WorkoutType = "INTERVAL"
	WorkoutTempo    WorkoutType = "TEMPO"
	WorkoutLongRun  WorkoutType = "LONG_RUN"
	WorkoutRace     WorkoutType = "RACE"
	WorkoutEasyRun  WorkoutType = "EASY_RUN"
	WorkoutRecovery WorkoutType = "RECOVERY"
)

// ClassificationResult is the classifier's verdict for one activity.
type ClassificationResult struct {
	Type       WorkoutType           `json:"type"`
	Confidence float64               `json:"confidence"`
	Rule       string                `json:"rule"` // Name of the rule that decided the type
	Signals    ClassificationSignals `json:"signals"`
}

// ClassificationSignals are the numeric signals behind a classification.
// Each is nil when the source data was missing.
type ClassificationSignals struct {
	RelativePace     *float64 `json:"relativePace"`
	RelativeDistance *float64 `json:"relativeDistance"`
	PaceVariation    *float64 `json:"paceVariation"`
}
