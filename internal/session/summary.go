package session

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ExerciseSummary is the per-exercise breakdown of a completed session,
// emitted only for exercises with at least one completed set.
type ExerciseSummary struct {
	Name          string  `json:"name"`
	SetsCompleted int     `json:"sets_completed"`
	TotalReps     int     `json:"total_reps"`
	AvgWeightKg   float64 `json:"avg_weight_kg"`
	TimeSeconds   int     `json:"time_seconds"`
}

// Summary is the serializable outcome of a session, handed to the
// persistence sink and the completion display.
type Summary struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    int       `json:"user_id"`
	PlanName  string    `json:"plan_name"`
	StartedAt time.Time `json:"started_at"`

	DurationSeconds    int     `json:"duration_seconds"`
	TotalCompletedSets int     `json:"total_completed_sets"`
	TotalReps          int     `json:"total_reps"`
	TotalVolumeKg      float64 `json:"total_volume_kg"`
	TotalRestSeconds   int     `json:"total_rest_seconds"`
	AvgRestSeconds     float64 `json:"avg_rest_seconds"`

	Exercises          []ExerciseSummary `json:"exercises"`
	ExercisesCompleted int               `json:"exercises_completed"`
	ProgressPercentage float64           `json:"progress_percentage"`

	Incomplete bool   `json:"incomplete,omitempty"`
	QuitReason string `json:"quit_reason,omitempty"`
}

// BuildSummary aggregates the set ledger and rest intervals in one pass.
func BuildSummary(s *Session) *Summary {
	sum := &Summary{
		SessionID:       s.ID,
		UserID:          s.UserID,
		PlanName:        s.PlanName,
		StartedAt:       s.StartedAt,
		DurationSeconds: s.ElapsedSeconds,
	}

	slots := make([]*ExerciseSlot, 0, len(s.Exercises)+1)
	slots = append(slots, s.Exercises...)
	if s.Challenge != nil && len(s.Challenge.Sets) > 0 {
		slots = append(slots, s.Challenge)
	}

	touched := 0
	for _, sl := range slots {
		if len(sl.Sets) == 0 {
			continue
		}
		touched++
		es := ExerciseSummary{
			Name:          sl.Name,
			SetsCompleted: len(sl.Sets),
			TimeSeconds:   sl.ActiveSeconds,
		}
		var weightSum float64
		for _, rec := range sl.Sets {
			es.TotalReps += rec.Reps
			weightSum += rec.WeightKg
			sum.TotalVolumeKg += float64(rec.Reps) * rec.WeightKg
		}
		es.AvgWeightKg = round2(weightSum / float64(len(sl.Sets)))
		sum.TotalCompletedSets += len(sl.Sets)
		sum.TotalReps += es.TotalReps
		sum.Exercises = append(sum.Exercises, es)
	}
	sum.ExercisesCompleted = touched

	for _, ri := range s.RestIntervals {
		sum.TotalRestSeconds += ri.RestSeconds
	}
	if n := len(s.RestIntervals); n > 0 {
		sum.AvgRestSeconds = round2(float64(sum.TotalRestSeconds) / float64(n))
	}

	// Progress counts planned exercises only; the challenge is a bonus.
	if total := len(s.Exercises); total > 0 {
		planned := 0
		for _, sl := range s.Exercises {
			if len(sl.Sets) > 0 {
				planned++
			}
		}
		sum.ProgressPercentage = round2(float64(planned) / float64(total) * 100)
	} else {
		sum.ProgressPercentage = 100
	}

	return sum
}

// BuildPartialSummary is the quit path: the same aggregation tagged
// incomplete with the reason the user gave.
func BuildPartialSummary(s *Session, quitReason string) *Summary {
	sum := BuildSummary(s)
	sum.Incomplete = true
	sum.QuitReason = quitReason
	return sum
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
