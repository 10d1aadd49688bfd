// Package models holds the row types exchanged with the storage layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutLogRow is a row ready for insertion into the workout_logs table:
// one finished (or quit) session with its aggregate totals.
type WorkoutLogRow struct {
	ID            uuid.UUID `json:"id"`
	UserID        int       `json:"user_id"`
	PlanName      string    `json:"plan_name"`
	StartedAt     time.Time `json:"started_at"`
	DurationSec   int       `json:"duration_sec"`
	TotalSets     int       `json:"total_sets"`
	TotalReps     int       `json:"total_reps"`
	TotalVolumeKg float64   `json:"total_volume_kg"`
	TotalRestSec  int       `json:"total_rest_sec"`
	AvgRestSec    float64   `json:"avg_rest_sec"`
	ProgressPct   float64   `json:"progress_pct"`
	Incomplete    bool      `json:"incomplete"`
	QuitReason    string    `json:"quit_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// WorkoutSetRow is a row ready for insertion into the workout_sets table.
// Weights are kilograms, always.
type WorkoutSetRow struct {
	LogID          uuid.UUID `json:"log_id"`
	UserID         int       `json:"user_id"`
	SlotID         uuid.UUID `json:"slot_id"`
	ExerciseNumber int       `json:"exercise_number"`
	ExerciseName   string    `json:"exercise_name"`
	SetNumber      int       `json:"set_number"`
	Reps           int       `json:"reps"`
	WeightKg       float64   `json:"weight_kg"`
	TargetReps     int       `json:"target_reps"`
	TooFast        bool      `json:"too_fast"`
	PersonalRecord bool      `json:"personal_record"`
	CompletedAt    time.Time `json:"completed_at"`
}

// RestIntervalRow is a row for the rest_intervals table. SetNumber is nil
// for inter-exercise rests.
type RestIntervalRow struct {
	LogID          uuid.UUID `json:"log_id"`
	UserID         int       `json:"user_id"`
	ExerciseNumber int       `json:"exercise_number"`
	SetNumber      *int      `json:"set_number,omitempty"`
	Kind           string    `json:"kind"`
	RestSeconds    int       `json:"rest_seconds"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// DrinkIntakeRow is a row for the drink_intake table.
type DrinkIntakeRow struct {
	LogID      uuid.UUID `json:"log_id"`
	UserID     int       `json:"user_id"`
	AmountML   int       `json:"amount_ml"`
	RecordedAt time.Time `json:"recorded_at"`
}
