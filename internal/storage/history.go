package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
)

// Compile-time check: *DB satisfies the engine's history lookup.
var _ session.History = (*DB)(nil)

// AllTimeMaxKg returns the heaviest weight ever logged for an exercise, or 0
// when there is no record.
func (db *DB) AllTimeMaxKg(ctx context.Context, userID int, exercise string) (float64, error) {
	var max float64
	err := db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(weight_kg), 0)
		 FROM workout_sets
		 WHERE user_id = $1 AND exercise_name = $2`,
		userID, exercise).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("querying all-time max: %w", err)
	}
	return max, nil
}

// PreviousSets returns the most recent historical sets for an exercise,
// newest first.
func (db *DB) PreviousSets(ctx context.Context, userID int, exercise string, limit int) ([]session.PreviousSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT reps, weight_kg, completed_at
		 FROM workout_sets
		 WHERE user_id = $1 AND exercise_name = $2
		 ORDER BY completed_at DESC
		 LIMIT $3`,
		userID, exercise, limit)
	if err != nil {
		return nil, fmt.Errorf("querying previous sets: %w", err)
	}
	defer rows.Close()

	var result []session.PreviousSet
	for rows.Next() {
		var p session.PreviousSet
		if err := rows.Scan(&p.Reps, &p.WeightKg, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning previous set: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// PersonalRecord is the best logged weight for one exercise.
type PersonalRecord struct {
	ExerciseName string    `json:"exercise_name"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	AchievedAt   time.Time `json:"achieved_at"`
}

// GetPersonalRecords returns the heaviest set per exercise for a user.
func (db *DB) GetPersonalRecords(ctx context.Context, userID int) ([]PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (exercise_name) exercise_name, weight_kg, reps, completed_at
		 FROM workout_sets
		 WHERE user_id = $1 AND weight_kg > 0
		 ORDER BY exercise_name, weight_kg DESC, completed_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []PersonalRecord
	for rows.Next() {
		var pr PersonalRecord
		if err := rows.Scan(&pr.ExerciseName, &pr.WeightKg, &pr.Reps, &pr.AchievedAt); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, pr)
	}
	return result, rows.Err()
}

// QueryWorkoutSets retrieves historical sets in a date range with an
// optional exercise name filter (partial, case-insensitive).
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	query := `SELECT log_id, user_id, slot_id, exercise_number, exercise_name, set_number,
		 reps, weight_kg, target_reps, too_fast, personal_record, completed_at
		 FROM workout_sets
		 WHERE completed_at >= $1 AND completed_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseFilter != "" {
		query += ` AND exercise_name ILIKE $4`
		args = append(args, "%"+exerciseFilter+"%")
	}
	query += ` ORDER BY completed_at DESC, exercise_number ASC, set_number ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var s models.WorkoutSetRow
		if err := rows.Scan(&s.LogID, &s.UserID, &s.SlotID, &s.ExerciseNumber,
			&s.ExerciseName, &s.SetNumber, &s.Reps, &s.WeightKg, &s.TargetReps,
			&s.TooFast, &s.PersonalRecord, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// RestStats summarizes rest behavior over a period.
type RestStats struct {
	Intervals    int     `json:"intervals"`
	TotalSeconds int     `json:"total_seconds"`
	AvgSeconds   float64 `json:"avg_seconds"`
	MinSeconds   int     `json:"min_seconds"`
	MaxSeconds   int     `json:"max_seconds"`
	BetweenSets  int     `json:"between_sets"`
}

// GetRestStats aggregates rest intervals for a user over a date range.
func (db *DB) GetRestStats(ctx context.Context, start, end time.Time, userID int) (*RestStats, error) {
	var rs RestStats
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		 COALESCE(SUM(rest_seconds), 0),
		 COALESCE(AVG(rest_seconds), 0),
		 COALESCE(MIN(rest_seconds), 0),
		 COALESCE(MAX(rest_seconds), 0),
		 COUNT(*) FILTER (WHERE kind = 'between_sets')
		 FROM rest_intervals
		 WHERE recorded_at >= $1 AND recorded_at < $2 AND user_id = $3`,
		start, end, userID).Scan(&rs.Intervals, &rs.TotalSeconds, &rs.AvgSeconds,
		&rs.MinSeconds, &rs.MaxSeconds, &rs.BetweenSets)
	if err != nil {
		return nil, fmt.Errorf("querying rest stats: %w", err)
	}
	return &rs, nil
}
