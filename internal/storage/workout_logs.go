package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/google/uuid"
)

// SaveLog persists a completed session log atomically: the summary row plus
// every set, rest interval, and drink event. It implements session.Persister
// and returns the new log's identifier.
func (db *DB) SaveLog(ctx context.Context, cl *session.CompletedLog) (uuid.UUID, error) {
	logID := uuid.New()
	log, sets, rests, drinks := logRows(logID, cl)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_logs (id, user_id, plan_name, started_at, duration_sec,
		 total_sets, total_reps, total_volume_kg, total_rest_sec, avg_rest_sec,
		 progress_pct, incomplete, quit_reason)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		log.ID, log.UserID, log.PlanName, log.StartedAt, log.DurationSec,
		log.TotalSets, log.TotalReps, log.TotalVolumeKg, log.TotalRestSec,
		log.AvgRestSec, log.ProgressPct, log.Incomplete, nullableString(log.QuitReason))
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout log: %w", err)
	}

	for _, s := range sets {
		_, err = tx.Exec(ctx,
			`INSERT INTO workout_sets (log_id, user_id, slot_id, exercise_number,
			 exercise_name, set_number, reps, weight_kg, target_reps, too_fast,
			 personal_record, completed_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			s.LogID, s.UserID, s.SlotID, s.ExerciseNumber, s.ExerciseName,
			s.SetNumber, s.Reps, s.WeightKg, s.TargetReps, s.TooFast,
			s.PersonalRecord, s.CompletedAt)
		if err != nil {
			return uuid.Nil, fmt.Errorf("inserting workout set: %w", err)
		}
	}

	for _, r := range rests {
		_, err = tx.Exec(ctx,
			`INSERT INTO rest_intervals (log_id, user_id, exercise_number, set_number,
			 kind, rest_seconds, recorded_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			r.LogID, r.UserID, r.ExerciseNumber, r.SetNumber, r.Kind,
			r.RestSeconds, r.RecordedAt)
		if err != nil {
			return uuid.Nil, fmt.Errorf("inserting rest interval: %w", err)
		}
	}

	for _, d := range drinks {
		_, err = tx.Exec(ctx,
			`INSERT INTO drink_intake (log_id, user_id, amount_ml, recorded_at)
			 VALUES ($1,$2,$3,$4)`,
			d.LogID, d.UserID, d.AmountML, d.RecordedAt)
		if err != nil {
			return uuid.Nil, fmt.Errorf("inserting drink intake: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing workout log: %w", err)
	}
	return logID, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// QueryWorkoutLogs retrieves log summaries in a date range, newest first.
func (db *DB) QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, plan_name, started_at, duration_sec, total_sets,
		 total_reps, total_volume_kg, total_rest_sec, avg_rest_sec, progress_pct,
		 incomplete, COALESCE(quit_reason, ''), created_at
		 FROM workout_logs
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout logs: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutLogRow
	for rows.Next() {
		var l models.WorkoutLogRow
		if err := rows.Scan(&l.ID, &l.UserID, &l.PlanName, &l.StartedAt, &l.DurationSec,
			&l.TotalSets, &l.TotalReps, &l.TotalVolumeKg, &l.TotalRestSec,
			&l.AvgRestSec, &l.ProgressPct, &l.Incomplete, &l.QuitReason,
			&l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// LogDetail is a workout log with its sets and rest intervals.
type LogDetail struct {
	models.WorkoutLogRow
	Sets          []models.WorkoutSetRow   `json:"sets"`
	RestIntervals []models.RestIntervalRow `json:"rest_intervals"`
}

// GetWorkoutLog retrieves a single log by ID with all associated data.
func (db *DB) GetWorkoutLog(ctx context.Context, logID uuid.UUID, userID int) (*LogDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, plan_name, started_at, duration_sec, total_sets,
		 total_reps, total_volume_kg, total_rest_sec, avg_rest_sec, progress_pct,
		 incomplete, COALESCE(quit_reason, ''), created_at
		 FROM workout_logs
		 WHERE id = $1 AND user_id = $2`,
		logID, userID)

	var l models.WorkoutLogRow
	err := row.Scan(&l.ID, &l.UserID, &l.PlanName, &l.StartedAt, &l.DurationSec,
		&l.TotalSets, &l.TotalReps, &l.TotalVolumeKg, &l.TotalRestSec,
		&l.AvgRestSec, &l.ProgressPct, &l.Incomplete, &l.QuitReason, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying workout log: %w", err)
	}

	detail := &LogDetail{WorkoutLogRow: l}

	setRows, err := db.Pool.Query(ctx,
		`SELECT log_id, user_id, slot_id, exercise_number, exercise_name, set_number,
		 reps, weight_kg, target_reps, too_fast, personal_record, completed_at
		 FROM workout_sets
		 WHERE log_id = $1 AND user_id = $2
		 ORDER BY exercise_number ASC, set_number ASC`,
		logID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying log sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var s models.WorkoutSetRow
		if err := setRows.Scan(&s.LogID, &s.UserID, &s.SlotID, &s.ExerciseNumber,
			&s.ExerciseName, &s.SetNumber, &s.Reps, &s.WeightKg, &s.TargetReps,
			&s.TooFast, &s.PersonalRecord, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning log set: %w", err)
		}
		detail.Sets = append(detail.Sets, s)
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	restRows, err := db.Pool.Query(ctx,
		`SELECT log_id, user_id, exercise_number, set_number, kind, rest_seconds, recorded_at
		 FROM rest_intervals
		 WHERE log_id = $1 AND user_id = $2
		 ORDER BY recorded_at ASC`,
		logID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying log rest intervals: %w", err)
	}
	defer restRows.Close()

	for restRows.Next() {
		var r models.RestIntervalRow
		if err := restRows.Scan(&r.LogID, &r.UserID, &r.ExerciseNumber, &r.SetNumber,
			&r.Kind, &r.RestSeconds, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning rest interval: %w", err)
		}
		detail.RestIntervals = append(detail.RestIntervals, r)
	}

	return detail, restRows.Err()
}
