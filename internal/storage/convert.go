package storage

import (
	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
	"github.com/google/uuid"
)

// logRows flattens a completed session log into the rows the workout tables
// accept. The log ID ties every child row back to the workout_logs entry.
func logRows(logID uuid.UUID, cl *session.CompletedLog) (models.WorkoutLogRow, []models.WorkoutSetRow, []models.RestIntervalRow, []models.DrinkIntakeRow) {
	sum := cl.Summary

	log := models.WorkoutLogRow{
		ID:            logID,
		UserID:        sum.UserID,
		PlanName:      sum.PlanName,
		StartedAt:     sum.StartedAt,
		DurationSec:   sum.DurationSeconds,
		TotalSets:     sum.TotalCompletedSets,
		TotalReps:     sum.TotalReps,
		TotalVolumeKg: sum.TotalVolumeKg,
		TotalRestSec:  sum.TotalRestSeconds,
		AvgRestSec:    sum.AvgRestSeconds,
		ProgressPct:   sum.ProgressPercentage,
		Incomplete:    sum.Incomplete,
		QuitReason:    sum.QuitReason,
	}

	var sets []models.WorkoutSetRow
	for _, fs := range cl.Sets {
		sets = append(sets, models.WorkoutSetRow{
			LogID:          logID,
			UserID:         sum.UserID,
			SlotID:         fs.SlotID,
			ExerciseNumber: fs.ExerciseIndex,
			ExerciseName:   fs.ExerciseName,
			SetNumber:      fs.SetNumber,
			Reps:           fs.Reps,
			WeightKg:       fs.WeightKg,
			TargetReps:     fs.TargetReps,
			TooFast:        fs.TooFast,
			PersonalRecord: fs.PersonalRecord,
			CompletedAt:    fs.CompletedAt,
		})
	}

	var rests []models.RestIntervalRow
	for _, ri := range cl.RestIntervals {
		row := models.RestIntervalRow{
			LogID:          logID,
			UserID:         sum.UserID,
			ExerciseNumber: ri.ExerciseIndex,
			Kind:           string(ri.Kind),
			RestSeconds:    ri.RestSeconds,
			RecordedAt:     ri.RecordedAt,
		}
		if ri.SetNumber > 0 {
			n := ri.SetNumber
			row.SetNumber = &n
		}
		rests = append(rests, row)
	}

	var drinks []models.DrinkIntakeRow
	for _, d := range cl.Drinks {
		drinks = append(drinks, models.DrinkIntakeRow{
			LogID:      logID,
			UserID:     sum.UserID,
			AmountML:   d.AmountML,
			RecordedAt: d.RecordedAt,
		})
	}

	return log, sets, rests, drinks
}
