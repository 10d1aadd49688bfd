package storage

import (
	"context"
	"fmt"
	"time"
)

// VolumePeriod is one bucket of the aggregated training volume summary.
type VolumePeriod struct {
	PeriodStart   time.Time `json:"period_start"`
	Workouts      int       `json:"workouts"`
	TotalSets     int       `json:"total_sets"`
	TotalReps     int       `json:"total_reps"`
	TotalVolumeKg float64   `json:"total_volume_kg"`
	AvgRestSec    float64   `json:"avg_rest_sec"`
}

// GetVolumeSummary aggregates workout logs per period. bucket is "week" or
// "month"; anything else falls back to month.
func (db *DB) GetVolumeSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]VolumePeriod, error) {
	if bucket != "week" && bucket != "month" {
		bucket = "month"
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($4, started_at) AS period,
		 COUNT(*),
		 COALESCE(SUM(total_sets), 0),
		 COALESCE(SUM(total_reps), 0),
		 COALESCE(SUM(total_volume_kg), 0),
		 COALESCE(AVG(avg_rest_sec), 0)
		 FROM workout_logs
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 GROUP BY period
		 ORDER BY period ASC`,
		start, end, userID, bucket)
	if err != nil {
		return nil, fmt.Errorf("querying volume summary: %w", err)
	}
	defer rows.Close()

	var result []VolumePeriod
	for rows.Next() {
		var v VolumePeriod
		if err := rows.Scan(&v.PeriodStart, &v.Workouts, &v.TotalSets,
			&v.TotalReps, &v.TotalVolumeKg, &v.AvgRestSec); err != nil {
			return nil, fmt.Errorf("scanning volume period: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
