package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error)
	GetWorkoutLog(ctx context.Context, logID uuid.UUID, userID int) (*storage.LogDetail, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	GetPersonalRecords(ctx context.Context, userID int) ([]storage.PersonalRecord, error)
	GetRestStats(ctx context.Context, start, end time.Time, userID int) (*storage.RestStats, error)
	GetVolumeSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.VolumePeriod, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
