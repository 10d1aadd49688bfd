// Package importer finalizes interrupted sessions: snapshots left behind by
// a crashed process are turned into workout logs and persisted.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/snapshot"
)

// QuitReasonInterrupted marks logs recovered from snapshots rather than
// quit deliberately.
const QuitReasonInterrupted = "interrupted"

// Stats tracks finalization progress.
type Stats struct {
	SnapshotsFound int
	LogsInserted   int
	Skipped        int
	Errored        int
}

// Finalizer drains the snapshot store into the persistence sink.
type Finalizer struct {
	snaps  *snapshot.Store
	sink   session.Persister
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Finalizer.
func New(snaps *snapshot.Store, sink session.Persister, log *slog.Logger, dryRun bool) *Finalizer {
	return &Finalizer{snaps: snaps, sink: sink, log: log, dryRun: dryRun}
}

// Finalize persists every stored snapshot as an interrupted workout log and
// deletes the snapshot on success. Failures leave the snapshot in place for
// a later run.
func (f *Finalizer) Finalize(ctx context.Context) (*Stats, error) {
	entries, err := f.snaps.List()
	if err != nil {
		return &f.stats, fmt.Errorf("listing snapshots: %w", err)
	}
	f.stats.SnapshotsFound = len(entries)

	for _, e := range entries {
		s, err := f.snaps.Get(e.SessionID)
		if err != nil {
			f.log.Error("snapshot load failed", "session_id", e.SessionID, "error", err)
			f.stats.Errored++
			continue
		}

		sum := session.BuildPartialSummary(s, QuitReasonInterrupted)
		cl := session.NewCompletedLog(s, sum)

		if len(cl.Sets) == 0 {
			// Nothing worth keeping; drop the empty session.
			f.log.Info("dropping empty snapshot", "session_id", e.SessionID, "plan", e.PlanName)
			if !f.dryRun {
				if err := f.snaps.Delete(e.SessionID); err != nil {
					f.log.Warn("snapshot delete failed", "session_id", e.SessionID, "error", err)
				}
			}
			f.stats.Skipped++
			continue
		}

		if f.dryRun {
			f.log.Info("would finalize session", "session_id", e.SessionID,
				"plan", e.PlanName, "sets", len(cl.Sets))
			f.stats.LogsInserted++
			continue
		}

		logID, err := f.sink.SaveLog(ctx, cl)
		if err != nil {
			f.log.Error("finalize failed", "session_id", e.SessionID, "error", err)
			f.stats.Errored++
			continue
		}

		if err := f.snaps.Delete(e.SessionID); err != nil {
			f.log.Warn("snapshot delete failed", "session_id", e.SessionID, "error", err)
		}
		f.log.Info("session finalized", "session_id", e.SessionID, "log_id", logID,
			"sets", len(cl.Sets))
		f.stats.LogsInserted++
	}

	return &f.stats, nil
}
