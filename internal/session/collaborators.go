package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PreviousSet is one historical set returned by the history lookup.
type PreviousSet struct {
	Reps        int       `json:"reps"`
	WeightKg    float64   `json:"weight_kg"`
	CompletedAt time.Time `json:"completed_at"`
}

// History looks up prior performance for an exercise. Consumed read-only at
// session start and opportunistically during the session; failures degrade,
// never block.
type History interface {
	// AllTimeMaxKg returns the heaviest recorded weight for an exercise,
	// or 0 when there is no record.
	AllTimeMaxKg(ctx context.Context, userID int, exercise string) (float64, error)
	// PreviousSets returns recent historical sets, newest first.
	PreviousSets(ctx context.Context, userID int, exercise string, limit int) ([]PreviousSet, error)
}

// Media is an optional image and/or video reference for an exercise. The
// engine never parses media content; it only tracks fetch state for display.
type Media struct {
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// MediaResolver resolves an exercise name to display media.
type MediaResolver interface {
	Resolve(ctx context.Context, exercise string) (Media, error)
}

// SuggestionContext is the session context handed to the suggestion service.
type SuggestionContext struct {
	Exercise      string  `json:"exercise"`
	CompletedSets int     `json:"completed_sets"`
	TargetReps    int     `json:"target_reps"`
	LastReps      int     `json:"last_reps"`
	LastWeightKg  float64 `json:"last_weight_kg"`
}

// Suggester provides optional advisory enrichments. Absence or failure of
// any of these never blocks phase progression.
type Suggester interface {
	RestSeconds(ctx context.Context, sc SuggestionContext) (int, error)
	StartingWeightKg(ctx context.Context, sc SuggestionContext) (float64, error)
	Fatigued(ctx context.Context, sc SuggestionContext) (bool, error)
	RestMessage(ctx context.Context, sc SuggestionContext) (string, error)
}

// FlatSet is one set record with its exercise coordinates attached, the
// shape the persistence sink accepts.
type FlatSet struct {
	ExerciseIndex int       `json:"exercise_index"`
	ExerciseName  string    `json:"exercise_name"`
	SlotID        uuid.UUID `json:"slot_id"`
	SetRecord
}

// CompletedLog is the full payload handed to the persistence sink when a
// session ends: the summary plus every set, rest interval, and drink event.
type CompletedLog struct {
	Summary       *Summary       `json:"summary"`
	Sets          []FlatSet      `json:"sets"`
	RestIntervals []RestInterval `json:"rest_intervals"`
	Drinks        []DrinkRecord  `json:"drinks,omitempty"`
}

// NewCompletedLog flattens a session into its persistence payload.
func NewCompletedLog(s *Session, sum *Summary) *CompletedLog {
	log := &CompletedLog{
		Summary:       sum,
		RestIntervals: s.RestIntervals,
		Drinks:        s.Drinks,
	}
	for i, sl := range s.Exercises {
		for _, rec := range sl.Sets {
			log.Sets = append(log.Sets, FlatSet{
				ExerciseIndex: i,
				ExerciseName:  sl.Name,
				SlotID:        sl.ID,
				SetRecord:     rec,
			})
		}
	}
	if s.Challenge != nil {
		for _, rec := range s.Challenge.Sets {
			log.Sets = append(log.Sets, FlatSet{
				ExerciseIndex: len(s.Exercises),
				ExerciseName:  s.Challenge.Name,
				SlotID:        s.Challenge.ID,
				SetRecord:     rec,
			})
		}
	}
	return log
}

// Persister is the persistence sink for finished sessions. It returns an
// opaque log identifier for display.
type Persister interface {
	SaveLog(ctx context.Context, log *CompletedLog) (uuid.UUID, error)
}

// SnapshotStore persists in-progress session state so an interrupted
// process can be inspected and finalized later.
type SnapshotStore interface {
	Save(s *Session) error
	Delete(id uuid.UUID) error
}
