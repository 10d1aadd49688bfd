package session

import (
	"time"

	"github.com/google/uuid"
)

// PlanEntry is the immutable target definition for one exercise slot,
// supplied by the plan source at session start.
type PlanEntry struct {
	Name              string  `json:"name" yaml:"name"`
	TargetSets        int     `json:"target_sets" yaml:"sets"`
	TargetReps        int     `json:"target_reps" yaml:"reps"`
	RepsPerSet        []int   `json:"reps_per_set,omitempty" yaml:"reps_per_set"`
	TargetWeightKg    float64 `json:"target_weight_kg,omitempty" yaml:"weight_kg"`
	RestSeconds       int     `json:"rest_seconds" yaml:"rest_seconds"`
	TransitionSeconds int     `json:"transition_seconds,omitempty" yaml:"transition_seconds"`
}

// ExerciseSlot is one position in the session's exercise list. Slots carry a
// stable opaque ID so per-exercise state survives reordering, skipping, and
// swapping without any index remapping.
type ExerciseSlot struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	TargetSets        int         `json:"target_sets"`
	TargetReps        int         `json:"target_reps"`
	RepsPerSet        []int       `json:"reps_per_set,omitempty"`
	TargetWeightKg    float64     `json:"target_weight_kg,omitempty"`
	RestSeconds       int         `json:"rest_seconds"`
	TransitionSeconds int         `json:"transition_seconds,omitempty"`
	Removed           bool        `json:"removed,omitempty"`
	Sets              []SetRecord `json:"sets"`

	// ActiveSeconds accumulates time spent with this slot as the current
	// exercise. ActiveSince is nonzero while the slot is being viewed.
	ActiveSeconds int       `json:"active_seconds"`
	ActiveSince   time.Time `json:"active_since,omitempty"`

	// BestKnownKg is the heaviest weight known for this exercise: the
	// all-time max from history, or the max among previously fetched sets
	// when no all-time record exists. Updated in-session when exceeded.
	BestKnownKg float64 `json:"best_known_kg,omitempty"`
}

// TargetRepsFor returns the rep target for a 1-based set number, honoring
// per-set overrides when present.
func (sl *ExerciseSlot) TargetRepsFor(setNumber int) int {
	if n := setNumber - 1; n >= 0 && n < len(sl.RepsPerSet) {
		return sl.RepsPerSet[n]
	}
	return sl.TargetReps
}

// validateEntry checks the minimum a slot needs to run: a name and a set
// count to work through.
func validateEntry(e PlanEntry) error {
	if e.Name == "" || e.TargetSets <= 0 {
		return ErrBadEntry
	}
	return nil
}

func newSlot(e PlanEntry) *ExerciseSlot {
	return &ExerciseSlot{
		ID:                uuid.New(),
		Name:              e.Name,
		TargetSets:        e.TargetSets,
		TargetReps:        e.TargetReps,
		RepsPerSet:        e.RepsPerSet,
		TargetWeightKg:    e.TargetWeightKg,
		RestSeconds:       e.RestSeconds,
		TransitionSeconds: e.TransitionSeconds,
	}
}

// RestKind distinguishes the two rest interval flavors.
type RestKind string

const (
	RestBetweenSets      RestKind = "between_sets"
	RestBetweenExercises RestKind = "between_exercises"
)

// RestInterval is an observational log entry: the actual wall-clock gap
// measured when a rest period ends, not the planned duration.
type RestInterval struct {
	ExerciseIndex int       `json:"exercise_index"`
	SetNumber     int       `json:"set_number,omitempty"` // 0 for inter-exercise rests
	RestSeconds   int       `json:"rest_seconds"`
	Kind          RestKind  `json:"kind"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// DrinkRecord is one logged water intake event.
type DrinkRecord struct {
	AmountML   int       `json:"amount_ml"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Options configure a new session.
type Options struct {
	UserID         int
	PlanName       string
	WarmupSeconds  int
	StretchSeconds int
	Challenge      *PlanEntry // optional one-shot challenge exercise
}

// Session is the root aggregate for one workout attempt. It owns its set
// records exclusively; nothing is shared across sessions.
type Session struct {
	ID       uuid.UUID `json:"id"`
	UserID   int       `json:"user_id"`
	PlanName string    `json:"plan_name"`
	Phase    Phase     `json:"phase"`

	Exercises []*ExerciseSlot `json:"exercises"`
	Challenge *ExerciseSlot   `json:"challenge,omitempty"`
	// ChallengeOffered flips when the challenge has been offered once;
	// it is never offered again regardless of the answer.
	ChallengeOffered bool `json:"challenge_offered,omitempty"`

	CurrentExercise int `json:"current_exercise"`
	CurrentSet      int `json:"current_set"` // 1-based, next set to perform

	ElapsedSeconds int  `json:"elapsed_seconds"`
	Paused         bool `json:"paused"`

	WarmupSeconds  int `json:"warmup_seconds"`
	StretchSeconds int `json:"stretch_seconds"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	QuitReason  string    `json:"quit_reason,omitempty"`

	RestIntervals []RestInterval `json:"rest_intervals"`
	Drinks        []DrinkRecord  `json:"drinks,omitempty"`
}

// New builds a session in the Warmup phase from plan entries.
func New(entries []PlanEntry, opts Options) *Session {
	s := &Session{
		ID:             uuid.New(),
		UserID:         opts.UserID,
		PlanName:       opts.PlanName,
		Phase:          PhaseWarmup,
		CurrentSet:     1,
		WarmupSeconds:  opts.WarmupSeconds,
		StretchSeconds: opts.StretchSeconds,
		StartedAt:      time.Now().UTC(),
	}
	for _, e := range entries {
		s.Exercises = append(s.Exercises, newSlot(e))
	}
	if opts.Challenge != nil {
		s.Challenge = newSlot(*opts.Challenge)
	}
	return s
}

// Slot returns the exercise slot at index, or nil when out of range.
func (s *Session) Slot(index int) *ExerciseSlot {
	if index < 0 || index >= len(s.Exercises) {
		return nil
	}
	return s.Exercises[index]
}

// CurrentSlot returns the slot for the exercise currently in view.
func (s *Session) CurrentSlot() *ExerciseSlot {
	return s.Slot(s.CurrentExercise)
}

// activeSlot returns the slot sets are currently recorded against: the
// challenge slot while in the Challenge phase, otherwise the current
// exercise slot.
func (s *Session) activeSlot() *ExerciseSlot {
	if s.Phase == PhaseChallenge && s.Challenge != nil {
		return s.Challenge
	}
	return s.CurrentSlot()
}

// nextExerciseIndex returns the index of the next non-removed exercise after
// index, or -1 when the list is exhausted.
func (s *Session) nextExerciseIndex(index int) int {
	for i := index + 1; i < len(s.Exercises); i++ {
		if !s.Exercises[i].Removed {
			return i
		}
	}
	return -1
}

// beginExercise marks the slot at index as the one in view and starts its
// time accumulator.
func (s *Session) beginExercise(index int, now time.Time) {
	if sl := s.Slot(index); sl != nil {
		s.CurrentExercise = index
		s.CurrentSet = 1
		sl.ActiveSince = now
	}
}

// finishExercise closes the accumulator for the slot at index.
func (s *Session) finishExercise(index int, now time.Time) {
	sl := s.Slot(index)
	if sl == nil || sl.ActiveSince.IsZero() {
		return
	}
	sl.ActiveSeconds += int(now.Sub(sl.ActiveSince).Seconds())
	sl.ActiveSince = time.Time{}
}

// RecordRest appends a rest interval observation.
func (s *Session) RecordRest(exerciseIndex, setNumber, restSeconds int, kind RestKind, now time.Time) {
	s.RestIntervals = append(s.RestIntervals, RestInterval{
		ExerciseIndex: exerciseIndex,
		SetNumber:     setNumber,
		RestSeconds:   restSeconds,
		Kind:          kind,
		RecordedAt:    now,
	})
}

// RecordDrink appends a water intake event.
func (s *Session) RecordDrink(amountML int, now time.Time) {
	if amountML <= 0 {
		return
	}
	s.Drinks = append(s.Drinks, DrinkRecord{AmountML: amountML, RecordedAt: now})
}

// SkipSlot marks the slot at index removed, invalidating its set count.
// Out-of-range indices are ignored.
func (s *Session) SkipSlot(index int) {
	if sl := s.Slot(index); sl != nil {
		sl.Removed = true
	}
}

// SwapSlot replaces the slot definition at index with a fresh one built from
// entry. Completed sets for the old slot are discarded and the slot gets a
// new identity.
func (s *Session) SwapSlot(index int, entry PlanEntry) {
	if index < 0 || index >= len(s.Exercises) {
		return
	}
	s.Exercises[index] = newSlot(entry)
	if index == s.CurrentExercise {
		s.CurrentSet = 1
	}
}

// InsertSlot inserts a fresh slot built from entry at index (clamped to the
// list bounds), e.g. to add a superset partner mid-session.
func (s *Session) InsertSlot(index int, entry PlanEntry) {
	if index < 0 {
		index = 0
	}
	if index > len(s.Exercises) {
		index = len(s.Exercises)
	}
	s.Exercises = append(s.Exercises, nil)
	copy(s.Exercises[index+1:], s.Exercises[index:])
	s.Exercises[index] = newSlot(entry)
	if index <= s.CurrentExercise && s.Phase != PhaseWarmup {
		s.CurrentExercise++
	}
}

// MoveSlot reorders the exercise list, moving the slot at from to position
// to. Slot IDs keep all per-exercise state attached through the move.
func (s *Session) MoveSlot(from, to int) {
	if from < 0 || from >= len(s.Exercises) || to < 0 || to >= len(s.Exercises) || from == to {
		return
	}
	cur := s.Exercises[s.CurrentExercise]
	sl := s.Exercises[from]
	rest := append(s.Exercises[:from:from], s.Exercises[from+1:]...)
	s.Exercises = append(rest[:to:to], append([]*ExerciseSlot{sl}, rest[to:]...)...)
	for i, e := range s.Exercises {
		if e == cur {
			s.CurrentExercise = i
			break
		}
	}
}
