package session

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrNoSuchExercise is returned for an out-of-range or removed slot.
	ErrNoSuchExercise = errors.New("no such exercise")
	// ErrNoSuchSet is returned when a set index does not exist.
	ErrNoSuchSet = errors.New("no such set")
	// ErrInvalidValue is returned for negative reps or weight.
	ErrInvalidValue = errors.New("reps and weight must be non-negative")
	// ErrBadEntry is returned when a swapped or inserted exercise entry
	// lacks a name or a positive set count.
	ErrBadEntry = errors.New("exercise entry needs a name and at least one set")
)

// SetRecord is one completed repetition block. Weights are always kilograms;
// unit conversion is a display-time concern and never stored. SetNumber is
// positionally derived (slice index + 1) and renumbered on delete.
type SetRecord struct {
	SetNumber      int       `json:"set_number"`
	Reps           int       `json:"reps"`
	WeightKg       float64   `json:"weight_kg"`
	TargetReps     int       `json:"target_reps"`
	CompletedAt    time.Time `json:"completed_at"`
	TooFast        bool      `json:"too_fast,omitempty"`
	PersonalRecord bool      `json:"personal_record,omitempty"`
}

// DiffersFromTarget reports whether the actual reps missed the target.
func (r SetRecord) DiffersFromTarget() bool {
	return r.TargetReps > 0 && r.Reps != r.TargetReps
}

// AccuracyPercent is reps relative to target, rounded. Untargeted sets
// (target <= 0) report 100.
func (r SetRecord) AccuracyPercent() int {
	if r.TargetReps <= 0 {
		return 100
	}
	return int(math.Round(float64(r.Reps) / float64(r.TargetReps) * 100))
}

// MetTarget reports whether the set reached its rep target. Untargeted sets
// always count as met.
func (r SetRecord) MetTarget() bool {
	return r.TargetReps <= 0 || r.Reps >= r.TargetReps
}

// minSetGapSeconds is the heuristic minimum wall-clock gap a human needs to
// rest and perform a set: the planned rest plus two seconds per rep, clamped
// to [10, 30]. Empirical constant carried over from the observed behavior.
func minSetGapSeconds(restSeconds, reps int) int {
	performance := reps * 2
	if performance < 10 {
		performance = 10
	}
	if performance > 30 {
		performance = 30
	}
	return restSeconds + performance
}

// RecordSet appends a completed set for the slot at exerciseIndex and returns
// the new record. The set number is the previous count plus one, so numbering
// per slot is 1..N with no gaps regardless of interleaving across slots.
//
// The record is flagged TooFast when the wall-clock gap since the previous
// set of the same slot is below the heuristic minimum; the first set of a
// slot is never flagged. PersonalRecord is set when the weight exceeds the
// best previously known for the exercise, updating the in-session cache.
func (s *Session) RecordSet(exerciseIndex, reps int, weightKg float64, now time.Time) (*SetRecord, error) {
	sl := s.Slot(exerciseIndex)
	if sl == nil || sl.Removed {
		return nil, ErrNoSuchExercise
	}
	if reps < 0 || weightKg < 0 {
		return nil, ErrInvalidValue
	}
	return s.recordSlotSet(sl, reps, weightKg, now), nil
}

func (s *Session) recordSlotSet(sl *ExerciseSlot, reps int, weightKg float64, now time.Time) *SetRecord {
	rec := SetRecord{
		SetNumber:   len(sl.Sets) + 1,
		Reps:        reps,
		WeightKg:    weightKg,
		TargetReps:  sl.TargetRepsFor(len(sl.Sets) + 1),
		CompletedAt: now,
	}

	// Pauses do not stop the wall-clock measurement used here.
	if n := len(sl.Sets); n > 0 {
		gap := now.Sub(sl.Sets[n-1].CompletedAt).Seconds()
		rec.TooFast = gap < float64(minSetGapSeconds(sl.RestSeconds, reps))
	}

	if weightKg > 0 && weightKg > sl.BestKnownKg {
		rec.PersonalRecord = true
		sl.BestKnownKg = weightKg
	}

	sl.Sets = append(sl.Sets, rec)
	return &sl.Sets[len(sl.Sets)-1]
}

// EditSet replaces the reps and weight of an existing record in place,
// preserving CompletedAt and TargetReps. Out-of-range indices are reported
// so callers can choose between the permissive no-op policy and a 404.
func (s *Session) EditSet(exerciseIndex, setIndex, newReps int, newWeightKg float64) error {
	sl := s.Slot(exerciseIndex)
	if sl == nil || sl.Removed {
		return ErrNoSuchExercise
	}
	if setIndex < 0 || setIndex >= len(sl.Sets) {
		return ErrNoSuchSet
	}
	if newReps < 0 || newWeightKg < 0 {
		return ErrInvalidValue
	}
	sl.Sets[setIndex].Reps = newReps
	sl.Sets[setIndex].WeightKg = newWeightKg
	return nil
}

// DeleteSet removes the record at setIndex. Subsequent records are
// renumbered so set numbers stay positional (index + 1) with no gaps.
func (s *Session) DeleteSet(exerciseIndex, setIndex int) error {
	sl := s.Slot(exerciseIndex)
	if sl == nil || sl.Removed {
		return ErrNoSuchExercise
	}
	if setIndex < 0 || setIndex >= len(sl.Sets) {
		return ErrNoSuchSet
	}
	sl.Sets = append(sl.Sets[:setIndex], sl.Sets[setIndex+1:]...)
	for i := range sl.Sets {
		sl.Sets[i].SetNumber = i + 1
	}
	return nil
}

// IsPersonalRecord reports whether weightKg beats the best known weight for
// the slot at exerciseIndex. Zero or negative weights never qualify.
func (s *Session) IsPersonalRecord(exerciseIndex int, weightKg float64) bool {
	sl := s.Slot(exerciseIndex)
	if sl == nil || weightKg <= 0 {
		return false
	}
	return weightKg > sl.BestKnownKg
}

// CompletedSets returns the number of recorded sets for the slot at index.
func (s *Session) CompletedSets(exerciseIndex int) int {
	sl := s.Slot(exerciseIndex)
	if sl == nil {
		return 0
	}
	return len(sl.Sets)
}
