package session

import (
	"errors"
	"testing"
	"time"
)

func twoExerciseSession() *Session {
	return New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 3, TargetReps: 10, RestSeconds: 90},
		{Name: "Squat", TargetSets: 3, TargetReps: 5, RestSeconds: 120},
	}, Options{UserID: 1, PlanName: "Push Day"})
}

// TestSetNumberingMonotonic verifies set numbers run 1..N with no gaps per
// exercise, regardless of interleaved recordings on other exercises.
func TestSetNumberingMonotonic(t *testing.T) {
	s := twoExerciseSession()
	now := time.Now()

	order := []int{0, 1, 0, 1, 1, 0}
	for i, idx := range order {
		if _, err := s.RecordSet(idx, 10, 50, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("RecordSet(%d): %v", idx, err)
		}
	}

	for idx := 0; idx < 2; idx++ {
		sets := s.Exercises[idx].Sets
		if len(sets) != 3 {
			t.Fatalf("exercise %d has %d sets, want 3", idx, len(sets))
		}
		for i, rec := range sets {
			if rec.SetNumber != i+1 {
				t.Errorf("exercise %d set %d: SetNumber = %d, want %d", idx, i, rec.SetNumber, i+1)
			}
		}
	}
}

// TestRecordSetValidation verifies invalid indices and negative values are
// rejected with the appropriate sentinel.
func TestRecordSetValidation(t *testing.T) {
	s := twoExerciseSession()
	now := time.Now()

	if _, err := s.RecordSet(5, 10, 50, now); !errors.Is(err, ErrNoSuchExercise) {
		t.Errorf("out-of-range index: err = %v, want ErrNoSuchExercise", err)
	}
	if _, err := s.RecordSet(-1, 10, 50, now); !errors.Is(err, ErrNoSuchExercise) {
		t.Errorf("negative index: err = %v, want ErrNoSuchExercise", err)
	}
	if _, err := s.RecordSet(0, -1, 50, now); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("negative reps: err = %v, want ErrInvalidValue", err)
	}
	if _, err := s.RecordSet(0, 10, -5, now); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("negative weight: err = %v, want ErrInvalidValue", err)
	}

	s.SkipSlot(0)
	if _, err := s.RecordSet(0, 10, 50, now); !errors.Is(err, ErrNoSuchExercise) {
		t.Errorf("removed slot: err = %v, want ErrNoSuchExercise", err)
	}
}

// TestDerivedMetrics covers the target accuracy invariants: 8 of 10 reps is
// 80% and a miss; untargeted sets always count as met at 100%.
func TestDerivedMetrics(t *testing.T) {
	r := SetRecord{Reps: 8, TargetReps: 10}
	if got := r.AccuracyPercent(); got != 80 {
		t.Errorf("AccuracyPercent = %d, want 80", got)
	}
	if r.MetTarget() {
		t.Error("MetTarget = true for 8/10, want false")
	}
	if !r.DiffersFromTarget() {
		t.Error("DiffersFromTarget = false for 8/10, want true")
	}

	untargeted := SetRecord{Reps: 3, TargetReps: 0}
	if got := untargeted.AccuracyPercent(); got != 100 {
		t.Errorf("untargeted AccuracyPercent = %d, want 100", got)
	}
	if !untargeted.MetTarget() {
		t.Error("untargeted MetTarget = false, want true")
	}
	if untargeted.DiffersFromTarget() {
		t.Error("untargeted DiffersFromTarget = true, want false")
	}

	exceeded := SetRecord{Reps: 12, TargetReps: 10}
	if !exceeded.MetTarget() {
		t.Error("MetTarget = false for 12/10, want true")
	}
	if !exceeded.DiffersFromTarget() {
		t.Error("DiffersFromTarget = false for 12/10, want true")
	}
}

// TestFastSetDetection verifies the too-fast heuristic: never the first set,
// and a 5s gap with 90s planned rest and 10 reps (minimum 110s) is flagged.
func TestFastSetDetection(t *testing.T) {
	s := twoExerciseSession()
	base := time.Now()

	first, err := s.RecordSet(0, 10, 50, base)
	if err != nil {
		t.Fatal(err)
	}
	if first.TooFast {
		t.Error("first set flagged too fast, want never")
	}

	second, err := s.RecordSet(0, 10, 50, base.Add(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !second.TooFast {
		t.Error("5s gap with 90s rest not flagged, want too fast (min 110s)")
	}

	// A gap above the minimum is fine.
	third, err := s.RecordSet(0, 10, 50, base.Add(5*time.Second+111*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if third.TooFast {
		t.Error("111s gap flagged too fast, want ok")
	}
}

// TestMinSetGapClamp verifies the reps*2 term is clamped to [10, 30].
func TestMinSetGapClamp(t *testing.T) {
	tests := []struct {
		rest, reps, want int
	}{
		{60, 1, 70},   // 2 clamps up to 10
		{60, 10, 80},  // 20 within range
		{60, 30, 90},  // 60 clamps down to 30
		{0, 0, 10},    // zero rest, zero reps
		{90, 10, 110}, // the documented example
	}
	for _, tt := range tests {
		if got := minSetGapSeconds(tt.rest, tt.reps); got != tt.want {
			t.Errorf("minSetGapSeconds(%d, %d) = %d, want %d", tt.rest, tt.reps, got, tt.want)
		}
	}
}

// TestEditSetPreserves verifies editing replaces reps/weight but keeps the
// original completion time and target.
func TestEditSetPreserves(t *testing.T) {
	s := twoExerciseSession()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := s.RecordSet(0, 10, 50, at); err != nil {
		t.Fatal(err)
	}

	if err := s.EditSet(0, 0, 8, 55); err != nil {
		t.Fatalf("EditSet: %v", err)
	}
	rec := s.Exercises[0].Sets[0]
	if rec.Reps != 8 || rec.WeightKg != 55 {
		t.Errorf("edited set = %d reps @ %.0fkg, want 8 @ 55", rec.Reps, rec.WeightKg)
	}
	if !rec.CompletedAt.Equal(at) {
		t.Errorf("CompletedAt changed on edit: %v", rec.CompletedAt)
	}
	if rec.TargetReps != 10 {
		t.Errorf("TargetReps changed on edit: %d", rec.TargetReps)
	}

	if err := s.EditSet(0, 7, 8, 55); !errors.Is(err, ErrNoSuchSet) {
		t.Errorf("out-of-range edit: err = %v, want ErrNoSuchSet", err)
	}
}

// TestDeleteSetRenumbers verifies deletion renumbers subsequent sets so
// numbering stays positional with no gaps.
func TestDeleteSetRenumbers(t *testing.T) {
	s := twoExerciseSession()
	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := s.RecordSet(0, 10, 50, now.Add(time.Duration(i)*3*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteSet(0, 1); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}
	sets := s.Exercises[0].Sets
	if len(sets) != 2 {
		t.Fatalf("len = %d after delete, want 2", len(sets))
	}
	for i, rec := range sets {
		if rec.SetNumber != i+1 {
			t.Errorf("set %d: SetNumber = %d, want %d", i, rec.SetNumber, i+1)
		}
	}

	if err := s.DeleteSet(0, 9); !errors.Is(err, ErrNoSuchSet) {
		t.Errorf("out-of-range delete: err = %v, want ErrNoSuchSet", err)
	}
}

// TestPersonalRecordDetection verifies PR flagging against the best-known
// cache, the in-session cache update, and the weight<=0 rule.
func TestPersonalRecordDetection(t *testing.T) {
	s := twoExerciseSession()
	s.Exercises[0].BestKnownKg = 100
	now := time.Now()

	if s.IsPersonalRecord(0, 0) {
		t.Error("zero weight reported as PR")
	}
	if s.IsPersonalRecord(0, 100) {
		t.Error("equal weight reported as PR")
	}
	if !s.IsPersonalRecord(0, 101) {
		t.Error("101 > 100 not reported as PR")
	}

	rec, err := s.RecordSet(0, 5, 105, now)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.PersonalRecord {
		t.Error("105kg set not flagged as PR against 100kg best")
	}
	if s.Exercises[0].BestKnownKg != 105 {
		t.Errorf("cache not updated: BestKnownKg = %.0f, want 105", s.Exercises[0].BestKnownKg)
	}

	// Same weight again is no longer a record.
	rec2, err := s.RecordSet(0, 5, 105, now.Add(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if rec2.PersonalRecord {
		t.Error("repeat of 105kg flagged as PR after cache update")
	}

	// No history at all: any positive weight is a first record.
	rec3, err := s.RecordSet(1, 5, 60, now)
	if err != nil {
		t.Fatal(err)
	}
	if !rec3.PersonalRecord {
		t.Error("first weighted set with empty history not flagged as PR")
	}
}

// TestPerSetRepOverrides verifies reps_per_set overrides the uniform target.
func TestPerSetRepOverrides(t *testing.T) {
	s := New([]PlanEntry{
		{Name: "Deadlift", TargetSets: 3, TargetReps: 5, RepsPerSet: []int{8, 6, 4}, RestSeconds: 120},
	}, Options{})
	now := time.Now()

	for i := 0; i < 3; i++ {
		if _, err := s.RecordSet(0, 5, 100, now.Add(time.Duration(i)*4*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	got := []int{
		s.Exercises[0].Sets[0].TargetReps,
		s.Exercises[0].Sets[1].TargetReps,
		s.Exercises[0].Sets[2].TargetReps,
	}
	want := []int{8, 6, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("set %d TargetReps = %d, want %d", i+1, got[i], want[i])
		}
	}
}
