package session

import (
	"testing"
	"time"
)

// TestSummaryTotals verifies the documented volume math: sets of 10x50 and
// 8x55 give 18 reps and 940kg volume.
func TestSummaryTotals(t *testing.T) {
	s := New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 2, TargetReps: 10, RestSeconds: 90},
	}, Options{UserID: 1, PlanName: "Chest"})
	now := time.Now()

	if _, err := s.RecordSet(0, 10, 50, now); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSet(0, 8, 55, now.Add(3*time.Minute)); err != nil {
		t.Fatal(err)
	}

	sum := BuildSummary(s)
	if sum.TotalCompletedSets != 2 {
		t.Errorf("TotalCompletedSets = %d, want 2", sum.TotalCompletedSets)
	}
	if sum.TotalReps != 18 {
		t.Errorf("TotalReps = %d, want 18", sum.TotalReps)
	}
	if sum.TotalVolumeKg != 940 {
		t.Errorf("TotalVolumeKg = %.1f, want 940", sum.TotalVolumeKg)
	}
	if len(sum.Exercises) != 1 {
		t.Fatalf("exercise breakdown has %d entries, want 1", len(sum.Exercises))
	}
	ex := sum.Exercises[0]
	if ex.Name != "Bench Press" || ex.SetsCompleted != 2 || ex.TotalReps != 18 {
		t.Errorf("breakdown = %+v", ex)
	}
	if ex.AvgWeightKg != 52.5 {
		t.Errorf("AvgWeightKg = %.2f, want 52.5", ex.AvgWeightKg)
	}
	if sum.ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage = %.1f, want 100", sum.ProgressPercentage)
	}
}

// TestSummaryRestStats verifies rest totals and the zero-interval average.
func TestSummaryRestStats(t *testing.T) {
	s := twoExerciseSession()
	now := time.Now()

	if got := BuildSummary(s).AvgRestSeconds; got != 0 {
		t.Errorf("AvgRestSeconds with no intervals = %.1f, want 0", got)
	}

	s.RecordRest(0, 1, 60, RestBetweenSets, now)
	s.RecordRest(0, 2, 90, RestBetweenSets, now)
	s.RecordRest(0, 0, 120, RestBetweenExercises, now)

	sum := BuildSummary(s)
	if sum.TotalRestSeconds != 270 {
		t.Errorf("TotalRestSeconds = %d, want 270", sum.TotalRestSeconds)
	}
	if sum.AvgRestSeconds != 90 {
		t.Errorf("AvgRestSeconds = %.1f, want 90", sum.AvgRestSeconds)
	}
}

// TestSummaryProgressPartial verifies the quit-path math: one of three
// exercises touched reads as ~33% with the incomplete tag and reason.
func TestSummaryProgressPartial(t *testing.T) {
	s := New([]PlanEntry{
		{Name: "A", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
		{Name: "C", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, PlanName: "Full Body"})

	if _, err := s.RecordSet(0, 10, 40, time.Now()); err != nil {
		t.Fatal(err)
	}

	sum := BuildPartialSummary(s, "too_tired")
	if !sum.Incomplete {
		t.Error("partial summary not tagged incomplete")
	}
	if sum.QuitReason != "too_tired" {
		t.Errorf("QuitReason = %q, want too_tired", sum.QuitReason)
	}
	if sum.ExercisesCompleted != 1 {
		t.Errorf("ExercisesCompleted = %d, want 1", sum.ExercisesCompleted)
	}
	if sum.ProgressPercentage < 33 || sum.ProgressPercentage > 34 {
		t.Errorf("ProgressPercentage = %.2f, want ~33.33", sum.ProgressPercentage)
	}
}

// TestSummaryEmptyPlan verifies an empty exercise list reads as 100%.
func TestSummaryEmptyPlan(t *testing.T) {
	s := New(nil, Options{})
	sum := BuildSummary(s)
	if sum.ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage for empty plan = %.1f, want 100", sum.ProgressPercentage)
	}
	if sum.TotalCompletedSets != 0 || sum.TotalVolumeKg != 0 {
		t.Errorf("empty plan totals = %d sets, %.1fkg", sum.TotalCompletedSets, sum.TotalVolumeKg)
	}
}

// TestSummaryIncludesChallenge verifies challenge sets count into totals but
// not into the planned-exercise progress percentage.
func TestSummaryIncludesChallenge(t *testing.T) {
	s := New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{Challenge: &PlanEntry{Name: "Max Pushups", TargetSets: 1, TargetReps: 30}})
	now := time.Now()

	if _, err := s.RecordSet(0, 10, 50, now); err != nil {
		t.Fatal(err)
	}
	s.recordSlotSet(s.Challenge, 25, 0, now)

	sum := BuildSummary(s)
	if sum.TotalCompletedSets != 2 {
		t.Errorf("TotalCompletedSets = %d, want 2 (incl. challenge)", sum.TotalCompletedSets)
	}
	if sum.TotalReps != 35 {
		t.Errorf("TotalReps = %d, want 35", sum.TotalReps)
	}
	if sum.ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage = %.1f, want 100 (challenge is a bonus)", sum.ProgressPercentage)
	}
	if sum.ExercisesCompleted != 2 {
		t.Errorf("ExercisesCompleted = %d, want 2", sum.ExercisesCompleted)
	}
}

// TestCompletedLogFlattens verifies the persistence payload carries every
// set with its exercise coordinates.
func TestCompletedLogFlattens(t *testing.T) {
	s := twoExerciseSession()
	now := time.Now()
	if _, err := s.RecordSet(0, 10, 50, now); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSet(1, 5, 80, now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordSet(0, 9, 50, now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	s.RecordDrink(250, now)

	cl := NewCompletedLog(s, BuildSummary(s))
	if len(cl.Sets) != 3 {
		t.Fatalf("flattened %d sets, want 3", len(cl.Sets))
	}
	benchID := s.Exercises[0].ID
	for _, fs := range cl.Sets {
		if fs.ExerciseIndex == 0 && (fs.SlotID != benchID || fs.ExerciseName != "Bench Press") {
			t.Errorf("flat set coordinates wrong: %+v", fs)
		}
	}
	if len(cl.Drinks) != 1 || cl.Drinks[0].AmountML != 250 {
		t.Errorf("drinks = %+v, want one 250ml entry", cl.Drinks)
	}
}
