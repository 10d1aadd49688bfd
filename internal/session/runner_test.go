package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubHistory struct {
	max  map[string]float64
	prev map[string][]PreviousSet
}

func (h *stubHistory) AllTimeMaxKg(_ context.Context, _ int, exercise string) (float64, error) {
	return h.max[exercise], nil
}

func (h *stubHistory) PreviousSets(_ context.Context, _ int, exercise string, _ int) ([]PreviousSet, error) {
	return h.prev[exercise], nil
}

type stubPersister struct {
	mu   sync.Mutex
	logs []*CompletedLog
	err  error
}

func (p *stubPersister) SaveLog(_ context.Context, cl *CompletedLog) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return uuid.Nil, p.err
	}
	p.logs = append(p.logs, cl)
	return uuid.New(), nil
}

func (p *stubPersister) saved() []*CompletedLog {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logs
}

type stubSnapshots struct {
	mu      sync.Mutex
	saves   int
	deletes int
}

func (s *stubSnapshots) Save(*Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return nil
}

func (s *stubSnapshots) Delete(uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	return nil
}

func testConfig() RunnerConfig {
	return RunnerConfig{TickInterval: 10 * time.Millisecond}
}

// TestRunnerFullSession walks the canonical happy path: one exercise with
// two target sets. Set 1 enters Resting, skip returns to Active with the set
// counter advanced, set 2 (last set, last exercise) jumps straight to
// Stretch, and finishing the stretches completes and persists the session.
func TestRunnerFullSession(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, PlanName: "Chest", WarmupSeconds: 600, StretchSeconds: 600})

	sink := &stubPersister{}
	snaps := &stubSnapshots{}
	r := NewRunner(sess, Deps{Persist: sink, Snapshots: snaps}, testConfig(), testLogger())

	r.Start()
	if got := r.Phase(); got != PhaseWarmup {
		t.Fatalf("phase after Start = %s, want warmup", got)
	}

	r.FinishWarmup()
	if got := r.Phase(); got != PhaseActive {
		t.Fatalf("phase after FinishWarmup = %s, want active", got)
	}

	if _, err := r.CompleteSet(10, 20); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseResting {
		t.Fatalf("phase after set 1 = %s, want resting", got)
	}

	r.SkipRest()
	if got := r.Phase(); got != PhaseActive {
		t.Fatalf("phase after SkipRest = %s, want active", got)
	}
	if sess.CurrentSet != 2 {
		t.Errorf("CurrentSet = %d after rest, want 2", sess.CurrentSet)
	}
	if len(sess.RestIntervals) != 1 {
		t.Fatalf("rest intervals = %d, want 1", len(sess.RestIntervals))
	}
	if ri := sess.RestIntervals[0]; ri.Kind != RestBetweenSets || ri.SetNumber != 1 {
		t.Errorf("rest interval = %+v", ri)
	}

	if _, err := r.CompleteSet(9, 20); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseStretch {
		t.Fatalf("phase after final set = %s, want stretch (transitioning skipped)", got)
	}

	r.FinishStretch()
	if got := r.Phase(); got != PhaseComplete {
		t.Fatalf("phase after FinishStretch = %s, want complete", got)
	}
	if !r.Finished() {
		t.Error("runner not finished after completion")
	}
	if r.LogID() == uuid.Nil {
		t.Error("no log ID recorded after successful persist")
	}

	saved := sink.saved()
	if len(saved) != 1 {
		t.Fatalf("persisted %d logs, want 1", len(saved))
	}
	sum := saved[0].Summary
	if sum.TotalCompletedSets != 2 || sum.TotalReps != 19 || sum.TotalVolumeKg != 380 {
		t.Errorf("summary = %d sets, %d reps, %.0fkg; want 2, 19, 380",
			sum.TotalCompletedSets, sum.TotalReps, sum.TotalVolumeKg)
	}
	if sum.Incomplete {
		t.Error("completed session tagged incomplete")
	}

	snaps.mu.Lock()
	defer snaps.mu.Unlock()
	if snaps.saves == 0 {
		t.Error("no snapshots saved during session")
	}
	if snaps.deletes != 1 {
		t.Errorf("snapshot deletes = %d, want 1", snaps.deletes)
	}
}

// TestRunnerQuitMidSession covers the quit path: three exercises, one set on
// the first, quit with a reason. The partial summary reports ~33% progress
// and the incomplete tag, and the machine accepts nothing afterwards.
func TestRunnerQuitMidSession(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
		{Name: "C", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, PlanName: "Full Body", WarmupSeconds: 600})

	sink := &stubPersister{}
	r := NewRunner(sess, Deps{Persist: sink}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()

	if _, err := r.CompleteSet(10, 40); err != nil {
		t.Fatal(err)
	}
	r.Quit("too_tired")

	if !r.Finished() {
		t.Fatal("runner not finished after quit")
	}
	saved := sink.saved()
	if len(saved) != 1 {
		t.Fatalf("persisted %d logs, want 1", len(saved))
	}
	sum := saved[0].Summary
	if !sum.Incomplete || sum.QuitReason != "too_tired" {
		t.Errorf("summary incomplete=%v reason=%q, want incomplete too_tired", sum.Incomplete, sum.QuitReason)
	}
	if sum.ExercisesCompleted != 1 {
		t.Errorf("ExercisesCompleted = %d, want 1", sum.ExercisesCompleted)
	}
	if sum.ProgressPercentage < 33 || sum.ProgressPercentage > 34 {
		t.Errorf("ProgressPercentage = %.2f, want ~33.33", sum.ProgressPercentage)
	}

	// Everything after quit is a no-op.
	if _, err := r.CompleteSet(10, 40); err == nil {
		t.Error("CompleteSet accepted after quit")
	}
	r.Quit("again")
	if len(sink.saved()) != 1 {
		t.Error("second quit persisted another log")
	}
}

// TestRunnerTransitionBetweenExercises verifies the Transitioning sub-state:
// finishing an exercise with another remaining enters Transitioning, and
// skipping it advances to the next exercise with the set counter reset.
func TestRunnerTransitionBetweenExercises(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()

	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseTransitioning {
		t.Fatalf("phase = %s, want transitioning", got)
	}

	r.SkipTransition()
	if got := r.Phase(); got != PhaseActive {
		t.Fatalf("phase after SkipTransition = %s, want active", got)
	}
	if sess.CurrentExercise != 1 {
		t.Errorf("CurrentExercise = %d, want 1", sess.CurrentExercise)
	}
	if sess.CurrentSet != 1 {
		t.Errorf("CurrentSet = %d, want 1 (reset for new exercise)", sess.CurrentSet)
	}
	if len(sess.RestIntervals) != 1 || sess.RestIntervals[0].Kind != RestBetweenExercises {
		t.Errorf("rest intervals = %+v, want one between_exercises entry", sess.RestIntervals)
	}

	// Exercise A's time accumulator is closed, B's is open.
	if !sess.Exercises[0].ActiveSince.IsZero() {
		t.Error("exercise A accumulator still open after transition")
	}
	if sess.Exercises[1].ActiveSince.IsZero() {
		t.Error("exercise B accumulator not started")
	}
}

// TestRunnerRestTimerCompletesNaturally verifies the rest countdown returns
// the machine to Active on its own.
func TestRunnerRestTimerCompletesNaturally(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 2, TargetReps: 10, RestSeconds: 2},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseResting {
		t.Fatalf("phase = %s, want resting", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for r.Phase() != PhaseActive {
		if time.Now().After(deadline) {
			t.Fatal("rest timer never returned to active")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(sess.RestIntervals) != 1 {
		t.Errorf("rest intervals = %d, want 1", len(sess.RestIntervals))
	}
}

// TestRunnerPauseBlocksTimerTransitions verifies pause freezes the rest
// countdown in place: no phase transition fires from a paused timer, and
// resuming lets it complete.
func TestRunnerPauseBlocksTimerTransitions(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 2, TargetReps: 10, RestSeconds: 2},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}

	r.Pause()
	time.Sleep(100 * time.Millisecond) // far longer than the 2-tick rest
	if got := r.Phase(); got != PhaseResting {
		t.Fatalf("phase advanced to %s while paused, want resting", got)
	}

	r.Resume()
	deadline := time.Now().Add(5 * time.Second)
	for r.Phase() != PhaseActive {
		if time.Now().After(deadline) {
			t.Fatal("rest timer never completed after resume")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestRunnerChallengeOfferedOnce verifies the challenge phase is offered
// after the last exercise, can be declined, and is never offered again.
func TestRunnerChallengeOfferedOnce(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{
		UserID: 1, WarmupSeconds: 600, StretchSeconds: 600,
		Challenge: &PlanEntry{Name: "Max Pushups", TargetSets: 1, TargetReps: 30},
	})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseChallenge {
		t.Fatalf("phase after last set = %s, want challenge", got)
	}
	if !sess.ChallengeOffered {
		t.Error("ChallengeOffered not set")
	}

	r.DeclineChallenge()
	if got := r.Phase(); got != PhaseStretch {
		t.Fatalf("phase after decline = %s, want stretch", got)
	}
}

// TestRunnerChallengeAccepted verifies recording the challenge set moves the
// session on to Stretch and its reps count into the summary.
func TestRunnerChallengeAccepted(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{
		UserID: 1, WarmupSeconds: 600, StretchSeconds: 600,
		Challenge: &PlanEntry{Name: "Max Pushups", TargetSets: 1, TargetReps: 30},
	})

	sink := &stubPersister{}
	r := NewRunner(sess, Deps{Persist: sink}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CompleteSet(25, 0); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseStretch {
		t.Fatalf("phase after challenge set = %s, want stretch", got)
	}

	r.FinishStretch()
	sum := sink.saved()[0].Summary
	if sum.TotalReps != 35 {
		t.Errorf("TotalReps = %d, want 35 (10 + 25 challenge)", sum.TotalReps)
	}
}

// TestRunnerPersistFailureStillCompletes verifies the session reaches
// Complete with local totals even when the sink errors.
func TestRunnerPersistFailureStillCompletes(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	sink := &stubPersister{err: errors.New("database is down")}
	r := NewRunner(sess, Deps{Persist: sink}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	if _, err := r.CompleteSet(10, 30); err != nil {
		t.Fatal(err)
	}
	r.FinishStretch()

	if got := r.Phase(); got != PhaseComplete {
		t.Fatalf("phase = %s after failed persist, want complete", got)
	}
	if r.LogID() != uuid.Nil {
		t.Error("log ID set despite persist failure")
	}
	if sum := r.Summarize(); sum.TotalCompletedSets != 1 {
		t.Errorf("local totals lost: %d sets, want 1", sum.TotalCompletedSets)
	}
}

// TestRunnerHistoryPreloadFeedsPRDetection verifies the best-known weight
// preloaded from history drives PR flagging, including the fallback to
// previously fetched sets when no all-time record exists.
func TestRunnerHistoryPreloadFeedsPRDetection(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
		{Name: "Squat", TargetSets: 2, TargetReps: 5, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	hist := &stubHistory{
		max: map[string]float64{"Bench Press": 100},
		prev: map[string][]PreviousSet{
			"Squat": {{Reps: 5, WeightKg: 140}, {Reps: 5, WeightKg: 150}},
		},
	}
	r := NewRunner(sess, Deps{History: hist}, testConfig(), testLogger())
	r.Start()

	deadline := time.Now().Add(5 * time.Second)
	for {
		r.mu.Lock()
		loaded := sess.Exercises[0].BestKnownKg == 100 && sess.Exercises[1].BestKnownKg == 150
		r.mu.Unlock()
		if loaded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("history preload never populated best-known weights")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.FinishWarmup()
	rec, err := r.CompleteSet(8, 102.5)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.PersonalRecord {
		t.Error("102.5kg over a 100kg all-time max not flagged as PR")
	}
}

// TestRunnerFinishWarmupTwice verifies repeated warmup finishes are no-ops.
func TestRunnerFinishWarmupTwice(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 1, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	r.FinishWarmup()
	if got := r.Phase(); got != PhaseActive {
		t.Fatalf("phase = %s, want active", got)
	}
	if sess.Exercises[0].ActiveSince.IsZero() {
		t.Error("first exercise accumulator not started")
	}
}

// TestRunnerMoveSlotKeepsStateWithSlot verifies reordering carries per-slot
// state: the moved list keeps the current exercise in view with its slot
// identity and recorded sets intact.
func TestRunnerMoveSlotKeepsStateWithSlot(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
		{Name: "C", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()

	if _, err := r.CompleteSet(10, 50); err != nil {
		t.Fatal(err)
	}
	r.SkipRest()

	aID := sess.Exercises[0].ID
	if err := r.MoveSlot(2, 0); err != nil {
		t.Fatal(err)
	}

	if got := sess.Exercises[0].Name; got != "C" {
		t.Errorf("Exercises[0] = %s after move, want C", got)
	}
	if sess.CurrentExercise != 1 {
		t.Errorf("CurrentExercise = %d after move, want 1", sess.CurrentExercise)
	}
	cur := sess.CurrentSlot()
	if cur.ID != aID {
		t.Error("current slot identity changed by the move")
	}
	if len(cur.Sets) != 1 || cur.Sets[0].Reps != 10 {
		t.Errorf("current slot sets = %+v, want the one recorded set", cur.Sets)
	}

	if err := r.MoveSlot(0, 5); !errors.Is(err, ErrNoSuchExercise) {
		t.Errorf("MoveSlot out of range = %v, want ErrNoSuchExercise", err)
	}
}

// TestRunnerSwapSlotResetsSets verifies a swap replaces the definition and
// starts the slot over: new identity, no recorded sets, set counter at 1.
func TestRunnerSwapSlotResetsSets(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "Bench Press", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
		{Name: "Row", TargetSets: 3, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()

	if _, err := r.CompleteSet(10, 40); err != nil {
		t.Fatal(err)
	}
	r.SkipRest()
	if sess.CurrentSet != 2 {
		t.Fatalf("CurrentSet = %d before swap, want 2", sess.CurrentSet)
	}

	oldID := sess.Exercises[0].ID
	err := r.SwapSlot(0, PlanEntry{Name: "Incline Press", TargetSets: 3, TargetReps: 8, RestSeconds: 45})
	if err != nil {
		t.Fatal(err)
	}

	sl := sess.Exercises[0]
	if sl.ID == oldID {
		t.Error("swap kept the old slot identity")
	}
	if sl.Name != "Incline Press" || sl.TargetReps != 8 {
		t.Errorf("swapped slot = %s/%d reps, want Incline Press/8", sl.Name, sl.TargetReps)
	}
	if len(sl.Sets) != 0 {
		t.Errorf("swapped slot kept %d sets, want 0", len(sl.Sets))
	}
	if sess.CurrentSet != 1 {
		t.Errorf("CurrentSet = %d after swap, want 1", sess.CurrentSet)
	}

	if err := r.SwapSlot(0, PlanEntry{}); !errors.Is(err, ErrBadEntry) {
		t.Errorf("SwapSlot with empty entry = %v, want ErrBadEntry", err)
	}
}

// TestRunnerSkipSlotAdvances verifies skipping the exercise in view moves on
// to the next remaining one, and skipping the last remaining exercise heads
// to the stretch finale.
func TestRunnerSkipSlotAdvances(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()

	if err := r.SkipSlot(0); err != nil {
		t.Fatal(err)
	}
	if !sess.Exercises[0].Removed {
		t.Error("skipped slot not marked removed")
	}
	if sess.CurrentExercise != 1 {
		t.Errorf("CurrentExercise = %d after skip, want 1", sess.CurrentExercise)
	}

	if err := r.SkipSlot(0); !errors.Is(err, ErrNoSuchExercise) {
		t.Errorf("skipping a removed slot = %v, want ErrNoSuchExercise", err)
	}

	// Nothing follows B, so skipping it ends the exercise list.
	if err := r.SkipSlot(1); err != nil {
		t.Fatal(err)
	}
	if got := r.Phase(); got != PhaseStretch {
		t.Fatalf("phase after skipping the last exercise = %s, want stretch", got)
	}
}

// TestRunnerInsertSlotSuperset verifies inserting mid-list shifts later
// slots down without disturbing the exercise in view.
func TestRunnerInsertSlotSuperset(t *testing.T) {
	sess := New([]PlanEntry{
		{Name: "A", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
		{Name: "B", TargetSets: 2, TargetReps: 10, RestSeconds: 60},
	}, Options{UserID: 1, WarmupSeconds: 600, StretchSeconds: 600})

	r := NewRunner(sess, Deps{}, testConfig(), testLogger())
	r.Start()
	r.FinishWarmup()
	cur := sess.CurrentSlot()

	err := r.InsertSlot(1, PlanEntry{Name: "Chin-Up", TargetSets: 2, TargetReps: 8, RestSeconds: 45})
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Exercises) != 3 {
		t.Fatalf("exercise count = %d after insert, want 3", len(sess.Exercises))
	}
	if got := sess.Exercises[1].Name; got != "Chin-Up" {
		t.Errorf("Exercises[1] = %s, want Chin-Up", got)
	}
	if sess.CurrentSlot() != cur {
		t.Error("insert after the current slot changed the exercise in view")
	}

	// Inserting before the current slot shifts its index but not the view.
	if err := r.InsertSlot(0, PlanEntry{Name: "Warm Set", TargetSets: 1, TargetReps: 15}); err != nil {
		t.Fatal(err)
	}
	if sess.CurrentSlot() != cur {
		t.Error("insert before the current slot changed the exercise in view")
	}

	if err := r.InsertSlot(0, PlanEntry{Name: "No Sets"}); !errors.Is(err, ErrBadEntry) {
		t.Errorf("InsertSlot without a set count = %v, want ErrBadEntry", err)
	}
}
