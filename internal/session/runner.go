package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repflow/internal/timer"
	"github.com/google/uuid"
)

// DefaultTransitionSeconds is the countdown between exercises when a slot
// does not carry its own value.
const DefaultTransitionSeconds = 7

// persistTimeout bounds the final save at session completion.
const persistTimeout = 30 * time.Second

// MediaStatus is the display state of the current exercise's media fetch.
type MediaStatus string

const (
	MediaIdle    MediaStatus = "idle"
	MediaLoading MediaStatus = "loading"
	MediaLoaded  MediaStatus = "loaded"
	MediaFailed  MediaStatus = "failed"
)

// DisplayState holds the optional enrichments the UI renders alongside the
// session. Every field is patched asynchronously as collaborator responses
// arrive; none of them gates a phase transition.
type DisplayState struct {
	MediaStatus          MediaStatus `json:"media_status"`
	Media                Media       `json:"media,omitempty"`
	RestMessage          string      `json:"rest_message,omitempty"`
	SuggestedRestSeconds int         `json:"suggested_rest_seconds,omitempty"`
	SuggestedWeightKg    float64     `json:"suggested_weight_kg,omitempty"`
	Fatigued             bool        `json:"fatigued,omitempty"`
	ChallengePending     bool        `json:"challenge_pending,omitempty"`
}

// Deps are the external collaborators a Runner drives. Any of them may be
// nil; a missing collaborator simply disables its enrichment.
type Deps struct {
	History   History
	Media     MediaResolver
	Suggest   Suggester
	Persist   Persister
	Snapshots SnapshotStore
	// Cue fires on countdown thresholds (5/3/2/1 seconds remaining by
	// default) for haptic or audio feedback.
	Cue func(remaining int)
}

// RunnerConfig tunes the engine. Zero values select defaults.
type RunnerConfig struct {
	TransitionSeconds int
	TickInterval      time.Duration // tests shrink this
	CueThresholds     []int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.TransitionSeconds <= 0 {
		c.TransitionSeconds = DefaultTransitionSeconds
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.CueThresholds == nil {
		c.CueThresholds = timer.DefaultThresholds
	}
	return c
}

// Runner owns one Session and serializes every mutation behind its mutex.
// Timer callbacks, HTTP handlers, and enrichment goroutines all go through
// the same lock, so ledger operations never interleave.
type Runner struct {
	mu   sync.Mutex
	log  *slog.Logger
	cfg  RunnerConfig
	deps Deps

	sess    *Session
	display DisplayState

	elapsed    *timer.Elapsed
	warmup     *timer.Countdown
	rest       *timer.Countdown
	transition *timer.Countdown
	stretch    *timer.Countdown

	// lastSetAt is the wall-clock anchor for measuring actual rest; pauses
	// deliberately do not move it.
	lastSetAt   time.Time
	pendingRest RestInterval
	pendingNext int
	restGen     int

	logID    uuid.UUID
	finished bool
}

// NewRunner wires a Runner around a freshly created session.
func NewRunner(sess *Session, deps Deps, cfg RunnerConfig, log *slog.Logger) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		log:        log,
		cfg:        cfg,
		deps:       deps,
		sess:       sess,
		elapsed:    timer.NewElapsedInterval(cfg.TickInterval),
		warmup:     timer.NewCountdownInterval(cfg.TickInterval),
		rest:       timer.NewCountdownInterval(cfg.TickInterval),
		transition: timer.NewCountdownInterval(cfg.TickInterval),
		stretch:    timer.NewCountdownInterval(cfg.TickInterval),
	}
}

// Session returns the underlying session ID.
func (r *Runner) SessionID() uuid.UUID {
	return r.sess.ID
}

// Start begins the warmup phase, the elapsed clock, and the background
// history preload for personal-record detection.
func (r *Runner) Start() {
	r.elapsed.Start(func(secs int) {
		r.mu.Lock()
		if !r.finished {
			r.sess.ElapsedSeconds = secs
		}
		r.mu.Unlock()
	})

	go r.preloadHistory()

	// A zero warmup completes synchronously, which is why this runs
	// outside the lock.
	r.warmup.Start(r.sess.WarmupSeconds, r.countdownHooks(r.onWarmupDone))
}

func (r *Runner) countdownHooks(onComplete func()) timer.Hooks {
	return timer.Hooks{
		Thresholds:  r.cfg.CueThresholds,
		OnThreshold: r.deps.Cue,
		OnComplete:  onComplete,
	}
}

// preloadHistory fills each slot's best-known weight from the all-time max,
// falling back to the max among recent historical sets.
func (r *Runner) preloadHistory() {
	if r.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	r.mu.Lock()
	userID := r.sess.UserID
	type target struct {
		id   uuid.UUID
		name string
	}
	var targets []target
	for _, sl := range r.sess.Exercises {
		targets = append(targets, target{sl.ID, sl.Name})
	}
	r.mu.Unlock()

	for _, tg := range targets {
		best, err := r.deps.History.AllTimeMaxKg(ctx, userID, tg.name)
		if err != nil {
			r.log.Warn("history lookup failed", "exercise", tg.name, "error", err)
			continue
		}
		if best <= 0 {
			prev, err := r.deps.History.PreviousSets(ctx, userID, tg.name, 20)
			if err != nil {
				r.log.Warn("previous sets lookup failed", "exercise", tg.name, "error", err)
				continue
			}
			for _, p := range prev {
				if p.WeightKg > best {
					best = p.WeightKg
				}
			}
		}
		r.mu.Lock()
		for _, sl := range r.sess.Exercises {
			if sl.ID == tg.id && best > sl.BestKnownKg {
				sl.BestKnownKg = best
			}
		}
		r.mu.Unlock()
	}
}

// FinishWarmup skips or concludes the warmup and enters the first exercise.
func (r *Runner) FinishWarmup() {
	r.warmup.Cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishWarmupLocked()
}

func (r *Runner) onWarmupDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishWarmupLocked()
}

func (r *Runner) finishWarmupLocked() {
	if r.finished || r.sess.Phase != PhaseWarmup {
		return
	}
	if err := r.sess.transition(PhaseActive); err != nil {
		r.log.Warn("warmup finish ignored", "error", err)
		return
	}
	first := r.sess.nextExerciseIndex(-1)
	if first < 0 {
		first = 0
	}
	r.sess.beginExercise(first, time.Now().UTC())
	r.startMediaFetch()
	r.saveSnapshot()
}

// CompleteSet records a performed set for the exercise in view and drives
// the resulting phase transition: Resting while sets remain, Transitioning
// when another exercise follows, otherwise Challenge or Stretch.
func (r *Runner) CompleteSet(reps int, weightKg float64) (*SetRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil, &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}

	now := time.Now().UTC()

	if r.sess.Phase == PhaseChallenge {
		return r.completeChallengeSetLocked(reps, weightKg, now)
	}
	if r.sess.Phase != PhaseActive {
		return nil, &ErrPhase{From: r.sess.Phase, To: PhaseResting}
	}

	idx := r.sess.CurrentExercise
	rec, err := r.sess.RecordSet(idx, reps, weightKg, now)
	if err != nil {
		return nil, err
	}
	r.lastSetAt = now

	sl := r.sess.Slot(idx)
	switch {
	case len(sl.Sets) < sl.TargetSets:
		r.enterRestLocked(idx, rec)

	case r.sess.nextExerciseIndex(idx) >= 0:
		r.enterTransitionLocked(idx, rec)

	default:
		r.sess.finishExercise(idx, now)
		r.enterFinaleLocked()
	}

	r.saveSnapshot()
	return rec, nil
}

func (r *Runner) enterRestLocked(idx int, rec *SetRecord) {
	if err := r.sess.transition(PhaseResting); err != nil {
		r.log.Warn("rest entry ignored", "error", err)
		return
	}
	r.restGen++
	r.pendingRest = RestInterval{
		ExerciseIndex: idx,
		SetNumber:     rec.SetNumber,
		Kind:          RestBetweenSets,
	}

	sl := r.sess.Slot(idx)
	if sl.RestSeconds <= 0 {
		r.finishRestLocked()
		return
	}
	r.rest.Start(sl.RestSeconds, r.countdownHooks(r.onRestDone))
	go r.enrichRest(r.restGen, SuggestionContext{
		Exercise:      sl.Name,
		CompletedSets: len(sl.Sets),
		TargetReps:    rec.TargetReps,
		LastReps:      rec.Reps,
		LastWeightKg:  rec.WeightKg,
	})
}

func (r *Runner) enterTransitionLocked(idx int, rec *SetRecord) {
	now := time.Now().UTC()
	r.sess.finishExercise(idx, now)

	if err := r.sess.transition(PhaseTransitioning); err != nil {
		r.log.Warn("transition entry ignored", "error", err)
		return
	}
	r.pendingNext = r.sess.nextExerciseIndex(idx)
	r.pendingRest = RestInterval{
		ExerciseIndex: idx,
		Kind:          RestBetweenExercises,
	}

	secs := r.sess.Slot(idx).TransitionSeconds
	if secs <= 0 {
		secs = r.cfg.TransitionSeconds
	}
	r.transition.Start(secs, r.countdownHooks(r.onTransitionDone))

	// Pre-resolve the next exercise's media while the user moves stations.
	if next := r.sess.Slot(r.pendingNext); next != nil {
		go r.fetchMedia(next.ID, next.Name)
	}
}

// enterFinaleLocked routes the end of the last exercise: offer the challenge
// once if the session defines one, otherwise go straight to Stretch.
func (r *Runner) enterFinaleLocked() {
	if r.sess.Challenge != nil && !r.sess.ChallengeOffered {
		r.sess.ChallengeOffered = true
		if err := r.sess.transition(PhaseChallenge); err == nil {
			r.display.ChallengePending = true
			return
		}
	}
	r.enterStretchLocked()
}

func (r *Runner) completeChallengeSetLocked(reps int, weightKg float64, now time.Time) (*SetRecord, error) {
	if reps < 0 || weightKg < 0 {
		return nil, ErrInvalidValue
	}
	ch := r.sess.Challenge
	rec := r.sess.recordSlotSet(ch, reps, weightKg, now)
	r.display.ChallengePending = false
	if len(ch.Sets) >= ch.TargetSets {
		r.enterStretchLocked()
	}
	r.saveSnapshot()
	return rec, nil
}

// DeclineChallenge skips the offered challenge and moves on to stretching.
// The offer is never repeated.
func (r *Runner) DeclineChallenge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase != PhaseChallenge {
		return
	}
	r.display.ChallengePending = false
	r.enterStretchLocked()
	r.saveSnapshot()
}

func (r *Runner) enterStretchLocked() {
	if err := r.sess.transition(PhaseStretch); err != nil {
		r.log.Warn("stretch entry ignored", "error", err)
		return
	}
	if r.sess.StretchSeconds <= 0 {
		r.completeLocked()
		return
	}
	r.stretch.Start(r.sess.StretchSeconds, r.countdownHooks(r.onStretchDone))
}

// SkipRest ends the rest period early. The recorded rest interval reflects
// the actual wall-clock gap, not the planned duration.
func (r *Runner) SkipRest() {
	r.rest.Cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishRestLocked()
	r.saveSnapshot()
}

func (r *Runner) onRestDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishRestLocked()
	r.saveSnapshot()
}

func (r *Runner) finishRestLocked() {
	if r.finished || r.sess.Phase != PhaseResting {
		return
	}
	now := time.Now().UTC()
	ri := r.pendingRest
	ri.RestSeconds = int(now.Sub(r.lastSetAt).Seconds())
	r.sess.RecordRest(ri.ExerciseIndex, ri.SetNumber, ri.RestSeconds, ri.Kind, now)

	if err := r.sess.transition(PhaseActive); err != nil {
		r.log.Warn("rest exit ignored", "error", err)
		return
	}
	r.sess.CurrentSet = r.sess.CompletedSets(r.sess.CurrentExercise) + 1
}

// SkipTransition jumps to the next exercise without waiting out the
// transition countdown.
func (r *Runner) SkipTransition() {
	r.transition.Cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishTransitionLocked()
	r.saveSnapshot()
}

func (r *Runner) onTransitionDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishTransitionLocked()
	r.saveSnapshot()
}

func (r *Runner) finishTransitionLocked() {
	if r.finished || r.sess.Phase != PhaseTransitioning {
		return
	}
	now := time.Now().UTC()
	ri := r.pendingRest
	ri.RestSeconds = int(now.Sub(r.lastSetAt).Seconds())
	r.sess.RecordRest(ri.ExerciseIndex, 0, ri.RestSeconds, ri.Kind, now)

	if err := r.sess.transition(PhaseActive); err != nil {
		r.log.Warn("transition exit ignored", "error", err)
		return
	}
	// The pending exercise can disappear mid-transition via SkipSlot.
	if r.pendingNext < 0 {
		r.enterFinaleLocked()
		return
	}
	r.sess.beginExercise(r.pendingNext, now)
	r.startMediaFetch()
	r.suggestWeight()
}

// FinishStretch concludes the cooldown, builds the summary, and hands it to
// the persistence sink. Persistence failure is logged, not fatal: the
// session still completes with locally-computed totals.
func (r *Runner) FinishStretch() {
	r.stretch.Cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess.Phase != PhaseStretch {
		return
	}
	r.completeLocked()
}

func (r *Runner) onStretchDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess.Phase != PhaseStretch {
		return
	}
	r.completeLocked()
}

func (r *Runner) completeLocked() {
	if err := r.sess.transition(PhaseComplete); err != nil {
		r.log.Warn("completion ignored", "error", err)
		return
	}
	r.haltLocked()
	r.sess.CompletedAt = time.Now().UTC()

	sum := BuildSummary(r.sess)
	r.persistLocked(NewCompletedLog(r.sess, sum))
	r.dropSnapshot()
}

// Quit terminates the session from any non-complete phase, recording a
// partial summary tagged with the reason. A distinct terminal outcome, not a
// phase: the session keeps the phase it was in.
func (r *Runner) Quit(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase.Terminal() {
		return
	}
	r.haltLocked()
	now := time.Now().UTC()
	r.sess.finishExercise(r.sess.CurrentExercise, now)
	r.sess.CompletedAt = now
	r.sess.QuitReason = reason

	sum := BuildPartialSummary(r.sess, reason)
	r.persistLocked(NewCompletedLog(r.sess, sum))
	r.dropSnapshot()
}

// haltLocked stops every timer and marks the runner finished so stale timer
// callbacks and enrichment patches become no-ops.
func (r *Runner) haltLocked() {
	r.finished = true
	r.elapsed.Stop()
	r.warmup.Cancel()
	r.rest.Cancel()
	r.transition.Cancel()
	r.stretch.Cancel()
}

func (r *Runner) persistLocked(cl *CompletedLog) {
	if r.deps.Persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	id, err := r.deps.Persist.SaveLog(ctx, cl)
	if err != nil {
		r.log.Error("saving workout log failed, keeping local totals", "error", err)
		return
	}
	r.logID = id
	r.log.Info("workout log saved", "log_id", id,
		"sets", cl.Summary.TotalCompletedSets, "volume_kg", cl.Summary.TotalVolumeKg)
}

// Pause freezes the elapsed clock and every countdown in place. The phase
// does not change and explicit actions (skip, quit) keep working.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Paused {
		return
	}
	r.sess.Paused = true
	r.elapsed.Pause()
	r.warmup.Pause()
	r.rest.Pause()
	r.transition.Pause()
	r.stretch.Pause()
}

// Resume unfreezes whatever Pause froze.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || !r.sess.Paused {
		return
	}
	r.sess.Paused = false
	r.elapsed.Resume()
	r.warmup.Resume()
	r.rest.Resume()
	r.transition.Resume()
	r.stretch.Resume()
}

// JumpToExercise makes the slot at index the one in view, closing the time
// accumulator of the previous exercise. Only legal while Active.
func (r *Runner) JumpToExercise(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase != PhaseActive {
		return &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}
	sl := r.sess.Slot(index)
	if sl == nil || sl.Removed {
		return ErrNoSuchExercise
	}
	now := time.Now().UTC()
	r.sess.finishExercise(r.sess.CurrentExercise, now)
	r.sess.beginExercise(index, now)
	r.sess.CurrentSet = len(sl.Sets) + 1
	r.startMediaFetch()
	r.saveSnapshot()
	return nil
}

// SkipSlot drops the exercise at index from the remaining plan. Skipping
// the exercise in view advances to the next remaining one, or on to the
// finale when nothing follows.
func (r *Runner) SkipSlot(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase.Terminal() {
		return &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}
	sl := r.sess.Slot(index)
	if sl == nil || sl.Removed {
		return ErrNoSuchExercise
	}
	r.sess.SkipSlot(index)

	if r.sess.Phase == PhaseTransitioning && index == r.pendingNext {
		r.pendingNext = r.sess.nextExerciseIndex(index)
	}
	if index == r.sess.CurrentExercise && r.sess.Phase == PhaseActive {
		now := time.Now().UTC()
		r.sess.finishExercise(index, now)
		if next := r.sess.nextExerciseIndex(index); next >= 0 {
			r.sess.beginExercise(next, now)
			r.startMediaFetch()
		} else {
			r.enterFinaleLocked()
		}
	}
	r.saveSnapshot()
	return nil
}

// SwapSlot replaces the exercise definition at index. The slot starts over:
// completed sets are discarded along with the old identity.
func (r *Runner) SwapSlot(index int, entry PlanEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase.Terminal() {
		return &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	if sl := r.sess.Slot(index); sl == nil || sl.Removed {
		return ErrNoSuchExercise
	}
	r.sess.SwapSlot(index, entry)
	if index == r.sess.CurrentExercise {
		r.startMediaFetch()
	}
	r.saveSnapshot()
	return nil
}

// InsertSlot adds a new exercise at index, shifting later slots down. Used
// to build a superset partner mid-session; indices are clamped to the list
// bounds.
func (r *Runner) InsertSlot(index int, entry PlanEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase.Terminal() {
		return &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}
	if err := validateEntry(entry); err != nil {
		return err
	}
	if index < 0 {
		index = 0
	}
	if index > len(r.sess.Exercises) {
		index = len(r.sess.Exercises)
	}
	r.sess.InsertSlot(index, entry)
	if r.sess.Phase == PhaseTransitioning && index <= r.pendingNext {
		r.pendingNext++
	}
	r.saveSnapshot()
	return nil
}

// MoveSlot reorders the exercise list, carrying the slot at from to
// position to. Per-slot state travels with the slot.
func (r *Runner) MoveSlot(from, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.sess.Phase.Terminal() {
		return &ErrPhase{From: r.sess.Phase, To: PhaseActive}
	}
	if r.sess.Slot(from) == nil || r.sess.Slot(to) == nil {
		return ErrNoSuchExercise
	}
	pending := r.sess.Slot(r.pendingNext)
	r.sess.MoveSlot(from, to)
	if r.sess.Phase == PhaseTransitioning && pending != nil {
		for i, sl := range r.sess.Exercises {
			if sl == pending {
				r.pendingNext = i
				break
			}
		}
	}
	r.saveSnapshot()
	return nil
}

// EditSet rewrites an existing set's reps and weight.
func (r *Runner) EditSet(exerciseIndex, setIndex, reps int, weightKg float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.sess.EditSet(exerciseIndex, setIndex, reps, weightKg); err != nil {
		return err
	}
	r.saveSnapshot()
	return nil
}

// DeleteSet removes a set record.
func (r *Runner) DeleteSet(exerciseIndex, setIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.sess.DeleteSet(exerciseIndex, setIndex); err != nil {
		return err
	}
	r.saveSnapshot()
	return nil
}

// RecordDrink logs a water intake event.
func (r *Runner) RecordDrink(amountML int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.sess.RecordDrink(amountML, time.Now().UTC())
	r.saveSnapshot()
}

// --- enrichment side effects (fire-and-forget, result-patch) ---

func (r *Runner) startMediaFetch() {
	sl := r.sess.CurrentSlot()
	if sl == nil {
		return
	}
	go r.fetchMedia(sl.ID, sl.Name)
}

func (r *Runner) fetchMedia(slotID uuid.UUID, name string) {
	if r.deps.Media == nil {
		return
	}
	r.mu.Lock()
	r.display.MediaStatus = MediaLoading
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, err := r.deps.Media.Resolve(ctx, name)

	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.sess.CurrentSlot()
	if r.finished || cur == nil || cur.ID != slotID {
		return // user moved on; result discarded
	}
	if err != nil {
		r.display.MediaStatus = MediaFailed
		r.log.Warn("media fetch failed", "exercise", name, "error", err)
		return
	}
	r.display.MediaStatus = MediaLoaded
	r.display.Media = m
}

// enrichRest fires the three independent rest enrichments; each patches its
// own display field when (and if) its response arrives for the current rest.
func (r *Runner) enrichRest(gen int, sc SuggestionContext) {
	if r.deps.Suggest == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if msg, err := r.deps.Suggest.RestMessage(ctx, sc); err == nil {
		r.patchRest(gen, func(d *DisplayState) { d.RestMessage = msg })
	} else {
		r.log.Debug("rest message unavailable", "error", err)
	}
	if secs, err := r.deps.Suggest.RestSeconds(ctx, sc); err == nil {
		r.patchRest(gen, func(d *DisplayState) { d.SuggestedRestSeconds = secs })
	} else {
		r.log.Debug("rest suggestion unavailable", "error", err)
	}
	if tired, err := r.deps.Suggest.Fatigued(ctx, sc); err == nil {
		r.patchRest(gen, func(d *DisplayState) { d.Fatigued = tired })
	} else {
		r.log.Debug("fatigue check unavailable", "error", err)
	}
}

func (r *Runner) patchRest(gen int, patch func(*DisplayState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || gen != r.restGen {
		return
	}
	patch(&r.display)
}

func (r *Runner) suggestWeight() {
	sl := r.sess.CurrentSlot()
	if sl == nil || r.deps.Suggest == nil {
		return
	}
	sc := SuggestionContext{Exercise: sl.Name, TargetReps: sl.TargetReps}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		kg, err := r.deps.Suggest.StartingWeightKg(ctx, sc)
		if err != nil {
			r.log.Debug("weight suggestion unavailable", "error", err)
			return
		}
		r.mu.Lock()
		if !r.finished {
			r.display.SuggestedWeightKg = kg
		}
		r.mu.Unlock()
	}()
}

func (r *Runner) saveSnapshot() {
	if r.deps.Snapshots == nil || r.finished {
		return
	}
	if err := r.deps.Snapshots.Save(r.sess); err != nil {
		r.log.Warn("snapshot save failed", "session_id", r.sess.ID, "error", err)
	}
}

func (r *Runner) dropSnapshot() {
	if r.deps.Snapshots == nil {
		return
	}
	if err := r.deps.Snapshots.Delete(r.sess.ID); err != nil {
		r.log.Warn("snapshot delete failed", "session_id", r.sess.ID, "error", err)
	}
}

// --- read-side ---

// StateView is the JSON shape handlers render: the session plus display
// enrichments and live countdown values.
type StateView struct {
	Session          *Session     `json:"session"`
	Display          DisplayState `json:"display"`
	RestRemaining    int          `json:"rest_remaining,omitempty"`
	WarmupRemaining  int          `json:"warmup_remaining,omitempty"`
	StretchRemaining int          `json:"stretch_remaining,omitempty"`
	NextExerciseIn   int          `json:"next_exercise_in,omitempty"`
	Finished         bool         `json:"finished"`
	LogID            string       `json:"log_id,omitempty"`
}

// MarshalState renders the current state as JSON under the lock so readers
// never observe a half-applied mutation.
func (r *Runner) MarshalState() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := StateView{
		Session:  r.sess,
		Display:  r.display,
		Finished: r.finished,
	}
	switch r.sess.Phase {
	case PhaseWarmup:
		view.WarmupRemaining = r.warmup.Remaining()
	case PhaseResting:
		view.RestRemaining = r.rest.Remaining()
	case PhaseTransitioning:
		view.NextExerciseIn = r.transition.Remaining()
	case PhaseStretch:
		view.StretchRemaining = r.stretch.Remaining()
	}
	if r.logID != uuid.Nil {
		view.LogID = r.logID.String()
	}
	return json.Marshal(view)
}

// Phase reports the current phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.Phase
}

// Finished reports whether the session reached a terminal outcome
// (completion or quit).
func (r *Runner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// LogID returns the persistence sink's identifier for the saved log, or
// uuid.Nil when the save failed or has not happened.
func (r *Runner) LogID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logID
}

// Summarize builds a point-in-time summary of the session as it stands.
func (r *Runner) Summarize() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return BuildSummary(r.sess)
}
