// Package session implements the workout session engine: the phase machine,
// the set ledger, rest interval tracking, and the summary builder. A Session
// is a plain aggregate mutated only through its methods; the Runner in this
// package serializes all mutations behind one mutex so timer callbacks and
// HTTP handlers never interleave.
package session

import "fmt"

// Phase is one mutually-exclusive mode of a workout session.
type Phase string

const (
	PhaseWarmup        Phase = "warmup"
	PhaseActive        Phase = "active"
	PhaseResting       Phase = "resting"
	PhaseTransitioning Phase = "transitioning"
	PhaseChallenge     Phase = "challenge"
	PhaseStretch       Phase = "stretch"
	PhaseComplete      Phase = "complete"
)

// validNext maps each phase to the phases it may legally enter. Resting and
// Transitioning are sub-states of Active: they are entered from Active and
// always return to it. Stretch is reached from Active when the exercise list
// is exhausted (optionally via the one-shot Challenge phase) and Complete is
// terminal.
var validNext = map[Phase][]Phase{
	PhaseWarmup:        {PhaseActive},
	PhaseActive:        {PhaseResting, PhaseTransitioning, PhaseChallenge, PhaseStretch},
	PhaseResting:       {PhaseActive},
	PhaseTransitioning: {PhaseActive},
	PhaseChallenge:     {PhaseStretch},
	PhaseStretch:       {PhaseComplete},
	PhaseComplete:      nil,
}

// CanEnter reports whether the machine may move from p to next.
func (p Phase) CanEnter(next Phase) bool {
	for _, n := range validNext[p] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether p admits no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseComplete
}

// ErrPhase is returned when a requested transition is not legal from the
// current phase. Callers that follow the permissive no-op policy log it and
// carry on.
type ErrPhase struct {
	From, To Phase
}

func (e *ErrPhase) Error() string {
	return fmt.Sprintf("illegal phase transition %s -> %s", e.From, e.To)
}

// transition moves the session to next, enforcing the phase graph. Once the
// session is Complete every transition attempt fails.
func (s *Session) transition(next Phase) error {
	if !s.Phase.CanEnter(next) {
		return &ErrPhase{From: s.Phase, To: next}
	}
	s.Phase = next
	return nil
}
