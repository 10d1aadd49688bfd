package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repflow/internal/plan"
	"github.com/claude/repflow/internal/session"
)

// handleCreateSession starts a session from a plan document. The body is
// parsed as YAML, which also accepts JSON.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	p, err := plan.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts := p.Options()
	if opts.WarmupSeconds == 0 {
		opts.WarmupSeconds = s.defaultWarmupSec
	}
	if opts.StretchSeconds == 0 {
		opts.StretchSeconds = s.defaultStretchSec
	}

	sess := session.New(p.Exercises, opts)
	runner := session.NewRunner(sess, s.deps, s.engineCfg, s.log)
	s.addRunner(runner)
	runner.Start()

	s.log.Info("session started", "session_id", sess.ID, "plan", sess.PlanName,
		"exercises", len(sess.Exercises))
	s.writeState(w, http.StatusCreated, runner)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	type header struct {
		SessionID uuid.UUID     `json:"session_id"`
		PlanName  string        `json:"plan_name"`
		Phase     session.Phase `json:"phase"`
		Finished  bool          `json:"finished"`
	}
	list := make([]header, 0, len(s.runners))
	runners := make([]*session.Runner, 0, len(s.runners))
	for _, runner := range s.runners {
		runners = append(runners, runner)
	}
	s.mu.Unlock()

	for _, runner := range runners {
		sum := runner.Summarize()
		list = append(list, header{
			SessionID: runner.SessionID(),
			PlanName:  sum.PlanName,
			Phase:     runner.Phase(),
			Finished:  runner.Finished(),
		})
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleDropSession removes a finished session from the live table. Active
// sessions must be quit first.
func (s *Server) handleDropSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	if !runner.Finished() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session still active; quit it first"})
		return
	}
	s.removeRunner(runner.SessionID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runner.Summarize())
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Reps     int     `json:"reps"`
		WeightKg float64 `json:"weight_kg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	rec, err := runner.CompleteSet(req.Reps, req.WeightKg)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleEditSet(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		ExerciseIndex int     `json:"exercise_index"`
		SetIndex      int     `json:"set_index"`
		Reps          int     `json:"reps"`
		WeightKg      float64 `json:"weight_kg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.EditSet(req.ExerciseIndex, req.SetIndex, req.Reps, req.WeightKg); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleDeleteSet removes a set addressed by the exercise and set query
// parameters. Later sets renumber to stay contiguous.
func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	exIdx, err1 := strconv.Atoi(r.URL.Query().Get("exercise"))
	setIdx, err2 := strconv.Atoi(r.URL.Query().Get("set"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise and set query parameters required"})
		return
	}

	if err := runner.DeleteSet(exIdx, setIdx); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.SkipRest()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleSkipTransition(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.SkipTransition()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleFinishWarmup(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.FinishWarmup()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleFinishStretch(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.FinishStretch()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleDeclineChallenge(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.DeclineChallenge()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.Pause()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}
	runner.Resume()
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.JumpToExercise(req.Index); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleSkipExercise drops an exercise from the remaining plan.
func (s *Server) handleSkipExercise(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.SkipSlot(req.Index); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleSwapExercise replaces an exercise definition in place. Completed
// sets for the old exercise are discarded.
func (s *Server) handleSwapExercise(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Index    int               `json:"index"`
		Exercise session.PlanEntry `json:"exercise"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.SwapSlot(req.Index, req.Exercise); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleInsertExercise adds an exercise at the given position, shifting
// later ones down.
func (s *Server) handleInsertExercise(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Index    int               `json:"index"`
		Exercise session.PlanEntry `json:"exercise"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.InsertSlot(req.Index, req.Exercise); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

// handleMoveExercise reorders the exercise list.
func (s *Server) handleMoveExercise(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := runner.MoveSlot(req.From, req.To); err != nil {
		writeMutationError(w, err)
		return
	}
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleDrink(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		AmountML int `json:"amount_ml"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.AmountML <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount_ml must be positive"})
		return
	}

	runner.RecordDrink(req.AmountML)
	s.writeState(w, http.StatusOK, runner)
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessionFromURL(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for quit.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	runner.Quit(req.Reason)
	writeJSON(w, http.StatusOK, runner.Summarize())
}

// sessionFromURL resolves the {id} URL parameter to a live runner, writing
// the error response itself when the session cannot be found.
func (s *Server) sessionFromURL(w http.ResponseWriter, r *http.Request) (*session.Runner, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}
	runner, ok := s.runner(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return runner, true
}

// writeState renders the runner's full state view.
func (s *Server) writeState(w http.ResponseWriter, status int, runner *session.Runner) {
	data, err := runner.MarshalState()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeMutationError maps engine errors onto HTTP statuses.
func writeMutationError(w http.ResponseWriter, err error) {
	var pe *session.ErrPhase
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrNoSuchExercise), errors.Is(err, session.ErrNoSuchSet):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidValue), errors.Is(err, session.ErrBadEntry):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
