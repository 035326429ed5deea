package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	s.respondJSON(w, status, map[string]errorBody{"error": {Code: code, Message: err.Error()}})
}

// classify maps domain errors onto a stable code and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input", http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyRunning):
		return "already_running", http.StatusConflict
	case errors.Is(err, domain.ErrNotStarted):
		return "not_started", http.StatusConflict
	case errors.Is(err, domain.ErrSessionClosed):
		return "session_closed", http.StatusConflict
	case errors.Is(err, domain.ErrSelectionRequired):
		return "selection_required", http.StatusConflict
	case errors.Is(err, domain.ErrAlreadyLocked):
		return "already_locked", http.StatusConflict
	case errors.Is(err, domain.ErrOnCooldown):
		return "on_cooldown", http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEmpty):
		return "empty", http.StatusNotFound
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable", http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrResultNotSaved):
		return "result_not_saved", http.StatusInternalServerError
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	numDept, err := queryInt(q.Get("num_dept"), 5)
	if err != nil {
		s.respondError(w, err)
		return
	}
	numGen, err := queryInt(q.Get("num_gen"), 5)
	if err != nil {
		s.respondError(w, err)
		return
	}

	questions, err := s.service.Questions(r.Context(), domain.QuestionRequest{
		Category: q.Get("department"),
		NumDept:  numDept,
		NumGen:   numGen,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmpty) {
			s.respondJSON(w, http.StatusOK, map[string][]domain.Question{"questions": {}})
			return
		}
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]domain.Question{"questions": questions})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.service.Leaderboard(r.Context(), r.URL.Query().Get("field"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if lb.Entries == nil {
		lb.Entries = []domain.LeaderboardEntry{}
	}
	s.respondJSON(w, http.StatusOK, lb)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidInput
	}
	return n, nil
}
