package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"learnview/internal/quiz"
	"learnview/internal/storage"
)

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	q, err := h.quizzes.Load(courseID, moduleID)
	if err != nil {
		h.writeQuizError(w, moduleID, err)
		return
	}

	attempts, err := h.quizzes.Attempts(courseID, moduleID)
	if err != nil {
		h.writeQuizError(w, moduleID, err)
		return
	}

	resp := QuizResponse{
		Quiz:         q.View(),
		AttemptsUsed: len(attempts),
		AttemptsLeft: -1,
	}
	if q.MaxAttempts > 0 {
		resp.AttemptsLeft = max(q.MaxAttempts-len(attempts), 0)
	}
	for _, a := range attempts {
		resp.Passed = resp.Passed || a.Passed
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	var req SubmitQuizRequest
	if !h.decode(w, r, &req) {
		return
	}

	graded, err := h.quizzes.Submit(courseID, moduleID, quiz.Submission{
		Answers:   req.Answers,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		h.writeQuizError(w, moduleID, err)
		return
	}

	writeJSON(w, http.StatusCreated, graded)
}

func (h *Handler) GetQuizAttempts(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	attempts, err := h.quizzes.Attempts(courseID, moduleID)
	if err != nil {
		h.writeQuizError(w, moduleID, err)
		return
	}

	if attempts == nil {
		attempts = []storage.QuizAttempt{}
	}
	writeJSON(w, http.StatusOK, QuizAttemptsResponse{Attempts: attempts})
}

func (h *Handler) writeQuizError(w http.ResponseWriter, moduleID string, err error) {
	switch {
	case errors.Is(err, quiz.ErrModuleNotFound):
		writeError(w, http.StatusNotFound, "MODULE_NOT_FOUND", "Module not found")
	case errors.Is(err, quiz.ErrNotQuizModule):
		writeError(w, http.StatusUnprocessableEntity, "NOT_A_QUIZ", "Module is not a quiz")
	case errors.Is(err, quiz.ErrAttemptsExhausted):
		writeError(w, http.StatusConflict, "NO_ATTEMPTS_LEFT", "No attempts left for this quiz")
	case errors.Is(err, quiz.ErrInvalidQuiz):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_QUIZ", err.Error())
	default:
		h.logger.Error().Err(err).Str("module_id", moduleID).Msg("quiz request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process quiz")
	}
}
