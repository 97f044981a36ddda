package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"learnview/internal/storage"
)

func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	module, err := h.storage.GetModule(moduleID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", moduleID).Msg("failed to get module for progress")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get module")
		return
	}

	if module == nil || module.CourseID != courseID {
		writeError(w, http.StatusNotFound, "MODULE_NOT_FOUND", "Module not found")
		return
	}

	if module.Type == storage.ModuleQuiz {
		writeError(w, http.StatusUnprocessableEntity, "QUIZ_PROGRESS", "Quiz progress comes from graded attempts")
		return
	}

	var req SaveProgressRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Position < 0 {
		req.Position = 0
	}

	if req.Position > req.Duration {
		req.Position = req.Duration
	}

	progress := &storage.ModuleProgress{
		CourseID: courseID,
		ModuleID: moduleID,
		Position: req.Position,
		Duration: req.Duration,
		Progress: req.Position / req.Duration,
	}
	progress.Completed = progress.Progress >= storage.CompletionThreshold

	if err := h.storage.SaveProgress(progress); err != nil {
		h.logger.Error().Err(err).Str("id", moduleID).Msg("failed to save progress")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save progress")
		return
	}

	h.logger.Debug().
		Str("module_id", moduleID).
		Float64("position", progress.Position).
		Float64("progress", progress.Progress).
		Msg("progress saved")

	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	moduleID := chi.URLParam(r, "moduleID")

	progress, err := h.storage.GetProgress(moduleID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", moduleID).Msg("failed to get progress")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get progress")
		return
	}

	if progress == nil {
		// Nothing watched yet
		progress = &storage.ModuleProgress{CourseID: courseID, ModuleID: moduleID}
	}

	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) GetContinueWatching(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.GetContinueWatching(20)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get continue watching")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get continue watching")
		return
	}

	if items == nil {
		items = []storage.ContinueWatchingItem{}
	}

	writeJSON(w, http.StatusOK, ContinueWatchingResponse{Items: items})
}
