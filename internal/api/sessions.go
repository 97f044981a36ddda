package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"learnview/internal/player"
	"learnview/internal/session"
	"learnview/internal/storage"
)

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.sessions.Open(req.CourseID, req.ModuleID)
	switch {
	case errors.Is(err, session.ErrModuleNotFound):
		writeError(w, http.StatusNotFound, "MODULE_NOT_FOUND", "Module not found")
		return
	case errors.Is(err, session.ErrNotVideoModule):
		writeError(w, http.StatusUnprocessableEntity, "NOT_A_VIDEO", "Module is not a video")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("module_id", req.ModuleID).Msg("failed to open session")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to open session")
		return
	}

	snap, err := s.Snapshot()
	h.writeSession(w, http.StatusCreated, snap, err)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Snapshot()
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TogglePlay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.TogglePlay()
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SeekRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := s.Seek(*req.Time)
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.ToggleMute()
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req VolumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := s.SetVolume(*req.Volume)
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) SetPlaybackRate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req RateRequest
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := s.SetPlaybackRate(*req.Rate)
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) TogglePictureInPicture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.TogglePictureInPicture(r.Context())
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) RequestFullscreen(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := s.RequestFullscreen()
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) TimeUpdate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req TimeUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := s.TimeUpdate(*req.Time)
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) MetadataLoaded(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MetadataRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := s.MetadataLoaded(*req.Duration)
	h.writeSession(w, http.StatusOK, snap, err)
}

func (h *Handler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	b, err := s.AddBookmark()
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save bookmark")
		return
	}
	writeJSON(w, http.StatusCreated, BookmarkResponse{Bookmark: b})
}

func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	moduleID := chi.URLParam(r, "moduleID")

	bookmarks, err := h.storage.GetBookmarks(moduleID)
	if err != nil {
		h.logger.Error().Err(err).Str("module_id", moduleID).Msg("failed to get bookmarks")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get bookmarks")
		return
	}

	if bookmarks == nil {
		bookmarks = []storage.Bookmark{}
	}
	writeJSON(w, http.StatusOK, BookmarksResponse{Bookmarks: bookmarks})
}

func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookmarkID")

	deleted, err := h.storage.DeleteBookmark(id)
	if err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("failed to delete bookmark")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete bookmark")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "BOOKMARK_NOT_FOUND", "Bookmark not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, snap session.Snapshot, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
	case errors.Is(err, player.ErrUnsupportedRate):
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_RATE", err.Error())
	case err != nil:
		h.logger.Error().Err(err).Str("session_id", snap.ID).Msg("session operation failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Session operation failed")
	default:
		writeJSON(w, status, sessionResponse(snap))
	}
}

func sessionResponse(snap session.Snapshot) SessionResponse {
	return SessionResponse{
		Session:   snap,
		StreamURL: streamURL(snap.ModuleID),
		Rates:     player.PlaybackRates,
	}
}
