package streaming

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"learnview/internal/media"
)

// Handler serves module files with byte-range support so players can seek.
type Handler struct {
	logger zerolog.Logger
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) {
	file, err := os.Open(filePath)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", filePath).Msg("module file unavailable")
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		http.Error(w, "Cannot read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", media.GetContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
}
