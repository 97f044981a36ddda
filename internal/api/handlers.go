package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"learnview/internal/config"
	"learnview/internal/quiz"
	"learnview/internal/session"
	"learnview/internal/storage"
	"learnview/internal/streaming"
)

const Version = "0.1.0"

type Handler struct {
	ctx       context.Context
	storage   *storage.SQLiteStorage
	sessions  *session.Manager
	quizzes   *quiz.Service
	logger    zerolog.Logger
	scanner   ScannerInterface
	durations DurationService
	streamer  *streaming.Handler
	validate  *validator.Validate
	library   config.LibraryConfig
}

type ScannerInterface interface {
	ScanPath(path string) error
	IsScanning() bool
}

// DurationService fills in module durations after a scan.
type DurationService interface {
	Run(ctx context.Context, batchSize int, delay time.Duration)
}

// NewHandler builds the API handlers. Background work started by requests,
// such as a library rescan, runs until ctx is done.
func NewHandler(ctx context.Context, store *storage.SQLiteStorage, sessions *session.Manager, quizzes *quiz.Service, logger zerolog.Logger, library config.LibraryConfig) *Handler {
	return &Handler{
		ctx:      ctx,
		storage:  store,
		sessions: sessions,
		quizzes:  quizzes,
		logger:   logger,
		streamer: streaming.NewHandler(logger),
		validate: validator.New(),
		library:  library,
	}
}

func (h *Handler) SetScanner(scanner ScannerInterface) {
	h.scanner = scanner
}

func (h *Handler) SetDurationService(durations DurationService) {
	h.durations = durations
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: h.sessions.Len(),
	})
}

func (h *Handler) ScanLibrary(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Scanner not initialized")
		return
	}

	if h.scanner.IsScanning() {
		writeJSON(w, http.StatusOK, ScanResponse{
			Status:  "in_progress",
			Message: "Scan already in progress",
		})
		return
	}

	if h.library.Path == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "No library path configured")
		return
	}

	go func() {
		if err := h.scanner.ScanPath(h.library.Path); err != nil {
			h.logger.Error().Err(err).Msg("scan failed")
			return
		}
		if h.durations != nil {
			h.durations.Run(h.ctx, h.library.ProbeBatch, h.library.ProbeDelay)
		}
	}()

	writeJSON(w, http.StatusAccepted, ScanResponse{
		Status:  "started",
		Message: "Library scan started",
	})
}

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.storage.GetCourses()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get courses")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get courses")
		return
	}

	if courses == nil {
		courses = []storage.Course{}
	}

	writeJSON(w, http.StatusOK, CoursesResponse{Courses: courses})
}

// GetCourse returns a course with its modules and per-module progress
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	course, err := h.storage.GetCourse(courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", courseID).Msg("failed to get course")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get course")
		return
	}

	if course == nil {
		writeError(w, http.StatusNotFound, "COURSE_NOT_FOUND", "Course not found")
		return
	}

	modules, err := h.storage.GetModulesByCourse(courseID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", courseID).Msg("failed to get modules")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get course")
		return
	}

	nodes := make([]ModuleNode, 0, len(modules))
	for _, m := range modules {
		node := ModuleNode{Module: m}
		if m.Type == storage.ModuleQuiz {
			node.QuizURL = quizURL(courseID, m.ID)
		} else {
			node.StreamURL = streamURL(m.ID)
		}
		progress, err := h.storage.GetProgress(m.ID)
		if err != nil {
			h.logger.Warn().Err(err).Str("module_id", m.ID).Msg("failed to get module progress")
		}
		node.Progress = progress
		nodes = append(nodes, node)
	}

	writeJSON(w, http.StatusOK, CourseResponse{
		Course:  course,
		Modules: nodes,
	})
}

func (h *Handler) StreamModule(w http.ResponseWriter, r *http.Request) {
	moduleID := chi.URLParam(r, "moduleID")

	module, err := h.storage.GetModule(moduleID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", moduleID).Msg("failed to get module for streaming")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get module")
		return
	}

	// Quiz files carry their answers.
	if module == nil || module.Type == storage.ModuleQuiz {
		writeError(w, http.StatusNotFound, "MODULE_NOT_FOUND", "Module not found")
		return
	}

	h.streamer.ServeFile(w, r, module.Content)
}

func streamURL(moduleID string) string {
	return "/api/v1/modules/" + moduleID + "/stream"
}

func quizURL(courseID, moduleID string) string {
	return "/api/v1/courses/" + courseID + "/modules/" + moduleID + "/quiz"
}

// decode reads a JSON body into dst and validates it
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid field: "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
