package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"learnview/internal/api"
	"learnview/internal/config"
	"learnview/internal/quiz"
	"learnview/internal/session"
	"learnview/internal/storage"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	storage    *storage.SQLiteStorage
	sessions   *session.Manager
	quizzes    *quiz.Service
	handler    *api.Handler

	// ctx bounds background work started by requests
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg *config.Config, logger zerolog.Logger, store *storage.SQLiteStorage, sessions *session.Manager, quizzes *quiz.Service) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		storage:  store,
		sessions: sessions,
		quizzes:  quizzes,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.handler = api.NewHandler(s.ctx, s.storage, s.sessions, s.quizzes, s.logger, s.cfg.Library)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Post("/library/scan", s.handler.ScanLibrary)

		r.Get("/courses", s.handler.GetCourses)
		r.Get("/courses/{courseID}", s.handler.GetCourse)
		r.Get("/courses/{courseID}/modules/{moduleID}/bookmarks", s.handler.GetBookmarks)
		r.Get("/courses/{courseID}/modules/{moduleID}/quiz", s.handler.GetQuiz)
		r.Get("/courses/{courseID}/modules/{moduleID}/quiz/attempts", s.handler.GetQuizAttempts)
		r.Post("/courses/{courseID}/modules/{moduleID}/quiz/attempts", s.handler.SubmitQuiz)

		r.Get("/modules/{moduleID}/stream", s.handler.StreamModule)

		r.Post("/sessions", s.handler.OpenSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handler.GetSession)
			r.Delete("/", s.handler.CloseSession)
			r.Post("/play", s.handler.TogglePlay)
			r.Post("/seek", s.handler.Seek)
			r.Post("/mute", s.handler.ToggleMute)
			r.Post("/volume", s.handler.SetVolume)
			r.Post("/rate", s.handler.SetPlaybackRate)
			r.Post("/pip", s.handler.TogglePictureInPicture)
			r.Post("/fullscreen", s.handler.RequestFullscreen)
			r.Post("/timeupdate", s.handler.TimeUpdate)
			r.Post("/metadata", s.handler.MetadataLoaded)
			r.Post("/bookmarks", s.handler.AddBookmark)
		})

		r.Delete("/bookmarks/{bookmarkID}", s.handler.DeleteBookmark)

		// Resume positions
		r.Get("/progress/continue", s.handler.GetContinueWatching)
		r.Post("/progress/{courseID}/{moduleID}", s.handler.SaveProgress)
		r.Get("/progress/{courseID}/{moduleID}", s.handler.GetProgress)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) SetScanner(scanner api.ScannerInterface) {
	s.handler.SetScanner(scanner)
}

// SetDurationService makes rescans fill in module durations once they finish.
func (s *Server) SetDurationService(durations api.DurationService) {
	s.handler.SetDurationService(durations)
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
