package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"learnview/internal/cache"
	"learnview/internal/player"
	"learnview/internal/storage"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrNotVideoModule  = errors.New("module is not a video")
)

// Store is the persistence a Manager needs.
type Store interface {
	GetModule(id string) (*storage.Module, error)
	GetProgress(moduleID string) (*storage.ModuleProgress, error)
	SaveProgress(p *storage.ModuleProgress) error
	CreateBookmark(b *storage.Bookmark) error
}

type Config struct {
	Capacity         int
	IdleTimeout      time.Duration
	SaveInterval     float64 // seconds of playback between progress saves
	PictureInPicture bool
}

// Manager owns the live player sessions.
type Manager struct {
	store    Store
	cfg      Config
	logger   zerolog.Logger
	sessions *cache.LRU[string, *Session]
	now      func() time.Time
}

func NewManager(store Store, cfg Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "sessions").Logger(),
		now:    time.Now,
	}
	m.sessions = cache.NewLRU(cfg.Capacity, func(id string, s *Session) {
		m.logger.Debug().Str("session_id", id).Msg("session evicted")
		s.close()
	})
	return m
}

// Open starts a session for a video module, resuming from its saved position.
func (m *Manager) Open(courseID, moduleID string) (*Session, error) {
	module, err := m.store.GetModule(moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if module == nil || module.CourseID != courseID {
		return nil, ErrModuleNotFound
	}
	if module.Type != storage.ModuleVideo {
		return nil, ErrNotVideoModule
	}

	progress, err := m.store.GetProgress(moduleID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var initial float64
	if progress != nil && progress.Progress < storage.CompletionThreshold {
		initial = progress.Position
	}

	s := &Session{
		ID:       uuid.NewString(),
		CourseID: courseID,
		ModuleID: moduleID,
		manager:  m,
		media:    player.NewHeadlessMedia(),
		pip:      player.NewHeadlessPiP(m.cfg.PictureInPicture),
		used:     m.now(),
	}
	s.lastSaved = initial
	s.logger = m.logger.With().Str("session_id", s.ID).Logger()

	s.ctrl = player.NewController(s.media, player.Params{
		Source:          module.Content,
		CourseID:        courseID,
		ModuleID:        moduleID,
		InitialPosition: initial,
	},
		player.WithLogger(s.logger),
		player.WithPictureInPicture(s.pip),
		player.WithTimeUpdateListener(s.handleTimeUpdate),
		player.WithBookmarkListener(s.handleBookmark),
		player.WithClock(m.now),
	)
	s.ctrl.Attach()

	if module.Duration != nil && *module.Duration > 0 {
		s.media.LoadMetadata(float64(*module.Duration))
		s.ctrl.OnMetadataLoaded(s.media.Duration())
	}

	m.sessions.Set(s.ID, s)

	s.logger.Info().
		Str("course_id", courseID).
		Str("module_id", moduleID).
		Float64("resume_at", initial).
		Msg("session opened")

	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Close saves progress and discards the session.
func (m *Manager) Close(id string) error {
	s, ok := m.sessions.Remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// SweepIdle closes sessions unused for longer than the idle timeout.
func (m *Manager) SweepIdle() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	return m.sessions.EvictIf(func(_ string, s *Session) bool {
		return s.lastUsed().Before(cutoff)
	})
}

// Run sweeps idle sessions until ctx is done, then closes the rest.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n := m.sessions.Len()
			m.sessions.Purge()
			m.logger.Info().Int("closed", n).Msg("sessions closed")
			return
		case <-ticker.C:
			if n := m.SweepIdle(); n > 0 {
				m.logger.Debug().Int("closed", n).Msg("idle sessions closed")
			}
		}
	}
}
