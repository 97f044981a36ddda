package session

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"learnview/internal/player"
	"learnview/internal/storage"
)

// Snapshot is the client-facing view of a session.
type Snapshot struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	ModuleID string `json:"module_id"`
	player.PlaybackState
	CurrentTimeLabel string `json:"current_time_label"`
	DurationLabel    string `json:"duration_label"`
	PictureInPicture bool   `json:"picture_in_picture"`
	Fullscreen       bool   `json:"fullscreen"`
}

// Session binds one controller to a viewer's module. Its methods are safe
// for concurrent use.
type Session struct {
	ID       string
	CourseID string
	ModuleID string

	manager *Manager
	logger  zerolog.Logger
	media   *player.HeadlessMedia
	pip     *player.HeadlessPiP
	ctrl    *player.Controller

	mu          sync.Mutex
	used        time.Time
	lastSaved   float64
	bookmarkErr error
	closed      bool
}

// Snapshot returns the current view. It fails with ErrSessionNotFound once
// the session is closed.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

func (s *Session) snapshot() Snapshot {
	state := s.ctrl.State()
	return Snapshot{
		ID:               s.ID,
		CourseID:         s.CourseID,
		ModuleID:         s.ModuleID,
		PlaybackState:    state,
		CurrentTimeLabel: player.FormatTime(state.CurrentTime),
		DurationLabel:    player.FormatTime(state.Duration),
		PictureInPicture: s.pip.Element() == player.MediaHandle(s.media),
		Fullscreen:       s.media.Fullscreen(),
	}
}

// apply runs fn under the session lock unless the session was closed by
// the time the caller got here (evicted, swept or closed concurrently).
func (s *Session) apply(fn func() error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionNotFound
	}
	err := fn()
	return s.snapshot(), err
}

func (s *Session) TogglePlay() (Snapshot, error) {
	return s.apply(func() error {
		s.ctrl.TogglePlay()
		if !s.ctrl.State().IsPlaying {
			s.saveProgress()
		}
		return nil
	})
}

// TimeUpdate reports the viewer's playback position.
func (s *Session) TimeUpdate(seconds float64) (Snapshot, error) {
	return s.apply(func() error {
		s.media.SetCurrentTime(seconds)
		s.ctrl.OnTimeUpdate(s.media.CurrentTime())
		return nil
	})
}

// MetadataLoaded reports the media length once the viewer knows it.
func (s *Session) MetadataLoaded(duration float64) (Snapshot, error) {
	return s.apply(func() error {
		s.media.LoadMetadata(duration)
		s.ctrl.OnMetadataLoaded(s.media.Duration())
		return nil
	})
}

func (s *Session) Seek(seconds float64) (Snapshot, error) {
	return s.apply(func() error {
		s.ctrl.Seek(seconds)
		s.saveProgress()
		return nil
	})
}

func (s *Session) ToggleMute() (Snapshot, error) {
	return s.apply(func() error {
		s.ctrl.ToggleMute()
		return nil
	})
}

func (s *Session) SetVolume(v float64) (Snapshot, error) {
	return s.apply(func() error {
		s.ctrl.SetVolume(v)
		return nil
	})
}

func (s *Session) SetPlaybackRate(rate float64) (Snapshot, error) {
	return s.apply(func() error {
		return s.ctrl.SetPlaybackRate(rate)
	})
}

// TogglePictureInPicture runs outside the session lock; the request does
// not touch playback state.
func (s *Session) TogglePictureInPicture(ctx context.Context) (Snapshot, error) {
	if s.isClosed() {
		return Snapshot{}, ErrSessionNotFound
	}
	s.ctrl.TogglePictureInPicture(ctx)
	return s.Snapshot()
}

func (s *Session) RequestFullscreen() (Snapshot, error) {
	return s.apply(func() error {
		s.ctrl.RequestFullscreen()
		return nil
	})
}

// AddBookmark stores a bookmark at the current position.
func (s *Session) AddBookmark() (player.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return player.Bookmark{}, ErrSessionNotFound
	}

	s.bookmarkErr = nil
	b, _ := s.ctrl.AddBookmark()
	if s.bookmarkErr != nil {
		return player.Bookmark{}, s.bookmarkErr
	}
	return b, nil
}

func (s *Session) handleTimeUpdate(seconds float64) {
	interval := s.manager.cfg.SaveInterval
	if interval <= 0 || math.Abs(seconds-s.lastSaved) >= interval {
		s.saveProgress()
	}
}

func (s *Session) handleBookmark(b player.Bookmark) {
	err := s.manager.store.CreateBookmark(&storage.Bookmark{
		ID:        b.ID,
		CourseID:  b.CourseID,
		ModuleID:  b.ModuleID,
		Timestamp: b.Timestamp,
		Label:     b.Label,
		CreatedAt: s.manager.now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bookmark_id", b.ID).Msg("failed to save bookmark")
		s.bookmarkErr = err
		return
	}
	s.logger.Debug().
		Str("bookmark_id", b.ID).
		Float64("timestamp", b.Timestamp).
		Msg("bookmark saved")
}

// saveProgress must be called with mu held.
func (s *Session) saveProgress() {
	state := s.ctrl.State()
	if state.Duration <= 0 {
		return
	}

	progress := state.CurrentTime / state.Duration
	if progress > 1 {
		progress = 1
	}
	p := &storage.ModuleProgress{
		CourseID:  s.CourseID,
		ModuleID:  s.ModuleID,
		Position:  state.CurrentTime,
		Duration:  state.Duration,
		Progress:  progress,
		Completed: progress >= storage.CompletionThreshold,
	}
	if err := s.manager.store.SaveProgress(p); err != nil {
		s.logger.Error().Err(err).Msg("failed to save progress")
		return
	}
	s.lastSaved = state.CurrentTime

	s.logger.Debug().
		Float64("position", p.Position).
		Float64("progress", progress).
		Msg("progress saved")
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = now
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.ctrl.State().IsPlaying {
		s.media.Pause()
	}
	s.saveProgress()
	if s.pip.Element() == player.MediaHandle(s.media) {
		if err := s.pip.Exit(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to leave picture-in-picture")
		}
	}
	s.logger.Info().Msg("session closed")
}
