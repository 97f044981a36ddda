package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnsupportedRate is returned by SetPlaybackRate for speeds outside PlaybackRates.
var ErrUnsupportedRate = errors.New("unsupported playback rate")

// PlaybackRates lists the speeds offered by the player, slowest first.
var PlaybackRates = []float64{0.5, 1, 1.25, 1.5, 2}

// MediaHandle is the playback capability a Controller directs.
type MediaHandle interface {
	Play() error
	Pause()
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	SetVolume(volume float64)
	SetMuted(muted bool)
	SetPlaybackRate(rate float64)
	RequestFullscreen() error
}

// PictureInPicture is the environment's floating-video capability. Active
// reports whether any media handle currently occupies the PiP window.
type PictureInPicture interface {
	Active() bool
	Enter(ctx context.Context, media MediaHandle) error
	Exit(ctx context.Context) error
}

// PlaybackState is a snapshot of the transport state owned by a Controller.
type PlaybackState struct {
	IsPlaying    bool    `json:"is_playing"`
	CurrentTime  float64 `json:"current_time"`
	Duration     float64 `json:"duration"`
	Volume       float64 `json:"volume"`
	IsMuted      bool    `json:"is_muted"`
	PlaybackRate float64 `json:"playback_rate"`
}

// Bookmark marks a playback timestamp within a course module.
type Bookmark struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Label     string  `json:"label"`
	CourseID  string  `json:"course_id"`
	ModuleID  string  `json:"module_id"`
}

type Params struct {
	Source          string
	CourseID        string
	ModuleID        string
	InitialPosition float64
}

type Option func(*Controller)

// WithTimeUpdateListener registers fn to receive every time update.
func WithTimeUpdateListener(fn func(seconds float64)) Option {
	return func(c *Controller) { c.onTimeUpdate = fn }
}

// WithBookmarkListener registers fn to receive created bookmarks.
func WithBookmarkListener(fn func(Bookmark)) Option {
	return func(c *Controller) { c.onBookmark = fn }
}

func WithPictureInPicture(pip PictureInPicture) Option {
	return func(c *Controller) { c.pip = pip }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock replaces time.Now for bookmark labels.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller translates user intents and media events into a consistent
// PlaybackState. It is not safe for concurrent use, except for
// TogglePictureInPicture which never touches the state.
type Controller struct {
	media  MediaHandle
	pip    PictureInPicture
	params Params
	state  PlaybackState
	logger zerolog.Logger
	now    func() time.Time

	onTimeUpdate func(float64)
	onBookmark   func(Bookmark)

	attached   bool
	pipPending atomic.Bool
}

func NewController(media MediaHandle, params Params, opts ...Option) *Controller {
	c := &Controller{
		media:  media,
		params: params,
		logger: zerolog.Nop(),
		now:    time.Now,
		state: PlaybackState{
			Volume:       1,
			PlaybackRate: 1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().
		Str("course_id", params.CourseID).
		Str("module_id", params.ModuleID).
		Logger()
	return c
}

// Attach binds the controller to its media handle. On the first call a
// length the handle already knows is adopted, and a nonzero initial
// position is applied before any playback starts.
func (c *Controller) Attach() {
	if c.attached {
		return
	}
	c.attached = true

	if d := c.media.Duration(); d > 0 {
		c.state.Duration = d
	}
	c.logger.Debug().
		Str("source", c.params.Source).
		Float64("duration", c.state.Duration).
		Msg("media attached")

	if c.params.InitialPosition != 0 {
		c.Seek(c.params.InitialPosition)
		c.logger.Debug().
			Float64("position", c.state.CurrentTime).
			Msg("resumed from saved position")
	}
}

func (c *Controller) State() PlaybackState {
	return c.state
}

func (c *Controller) TogglePlay() {
	if c.state.IsPlaying {
		c.media.Pause()
	} else if err := c.media.Play(); err != nil {
		c.logger.Warn().Err(err).Msg("play request rejected")
	}
	c.state.IsPlaying = !c.state.IsPlaying
}

// OnTimeUpdate is called by the media handle whenever the position advances.
func (c *Controller) OnTimeUpdate(seconds float64) {
	c.state.CurrentTime = seconds
	if c.onTimeUpdate != nil {
		c.onTimeUpdate(seconds)
	}
}

// OnMetadataLoaded is called once the media length is known. A position
// already past the end, such as a resume point applied before the length
// was known, is pulled back to the end.
func (c *Controller) OnMetadataLoaded(duration float64) {
	if duration < 0 {
		duration = 0
	}
	c.state.Duration = duration
	if duration > 0 && c.state.CurrentTime > duration {
		c.media.SetCurrentTime(duration)
		c.state.CurrentTime = math.Min(c.media.CurrentTime(), duration)
	}
}

// Seek moves playback to target, clamped to [0, duration]. The upper bound
// applies only once the duration is known.
func (c *Controller) Seek(target float64) {
	if target < 0 {
		target = 0
	}
	if c.state.Duration > 0 && target > c.state.Duration {
		target = c.state.Duration
	}
	c.media.SetCurrentTime(target)
	c.state.CurrentTime = target
}

func (c *Controller) ToggleMute() {
	c.state.IsMuted = !c.state.IsMuted
	c.media.SetMuted(c.state.IsMuted)
}

// SetVolume applies v, clamped to [0, 1]. Mute is left as is.
func (c *Controller) SetVolume(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	c.media.SetVolume(v)
	c.state.Volume = v
}

func (c *Controller) SetPlaybackRate(rate float64) error {
	if !IsSupportedRate(rate) {
		return fmt.Errorf("%w: %v", ErrUnsupportedRate, rate)
	}
	c.media.SetPlaybackRate(rate)
	c.state.PlaybackRate = rate
	return nil
}

// TogglePictureInPicture leaves PiP if anything occupies it, otherwise
// requests it for this controller's media. Failures are logged only. A
// toggle issued while a previous request is still in flight is dropped.
func (c *Controller) TogglePictureInPicture(ctx context.Context) {
	if c.pip == nil {
		c.logger.Warn().Msg("picture-in-picture not available")
		return
	}
	if !c.pipPending.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("picture-in-picture request already pending")
		return
	}
	defer c.pipPending.Store(false)

	var err error
	if c.pip.Active() {
		err = c.pip.Exit(ctx)
	} else {
		err = c.pip.Enter(ctx, c.media)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("picture-in-picture failed")
	}
}

func (c *Controller) RequestFullscreen() {
	if err := c.media.RequestFullscreen(); err != nil {
		c.logger.Warn().Err(err).Msg("fullscreen request failed")
	}
}

// AddBookmark creates a bookmark at the current position and hands it to
// the bookmark listener. Without a listener nothing is created.
func (c *Controller) AddBookmark() (Bookmark, bool) {
	if c.onBookmark == nil {
		return Bookmark{}, false
	}

	created := c.now().UTC()
	b := Bookmark{
		ID:        uuid.NewString(),
		Timestamp: c.state.CurrentTime,
		Label:     "Bookmark at " + created.Format("2006-01-02T15:04:05.000Z"),
		CourseID:  c.params.CourseID,
		ModuleID:  c.params.ModuleID,
	}
	c.onBookmark(b)
	return b, true
}

func IsSupportedRate(rate float64) bool {
	for _, r := range PlaybackRates {
		if r == rate {
			return true
		}
	}
	return false
}

// FormatTime renders seconds as m:ss, the way the player's time labels do.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
