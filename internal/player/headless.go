package player

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrPlaybackBlocked             = errors.New("playback blocked by autoplay policy")
	ErrPictureInPictureUnavailable = errors.New("picture-in-picture unavailable")
)

// HeadlessMedia is an in-process MediaHandle. Server sessions use it to
// stand in for the viewer's video element.
type HeadlessMedia struct {
	mu         sync.Mutex
	playing    bool
	position   float64
	duration   float64
	volume     float64
	muted      bool
	rate       float64
	fullscreen bool
	blockPlay  bool
}

func NewHeadlessMedia() *HeadlessMedia {
	return &HeadlessMedia{
		volume: 1,
		rate:   1,
	}
}

// BlockPlay makes subsequent Play calls fail with ErrPlaybackBlocked.
func (m *HeadlessMedia) BlockPlay(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockPlay = block
}

// LoadMetadata records the media length. Positions are clamped to it from
// then on.
func (m *HeadlessMedia) LoadMetadata(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = duration
	if m.duration > 0 && m.position > m.duration {
		m.position = m.duration
	}
}

func (m *HeadlessMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blockPlay {
		return ErrPlaybackBlocked
	}
	m.playing = true
	return nil
}

func (m *HeadlessMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *HeadlessMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *HeadlessMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *HeadlessMedia) SetCurrentTime(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if m.duration > 0 && seconds > m.duration {
		seconds = m.duration
	}
	m.position = seconds
}

func (m *HeadlessMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *HeadlessMedia) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *HeadlessMedia) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
}

func (m *HeadlessMedia) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *HeadlessMedia) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

func (m *HeadlessMedia) PlaybackRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *HeadlessMedia) SetPlaybackRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *HeadlessMedia) RequestFullscreen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fullscreen = true
	return nil
}

func (m *HeadlessMedia) Fullscreen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreen
}

// HeadlessPiP is a PictureInPicture host holding at most one media handle,
// like a browser document does.
type HeadlessPiP struct {
	mu          sync.Mutex
	element     MediaHandle
	unsupported bool
}

func NewHeadlessPiP(supported bool) *HeadlessPiP {
	return &HeadlessPiP{unsupported: !supported}
}

func (p *HeadlessPiP) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.element != nil
}

// Element returns the media currently shown in PiP, or nil.
func (p *HeadlessPiP) Element() MediaHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.element
}

func (p *HeadlessPiP) Enter(ctx context.Context, media MediaHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsupported {
		return ErrPictureInPictureUnavailable
	}
	p.element = media
	return nil
}

func (p *HeadlessPiP) Exit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.element = nil
	return nil
}
