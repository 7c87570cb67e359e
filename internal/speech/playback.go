package speech

import (
	"context"
	"sync"

	"github.com/hara-ai/hara/internal/log"
)

// Player renders a clip to an audio device. Play blocks until the clip
// finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip Clip) error
	Close() error
}

// Manager serialises playback. Starting a new clip stops whichever one is
// still playing, so the user never hears two replies at once.
type Manager struct {
	player Player
	logger log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func NewManager(player Player, logger log.Logger) *Manager {
	return &Manager{player: player, logger: logger}
}

// Play stops any clip in progress and starts the given one in the
// background. Playback errors are logged, not returned, since the clip
// has already been handed off.
func (m *Manager) Play(clip Clip) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if err := m.player.Play(ctx, clip); err != nil && ctx.Err() == nil {
			m.logger.Warn("audio playback failed", "error", err)
		}
	}()
}

// Stop cancels the current clip, if any, and waits for the player to
// release the device.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopLocked()
	m.mu.Unlock()
}

func (m *Manager) stopLocked() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
		m.done = nil
	}
}

// Playing reports whether a clip is currently audible.
func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Close stops playback and releases the underlying device.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.stopLocked()
	return m.player.Close()
}
