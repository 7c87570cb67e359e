package speech

import (
	"context"
	"errors"
	"fmt"

	"github.com/hara-ai/hara/internal/log"
)

// Synthesizer turns prose into audio. The chat providers satisfy this;
// backends without a speech model return ErrUnsupported.
type Synthesizer interface {
	GenerateSpeech(ctx context.Context, text string) (Clip, error)
}

// Speaker ties synthesis to playback. When the primary backend cannot
// synthesise, it falls back to the local synthesizer without surfacing
// an error; only a failure of the fallback itself reaches the caller.
type Speaker struct {
	primary  Synthesizer
	fallback Synthesizer
	manager  *Manager
	logger   log.Logger
}

func NewSpeaker(primary, fallback Synthesizer, manager *Manager, logger log.Logger) *Speaker {
	return &Speaker{primary: primary, fallback: fallback, manager: manager, logger: logger}
}

// Speak synthesises text and starts playback. Unspeakable input is a
// silent no-op.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	clip, err := s.primary.GenerateSpeech(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSpeakableContent):
		return nil
	case errors.Is(err, ErrUnsupported):
		if s.fallback == nil {
			return err
		}
		s.logger.Debug("backend has no speech model, using local synthesis")
		clip, err = s.fallback.GenerateSpeech(ctx, text)
		if err != nil {
			if errors.Is(err, ErrNoSpeakableContent) {
				return nil
			}
			return fmt.Errorf("fallback synthesis: %w", err)
		}
	default:
		return fmt.Errorf("synthesize speech: %w", err)
	}

	s.manager.Play(clip)
	return nil
}

// Stop cancels playback in progress.
func (s *Speaker) Stop() { s.manager.Stop() }
