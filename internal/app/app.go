// Package app assembles the application: configuration, stores, the
// provider context, the chat orchestrator, and speech, wired in
// dependency order and torn down in reverse.
package app

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/hara-ai/hara/internal/admin"
	"github.com/hara-ai/hara/internal/chat"
	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/imagegen"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
	"github.com/hara-ai/hara/internal/user"
)

// requestsPerMinute bounds outbound chat requests. Free-tier backends
// throttle aggressively; staying under their window avoids burning a
// fallback candidate on a self-inflicted 429.
const requestsPerMinute = 30

// Runtime is the wired application.
type Runtime struct {
	Config    *config.Config
	Logger    log.Logger
	Users     *user.Store
	Sessions  *session.Store
	Providers *provider.Context
	Chat      *chat.Orchestrator
	Admin     *admin.Service
	Speaker   *speech.Speaker
	Identity  *user.Identity
}

// Options adjusts construction. The zero value is production behavior.
type Options struct {
	// Player overrides audio output. Nil disables playback, which also
	// disables the speaker entirely.
	Player speech.Player
}

// New builds the runtime from configuration.
func New(cfg *config.Config, logger log.Logger, opts Options) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	users, err := user.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	sessions, err := session.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerMinute)/60, 1)
	providers := provider.NewContext(func() provider.Config {
		return provider.Config{
			APIKey:      cfg.ResolveAPIKey(),
			ChatModel:   cfg.ChatModel,
			SpeechModel: cfg.SpeechModel,
			Temperature: cfg.Temperature,
			Referrer:    cfg.Referrer,
			Limiter:     limiter,
			Logger:      logger,
		}
	})

	orchestrator := chat.NewOrchestrator(sessions, providers, imagegen.New(), logger)
	adminSvc := admin.NewService(users, sessions, cfg, providers, logger)

	var speaker *speech.Speaker
	if opts.Player != nil {
		manager := speech.NewManager(opts.Player, logger)
		speaker = speech.NewSpeaker(&providerSynth{providers: providers}, nil, manager, logger)
	}

	identity, err := user.LoadIdentity(cfg.DataDir)
	if err != nil {
		logger.Warn("read saved identity", "error", err)
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Users:     users,
		Sessions:  sessions,
		Providers: providers,
		Chat:      orchestrator,
		Admin:     adminSvc,
		Speaker:   speaker,
		Identity:  identity,
	}, nil
}

// Close stops background work. Stores persist on every mutation, so
// there is nothing to flush.
func (r *Runtime) Close() {
	r.Chat.Close()
	if r.Speaker != nil {
		r.Speaker.Stop()
	}
}

// providerSynth adapts the provider context to speech.Synthesizer, so
// the speaker always synthesises with whichever backend is active.
type providerSynth struct {
	providers *provider.Context
}

func (p *providerSynth) GenerateSpeech(ctx context.Context, text string) (speech.Clip, error) {
	backend, err := p.providers.Provider()
	if err != nil {
		return speech.Clip{}, err
	}
	return backend.GenerateSpeech(ctx, text)
}
