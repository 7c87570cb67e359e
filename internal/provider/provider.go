// Package provider abstracts the chat backends. Two implementations
// exist: Gemini talks to the native stateful chat API, OpenRouter speaks
// the OpenAI-compatible SSE protocol with a fallback model list. The
// backend is chosen from the API key alone, so swapping keys in settings
// swaps backends transparently.
package provider

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
)

// openRouterPrefix marks keys issued by OpenRouter.
const openRouterPrefix = "sk-or-"

// IsOpenRouterKey reports whether the key selects the OpenRouter backend.
func IsOpenRouterKey(key string) bool {
	return strings.HasPrefix(strings.TrimSpace(key), openRouterPrefix)
}

// Sink receives the full accumulated text so far, never a delta. A send
// that falls back mid-stream resets the sink with an empty string before
// the next candidate starts.
type Sink func(full string)

// SendRequest is one user turn. Image, when set, is a data URI.
type SendRequest struct {
	Text    string
	Image   string
	History []session.Message
}

// Provider is a chat backend.
type Provider interface {
	// Name identifies the backend in logs.
	Name() string
	// Init primes backend-side conversation state from history. Stateless
	// backends may make it a no-op.
	Init(ctx context.Context, history []session.Message) error
	// SendStream sends one turn, forwarding progress to sink, and returns
	// the final text.
	SendStream(ctx context.Context, req SendRequest, sink Sink) (string, error)
	// GenerateSpeech synthesises spoken audio for text. Backends without
	// a speech model return an Error of KindUnsupported wrapping
	// speech.ErrUnsupported.
	GenerateSpeech(ctx context.Context, text string) (speech.Clip, error)
}

// Config carries everything a backend needs. Resolve functions hand a
// fresh copy to Context so credential changes take effect on the next
// request.
type Config struct {
	APIKey      string
	ChatModel   string
	SpeechModel string
	Temperature float32
	Referrer    string
	// Models overrides the OpenRouter fallback list. Nil means the default.
	Models []string
	// HTTPClient overrides the client used by OpenRouter. Nil means a
	// client with a sane timeout.
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     log.Logger
	// Now stamps the persona prompt. Nil means time.Now.
	Now func() time.Time
}

// New selects and builds a backend from the key.
func New(cfg Config) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &Error{Kind: KindMissingKey, Message: "no API key configured"}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if IsOpenRouterKey(cfg.APIKey) {
		return NewOpenRouter(cfg), nil
	}
	return NewGemini(cfg), nil
}

// Context hands out the active provider, rebuilding it whenever the
// resolved API key changes. A key edit in settings therefore selects
// the new backend on the very next send, with no restart.
type Context struct {
	resolve func() Config

	mu     sync.Mutex
	active Provider
	key    string
}

func NewContext(resolve func() Config) *Context {
	return &Context{resolve: resolve}
}

// Provider returns the backend for the currently configured key.
func (c *Context) Provider() (Provider, error) {
	cfg := c.resolve()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.key == cfg.APIKey {
		return c.active, nil
	}
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	c.active = p
	c.key = cfg.APIKey
	return p, nil
}

// Reset drops the active backend so the next call rebuilds it.
func (c *Context) Reset() {
	c.mu.Lock()
	c.active = nil
	c.key = ""
	c.mu.Unlock()
}
