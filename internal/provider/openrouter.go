package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
)

const openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// DefaultModels is the fallback sequence tried in order on each send.
// Free-tier models go first; openrouter/auto is the paid escape hatch.
var DefaultModels = []string{
	"google/gemini-2.0-flash-lite-preview-02-05:free",
	"google/gemini-2.0-pro-exp-02-05:free",
	"openrouter/auto",
	"deepseek/deepseek-r1:free",
	"deepseek/deepseek-r1-distill-llama-70b:free",
	"meta-llama/llama-3.3-70b-instruct:free",
	"nvidia/llama-3.1-nemotron-70b-instruct:free",
	"google/gemini-2.0-flash-thinking-exp:free",
	"google/gemini-exp-1206:free",
}

// OpenRouter speaks the OpenAI-compatible streaming protocol. The
// backend is stateless; every send carries the full conversation as a
// messages array.
type OpenRouter struct {
	key      string
	referrer string
	models   []string
	client   *http.Client
	limiter  *rate.Limiter
	logger   log.Logger
	endpoint string
	now      func() time.Time
}

func NewOpenRouter(cfg Config) *OpenRouter {
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &OpenRouter{
		key:      cfg.APIKey,
		referrer: cfg.Referrer,
		models:   models,
		client:   client,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger,
		endpoint: openRouterEndpoint,
		now:      cfg.Now,
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

// Init is a no-op; the wire format carries history on every send.
func (o *OpenRouter) Init(ctx context.Context, history []session.Message) error {
	return nil
}

// GenerateSpeech always fails; OpenRouter exposes no speech models here.
func (o *OpenRouter) GenerateSpeech(ctx context.Context, text string) (speech.Clip, error) {
	return speech.Clip{}, &Error{Kind: KindUnsupported, Message: "openrouter backend has no speech model", Err: speech.ErrUnsupported}
}

// chatMessage carries either a plain string or a content-part array;
// parts are only used for turns with an image attachment.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type streamFrame struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// SendStream walks the model list until one completes. A candidate that
// fails after emitting text has its partial output discarded: the sink
// is reset with an empty string before the next candidate begins, so the
// reply shown to the user never mixes two models.
func (o *OpenRouter) SendStream(ctx context.Context, req SendRequest, sink Sink) (string, error) {
	messages := o.buildMessages(req)

	var lastErr error
	for _, model := range o.models {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		emitted := false
		text, err := o.streamModel(ctx, model, messages, func(full string) {
			emitted = true
			if sink != nil {
				sink(full)
			}
		})
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		o.logger.Warn("chat model failed, trying next", "model", model, "error", err)
		if emitted && sink != nil {
			sink("")
		}
	}
	return "", &Error{Kind: KindExhausted, Message: "all chat models are currently unavailable", Err: lastErr}
}

func (o *OpenRouter) buildMessages(req SendRequest) []chatMessage {
	now := time.Now()
	if o.now != nil {
		now = o.now()
	}
	messages := make([]chatMessage, 0, len(req.History)+2)
	messages = append(messages, chatMessage{Role: "system", Content: SystemInstruction(now)})
	for _, m := range req.History {
		role := "user"
		if m.Role == session.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: messageContent(m.Content, m.Image)})
	}
	return append(messages, chatMessage{Role: "user", Content: messageContent(req.Text, req.Image)})
}

// messageContent keeps plain turns as a bare string and expands turns
// with an image into a text + image_url part array.
func messageContent(text, image string) any {
	if image == "" {
		return text
	}
	parts := make([]contentPart, 0, 2)
	if text != "" {
		parts = append(parts, contentPart{Type: "text", Text: text})
	}
	return append(parts, contentPart{Type: "image_url", ImageURL: &imageRef{URL: image}})
}

// streamModel runs one candidate to completion, forwarding the full
// accumulated text after every frame.
func (o *OpenRouter) streamModel(ctx context.Context, model string, messages []chatMessage, sink Sink) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return "", &Error{Kind: KindRequest, Model: model, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindRequest, Model: model, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.key)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", o.referrer)
	httpReq.Header.Set("X-Title", "Hara AI")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: KindRequest, Model: model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := KindRequest
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = KindQuota
		}
		return "", &Error{Kind: kind, Model: model, Message: readErrorBody(resp.Body, resp.StatusCode)}
	}

	var buf strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			return buf.String(), nil
		}
		var frame streamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return "", &Error{Kind: KindBadStream, Model: model, Message: "malformed stream frame", Err: err}
		}
		if frame.Error != nil {
			return "", &Error{Kind: KindBadStream, Model: model, Message: frame.Error.Message}
		}
		if len(frame.Choices) > 0 && frame.Choices[0].Delta.Content != "" {
			buf.WriteString(frame.Choices[0].Delta.Content)
			if sink != nil {
				sink(buf.String())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &Error{Kind: KindBadStream, Model: model, Message: "stream read failed", Err: err}
	}
	// Stream ended without the DONE sentinel; treat what arrived as final.
	return buf.String(), nil
}

func readErrorBody(r io.Reader, status int) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return fmt.Sprintf("unexpected status %d", status)
}
