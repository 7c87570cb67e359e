package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
)

const speechVoice = "Aoede"

// Gemini is the native backend. The API keeps conversation state in a
// chat handle, so every send recreates the handle from the session
// history; that keeps edited and switched sessions consistent at the
// cost of resending history.
type Gemini struct {
	key         string
	model       string
	speechModel string
	temperature float32
	limiter     *rate.Limiter
	logger      log.Logger
	now         func() time.Time

	mu     sync.Mutex
	client *genai.Client
	chat   *genai.Chat
}

func NewGemini(cfg Config) *Gemini {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gemini{
		key:         cfg.APIKey,
		model:       cfg.ChatModel,
		speechModel: cfg.SpeechModel,
		temperature: cfg.Temperature,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Message: "create gemini client", Err: err}
	}
	g.client = client
	return client, nil
}

// Init creates a fresh chat handle primed with history.
func (g *Gemini) Init(ctx context.Context, history []session.Message) error {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return err
	}
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(g.now()), genai.RoleUser),
		Temperature:       &temp,
	}
	chat, err := client.Chats.Create(ctx, g.model, cfg, historyToContents(history))
	if err != nil {
		return wrapGeminiErr(err)
	}
	g.mu.Lock()
	g.chat = chat
	g.mu.Unlock()
	return nil
}

func (g *Gemini) SendStream(ctx context.Context, req SendRequest, sink Sink) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	// The handle replays history on creation, so rebuilding it here keeps
	// the backend in sync with whatever session is active.
	if err := g.Init(ctx, req.History); err != nil {
		return "", err
	}
	g.mu.Lock()
	chat := g.chat
	g.mu.Unlock()

	var parts []genai.Part
	if req.Image != "" {
		mime, data, err := decodeDataURI(req.Image)
		if err != nil {
			return "", &Error{Kind: KindRequest, Message: "bad image attachment", Err: err}
		}
		parts = append(parts, genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}
	if strings.TrimSpace(req.Text) != "" {
		parts = append(parts, genai.Part{Text: req.Text})
	}
	if len(parts) == 0 {
		return "", &Error{Kind: KindRequest, Message: "empty message"}
	}

	var buf strings.Builder
	for resp, err := range chat.SendMessageStream(ctx, parts...) {
		if err != nil {
			return "", wrapGeminiErr(err)
		}
		if t := resp.Text(); t != "" {
			buf.WriteString(t)
			if sink != nil {
				sink(buf.String())
			}
		}
	}
	return buf.String(), nil
}

// GenerateSpeech synthesises the reply with the dedicated speech model.
// Hinglish replies get a pronunciation hint so the voice does not read
// romanised Hindi as English.
func (g *Gemini) GenerateSpeech(ctx context.Context, text string) (speech.Clip, error) {
	normalized, err := speech.Normalize(text)
	if err != nil {
		return speech.Clip{}, err
	}
	client, err := g.ensureClient(ctx)
	if err != nil {
		return speech.Clip{}, err
	}

	prompt := "Say cheerfully: " + normalized
	if speech.IsHinglish(normalized) {
		prompt = "Read this Hinglish text aloud naturally, with Hindi pronunciation for the Hindi words: " + normalized
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: speechVoice},
			},
		},
	}
	res, err := client.Models.GenerateContent(ctx, g.speechModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		return speech.Clip{}, wrapGeminiErr(err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return speech.Clip{}, &Error{Kind: KindBadStream, Model: g.speechModel, Message: "speech response had no candidates"}
	}
	for _, p := range res.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return speech.DecodePCM16(p.InlineData.Data), nil
		}
	}
	return speech.Clip{}, &Error{Kind: KindBadStream, Model: g.speechModel, Message: "speech response had no audio part"}
}

func historyToContents(history []session.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		var parts []*genai.Part
		if m.Image != "" {
			if mime, data, err := decodeDataURI(m.Image); err == nil {
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
			}
		}
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		if len(parts) == 0 {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == session.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

func wrapGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return &Error{Kind: KindQuota, Message: QuotaMessage, Err: err}
	}
	return &Error{Kind: KindRequest, Err: err}
}
