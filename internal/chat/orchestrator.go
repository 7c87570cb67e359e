// Package chat drives one conversation turn end to end: append the user
// message, pick a reply path (text stream or image generation), stream
// progress to the UI, and persist the finished reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hara-ai/hara/internal/imagegen"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/stream"
)

// ErrBusy means a turn is already in flight. Sends while busy are
// rejected, never queued.
var ErrBusy = errors.New("chat: a reply is already in progress")

// ErrEmptyMessage means there was nothing to send.
var ErrEmptyMessage = errors.New("chat: empty message")

// ErrNoUser means no user has been selected yet.
var ErrNoUser = errors.New("chat: no active user")

// State is the orchestrator phase. It moves Idle -> Sending ->
// (Streaming | ImageGenerating) -> Idle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateImageGenerating
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateImageGenerating:
		return "generating_image"
	default:
		return "idle"
	}
}

// Event is a progress update for one reply. Text always carries the full
// reply so far; Final marks the sealed version that was persisted. Err
// is set when the turn failed, alongside the error transcript in Text.
type Event struct {
	SessionID uuid.UUID
	MessageID uuid.UUID
	Text      string
	Image     string
	Final     bool
	Err       error
}

// ProviderSource hands out the active backend. provider.Context
// satisfies it; tests substitute fakes.
type ProviderSource interface {
	Provider() (provider.Provider, error)
}

// Orchestrator owns the active session and enforces single-flight sends.
type Orchestrator struct {
	store     *session.Store
	providers ProviderSource
	images    *imagegen.Generator
	logger    log.Logger
	events    chan Event

	mu       sync.Mutex
	state    State
	username string
	active   session.ChatSession
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewOrchestrator(store *session.Store, providers ProviderSource, images *imagegen.Generator, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		providers: providers,
		images:    images,
		logger:    logger,
		events:    make(chan Event, 64),
	}
}

// Events delivers reply progress. The channel is never closed; consumers
// stop reading when they shut down.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// State reports the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetUser switches the orchestrator to a user's sessions, resuming the
// most recent one or creating a first session.
func (o *Orchestrator) SetUser(username string) error {
	sessions := o.store.List(username)
	var active session.ChatSession
	if len(sessions) > 0 {
		active = sessions[0]
	} else {
		created, err := o.store.Create(username)
		if err != nil {
			return fmt.Errorf("create first session: %w", err)
		}
		active = created
	}
	o.mu.Lock()
	o.cancelLocked()
	o.username = username
	o.active = active
	o.mu.Unlock()
	o.primeProvider()
	return nil
}

// Active returns a copy of the session currently on screen.
func (o *Orchestrator) Active() session.ChatSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active.Clone()
}

// Sessions lists the active user's sessions, most recent first.
func (o *Orchestrator) Sessions() []session.ChatSession {
	o.mu.Lock()
	username := o.username
	o.mu.Unlock()
	return o.store.List(username)
}

// NewSession starts a fresh conversation and makes it active. An
// in-flight reply for the previous session is abandoned.
func (o *Orchestrator) NewSession() (session.ChatSession, error) {
	o.mu.Lock()
	username := o.username
	o.mu.Unlock()
	if username == "" {
		return session.ChatSession{}, ErrNoUser
	}
	created, err := o.store.Create(username)
	if err != nil {
		return session.ChatSession{}, err
	}
	o.mu.Lock()
	o.cancelLocked()
	o.active = created
	o.mu.Unlock()
	o.primeProvider()
	return created.Clone(), nil
}

// SelectSession makes an existing session active and bumps its recency,
// so the session resumed on the next start is the one last viewed. A
// reply still streaming for the previous session is cancelled and its
// completion dropped, so it can never land in the newly selected
// session.
func (o *Orchestrator) SelectSession(id uuid.UUID) error {
	o.mu.Lock()
	username := o.username
	o.mu.Unlock()
	if err := o.store.Touch(username, id); err != nil {
		return err
	}
	sess, err := o.store.Get(username, id)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.cancelLocked()
	o.active = sess
	o.mu.Unlock()
	o.primeProvider()
	return nil
}

// primeProvider rebuilds backend-side conversation state for the newly
// active session. Failures are logged only; the next send re-primes and
// surfaces its own error.
func (o *Orchestrator) primeProvider() {
	p, err := o.providers.Provider()
	if err != nil {
		o.logger.Debug("provider unavailable while priming", "error", err)
		return
	}
	if err := p.Init(context.Background(), o.Active().ContextHistory()); err != nil {
		o.logger.Warn("prime provider history", "provider", p.Name(), "error", err)
	}
}

// DeleteSession removes a session. Deleting the active one falls back to
// the most recent remaining session, creating one if none are left.
func (o *Orchestrator) DeleteSession(id uuid.UUID) error {
	o.mu.Lock()
	username := o.username
	wasActive := o.active.ID == id
	o.mu.Unlock()

	if err := o.store.Delete(username, id); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}
	return o.SetUser(username)
}

// Send runs one turn. It returns ErrBusy while a previous turn is in
// flight; the caller decides whether to surface that or ignore it.
func (o *Orchestrator) Send(ctx context.Context, text, image string) error {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.username == "" {
		o.mu.Unlock()
		return ErrNoUser
	}
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.state = StateSending
	sess := o.active.Clone()
	username := o.username
	o.mu.Unlock()

	now := time.Now()
	userMsg := session.Message{
		ID:        uuid.New(),
		Role:      session.RoleUser,
		Content:   text,
		Image:     image,
		Timestamp: now,
	}
	placeholder := session.Message{
		ID:        uuid.New(),
		Role:      session.RoleModel,
		Timestamp: now,
		Streaming: true,
	}
	// History for the backend stops before this turn; the turn itself
	// travels as the request.
	history := sess.ContextHistory()
	sess.Messages = append(sess.Messages, userMsg, placeholder)
	sess.UpdatedAt = now

	if err := o.store.Update(username, sess); err != nil {
		o.setState(StateIdle)
		return fmt.Errorf("persist user message: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.active = sess
	o.cancel = cancel
	o.mu.Unlock()

	tn := turn{
		sessionID: sess.ID,
		messageID: placeholder.ID,
		userText:  text,
		hadImage:  image != "",
	}

	if isImageIntent(text) && image == "" {
		o.setState(StateImageGenerating)
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer cancel()
			o.generateImage(tn)
		}()
		return nil
	}

	o.setState(StateStreaming)
	req := provider.SendRequest{Text: text, Image: image, History: history}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.streamReply(runCtx, tn, req)
	}()
	return nil
}

// turn identifies one in-flight send: where its reply must land, and
// what the user submitted, which the title rule needs on completion.
type turn struct {
	sessionID uuid.UUID
	messageID uuid.UUID
	userText  string
	hadImage  bool
}

func (o *Orchestrator) streamReply(ctx context.Context, tn turn, req provider.SendRequest) {
	p, err := o.providers.Provider()
	if err != nil {
		o.complete(tn, errorTranscript(err), "", err)
		return
	}

	merger := stream.NewMerger()
	final, err := p.SendStream(ctx, req, func(full string) {
		if !merger.Apply(full) {
			return
		}
		o.emit(Event{SessionID: tn.sessionID, MessageID: tn.messageID, Text: full})
	})
	if err != nil {
		o.logger.Warn("reply failed", "provider", p.Name(), "error", err)
		o.complete(tn, errorTranscript(err), "", err)
		return
	}
	merger.Finalize(final)
	o.complete(tn, final, "", nil)
}

func (o *Orchestrator) generateImage(tn turn) {
	url := o.images.URL(tn.userText)
	o.complete(tn, imagegen.Caption(tn.userText), url, nil)
}

// complete seals the placeholder message and returns to idle. A
// completion whose session is no longer active is dropped; the turn
// belonged to a conversation the user has left. The title is derived
// here rather than on submit: only a completed first exchange names the
// session, a failed one leaves the sentinel.
func (o *Orchestrator) complete(tn turn, text, image string, cause error) {
	o.mu.Lock()
	o.state = StateIdle
	o.cancel = nil
	if o.active.ID != tn.sessionID {
		username := o.username
		o.mu.Unlock()
		o.logger.Debug("dropping completion for inactive session", "session", tn.sessionID)
		o.scrubPlaceholder(username, tn.sessionID, tn.messageID)
		return
	}
	sess := o.active.Clone()
	username := o.username
	o.mu.Unlock()

	sealed := false
	for i := range sess.Messages {
		if sess.Messages[i].ID == tn.messageID {
			sess.Messages[i].Content = text
			sess.Messages[i].Image = image
			sess.Messages[i].Streaming = false
			sealed = true
			break
		}
	}
	if !sealed {
		o.logger.Warn("completion for unknown message", "message", tn.messageID)
		return
	}
	if cause == nil {
		sess.DeriveTitle(tn.userText, tn.hadImage)
	}
	sess.UpdatedAt = time.Now()
	if err := o.store.Update(username, sess); err != nil {
		o.logger.Error("persist reply", "error", err)
	}
	o.mu.Lock()
	if o.active.ID == tn.sessionID {
		o.active = sess
	}
	o.mu.Unlock()

	o.emit(Event{
		SessionID: tn.sessionID,
		MessageID: tn.messageID,
		Text:      text,
		Image:     image,
		Final:     true,
		Err:       cause,
	})
}

// scrubPlaceholder removes a streaming placeholder whose reply was
// dropped, so the stored session never shows a message stuck mid-stream.
func (o *Orchestrator) scrubPlaceholder(username string, sessionID, messageID uuid.UUID) {
	sess, err := o.store.Get(username, sessionID)
	if err != nil {
		return
	}
	kept := sess.Messages[:0]
	for _, m := range sess.Messages {
		if m.ID == messageID && m.Streaming {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == len(sess.Messages) {
		return
	}
	sess.Messages = kept
	if err := o.store.Update(username, sess); err != nil {
		o.logger.Warn("scrub streaming placeholder", "error", err)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) cancelLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// emit never blocks; a consumer that has fallen this far behind loses
// the oldest update, and the next full-buffer snapshot covers the gap.
func (o *Orchestrator) emit(ev Event) {
	for {
		select {
		case o.events <- ev:
			return
		default:
		}
		select {
		case <-o.events:
		default:
		}
	}
}

// Close abandons any in-flight reply and waits for its goroutine.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.cancelLocked()
	o.mu.Unlock()
	o.wg.Wait()
}

// errorTranscript renders a failure as the assistant reply so the
// conversation keeps a record of what happened.
func errorTranscript(err error) string {
	return fmt.Sprintf("⚠️ **Error**: %s\n\nPlease try a different prompt.", userFacingMessage(err))
}

func userFacingMessage(err error) string {
	if provider.IsKind(err, provider.KindQuota) {
		return provider.QuotaMessage
	}
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
