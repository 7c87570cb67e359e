package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/hara-ai/hara/internal/imagegen"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/provider"
	"github.com/hara-ai/hara/internal/session"
	"github.com/hara-ai/hara/internal/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	mu        sync.Mutex
	initCalls int
	sendCalls int
	send      func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Init(ctx context.Context, history []session.Message) error {
	f.mu.Lock()
	f.initCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) SendStream(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
	f.mu.Lock()
	f.sendCalls++
	f.mu.Unlock()
	return f.send(ctx, req, sink)
}

func (f *fakeProvider) GenerateSpeech(ctx context.Context, text string) (speech.Clip, error) {
	return speech.Clip{}, speech.ErrUnsupported
}

func (f *fakeProvider) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

type fakeSource struct{ p provider.Provider }

func (s fakeSource) Provider() (provider.Provider, error) { return s.p, nil }

func newOrchestrator(t *testing.T, p provider.Provider) (*Orchestrator, *session.Store) {
	t.Helper()
	store, err := session.Open(t.TempDir(), log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	o := NewOrchestrator(store, fakeSource{p: p}, imagegen.NewWithSeed(7), log.NewNop())
	t.Cleanup(o.Close)
	if err := o.SetUser("alice"); err != nil {
		t.Fatal(err)
	}
	return o, store
}

func collectUntilFinal(t *testing.T, o *Orchestrator) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-o.Events():
			events = append(events, ev)
			if ev.Final {
				return events
			}
		case <-deadline:
			t.Fatalf("no final event; got %d events", len(events))
		}
	}
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == StateIdle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("orchestrator stuck in state %v", o.State())
}

func TestSendStreamsReply(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		sink("Hel")
		sink("Hello")
		return "Hello", nil
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "hi there", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	events := collectUntilFinal(t, o)

	var texts []string
	for _, ev := range events {
		texts = append(texts, ev.Text)
	}
	want := []string{"Hel", "Hello", "Hello"}
	if len(texts) != len(want) {
		t.Fatalf("events = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("event %d text = %q, want %q", i, texts[i], want[i])
		}
	}

	waitIdle(t, o)
	sess := o.Active()
	// welcome + user + reply
	if len(sess.Messages) != 3 {
		t.Fatalf("got %d messages", len(sess.Messages))
	}
	last := sess.Messages[2]
	if last.Content != "Hello" || last.Streaming {
		t.Errorf("reply = %+v", last)
	}
	if sess.Title != "hi there" {
		t.Errorf("title = %q, want derived from first user message", sess.Title)
	}
}

func TestSendWhileBusyIsRejected(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "first", ""); err != nil {
		t.Fatal(err)
	}
	if err := o.Send(context.Background(), "second", ""); !errors.Is(err, ErrBusy) {
		t.Errorf("second Send error = %v, want ErrBusy", err)
	}
	close(release)
	collectUntilFinal(t, o)
	waitIdle(t, o)

	if got := p.sends(); got != 1 {
		t.Errorf("provider sends = %d, want 1", got)
	}
	if err := o.Send(context.Background(), "third", ""); err != nil {
		t.Errorf("Send after idle: %v", err)
	}
	collectUntilFinal(t, o)
}

func TestTitleDerivedOnlyOnce(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "ok", nil
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "what is the weather in Karachi today my friend", ""); err != nil {
		t.Fatal(err)
	}
	collectUntilFinal(t, o)
	waitIdle(t, o)
	first := o.Active().Title

	if err := o.Send(context.Background(), "and tomorrow?", ""); err != nil {
		t.Fatal(err)
	}
	collectUntilFinal(t, o)
	waitIdle(t, o)

	if got := o.Active().Title; got != first {
		t.Errorf("title changed on second send: %q -> %q", first, got)
	}
	if !strings.HasSuffix(first, "...") {
		t.Errorf("long title not truncated: %q", first)
	}
}

func TestTitleKeptOnFailedFirstExchange(t *testing.T) {
	fail := true
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		if fail {
			return "", &provider.Error{Kind: provider.KindRequest, Message: "backend down"}
		}
		return "ok", nil
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "hello there", ""); err != nil {
		t.Fatal(err)
	}
	collectUntilFinal(t, o)
	waitIdle(t, o)
	if got := o.Active().Title; got != session.TitleSentinel {
		t.Errorf("title after failed first exchange = %q, want sentinel", got)
	}

	fail = false
	if err := o.Send(context.Background(), "second try", ""); err != nil {
		t.Fatal(err)
	}
	collectUntilFinal(t, o)
	waitIdle(t, o)
	if got := o.Active().Title; got != "second try" {
		t.Errorf("title after first completed exchange = %q, want %q", got, "second try")
	}
}

func TestTitleUsesImageLabel(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "a cat", nil
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "what is in this photo", "data:image/png;base64,aGk="); err != nil {
		t.Fatal(err)
	}
	collectUntilFinal(t, o)
	waitIdle(t, o)
	if got := o.Active().Title; got != session.ImageTitle {
		t.Errorf("title = %q, want %q", got, session.ImageTitle)
	}
}

func TestImageIntentSkipsProvider(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		t.Error("provider called for an image request")
		return "", nil
	}}
	o, _ := newOrchestrator(t, p)

	prompt := "draw an image of a cat astronaut"
	if err := o.Send(context.Background(), prompt, ""); err != nil {
		t.Fatal(err)
	}
	events := collectUntilFinal(t, o)
	final := events[len(events)-1]

	if !strings.Contains(final.Image, "image.pollinations.ai") {
		t.Errorf("final image = %q", final.Image)
	}
	if want := `Here is the image for: "` + prompt + `"`; final.Text != want {
		t.Errorf("caption = %q, want %q", final.Text, want)
	}

	waitIdle(t, o)
	last := o.Active().Messages[len(o.Active().Messages)-1]
	if last.Image == "" || last.Streaming {
		t.Errorf("persisted reply = %+v", last)
	}
}

func TestProviderFailureBecomesTranscript(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "", &provider.Error{Kind: provider.KindQuota, Message: provider.QuotaMessage}
	}}
	o, _ := newOrchestrator(t, p)

	if err := o.Send(context.Background(), "hello", ""); err != nil {
		t.Fatal(err)
	}
	events := collectUntilFinal(t, o)
	final := events[len(events)-1]

	if final.Err == nil {
		t.Error("final event has no error")
	}
	if !strings.HasPrefix(final.Text, "⚠️ **Error**: ") {
		t.Errorf("transcript = %q", final.Text)
	}
	if !strings.Contains(final.Text, provider.QuotaMessage) {
		t.Errorf("transcript missing quota message: %q", final.Text)
	}
	if !strings.HasSuffix(final.Text, "Please try a different prompt.") {
		t.Errorf("transcript = %q", final.Text)
	}

	waitIdle(t, o)
	last := o.Active().Messages[len(o.Active().Messages)-1]
	if !strings.HasPrefix(last.Content, "⚠️ **Error**") || last.Streaming {
		t.Errorf("persisted transcript = %+v", last)
	}
}

func TestLateCompletionForSwitchedSessionIsDropped(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		sink("partial")
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o, store := newOrchestrator(t, p)
	firstID := o.Active().ID

	other, err := o.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := o.SelectSession(firstID); err != nil {
		t.Fatal(err)
	}

	if err := o.Send(context.Background(), "slow question", ""); err != nil {
		t.Fatal(err)
	}
	// Switching away cancels the in-flight reply.
	if err := o.SelectSession(other.ID); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, o)

	if got := o.Active().ID; got != other.ID {
		t.Errorf("active session = %v, want %v", got, other.ID)
	}
	// The abandoned session keeps the user message but no stuck
	// placeholder and no reply.
	abandoned, err := store.Get("alice", firstID)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range abandoned.Messages {
		if m.Streaming {
			t.Errorf("abandoned session still has a streaming message: %+v", m)
		}
	}
	last := abandoned.Messages[len(abandoned.Messages)-1]
	if last.Role != session.RoleUser || last.Content != "slow question" {
		t.Errorf("abandoned session tail = %+v", last)
	}
}

func TestSelectSessionBumpsRecency(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "ok", nil
	}}
	o, _ := newOrchestrator(t, p)

	first := o.Active()
	if _, err := o.NewSession(); err != nil {
		t.Fatal(err)
	}
	if err := o.SelectSession(first.ID); err != nil {
		t.Fatal(err)
	}
	if got := o.Sessions()[0].ID; got != first.ID {
		t.Errorf("most recent session = %v, want the selected one %v", got, first.ID)
	}
	// A restart resumes the last viewed session, not the last created.
	if err := o.SetUser("alice"); err != nil {
		t.Fatal(err)
	}
	if got := o.Active().ID; got != first.ID {
		t.Errorf("resumed session = %v, want %v", got, first.ID)
	}
}

func TestDeleteActiveSessionFallsBack(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "ok", nil
	}}
	o, _ := newOrchestrator(t, p)

	first := o.Active()
	second, err := o.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := o.DeleteSession(second.ID); err != nil {
		t.Fatal(err)
	}
	if got := o.Active().ID; got != first.ID {
		t.Errorf("active after delete = %v, want %v", got, first.ID)
	}

	// Deleting the last session creates a fresh one.
	if err := o.DeleteSession(first.ID); err != nil {
		t.Fatal(err)
	}
	if got := o.Active().ID; got == first.ID || got == uuid.Nil {
		t.Errorf("no fresh session after deleting the last one: %v", got)
	}
}

func TestEmptySendRejected(t *testing.T) {
	p := &fakeProvider{send: func(ctx context.Context, req provider.SendRequest, sink provider.Sink) (string, error) {
		return "ok", nil
	}}
	o, _ := newOrchestrator(t, p)
	if err := o.Send(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", err)
	}
}

func TestImageIntentClassifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"draw an image of a cat", true},
		{"generate a picture of mountains", true},
		{"ek sher ki tasveer banao", true},
		{"photo of the eiffel tower", true},
		{"wallpaper of a nebula", true},
		{"what is a picture element", false},
		{"tell me about art history", false},
		{"how do I resize an image in css", false},
	}
	for _, tt := range tests {
		if got := isImageIntent(tt.in); got != tt.want {
			t.Errorf("isImageIntent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
