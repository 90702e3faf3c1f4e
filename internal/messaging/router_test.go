package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/postpilot/PostPilot/internal/models"
)

// fakePostService is a scriptable PostService for router tests.
type fakePostService struct {
	generateCalls   int
	regenerateCalls int
	lastTopic       string
	lastStyle       string
	lastLength      string
	post            models.GeneratedPost
	err             error
}

func (f *fakePostService) Generate(ctx context.Context, conversationID, topic string) (models.GeneratedPost, error) {
	f.generateCalls++
	f.lastTopic = topic
	return f.post, f.err
}

func (f *fakePostService) Regenerate(ctx context.Context, conversationID string) (models.GeneratedPost, error) {
	f.regenerateCalls++
	return f.post, f.err
}

func (f *fakePostService) UpdateStyle(ctx context.Context, conversationID, style string) (models.ConversationProfile, error) {
	f.lastStyle = style
	if f.err != nil {
		return models.ConversationProfile{}, f.err
	}
	return models.ConversationProfile{ConversationID: conversationID, Style: style, Length: models.DefaultPostLength}, nil
}

func (f *fakePostService) UpdateLength(ctx context.Context, conversationID, value string) (models.ConversationProfile, error) {
	f.lastLength = value
	if f.err != nil {
		return models.ConversationProfile{}, f.err
	}
	length, err := models.ParsePostLength(value)
	if err != nil {
		return models.ConversationProfile{}, err
	}
	return models.ConversationProfile{ConversationID: conversationID, Length: length}, nil
}

func TestRouter_HelpCommands(t *testing.T) {
	router := NewRouter(&fakePostService{})
	for _, text := range []string{"/start", "/help", "/HELP"} {
		replies := router.HandleText(context.Background(), "42", text)
		if len(replies) != 1 || !strings.Contains(replies[0], "/post <topic>") {
			t.Errorf("HandleText(%q) expected help text, got %v", text, replies)
		}
	}
}

func TestRouter_UnknownInput(t *testing.T) {
	router := NewRouter(&fakePostService{})
	for _, text := range []string{"hello there", "/frobnicate", ""} {
		replies := router.HandleText(context.Background(), "42", text)
		if len(replies) != 1 || !strings.Contains(replies[0], "/help") {
			t.Errorf("HandleText(%q) expected unknown-command reply, got %v", text, replies)
		}
	}
}

func TestRouter_PostCommand(t *testing.T) {
	svc := &fakePostService{post: models.GeneratedPost{Text: "A post about coffee."}}
	router := NewRouter(svc)

	replies := router.HandleText(context.Background(), "42", "/post coffee brewing")
	if len(replies) != 1 || replies[0] != "A post about coffee." {
		t.Errorf("expected generated text reply, got %v", replies)
	}
	if svc.lastTopic != "coffee brewing" {
		t.Errorf("expected topic forwarded, got %q", svc.lastTopic)
	}
}

func TestRouter_PostCommandMissingTopic(t *testing.T) {
	svc := &fakePostService{}
	router := NewRouter(svc)
	replies := router.HandleText(context.Background(), "42", "/post")
	if len(replies) != 1 || !strings.Contains(replies[0], "Usage: /post") {
		t.Errorf("expected usage reply, got %v", replies)
	}
	if svc.generateCalls != 0 {
		t.Errorf("expected no generate call, got %d", svc.generateCalls)
	}
}

func TestRouter_TabSeparatedArgs(t *testing.T) {
	svc := &fakePostService{post: models.GeneratedPost{Text: "A post."}}
	router := NewRouter(svc)

	replies := router.HandleText(context.Background(), "42", "/style\twitty and dry")
	if len(replies) != 1 || replies[0] != "Style updated." {
		t.Errorf("expected style confirmation, got %v", replies)
	}
	if svc.lastStyle != "witty and dry" {
		t.Errorf("expected style forwarded, got %q", svc.lastStyle)
	}

	replies = router.HandleText(context.Background(), "42", "/post\tcoffee brewing")
	if len(replies) != 1 || replies[0] != "A post." {
		t.Errorf("expected generated text reply, got %v", replies)
	}
	if svc.lastTopic != "coffee brewing" {
		t.Errorf("expected topic forwarded, got %q", svc.lastTopic)
	}
}

func TestRouter_PostCommandUpstreamFailure(t *testing.T) {
	svc := &fakePostService{err: models.UpstreamTimeout(errors.New("deadline"))}
	router := NewRouter(svc)
	replies := router.HandleText(context.Background(), "42", "/post coffee")
	if len(replies) != 1 || replies[0] != "Generation failed, please try again." {
		t.Errorf("expected generic failure reply, got %v", replies)
	}
}

func TestRouter_PostCommandChunksLongReplies(t *testing.T) {
	long := strings.Repeat("line of post text\n", 100)
	svc := &fakePostService{post: models.GeneratedPost{Text: strings.TrimSpace(long)}}
	router := NewRouter(svc)
	router.chunkLimit = 200

	replies := router.HandleText(context.Background(), "42", "/post coffee")
	if len(replies) < 2 {
		t.Fatalf("expected chunked reply, got %d chunks", len(replies))
	}
	for i, chunk := range replies {
		if len(chunk) > 200 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(chunk))
		}
	}
}

func TestRouter_StyleCommand(t *testing.T) {
	svc := &fakePostService{}
	router := NewRouter(svc)

	replies := router.HandleText(context.Background(), "42", "/style witty and concise")
	if len(replies) != 1 || replies[0] != "Style updated." {
		t.Errorf("expected style confirmation, got %v", replies)
	}
	if svc.lastStyle != "witty and concise" {
		t.Errorf("expected style forwarded, got %q", svc.lastStyle)
	}

	replies = router.HandleText(context.Background(), "42", "/style")
	if len(replies) != 1 || !strings.Contains(replies[0], "Usage: /style") {
		t.Errorf("expected usage reply, got %v", replies)
	}
}

func TestRouter_LenCommand(t *testing.T) {
	svc := &fakePostService{}
	router := NewRouter(svc)

	replies := router.HandleText(context.Background(), "42", "/len LONG")
	if len(replies) != 1 || replies[0] != "Length set to long." {
		t.Errorf("expected canonical length confirmation, got %v", replies)
	}

	replies = router.HandleText(context.Background(), "42", "/len gigantic")
	if len(replies) != 1 || !strings.Contains(replies[0], "short, medium, long") {
		t.Errorf("expected validation reply, got %v", replies)
	}
}

func TestRouter_RegenCommand(t *testing.T) {
	svc := &fakePostService{post: models.GeneratedPost{Text: "Again!"}}
	router := NewRouter(svc)

	replies := router.HandleText(context.Background(), "42", "/regen")
	if len(replies) != 1 || replies[0] != "Again!" {
		t.Errorf("expected regenerated text, got %v", replies)
	}

	svc.err = models.NoPriorTopic("42")
	replies = router.HandleText(context.Background(), "42", "/regen")
	if len(replies) != 1 || !strings.Contains(replies[0], "/post") {
		t.Errorf("expected no-prior-topic reply pointing at /post, got %v", replies)
	}
}

func TestRouter_CommandWithBotNameSuffix(t *testing.T) {
	svc := &fakePostService{post: models.GeneratedPost{Text: "post"}}
	router := NewRouter(svc)
	replies := router.HandleText(context.Background(), "42", "/post@PostPilotBot coffee")
	if len(replies) != 1 || replies[0] != "post" {
		t.Errorf("expected bot-name suffix ignored, got %v", replies)
	}
}

// mockService is an in-memory transport for Attach tests.
type mockService struct {
	mu       sync.Mutex
	inbound  chan models.InboundMessage
	sent     []string
	validErr error
}

func newMockService() *mockService {
	return &mockService{inbound: make(chan models.InboundMessage, 8)}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if m.validErr != nil {
		return "", m.validErr
	}
	if strings.TrimSpace(recipient) == "" {
		return "", fmt.Errorf("empty recipient")
	}
	return strings.TrimSpace(recipient), nil
}

func (m *mockService) SendMessage(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

func (m *mockService) Start(ctx context.Context) error { return nil }
func (m *mockService) Stop() error                     { return nil }

func (m *mockService) Responses() <-chan models.InboundMessage {
	return m.inbound
}

func (m *mockService) sentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func TestRouter_AttachPumpsMessages(t *testing.T) {
	svc := newMockService()
	router := NewRouter(&fakePostService{post: models.GeneratedPost{Text: "A fine post."}})

	done := make(chan error, 1)
	go func() {
		done <- router.Attach(context.Background(), svc)
	}()

	svc.inbound <- models.InboundMessage{ConversationID: "42", Text: "/post coffee"}
	svc.inbound <- models.InboundMessage{ConversationID: "  ", Text: "/post dropped"}
	close(svc.inbound)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Attach returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach did not return after channel close")
	}

	sent := svc.sentMessages()
	if len(sent) != 1 || sent[0] != "A fine post." {
		t.Errorf("expected one delivered reply, got %v", sent)
	}
}

func TestRouter_AttachStopsOnContextCancel(t *testing.T) {
	svc := newMockService()
	router := NewRouter(&fakePostService{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- router.Attach(ctx, svc)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach did not return after cancellation")
	}
}
