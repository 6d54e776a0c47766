package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"datacopilot/internal/ai"
	"datacopilot/internal/app"
	"datacopilot/internal/config"
	"datacopilot/internal/model"
	"datacopilot/internal/pkg/jwtutil"
	"datacopilot/internal/transport/http/middleware"
)

const testSecret = "test-secret"

type stubChatStore struct {
	chats map[string]*model.Chat
}

func newStubChatStore() *stubChatStore {
	return &stubChatStore{chats: map[string]*model.Chat{}}
}

func (s *stubChatStore) GetByID(chatID string) (*model.Chat, error) {
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}
	copied := *chat
	return &copied, nil
}

func (s *stubChatStore) Create(chat *model.Chat) error {
	if _, exists := s.chats[chat.ID]; !exists {
		copied := *chat
		s.chats[chat.ID] = &copied
	}
	return nil
}

func (s *stubChatStore) ListByUserID(userID uint) ([]model.Chat, error) {
	var out []model.Chat
	for _, chat := range s.chats {
		if chat.UserID == userID {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (s *stubChatStore) DeleteByID(chatID string) error {
	delete(s.chats, chatID)
	return nil
}

type stubMessageStore struct {
	created []model.Message
}

func (s *stubMessageStore) Create(message *model.Message) error {
	s.created = append(s.created, *message)
	return nil
}

func (s *stubMessageStore) ListByChatID(chatID string, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, m := range s.created {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type stubGateway struct {
	reply string
}

func (g *stubGateway) GenerateText(ctx context.Context, m ai.Model, system, prompt string) (string, error) {
	return "Revenue questions", nil
}

func (g *stubGateway) StreamChat(ctx context.Context, m ai.Model, system string, history []ai.Turn, tools []ai.Tool, onDelta func(string) error) ([]ai.Turn, error) {
	for _, chunk := range strings.SplitAfter(g.reply, " ") {
		if err := onDelta(chunk); err != nil {
			return nil, err
		}
	}
	return []ai.Turn{{Role: ai.RoleAssistant, Content: g.reply}}, nil
}

type stubPublisher struct {
	published []model.Message
}

func (p *stubPublisher) Publish(ctx context.Context, messages []model.Message) error {
	p.published = append(p.published, messages...)
	return nil
}

type stubCompressor struct{}

func (stubCompressor) Compressed(ctx context.Context, m ai.Model) (string, error) {
	return "billing(customer_id Int64, mrr Float64)", nil
}

type chatFixture struct {
	router   *gin.Engine
	chats    *stubChatStore
	messages *stubMessageStore
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := ai.NewCatalog([]config.ModelEntry{
		{ID: "gpt-4o-mini", Label: "GPT 4o mini", Provider: "openai", APIIdentifier: "gpt-4o-mini"},
	}, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	chats := newStubChatStore()
	messages := &stubMessageStore{}
	service := app.NewChatService(
		catalog,
		chats,
		messages,
		&stubPublisher{},
		nil,
		&stubGateway{reply: "SELECT count() FROM billing"},
		nil,
		stubCompressor{},
	)

	h := NewChatHandler(service, catalog)
	router := gin.New()
	authed := router.Group("/api/v1", middleware.AuthJWT(testSecret))
	authed.POST("/chat", h.ChatTurn)
	authed.DELETE("/chat", h.DeleteChat)

	return &chatFixture{router: router, chats: chats, messages: messages}
}

func bearerFor(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, userID, "tester")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func turnBody(t *testing.T, chatID, modelID string, messages []app.IncomingMessage) *bytes.Buffer {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":       chatID,
		"messages": messages,
		"modelId":  modelID,
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(payload)
}

func TestChatTurnRequiresToken(t *testing.T) {
	fx := newChatFixture(t)

	body := turnBody(t, uuid.NewString(), "gpt-4o-mini", []app.IncomingMessage{{Role: "user", Content: "hi"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(fx.chats.chats) != 0 {
		t.Fatal("unauthenticated request created a chat")
	}
}

func TestChatTurnUnknownModel(t *testing.T) {
	fx := newChatFixture(t)

	body := turnBody(t, uuid.NewString(), "gpt-99", []app.IncomingMessage{{Role: "user", Content: "hi"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(fx.chats.chats) != 0 || len(fx.messages.created) != 0 {
		t.Fatal("rejected request left side effects behind")
	}
}

func TestChatTurnWithoutUserMessage(t *testing.T) {
	fx := newChatFixture(t)

	body := turnBody(t, uuid.NewString(), "gpt-4o-mini", []app.IncomingMessage{
		{Role: "assistant", Content: "previous answer"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(fx.chats.chats) != 0 || len(fx.messages.created) != 0 {
		t.Fatal("rejected request left side effects behind")
	}
}

func TestChatTurnMalformedChatID(t *testing.T) {
	fx := newChatFixture(t)

	body := turnBody(t, "not-a-uuid", "gpt-4o-mini", []app.IncomingMessage{{Role: "user", Content: "hi"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatTurnStreamsResponse(t *testing.T) {
	fx := newChatFixture(t)
	chatID := uuid.NewString()

	body := turnBody(t, chatID, "gpt-4o-mini", []app.IncomingMessage{
		{Role: "user", Content: "how many customers churned?"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	streamed := rec.Body.String()
	if !strings.Contains(streamed, "event: delta") {
		t.Fatalf("no delta frames in stream:\n%s", streamed)
	}
	if !strings.Contains(streamed, "messageIdFromServer") {
		t.Fatalf("no message annotation in stream:\n%s", streamed)
	}
	if !strings.Contains(streamed, "event: done") {
		t.Fatalf("stream not terminated:\n%s", streamed)
	}

	chat, ok := fx.chats.chats[chatID]
	if !ok {
		t.Fatal("chat was not created")
	}
	if chat.UserID != 1 {
		t.Fatalf("chat owner = %d", chat.UserID)
	}
	if len(fx.messages.created) != 1 || fx.messages.created[0].Role != ai.RoleUser {
		t.Fatalf("user message not persisted before generation: %+v", fx.messages.created)
	}
}

func TestDeleteChatByOwner(t *testing.T) {
	fx := newChatFixture(t)
	chatID := uuid.NewString()
	fx.chats.chats[chatID] = &model.Chat{ID: chatID, UserID: 1, Title: "t"}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/chat?id=%s", chatID), nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, exists := fx.chats.chats[chatID]; exists {
		t.Fatal("chat still present after delete")
	}
}

func TestDeleteChatByNonOwner(t *testing.T) {
	fx := newChatFixture(t)
	chatID := uuid.NewString()
	fx.chats.chats[chatID] = &model.Chat{ID: chatID, UserID: 1, Title: "t"}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/chat?id=%s", chatID), nil)
	req.Header.Set("Authorization", bearerFor(t, 2))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if _, exists := fx.chats.chats[chatID]; !exists {
		t.Fatal("chat deleted despite wrong owner")
	}
}

func TestDeleteChatNotFound(t *testing.T) {
	fx := newChatFixture(t)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/chat?id=%s", uuid.NewString()), nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteChatMissingID(t *testing.T) {
	fx := newChatFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
