package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"datacopilot/internal/ai"
	"datacopilot/internal/dataset"
	"datacopilot/internal/model"
)

var (
	ErrChatIDInvalid  = errors.New("chat id is not a well-formed identifier")
	ErrModelNotFound  = errors.New("model not found")
	ErrNoUserMessage  = errors.New("no user message found")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotChatOwner   = errors.New("chat belongs to another user")
	ErrMessageEnqueue = errors.New("message enqueue failed")
)

type ChatStore interface {
	GetByID(chatID string) (*model.Chat, error)
	Create(chat *model.Chat) error
	ListByUserID(userID uint) ([]model.Chat, error)
	DeleteByID(chatID string) error
}

type MessageStore interface {
	Create(message *model.Message) error
	ListByChatID(chatID string, limit int) ([]model.Message, error)
}

// Gateway is the opaque text-generation capability.
type Gateway interface {
	GenerateText(ctx context.Context, m ai.Model, system, prompt string) (string, error)
	StreamChat(ctx context.Context, m ai.Model, system string, history []ai.Turn, tools []ai.Tool, onDelta func(string) error) ([]ai.Turn, error)
}

// ToolProvider yields the enumerated tool capabilities permitted for a caller.
type ToolProvider interface {
	ForUser(userID uint) []ai.Tool
}

// AsyncMessagePublisher hands a batch of response messages to the best-effort
// persistence pipeline.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, messages []model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID string) error
	MarkDirty(ctx context.Context, chatID string) error
	IsDirty(ctx context.Context, chatID string) (bool, error)
}

// SchemaCompressor supplies the compressed dataset schema for a model.
type SchemaCompressor interface {
	Compressed(ctx context.Context, m ai.Model) (string, error)
}

// Emitter is the outbound stream the orchestrator writes into. The transport
// layer owns opening and closing it.
type Emitter interface {
	TextDelta(content string) error
	MessageAnnotation(messageID string) error
	ErrorAnnotation(message string) error
}

type ChatService struct {
	catalog      *ai.Catalog
	chats        ChatStore
	messages     MessageStore
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	gateway      Gateway
	tools        ToolProvider
	compressor   SchemaCompressor
}

func NewChatService(
	catalog *ai.Catalog,
	chats ChatStore,
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	gateway Gateway,
	tools ToolProvider,
	compressor SchemaCompressor,
) *ChatService {
	return &ChatService{
		catalog:      catalog,
		chats:        chats,
		messages:     messages,
		publisher:    publisher,
		historyCache: historyCache,
		gateway:      gateway,
		tools:        tools,
		compressor:   compressor,
	}
}

type IncomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatTurnInput struct {
	UserID   uint
	ChatID   string
	Messages []IncomingMessage
	ModelID  string
}

// PreparedTurn carries everything StreamTurn needs after validation and the
// pre-generation writes have succeeded.
type PreparedTurn struct {
	Model       ai.Model
	ChatID      string
	UserID      uint
	History     []ai.Turn
	UserMessage model.Message
}

// PrepareTurn performs every fail-fast check and all pre-generation side
// effects: catalog resolution, newest-user-message extraction, at-most-once
// chat creation with a derived title, and the durable write of the inbound
// user message. No stream bytes may be written before it returns nil error.
func (s *ChatService) PrepareTurn(ctx context.Context, input ChatTurnInput) (*PreparedTurn, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if uuid.Validate(input.ChatID) != nil {
		return nil, ErrChatIDInvalid
	}

	m, ok := s.catalog.Resolve(input.ModelID)
	if !ok {
		return nil, ErrModelNotFound
	}

	userMessage, ok := mostRecentUserMessage(input.Messages)
	if !ok {
		return nil, ErrNoUserMessage
	}

	chat, err := s.chats.GetByID(input.ChatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		title := s.deriveTitle(ctx, m, userMessage.Content)
		if err := s.chats.Create(&model.Chat{
			ID:        input.ChatID,
			UserID:    input.UserID,
			Title:     title,
			CreatedAt: time.Now(),
		}); err != nil {
			return nil, err
		}
	}

	inbound := model.Message{
		ID:        uuid.NewString(),
		ChatID:    input.ChatID,
		Role:      ai.RoleUser,
		Content:   userMessage.Content,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Create(&inbound); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.ChatID)
		_ = s.historyCache.DeleteHistory(ctx, input.ChatID)
	}

	history := make([]ai.Turn, 0, len(input.Messages))
	for _, msg := range input.Messages {
		history = append(history, ai.Turn{Role: msg.Role, Content: msg.Content})
	}

	return &PreparedTurn{
		Model:       m,
		ChatID:      input.ChatID,
		UserID:      input.UserID,
		History:     history,
		UserMessage: inbound,
	}, nil
}

// StreamTurn runs generation and writes the response into the emitter. Once
// generation has produced output, persistence is best effort: a failed enqueue
// is logged and reported as an out-of-band error annotation, never as a stream
// failure.
func (s *ChatService) StreamTurn(ctx context.Context, turn *PreparedTurn, emitter Emitter) error {
	compressed, err := s.compressor.Compressed(ctx, turn.Model)
	if err != nil {
		return err
	}
	system := dataset.SystemPrompt(compressed)

	var tools []ai.Tool
	if s.tools != nil {
		tools = s.tools.ForUser(turn.UserID)
	}

	generated, err := s.gateway.StreamChat(ctx, turn.Model, system, turn.History, tools, emitter.TextDelta)
	if err != nil {
		return err
	}

	sanitized := sanitizeResponseTurns(generated)

	outbound := make([]model.Message, 0, len(sanitized))
	for _, t := range sanitized {
		id := uuid.NewString()
		if t.Role == ai.RoleAssistant {
			if err := emitter.MessageAnnotation(id); err != nil {
				log.Printf("emit message annotation failed: %v", err)
			}
		}
		outbound = append(outbound, model.Message{
			ID:        id,
			ChatID:    turn.ChatID,
			Role:      t.Role,
			Content:   encodeTurnContent(t),
			CreatedAt: time.Now(),
		})
	}

	if len(outbound) > 0 {
		if s.publisher == nil {
			log.Printf("no message publisher configured; dropping %d response messages", len(outbound))
		} else if err := s.publisher.Publish(ctx, outbound); err != nil {
			// Best-effort post-generation persistence: the answer already
			// streamed, so losing the write must not fail the turn. It does
			// mean the response will not survive a reload.
			log.Printf("enqueue response messages for chat %s failed: %v", turn.ChatID, err)
			if noteErr := emitter.ErrorAnnotation("response could not be saved and may not survive reload"); noteErr != nil {
				log.Printf("emit persistence error annotation failed: %v", noteErr)
			}
		}
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, turn.ChatID)
	}
	return nil
}

func (s *ChatService) ListChats(userID uint) ([]model.Chat, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.chats.ListByUserID(userID)
}

func (s *ChatService) GetHistory(ctx context.Context, userID uint, chatID string, limit int) ([]model.Message, error) {
	if userID == 0 || chatID == "" {
		return nil, ErrInvalidInput
	}

	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.UserID != userID {
		return nil, ErrNotChatOwner
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, chatID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, chatID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByChatID(chatID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, chatID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, chatID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, userID uint, chatID string) error {
	if userID == 0 || chatID == "" {
		return ErrInvalidInput
	}

	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if chat.UserID != userID {
		return ErrNotChatOwner
	}

	if err := s.chats.DeleteByID(chatID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, chatID)
	}
	return nil
}

const titleSystem = "You will generate a short title based on the first message a user begins a conversation with. " +
	"Ensure it is not more than 80 characters long. The title should be a summary of the user's message. " +
	"Do not use quotes or colons."

func (s *ChatService) deriveTitle(ctx context.Context, m ai.Model, userContent string) string {
	title, err := s.gateway.GenerateText(ctx, m, titleSystem, userContent)
	if err != nil {
		log.Printf("generate chat title failed: %v", err)
		return truncateTitle(userContent)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return truncateTitle(userContent)
	}
	return truncateTitle(title)
}

func truncateTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "New Chat"
	}
	runes := []rune(title)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return title
}

func mostRecentUserMessage(messages []IncomingMessage) (IncomingMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i], true
		}
	}
	return IncomingMessage{}, false
}

// encodeTurnContent flattens a generated turn into the message content column.
// Plain assistant text is stored as is; turns carrying tool calls are stored
// as JSON so the pairing survives persistence.
func encodeTurnContent(t ai.Turn) string {
	if len(t.ToolCalls) == 0 && t.ToolCallID == "" {
		return t.Content
	}
	raw, err := json.Marshal(t)
	if err != nil {
		log.Printf("encode turn content failed: %v", err)
		return t.Content
	}
	return string(raw)
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
