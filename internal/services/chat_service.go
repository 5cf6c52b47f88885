package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"devops-gpt/internal/models"
	"devops-gpt/internal/repositories"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// ErrAssistantFailed marks errors returned by the LLM backend
var ErrAssistantFailed = errors.New("assistant request failed")

// ErrStorageUnavailable is returned when no conversation repository is configured
var ErrStorageUnavailable = errors.New("conversation storage unavailable")

// ChatService runs chat turns against the assistant and keeps conversation history
type ChatService struct {
	assistant     Assistant
	conversations repositories.ConversationRepository
	extractor     TopicExtractor
	logger        *log.Logger
	turns         *turnLocks
}

// NewChatService creates a new chat service. A nil extractor disables
// topic tagging; a nil logger discards output.
func NewChatService(assistant Assistant, conversations repositories.ConversationRepository, extractor TopicExtractor, logger *log.Logger) *ChatService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ChatService{
		assistant:     assistant,
		conversations: conversations,
		extractor:     extractor,
		logger:        logger,
		turns:         newTurnLocks(),
	}
}

// Chat sends one user message and records the exchange.
// An empty ConversationID starts a new conversation. The user message is
// only stored when the assistant answered. Turns on the same conversation
// run one at a time so each sees and keeps the previous ones.
func (s *ChatService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.NotValidf("empty message")
	}
	if err := validateHistory(req.History); err != nil {
		return nil, err
	}
	if s.assistant == nil {
		return nil, fmt.Errorf("%w: no assistant configured", ErrAssistantFailed)
	}
	if s.conversations == nil {
		return nil, ErrStorageUnavailable
	}

	if req.ConversationID != "" {
		release, err := s.turns.acquire(ctx, req.ConversationID)
		if err != nil {
			return nil, errors.Annotatef(err, "wait for conversation %q", req.ConversationID)
		}
		defer release()
	}

	conv, isNew, err := s.loadConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	messages := BuildMessages(conv.Messages, req.History, message)
	reply, err := s.assistant.Chat(ctx, messages)
	if err != nil {
		s.logger.Printf("Assistant failed for conversation %s: %v", conv.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrAssistantFailed, err)
	}
	if reply == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrAssistantFailed)
	}

	conv.Append(
		models.ChatMessage{Role: models.RoleUser, Content: message},
		models.ChatMessage{Role: models.RoleAssistant, Content: reply.Content},
	)
	conv.Model = reply.Model
	conv.MergeTopics(s.extractTopics(message))

	if isNew {
		err = s.conversations.Create(ctx, conv)
	} else {
		err = s.conversations.Save(ctx, conv)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "store conversation %q", conv.ID)
	}

	s.logger.Printf("Chat turn stored: conversation=%s messages=%d topics=%v", conv.ID, len(conv.Messages), conv.Topics)

	return &models.ChatResponse{
		ConversationID: conv.ID,
		Message:        reply.Content,
		Status:         "success",
		Model:          reply.Model,
		Topics:         conv.Topics,
	}, nil
}

// GetConversation returns a stored conversation
func (s *ChatService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if s.conversations == nil {
		return nil, ErrStorageUnavailable
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errors.NotFoundf("conversation %q", id)
	}
	return conv, nil
}

// ListConversations returns summaries, most recently updated first
func (s *ChatService) ListConversations(ctx context.Context) (*models.ConversationList, error) {
	if s.conversations == nil {
		return nil, ErrStorageUnavailable
	}
	convs, err := s.conversations.List(ctx)
	if err != nil {
		return nil, err
	}

	list := &models.ConversationList{
		Conversations: make([]models.ConversationSummary, 0, len(convs)),
	}
	for _, conv := range convs {
		if conv == nil {
			continue
		}
		list.Conversations = append(list.Conversations, conv.Summary())
	}
	list.Total = len(list.Conversations)
	return list, nil
}

// DeleteConversation removes a stored conversation
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	if s.conversations == nil {
		return ErrStorageUnavailable
	}
	return s.conversations.Delete(ctx, id)
}

func (s *ChatService) loadConversation(ctx context.Context, id string) (*models.Conversation, bool, error) {
	if id == "" {
		return &models.Conversation{ID: uuid.NewString()}, true, nil
	}
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if conv == nil {
		return nil, false, errors.NotFoundf("conversation %q", id)
	}
	return conv, false, nil
}

// validateHistory only lets callers replay user and assistant turns;
// the system prompt is always ours.
func validateHistory(history []models.ChatMessage) error {
	for i, msg := range history {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			return errors.NotValidf("history[%d] role %q", i, msg.Role)
		}
	}
	return nil
}

func (s *ChatService) extractTopics(message string) []string {
	if s.extractor == nil {
		return nil
	}
	topics, err := s.extractor.ExtractTopics(message, models.MaxTopics)
	if err != nil {
		// topics are best effort
		s.logger.Printf("Topic extraction failed: %v", err)
		return nil
	}
	return topics
}

// turnLocks hands out one lock per conversation ID. Entries are dropped
// once nobody holds or waits for them.
type turnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	held chan struct{}
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[string]*turnLock)}
}

// acquire blocks until the conversation is free or ctx is done
func (t *turnLocks) acquire(ctx context.Context, id string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &turnLock{held: make(chan struct{}, 1)}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.held <- struct{}{}:
		return func() {
			<-l.held
			t.drop(id, l)
		}, nil
	case <-ctx.Done():
		t.drop(id, l)
		return nil, ctx.Err()
	}
}

func (t *turnLocks) drop(id string, l *turnLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
}
