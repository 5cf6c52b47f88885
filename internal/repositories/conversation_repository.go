package repositories

import (
	"context"
	"time"

	"devops-gpt/internal/models"

	"github.com/juju/errors"
)

// DefaultConversationTTL is how long an idle conversation is kept
const DefaultConversationTTL = 24 * time.Hour

// ConversationRepository stores chat conversations.
//
// Errors are classified with juju/errors: a missing conversation satisfies
// errors.Is(err, errors.NotFound), a duplicate errors.AlreadyExists and an
// invalid one errors.NotValid.
type ConversationRepository interface {
	// Create stores a new conversation and sets its timestamps
	Create(ctx context.Context, conv *models.Conversation) error

	// Get returns a conversation by ID
	Get(ctx context.Context, id string) (*models.Conversation, error)

	// Save overwrites an existing conversation and refreshes its TTL
	Save(ctx context.Context, conv *models.Conversation) error

	// Delete removes a conversation
	Delete(ctx context.Context, id string) error

	// List returns all live conversations, most recently updated first
	List(ctx context.Context) ([]*models.Conversation, error)

	// PurgeExpired drops expired conversations and returns how many went
	PurgeExpired(ctx context.Context) (int, error)
}

func validateConversation(conv *models.Conversation) error {
	if conv == nil {
		return errors.NotValidf("nil conversation")
	}
	if conv.ID == "" {
		return errors.NotValidf("conversation ID is required, empty ID")
	}
	return nil
}

func conversationNotFound(id string) error {
	return errors.NotFoundf("conversation %q", id)
}

func conversationExists(id string) error {
	return errors.AlreadyExistsf("conversation %q", id)
}
