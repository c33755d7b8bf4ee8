// Package store is the record store behind conversations and messages.
//
// Two backends implement Store: Pebble on disk and an in-memory map used for
// degraded and test runs. Failover wraps a primary backend with an in-memory
// working set so that an unreachable primary never blocks provisioning or
// sending.
package store

import (
	"context"
	"errors"

	"guardcomms/pkg/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrClosed   = errors.New("store: closed")
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type Store interface {
	// CreateConversation inserts c unless a conversation with the same id
	// exists. It reports whether this call created it; concurrent callers
	// for one id see exactly one true.
	CreateConversation(ctx context.Context, c models.Conversation) (bool, error)
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	// UpdateConversation applies mutate to the stored record atomically and
	// returns the result.
	UpdateConversation(ctx context.Context, id string, mutate func(*models.Conversation)) (models.Conversation, error)
	// ListConversations returns every conversation in insertion order.
	ListConversations(ctx context.Context) ([]models.Conversation, error)

	// AppendMessage assigns the next sequence number for the conversation
	// and stores m. Appending an id that is already stored returns the
	// stored message unchanged.
	AppendMessage(ctx context.Context, m models.Message) (models.Message, error)
	// ListMessages returns the conversation's messages oldest first. An
	// unknown conversation yields an empty slice.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	Ping(ctx context.Context) error
	Close() error
}
