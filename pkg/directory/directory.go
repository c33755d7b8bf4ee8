// Package directory lists conversations per tab and labels them for the
// viewer asking.
package directory

import (
	"context"
	"time"

	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store"
)

type Directory struct {
	store store.Store
}

func New(s store.Store) *Directory {
	return &Directory{store: s}
}

// ListConversations returns the conversations of the given kind in store
// order, labelled for viewerID. A failing store yields an empty list.
func (d *Directory) ListConversations(ctx context.Context, viewerID string, kind models.ConversationKind) []models.Conversation {
	all, err := d.store.ListConversations(ctx)
	if err != nil {
		logger.Warn("list_conversations_failed", "viewer", viewerID, "kind", kind, "error", err)
		return []models.Conversation{}
	}
	out := make([]models.Conversation, 0, len(all))
	for _, c := range all {
		if c.Kind != kind {
			continue
		}
		c.DisplayName = DisplayName(c, viewerID)
		out = append(out, c)
	}
	return out
}

// Get returns one conversation labelled for viewerID.
func (d *Directory) Get(ctx context.Context, viewerID, id string) (models.Conversation, error) {
	c, err := d.store.GetConversation(ctx, id)
	if err != nil {
		return models.Conversation{}, err
	}
	c.DisplayName = DisplayName(c, viewerID)
	return c, nil
}

// Archive marks a conversation archived. Conversations are never deleted.
func (d *Directory) Archive(ctx context.Context, id string) (models.Conversation, error) {
	c, err := d.store.UpdateConversation(ctx, id, func(c *models.Conversation) {
		c.Status = models.StatusArchived
	})
	if err != nil {
		return models.Conversation{}, err
	}
	logger.Info("conversation_archived", "id", id)
	return c, nil
}

// MarkRead clears the unread counter.
func (d *Directory) MarkRead(ctx context.Context, id string) (models.Conversation, error) {
	return d.store.UpdateConversation(ctx, id, func(c *models.Conversation) {
		c.UnreadCount = 0
	})
}

// TabCount is the badge shown on one conversation tab.
type TabCount struct {
	Conversations int `json:"conversations"`
	Unread        int `json:"unread"`
}

// Counts returns a badge for every kind, including empty ones. Archived
// conversations are not counted.
func (d *Directory) Counts(ctx context.Context, viewerID string) map[models.ConversationKind]TabCount {
	out := make(map[models.ConversationKind]TabCount, len(models.Kinds))
	for _, k := range models.Kinds {
		out[k] = TabCount{}
	}
	all, err := d.store.ListConversations(ctx)
	if err != nil {
		logger.Warn("conversation_counts_failed", "viewer", viewerID, "error", err)
		return out
	}
	for _, c := range all {
		if c.Status == models.StatusArchived {
			continue
		}
		tc, ok := out[c.Kind]
		if !ok {
			continue
		}
		tc.Conversations++
		tc.Unread += c.UnreadCount
		out[c.Kind] = tc
	}
	return out
}

// Inactive returns the active conversations whose last activity is before
// cutoff.
func (d *Directory) Inactive(ctx context.Context, cutoff time.Time) ([]models.Conversation, error) {
	all, err := d.store.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Conversation
	for _, c := range all {
		if c.Status == models.StatusArchived {
			continue
		}
		if c.LastActivity().Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}
