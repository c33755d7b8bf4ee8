// Package messages is the per-conversation message log: reads merge the
// durable store with messages still waiting to be written, and sends land
// locally first with the durable write attempted afterwards.
package messages

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"guardcomms/pkg/config"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store"
	"guardcomms/pkg/store/locks"
)

type Service struct {
	store        store.Store
	writer       *Writer
	summaryLimit int
	now          func() time.Time

	convMu locks.Keyed

	mu      sync.Mutex
	pending map[string][]models.Message // not yet durable, append order

	// latest SentAt handed out per conversation. Entries are never evicted;
	// the key space is the set of channels, which is bounded by users and
	// missions.
	last map[string]time.Time
}

func NewService(s store.Store, cfg config.MessagesConfig) *Service {
	svc := &Service{
		store:        s,
		summaryLimit: cfg.SummaryLength,
		now:          time.Now,
		pending:      make(map[string][]models.Message),
		last:         make(map[string]time.Time),
	}
	if svc.summaryLimit <= 0 {
		svc.summaryLimit = 80
	}
	svc.writer = NewWriter(s, cfg, svc.settle)
	return svc
}

// GetMessages returns the conversation's messages oldest first: the durable
// log with messages that have not reached it yet interleaved by SentAt. It
// never fails; an unknown conversation or an unreachable store yields what
// is known locally.
func (s *Service) GetMessages(ctx context.Context, conversationID string) []models.Message {
	// pending is read first so a write settling in between shows up in the
	// durable log instead of vanishing from both
	local := s.pendingFor(conversationID)

	durable, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		logger.Warn("list_messages_failed", "conversation", conversationID, "error", err)
		durable = nil
	}
	out := make([]models.Message, 0, len(durable)+len(local))
	out = append(out, durable...)
	return store.MergeMessages(out, local)
}

// SendMessage records a message from sender and returns it. The message is
// visible to GetMessages as soon as this returns; the durable write is best
// effort and its failure is logged, never returned.
func (s *Service) SendMessage(ctx context.Context, conversationID string, sender models.Sender, body string, attachments []models.Attachment) models.Message {
	unlock := s.convMu.Lock(conversationID)
	defer unlock()

	m := models.Message{
		ID:                uuid.NewString(),
		ConversationID:    conversationID,
		SenderID:          sender.ID,
		SenderDisplayName: sender.DisplayName,
		Body:              body,
		Kind:              inferKind(attachments),
		Attachments:       append([]models.Attachment(nil), attachments...),
	}

	// local append
	s.mu.Lock()
	m.SentAt = s.now().UTC()
	if last, ok := s.last[conversationID]; ok && !m.SentAt.After(last) {
		m.SentAt = last.Add(time.Nanosecond)
	}
	s.last[conversationID] = m.SentAt
	s.pending[conversationID] = append(s.pending[conversationID], m)
	s.mu.Unlock()
	messagesSent.WithLabelValues(string(m.Kind)).Inc()

	summary := summarize(body, attachments, s.summaryLimit)
	at := m.SentAt
	_, err := s.store.UpdateConversation(ctx, conversationID, func(c *models.Conversation) {
		c.LastMessageSummary = summary
		c.LastMessageAt = &at
		c.UnreadCount++
	})
	if err != nil {
		logger.Warn("conversation_summary_update_failed", "conversation", conversationID, "error", err)
	}

	// durable write
	if err := s.writer.Submit(ctx, m); err != nil {
		logger.Warn("durable_write_skipped", "conversation", conversationID, "message", m.ID, "error", err)
	}
	return m
}

// settle drops a message from the pending log once it is durable.
func (s *Service) settle(m models.Message, err error) {
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.pending[m.ConversationID]
	for i := range log {
		if log[i].ID == m.ID {
			log = append(log[:i:i], log[i+1:]...)
			break
		}
	}
	if len(log) == 0 {
		delete(s.pending, m.ConversationID)
		return
	}
	s.pending[m.ConversationID] = log
}

func (s *Service) pendingFor(conversationID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.pending[conversationID]...)
}

// Pending is the number of messages across all conversations that have not
// reached the durable store.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, log := range s.pending {
		n += len(log)
	}
	return n
}

// Close drains queued durable writes.
func (s *Service) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}
