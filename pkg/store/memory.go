package store

import (
	"context"
	"sync"

	"guardcomms/pkg/models"
)

// Memory is a process-local Store. Records are copied in and out so callers
// never share slices or maps with the store.
type Memory struct {
	mu     sync.RWMutex
	convs  map[string]models.Conversation
	order  []string
	msgs   map[string][]models.Message
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		convs: make(map[string]models.Conversation),
		msgs:  make(map[string][]models.Message),
	}
}

func (m *Memory) CreateConversation(ctx context.Context, c models.Conversation) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.convs[c.ID]; ok {
		return false, nil
	}
	m.convs[c.ID] = c.Clone()
	m.order = append(m.order, c.ID)
	observe(backendMemory, "create_conversation", nil)
	return true, nil
}

func (m *Memory) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return models.Conversation{}, ErrClosed
	}
	c, ok := m.convs[id]
	if !ok {
		return models.Conversation{}, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) UpdateConversation(ctx context.Context, id string, mutate func(*models.Conversation)) (models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return models.Conversation{}, ErrClosed
	}
	c, ok := m.convs[id]
	if !ok {
		return models.Conversation{}, ErrNotFound
	}
	c = c.Clone()
	mutate(&c)
	c.ID = id
	m.convs[id] = c
	observe(backendMemory, "update_conversation", nil)
	return c.Clone(), nil
}

func (m *Memory) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]models.Conversation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.convs[id].Clone())
	}
	return out, nil
}

func (m *Memory) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return models.Message{}, ErrClosed
	}
	log := m.msgs[msg.ConversationID]
	for _, existing := range log {
		if existing.ID == msg.ID {
			return cloneMessage(existing), nil
		}
	}
	var last uint64
	if n := len(log); n > 0 {
		last = log[n-1].Seq
	}
	msg = cloneMessage(msg)
	msg.Seq = last + 1
	m.msgs[msg.ConversationID] = append(log, msg)
	observe(backendMemory, "append_message", nil)
	return cloneMessage(msg), nil
}

func (m *Memory) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	log := m.msgs[conversationID]
	out := make([]models.Message, 0, len(log))
	for _, msg := range log {
		out = append(out, cloneMessage(msg))
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneMessage(msg models.Message) models.Message {
	if msg.Attachments != nil {
		msg.Attachments = append([]models.Attachment(nil), msg.Attachments...)
	}
	return msg
}
