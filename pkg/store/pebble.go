package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store/keys"
	"guardcomms/pkg/store/locks"
)

// PebbleOptions tunes the on-disk backend.
type PebbleOptions struct {
	CacheSize int64
}

// Pebble stores records as JSON values under the key layout in package keys.
// Per-conversation locks serialise create-if-absent and sequence assignment.
type Pebble struct {
	db      *pebble.DB
	path    string
	convMu  locks.Keyed
	orderMu sync.Mutex
}

// opens/creates pebble DB at path
func OpenPebble(path string, opts PebbleOptions) (*Pebble, error) {
	po := &pebble.Options{}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		po.Cache = cache
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	return &Pebble{db: db, path: path}, nil
}

func (p *Pebble) ready() error {
	if p.db == nil {
		return ErrClosed
	}
	return nil
}

// reads key and decodes JSON into v; missing keys map to ErrNotFound
func (p *Pebble) getJSON(key string, v any) error {
	raw, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("get_key_failed", "key", key, "error", err)
		return err
	}
	defer closer.Close()
	return json.Unmarshal(raw, v)
}

func (p *Pebble) getUint(key string) (uint64, error) {
	raw, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	defer closer.Close()
	return strconv.ParseUint(string(raw), 10, 64)
}

func (p *Pebble) CreateConversation(ctx context.Context, c models.Conversation) (created bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := p.ready(); err != nil {
		return false, err
	}
	defer func() { observe(backendPebble, "create_conversation", err) }()

	unlock := p.convMu.Lock(c.ID)
	defer unlock()

	var existing models.Conversation
	switch err := p.getJSON(keys.GenConversationKey(c.ID), &existing); {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	p.orderMu.Lock()
	defer p.orderMu.Unlock()
	order, err := p.getUint(keys.SystemOrderCounter)
	if err != nil {
		return false, err
	}
	order++

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(keys.GenConversationKey(c.ID)), data, nil); err != nil {
		return false, err
	}
	if err := batch.Set([]byte(keys.GenOrderKey(order)), []byte(c.ID), nil); err != nil {
		return false, err
	}
	if err := batch.Set([]byte(keys.SystemOrderCounter), []byte(strconv.FormatUint(order, 10)), nil); err != nil {
		return false, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("pebble_apply_batch_failed", "op", "create_conversation", "error", err)
		return false, err
	}
	return true, nil
}

func (p *Pebble) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, err
	}
	if err := p.ready(); err != nil {
		return models.Conversation{}, err
	}
	var c models.Conversation
	if err := p.getJSON(keys.GenConversationKey(id), &c); err != nil {
		return models.Conversation{}, err
	}
	return c, nil
}

func (p *Pebble) UpdateConversation(ctx context.Context, id string, mutate func(*models.Conversation)) (out models.Conversation, err error) {
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, err
	}
	if err := p.ready(); err != nil {
		return models.Conversation{}, err
	}
	defer func() { observe(backendPebble, "update_conversation", err) }()

	unlock := p.convMu.Lock(id)
	defer unlock()

	var c models.Conversation
	if err := p.getJSON(keys.GenConversationKey(id), &c); err != nil {
		return models.Conversation{}, err
	}
	mutate(&c)
	c.ID = id
	data, err := json.Marshal(c)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := p.db.Set([]byte(keys.GenConversationKey(id)), data, pebble.Sync); err != nil {
		logger.Error("save_key_failed", "key", keys.GenConversationKey(id), "error", err)
		return models.Conversation{}, err
	}
	return c, nil
}

func (p *Pebble) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keys.OrderPrefix),
		UpperBound: keys.PrefixUpperBound(keys.OrderPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	out := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		var c models.Conversation
		if err := p.getJSON(keys.GenConversationKey(id), &c); err != nil {
			logger.Warn("conversation_order_dangling", "id", id, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (p *Pebble) AppendMessage(ctx context.Context, m models.Message) (out models.Message, err error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	if err := p.ready(); err != nil {
		return models.Message{}, err
	}
	defer func() { observe(backendPebble, "append_message", err) }()

	unlock := p.convMu.Lock(m.ConversationID)
	defer unlock()

	// an id that is already stored is returned as-is
	if existing, ok, err := p.findMessage(m.ConversationID, m.ID); err != nil {
		return models.Message{}, err
	} else if ok {
		return existing, nil
	}

	last, err := p.getUint(keys.GenSeqKey(m.ConversationID))
	if err != nil {
		return models.Message{}, err
	}
	m.Seq = last + 1
	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(keys.GenMessageKey(m.ConversationID, m.Seq)), data, nil); err != nil {
		return models.Message{}, err
	}
	seq := []byte(strconv.FormatUint(m.Seq, 10))
	if err := batch.Set([]byte(keys.GenSeqKey(m.ConversationID)), seq, nil); err != nil {
		return models.Message{}, err
	}
	if err := batch.Set([]byte(keys.GenMessageIDKey(m.ConversationID, m.ID)), seq, nil); err != nil {
		return models.Message{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("pebble_apply_batch_failed", "op", "append_message", "error", err)
		return models.Message{}, err
	}
	return m, nil
}

// looks up a stored message by id through the mid index
func (p *Pebble) findMessage(conversationID, id string) (models.Message, bool, error) {
	seq, err := p.getUint(keys.GenMessageIDKey(conversationID, id))
	if err != nil || seq == 0 {
		return models.Message{}, false, err
	}
	var m models.Message
	if err := p.getJSON(keys.GenMessageKey(conversationID, seq), &m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Message{}, false, nil
		}
		return models.Message{}, false, err
	}
	return m, true, nil
}

func (p *Pebble) scanMessages(conversationID string) ([]models.Message, error) {
	prefix := []byte(keys.GenMessagePrefix(conversationID))
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keys.PrefixUpperBound(string(prefix)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Message{}
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		parts, err := keys.ParseMessageKey(string(iter.Key()))
		if err != nil || parts.ConversationID != conversationID {
			logger.Warn("message_key_invalid", "key", string(iter.Key()), "error", err)
			continue
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("message_decode_failed", "key", string(iter.Key()), "error", err)
			continue
		}
		m.Seq = parts.Seq
		out = append(out, m)
	}
	return out, iter.Error()
}

func (p *Pebble) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.scanMessages(conversationID)
}

func (p *Pebble) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.ready(); err != nil {
		return err
	}
	_, err := p.getUint(keys.SystemOrderCounter)
	return err
}

// closes opened pebble DB
func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return err
	}
	p.db = nil
	return nil
}
