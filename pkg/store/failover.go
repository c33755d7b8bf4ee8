package store

import (
	"context"
	"sync/atomic"

	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
)

// Failover fronts a primary Store with an in-memory working set. Writes the
// primary rejects are kept in the working set for the life of the process.
// Conversation reads return primary records followed by working-set records
// the primary does not have; message reads interleave both by SentAt. The working set is never flushed back to the primary.
type Failover struct {
	primary  Store
	local    *Memory
	degraded atomic.Bool
}

func NewFailover(primary Store) *Failover {
	return &Failover{primary: primary, local: NewMemory()}
}

// Degraded reports whether the last primary call failed.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

func (f *Failover) primaryFailed(op string, err error) {
	if !f.degraded.Swap(true) {
		logger.Warn("store_degraded", "op", op, "error", err)
	} else {
		logger.Debug("store_degraded_op", "op", op, "error", err)
	}
	degradedOps.WithLabelValues(op).Inc()
}

func (f *Failover) primaryOK() {
	if f.degraded.Swap(false) {
		logger.Info("store_recovered")
	}
}

func (f *Failover) CreateConversation(ctx context.Context, c models.Conversation) (bool, error) {
	created, err := f.primary.CreateConversation(ctx, c)
	if err == nil {
		f.primaryOK()
		return created, nil
	}
	f.primaryFailed("create_conversation", err)
	return f.local.CreateConversation(context.WithoutCancel(ctx), c)
}

func (f *Failover) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	c, err := f.primary.GetConversation(ctx, id)
	if err == nil {
		f.primaryOK()
		return c, nil
	}
	if IsNotFound(err) {
		return f.local.GetConversation(context.WithoutCancel(ctx), id)
	}
	f.primaryFailed("get_conversation", err)
	c, lerr := f.local.GetConversation(context.WithoutCancel(ctx), id)
	if IsNotFound(lerr) {
		return models.Conversation{}, err
	}
	return c, lerr
}

func (f *Failover) UpdateConversation(ctx context.Context, id string, mutate func(*models.Conversation)) (models.Conversation, error) {
	c, err := f.primary.UpdateConversation(ctx, id, mutate)
	if err == nil {
		f.primaryOK()
		return c, nil
	}
	if IsNotFound(err) {
		return f.local.UpdateConversation(context.WithoutCancel(ctx), id, mutate)
	}
	f.primaryFailed("update_conversation", err)
	c, lerr := f.local.UpdateConversation(context.WithoutCancel(ctx), id, mutate)
	if IsNotFound(lerr) {
		return models.Conversation{}, err
	}
	return c, lerr
}

func (f *Failover) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	local, _ := f.local.ListConversations(context.WithoutCancel(ctx))
	remote, err := f.primary.ListConversations(ctx)
	if err != nil {
		f.primaryFailed("list_conversations", err)
		return local, nil
	}
	f.primaryOK()
	seen := make(map[string]struct{}, len(remote))
	for _, c := range remote {
		seen[c.ID] = struct{}{}
	}
	for _, c := range local {
		if _, ok := seen[c.ID]; !ok {
			remote = append(remote, c)
		}
	}
	return remote, nil
}

func (f *Failover) AppendMessage(ctx context.Context, m models.Message) (models.Message, error) {
	out, err := f.primary.AppendMessage(ctx, m)
	if err == nil {
		f.primaryOK()
		return out, nil
	}
	f.primaryFailed("append_message", err)
	return f.local.AppendMessage(context.WithoutCancel(ctx), m)
}

func (f *Failover) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	local, _ := f.local.ListMessages(context.WithoutCancel(ctx), conversationID)
	remote, err := f.primary.ListMessages(ctx, conversationID)
	if err != nil {
		f.primaryFailed("list_messages", err)
		return local, nil
	}
	f.primaryOK()
	return MergeMessages(remote, local), nil
}

func (f *Failover) Ping(ctx context.Context) error {
	return f.primary.Ping(ctx)
}

func (f *Failover) Close() error {
	_ = f.local.Close()
	return f.primary.Close()
}

// MergeMessages interleaves extra into base by SentAt, dropping extra
// messages whose ids base already holds. Both inputs must be oldest first;
// each keeps its own relative order and base wins ties.
func MergeMessages(base, extra []models.Message) []models.Message {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, m := range base {
		seen[m.ID] = struct{}{}
	}
	add := make([]models.Message, 0, len(extra))
	for _, m := range extra {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		add = append(add, m)
	}
	if len(add) == 0 {
		return base
	}

	out := make([]models.Message, 0, len(base)+len(add))
	i, j := 0, 0
	for i < len(base) && j < len(add) {
		if add[j].SentAt.Before(base[i].SentAt) {
			out = append(out, add[j])
			j++
			continue
		}
		out = append(out, base[i])
		i++
	}
	out = append(out, base[i:]...)
	return append(out, add[j:]...)
}
