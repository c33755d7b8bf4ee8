package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardcomms/pkg/config"
	"guardcomms/pkg/models"
)

func openTestPebble(t *testing.T) *Pebble {
	t.Helper()
	p, err := OpenPebble(t.TempDir(), PebbleOptions{CacheSize: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// backends runs fn against every concrete Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("pebble", func(t *testing.T) { fn(t, openTestPebble(t)) })
}

func conv(id string) models.Conversation {
	return models.Conversation{
		ID:          id,
		Kind:        models.KindDirectMessage,
		Subkind:     models.SubkindSupport,
		DisplayName: "Dispatch",
		Status:      models.StatusActive,
		Metadata:    map[string]string{models.MetaLevel: "Dispatch"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCreateConversationIsIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		created, err := s.CreateConversation(ctx, conv("support:dispatch:g1"))
		require.NoError(t, err)
		assert.True(t, created)

		dup := conv("support:dispatch:g1")
		dup.DisplayName = "changed"
		created, err = s.CreateConversation(ctx, dup)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := s.GetConversation(ctx, "support:dispatch:g1")
		require.NoError(t, err)
		assert.Equal(t, "Dispatch", got.DisplayName)
		assert.Equal(t, "Dispatch", got.Metadata[models.MetaLevel])
	})
}

func TestCreateConversationConcurrent(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := s.CreateConversation(ctx, conv("peer:team-7"))
				assert.NoError(t, err)
				if created {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		all, err := s.ListConversations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestGetConversationNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.GetConversation(context.Background(), "nope")
		assert.True(t, IsNotFound(err))
		_, err = s.UpdateConversation(context.Background(), "nope", func(*models.Conversation) {})
		assert.True(t, IsNotFound(err))
	})
}

func TestUpdateConversation(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateConversation(ctx, conv("company:payroll"))
		require.NoError(t, err)

		out, err := s.UpdateConversation(ctx, "company:payroll", func(c *models.Conversation) {
			c.UnreadCount++
			c.LastMessageSummary = "hi"
			c.ID = "ignored"
		})
		require.NoError(t, err)
		assert.Equal(t, "company:payroll", out.ID)
		assert.Equal(t, 1, out.UnreadCount)

		got, err := s.GetConversation(ctx, "company:payroll")
		require.NoError(t, err)
		assert.Equal(t, "hi", got.LastMessageSummary)
	})
}

func TestListConversationsKeepsInsertionOrder(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ids := []string{"support:dispatch:g1", "company:payroll", "peer:t1", "mission:m-9"}
		for _, id := range ids {
			_, err := s.CreateConversation(ctx, conv(id))
			require.NoError(t, err)
		}
		all, err := s.ListConversations(ctx)
		require.NoError(t, err)
		var got []string
		for _, c := range all {
			got = append(got, c.ID)
		}
		assert.Equal(t, ids, got)
	})
}

func TestAppendMessageAssignsSeqAndDedupes(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i, id := range []string{"a", "b", "c"} {
			m, err := s.AppendMessage(ctx, models.Message{ID: id, ConversationID: "peer:t1", Body: id})
			require.NoError(t, err)
			assert.Equal(t, uint64(i+1), m.Seq)
		}
		again, err := s.AppendMessage(ctx, models.Message{ID: "b", ConversationID: "peer:t1", Body: "other"})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), again.Seq)
		assert.Equal(t, "b", again.Body)

		msgs, err := s.ListMessages(ctx, "peer:t1")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i, id := range []string{"a", "b", "c"} {
			assert.Equal(t, id, msgs[i].ID)
		}
	})
}

func TestListMessagesUnknownConversation(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		msgs, err := s.ListMessages(context.Background(), "missing")
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})
}

func TestMessagesDoNotLeakAcrossSimilarIDs(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.AppendMessage(ctx, models.Message{ID: "1", ConversationID: "peer:t1"})
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, models.Message{ID: "2", ConversationID: "peer:t10"})
		require.NoError(t, err)

		msgs, err := s.ListMessages(ctx, "peer:t1")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "1", msgs[0].ID)
	})
}

func TestClosedStore(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		require.NoError(t, s.Close())
		_, err := s.CreateConversation(context.Background(), conv("x"))
		assert.ErrorIs(t, err, ErrClosed)
		assert.Error(t, s.Ping(context.Background()))
	})
}

func TestPebbleReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	p, err := OpenPebble(dir, PebbleOptions{})
	require.NoError(t, err)
	_, err = p.CreateConversation(ctx, conv("company:hr"))
	require.NoError(t, err)
	_, err = p.AppendMessage(ctx, models.Message{ID: "m1", ConversationID: "company:hr"})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	p, err = OpenPebble(dir, PebbleOptions{})
	require.NoError(t, err)
	defer p.Close()
	all, err := p.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	m, err := p.AppendMessage(ctx, models.Message{ID: "m2", ConversationID: "company:hr"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), m.Seq)
}

// flaky wraps a Memory and fails every call while down is set.
type flaky struct {
	*Memory
	down atomic.Bool
}

var errDown = errors.New("primary unreachable")

func (f *flaky) CreateConversation(ctx context.Context, c models.Conversation) (bool, error) {
	if f.down.Load() {
		return false, errDown
	}
	return f.Memory.CreateConversation(ctx, c)
}

func (f *flaky) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	if f.down.Load() {
		return models.Conversation{}, errDown
	}
	return f.Memory.GetConversation(ctx, id)
}

func (f *flaky) UpdateConversation(ctx context.Context, id string, mutate func(*models.Conversation)) (models.Conversation, error) {
	if f.down.Load() {
		return models.Conversation{}, errDown
	}
	return f.Memory.UpdateConversation(ctx, id, mutate)
}

func (f *flaky) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	if f.down.Load() {
		return nil, errDown
	}
	return f.Memory.ListConversations(ctx)
}

func (f *flaky) AppendMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if f.down.Load() {
		return models.Message{}, errDown
	}
	return f.Memory.AppendMessage(ctx, m)
}

func (f *flaky) ListMessages(ctx context.Context, id string) ([]models.Message, error) {
	if f.down.Load() {
		return nil, errDown
	}
	return f.Memory.ListMessages(ctx, id)
}

func TestFailoverDegradesAndMerges(t *testing.T) {
	ctx := context.Background()
	primary := &flaky{Memory: NewMemory()}
	f := NewFailover(primary)

	created, err := f.CreateConversation(ctx, conv("company:payroll"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, f.Degraded())

	primary.down.Store(true)
	created, err = f.CreateConversation(ctx, conv("company:hr"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, f.Degraded())

	_, err = f.AppendMessage(ctx, models.Message{ID: "local-1", ConversationID: "company:hr"})
	require.NoError(t, err)

	got, err := f.GetConversation(ctx, "company:hr")
	require.NoError(t, err)
	assert.Equal(t, "company:hr", got.ID)

	// primary down: only the working set is visible
	all, err := f.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "company:hr", all[0].ID)

	primary.down.Store(false)
	all, err = f.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "company:payroll", all[0].ID)
	assert.Equal(t, "company:hr", all[1].ID)
	assert.False(t, f.Degraded())

	msgs, err := f.ListMessages(ctx, "company:hr")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "local-1", msgs[0].ID)
}

func TestFailoverKeepsPrimaryErrorForPrimaryRecords(t *testing.T) {
	ctx := context.Background()
	primary := &flaky{Memory: NewMemory()}
	f := NewFailover(primary)
	_, err := f.CreateConversation(ctx, conv("company:payroll"))
	require.NoError(t, err)

	primary.down.Store(true)
	_, err = f.GetConversation(ctx, "company:payroll")
	require.ErrorIs(t, err, errDown)
	assert.False(t, IsNotFound(err))

	_, err = f.UpdateConversation(ctx, "company:payroll", func(c *models.Conversation) { c.UnreadCount++ })
	require.ErrorIs(t, err, errDown)

	primary.down.Store(false)
	_, err = f.GetConversation(ctx, "company:missing")
	assert.True(t, IsNotFound(err))
}

func TestMergeMessages(t *testing.T) {
	base := []models.Message{{ID: "a"}, {ID: "b"}}
	extra := []models.Message{{ID: "b"}, {ID: "c"}, {ID: "c"}}
	out := MergeMessages(base, extra)
	var ids []string
	for _, m := range out {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMergeMessagesInterleavesBySentAt(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(id string, d time.Duration) models.Message {
		return models.Message{ID: id, SentAt: t0.Add(d)}
	}
	durable := []models.Message{at("b", 2*time.Second), at("c", 3*time.Second), at("e", 5*time.Second)}
	local := []models.Message{at("a", time.Second), at("c", 3*time.Second), at("d", 4*time.Second), at("f", 6*time.Second)}

	var ids []string
	for _, m := range MergeMessages(durable, local) {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, ids)
}

func TestOpenBackends(t *testing.T) {
	s, err := Open(config.StoreConfig{Backend: config.BackendMemory}, "")
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	s, err = Open(config.StoreConfig{Backend: config.BackendPebble}, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	_, err = Open(config.StoreConfig{Backend: "redis"}, "")
	assert.Error(t, err)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	// a regular file cannot host a pebble directory
	dir := t.TempDir()
	path := fmt.Sprintf("%s/blocker", dir)
	require.NoError(t, writeBlocker(path))

	s, err := Open(config.StoreConfig{Backend: config.BackendPebble}, path+"/db")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.CreateConversation(context.Background(), conv("company:it"))
	require.NoError(t, err)

	off := false
	_, err = Open(config.StoreConfig{Backend: config.BackendPebble, FallbackMemory: &off}, path+"/db")
	assert.Error(t, err)
}

func writeBlocker(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}
