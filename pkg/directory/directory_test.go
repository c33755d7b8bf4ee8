package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardcomms/pkg/channels"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store"
)

func supportChannel(level string) models.Conversation {
	return models.Conversation{
		ID:          channels.SupportChannelID(level, "g1"),
		Kind:        models.KindTeamChat,
		Subkind:     models.SubkindSupport,
		DisplayName: level,
		Metadata: map[string]string{
			models.MetaLevel:            level,
			models.MetaGuardID:          "g1",
			models.MetaGuardDisplayName: "J. Rivera",
			models.MetaGuardBadge:       "1234",
		},
	}
}

func TestDisplayName(t *testing.T) {
	noBadge := supportChannel("Owners")
	noBadge.Metadata[models.MetaGuardBadge] = ""

	tests := []struct {
		name   string
		conv   models.Conversation
		viewer string
		want   string
	}{
		{"owner guard sees level", supportChannel("Dispatch"), "g1", "Dispatch"},
		{"staff sees guard", supportChannel("Dispatch"), "s1", "#1234 J. Rivera – Dispatch"},
		{"anonymous viewer sees guard", supportChannel("Training Team"), "", "#1234 J. Rivera – Training Team"},
		{"badge missing", noBadge, "s1", "J. Rivera – Owners"},
		{"company channel untouched", models.Conversation{Subkind: models.SubkindCompany, DisplayName: "Lead"}, "s1", "Lead"},
		{"mission untouched", models.Conversation{Kind: models.KindMissionChat, DisplayName: "Harbor"}, "g1", "Harbor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.conv, tt.viewer))
		})
	}
}

func TestDisplayNameDoesNotMutateStoredRecord(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	_, err := s.CreateConversation(ctx, supportChannel("Dispatch"))
	require.NoError(t, err)

	d := New(s)
	_ = d.ListConversations(ctx, "s1", models.KindTeamChat)
	stored, err := s.GetConversation(ctx, channels.SupportChannelID("Dispatch", "g1"))
	require.NoError(t, err)
	assert.Equal(t, "Dispatch", stored.DisplayName)
}

// guard g1 logs in, then the same channels are listed by the guard and by
// a dispatcher
func TestGuardLoginScenario(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	p := channels.NewProvisioner(s)
	require.NoError(t, p.EnsureChannelsForUser(ctx, models.User{
		ID: "g1", DisplayName: "J. Rivera", Role: models.RoleGuard, Badge: "1234",
	}))

	d := New(s)
	mine := d.ListConversations(ctx, "g1", models.KindTeamChat)
	require.Len(t, mine, 6)
	var names []string
	for _, c := range mine {
		names = append(names, c.DisplayName)
	}
	assert.Equal(t, []string{"Owners", "Management Team", "Dispatch", "Operations Team", "Supervision Team", "Training Team"}, names)

	staff := d.ListConversations(ctx, "s1", models.KindTeamChat)
	require.Len(t, staff, 6)
	assert.Equal(t, "#1234 J. Rivera – Dispatch", staff[2].DisplayName)

	assert.Empty(t, d.ListConversations(ctx, "g1", models.KindMissionChat))
}

func TestListConversationsFailsSoft(t *testing.T) {
	s := store.NewMemory()
	require.NoError(t, s.Close())
	out := New(s).ListConversations(context.Background(), "g1", models.KindTeamChat)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestArchiveMarkReadAndCounts(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	for _, c := range []models.Conversation{
		{ID: "company:lead", Kind: models.KindTeamChat, Subkind: models.SubkindCompany, UnreadCount: 2},
		{ID: "peer:t1", Kind: models.KindTeamChat, Subkind: models.SubkindPeer, UnreadCount: 3},
		{ID: "mission:m1", Kind: models.KindMissionChat, UnreadCount: 1},
	} {
		_, err := s.CreateConversation(ctx, c)
		require.NoError(t, err)
	}
	d := New(s)

	counts := d.Counts(ctx, "s1")
	assert.Equal(t, TabCount{Conversations: 2, Unread: 5}, counts[models.KindTeamChat])
	assert.Equal(t, TabCount{Conversations: 1, Unread: 1}, counts[models.KindMissionChat])
	assert.Equal(t, TabCount{}, counts[models.KindDirectMessage])

	c, err := d.MarkRead(ctx, "peer:t1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UnreadCount)

	c, err = d.Archive(ctx, "mission:m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, c.Status)

	counts = d.Counts(ctx, "s1")
	assert.Equal(t, TabCount{Conversations: 2, Unread: 2}, counts[models.KindTeamChat])
	assert.Equal(t, TabCount{}, counts[models.KindMissionChat])

	// archived conversations stay listed
	assert.Len(t, d.ListConversations(ctx, "s1", models.KindMissionChat), 1)

	_, err = d.Archive(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestInactive(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	for _, c := range []models.Conversation{
		{ID: "a", Kind: models.KindMissionChat, CreatedAt: old},
		{ID: "b", Kind: models.KindMissionChat, CreatedAt: old, LastMessageAt: &recent},
		{ID: "c", Kind: models.KindMissionChat, CreatedAt: old, Status: models.StatusArchived},
	} {
		_, err := s.CreateConversation(ctx, c)
		require.NoError(t, err)
	}
	out, err := New(s).Inactive(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}
