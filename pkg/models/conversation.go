package models

import "time"

// ConversationKind is the coarse tab a conversation is listed under.
type ConversationKind string

const (
	KindDirectMessage ConversationKind = "direct_message"
	KindTeamChat      ConversationKind = "team_chat"
	KindGroupChat     ConversationKind = "group_chat"
	KindMissionChat   ConversationKind = "mission_chat"
)

// Valid reports whether k is one of the four known kinds.
func (k ConversationKind) Valid() bool {
	switch k {
	case KindDirectMessage, KindTeamChat, KindGroupChat, KindMissionChat:
		return true
	}
	return false
}

// Kinds lists every conversation kind in tab order.
var Kinds = []ConversationKind{KindDirectMessage, KindTeamChat, KindGroupChat, KindMissionChat}

// ChannelSubkind refines team_chat conversations; it drives addressing and display rules.
type ChannelSubkind string

const (
	SubkindSupport ChannelSubkind = "support_channel"
	SubkindPeer    ChannelSubkind = "peer_channel"
	SubkindCompany ChannelSubkind = "company_channel"
	SubkindTeam    ChannelSubkind = "team_channel"
)

type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
)

// metadata keys written on support channels
const (
	MetaLevel            = "level"
	MetaGuardID          = "guard_id"
	MetaGuardDisplayName = "guard_display_name"
	MetaGuardBadge       = "guard_badge"
)

type Participant struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Rank        string `json:"rank,omitempty"`
}

type Conversation struct {
	ID      string           `json:"id"`
	Kind    ConversationKind `json:"kind"`
	Subkind ChannelSubkind   `json:"subkind,omitempty"`
	// DisplayName is the stored label. Support channels keep the bare level
	// name here; viewer-specific labels are computed at read time.
	DisplayName     string        `json:"display_name"`
	RelatedEntityID string        `json:"related_entity_id,omitempty"`
	Participants    []Participant `json:"participants"`

	LastMessageSummary string     `json:"last_message_summary,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	UnreadCount        int        `json:"unread_count"`

	Status    ConversationStatus `json:"status"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Participants != nil {
		out.Participants = append([]Participant(nil), c.Participants...)
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		out.LastMessageAt = &t
	}
	return out
}

// LastActivity is the last message time, or the creation time for a
// conversation that never received a message.
func (c Conversation) LastActivity() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}
