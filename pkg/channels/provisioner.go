// Package channels provisions the mandatory conversations each user role
// needs: support channels for guards, company channels for staff, a peer
// channel per team and mission channels on demand.
package channels

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"guardcomms/pkg/logger"
	"guardcomms/pkg/models"
	"guardcomms/pkg/store"
)

var ErrMissingID = errors.New("channels: missing id")

// seedNamespace derives stable ids for seed messages so a retried creation
// cannot post the announcement twice.
var seedNamespace = uuid.MustParse("6f1d3c52-8a43-4f0e-9b6c-2d7a1e5b9c04")

type Provisioner struct {
	store store.Store
	now   func() time.Time
}

func NewProvisioner(s store.Store) *Provisioner {
	return &Provisioner{store: s, now: time.Now}
}

// EnsureChannelsForUser creates whatever channels u is missing. It can be
// called any number of times and concurrently; each channel is created at
// most once. Store failures are logged and skipped so login never fails on
// them; the only error is a missing user id.
func (p *Provisioner) EnsureChannelsForUser(ctx context.Context, u models.User) error {
	if u.ID == "" {
		return ErrMissingID
	}
	specs := RequiredChannels(u)
	created := 0
	for _, spec := range specs {
		ok, err := p.ensure(ctx, u, spec)
		if err != nil {
			provisionFailures.Inc()
			logger.Warn("channel_provision_failed", "user", u.ID, "channel", spec.ID, "error", err)
			continue
		}
		if ok {
			created++
		}
	}
	logger.Debug("channels_ensured", "user", u.ID, "role", u.Role, "required", len(specs), "created", created)
	return nil
}

func (p *Provisioner) ensure(ctx context.Context, u models.User, spec ChannelSpec) (bool, error) {
	now := p.now().UTC()
	c := models.Conversation{
		ID:          spec.ID,
		Kind:        models.KindTeamChat,
		Subkind:     spec.Subkind,
		DisplayName: spec.Name,
		Status:      models.StatusActive,
		CreatedAt:   now,
	}
	var seed *models.Message
	switch spec.Scope {
	case ScopeUser:
		c.Participants = []models.Participant{u.Participant()}
		c.Metadata = map[string]string{
			models.MetaLevel:            spec.Name,
			models.MetaGuardID:          u.ID,
			models.MetaGuardDisplayName: u.DisplayName,
			models.MetaGuardBadge:       u.Badge,
		}
		seed = seedMessage(c.ID, u, spec.Name, now)
		c.LastMessageSummary = seed.Body
		c.LastMessageAt = &now
	case ScopeTeam:
		c.RelatedEntityID = u.TeamID
	}

	created, err := p.store.CreateConversation(ctx, c)
	if err != nil || !created {
		return false, err
	}
	channelsCreated.WithLabelValues(string(spec.Subkind)).Inc()
	if seed != nil {
		if _, err := p.store.AppendMessage(ctx, *seed); err != nil {
			logger.Warn("seed_message_failed", "channel", c.ID, "error", err)
		}
	}
	return true, nil
}

func seedMessage(conversationID string, u models.User, level string, at time.Time) *models.Message {
	name := u.DisplayName
	if name == "" {
		name = u.ID
	}
	return &models.Message{
		ID:             uuid.NewSHA1(seedNamespace, []byte(conversationID)).String(),
		ConversationID: conversationID,
		SenderID:       "system",
		Body:           fmt.Sprintf("%s is now connected with %s.", name, level),
		SentAt:         at,
		Kind:           models.MessageSystem,
		Read:           true,
	}
}

// MissionRef is what the mission subsystem hands over when a mission is
// created or its assignment changes.
type MissionRef struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Participants []models.Participant `json:"participants"`
}

// EnsureMissionChannel creates the channel for m, or brings the name and
// participant list of an existing one in line with m.
func (p *Provisioner) EnsureMissionChannel(ctx context.Context, m MissionRef) (models.Conversation, error) {
	if m.ID == "" {
		return models.Conversation{}, ErrMissingID
	}
	name := m.Name
	if name == "" {
		name = "Mission " + m.ID
	}
	c := models.Conversation{
		ID:              MissionChannelID(m.ID),
		Kind:            models.KindMissionChat,
		DisplayName:     name,
		RelatedEntityID: m.ID,
		Participants:    slices.Clone(m.Participants),
		Status:          models.StatusActive,
		CreatedAt:       p.now().UTC(),
	}
	created, err := p.store.CreateConversation(ctx, c)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to create mission channel: %w", err)
	}
	if created {
		channelsCreated.WithLabelValues(string(models.KindMissionChat)).Inc()
		logger.Info("mission_channel_created", "mission", m.ID, "participants", len(m.Participants))
		return c, nil
	}
	out, err := p.store.UpdateConversation(ctx, c.ID, func(cur *models.Conversation) {
		if m.Name != "" {
			cur.DisplayName = m.Name
		}
		cur.Participants = slices.Clone(m.Participants)
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to update mission channel: %w", err)
	}
	return out, nil
}
