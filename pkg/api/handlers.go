package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"guardcomms/internal/retention"
	"guardcomms/pkg/auth"
	"guardcomms/pkg/channels"
	"guardcomms/pkg/directory"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/messages"
	"guardcomms/pkg/models"
	"guardcomms/pkg/router"
	"guardcomms/pkg/store"
)

// Archiver runs an archive sweep on demand.
type Archiver interface {
	RunNow(ctx context.Context) (retention.Report, error)
}

// Handlers binds the HTTP routes to the messaging services.
type Handlers struct {
	Store       store.Store
	Provisioner *channels.Provisioner
	Directory   *directory.Directory
	Messages    *messages.Service
	Archiver    Archiver
}

type sessionResponse struct {
	UserID   string   `json:"user_id"`
	Channels []string `json:"channels"`
}

// StartSession provisions the caller's mandatory channels.
func (h *Handlers) StartSession(ctx *fasthttp.RequestCtx) {
	var u models.User
	if err := json.Unmarshal(ctx.PostBody(), &u); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid user descriptor")
		return
	}
	u.ID = strings.TrimSpace(u.ID)
	u.Role = models.ParseRole(string(u.Role))
	if err := h.Provisioner.EnsureChannelsForUser(ctx, u); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	specs := channels.RequiredChannels(u)
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
	}
	_ = router.WriteJSON(ctx, sessionResponse{UserID: u.ID, Channels: ids})
}

func (h *Handlers) ListConversations(ctx *fasthttp.RequestCtx) {
	kind := models.ConversationKind(ctx.QueryArgs().Peek("kind"))
	if !kind.Valid() {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "kind must be one of direct_message, team_chat, group_chat, mission_chat")
		return
	}
	out := h.Directory.ListConversations(ctx, auth.UserID(ctx), kind)
	_ = router.WriteJSON(ctx, map[string]interface{}{"conversations": out})
}

func (h *Handlers) ConversationCounts(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, h.Directory.Counts(ctx, auth.UserID(ctx)))
}

func (h *Handlers) GetConversation(ctx *fasthttp.RequestCtx) {
	c, err := h.Directory.Get(ctx, auth.UserID(ctx), router.Param(ctx, "id"))
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, c)
}

func (h *Handlers) MarkRead(ctx *fasthttp.RequestCtx) {
	c, err := h.Directory.MarkRead(ctx, router.Param(ctx, "id"))
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	c.DisplayName = directory.DisplayName(c, auth.UserID(ctx))
	_ = router.WriteJSON(ctx, c)
}

func (h *Handlers) ArchiveConversation(ctx *fasthttp.RequestCtx) {
	c, err := h.Directory.Archive(ctx, router.Param(ctx, "id"))
	if err != nil {
		writeStoreError(ctx, err)
		return
	}
	c.DisplayName = directory.DisplayName(c, auth.UserID(ctx))
	_ = router.WriteJSON(ctx, c)
}

func (h *Handlers) GetMessages(ctx *fasthttp.RequestCtx) {
	out := h.Messages.GetMessages(ctx, router.Param(ctx, "id"))
	_ = router.WriteJSON(ctx, map[string]interface{}{"messages": out})
}

type sendRequest struct {
	Body              string              `json:"body"`
	SenderDisplayName string              `json:"sender_display_name"`
	Attachments       []models.Attachment `json:"attachments"`
}

// SendMessage posts as the X-User-ID caller. A message with neither body
// nor attachments is rejected here and never reaches the message log.
func (h *Handlers) SendMessage(ctx *fasthttp.RequestCtx) {
	var req sendRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid message payload")
		return
	}
	if strings.TrimSpace(req.Body) == "" && len(req.Attachments) == 0 {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "message needs a body or attachments")
		return
	}
	id := router.Param(ctx, "id")
	sender := models.Sender{ID: auth.UserID(ctx), DisplayName: req.SenderDisplayName}
	// an unreachable store does not block sending, an unknown conversation does
	if _, err := h.Directory.Get(ctx, sender.ID, id); err != nil {
		if store.IsNotFound(err) {
			writeStoreError(ctx, err)
			return
		}
		logger.Warn("send_conversation_lookup_failed", "conversation", id, "error", err)
	}
	m := h.Messages.SendMessage(ctx, id, sender, req.Body, req.Attachments)
	_ = router.WriteJSONStatus(ctx, fasthttp.StatusCreated, m)
}

func (h *Handlers) EnsureMissionChannel(ctx *fasthttp.RequestCtx) {
	var ref channels.MissionRef
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &ref); err != nil {
			router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid mission payload")
			return
		}
	}
	ref.ID = router.Param(ctx, "missionId")
	c, err := h.Provisioner.EnsureMissionChannel(ctx, ref)
	if err != nil {
		logger.Warn("mission_channel_failed", "mission", ref.ID, "error", err)
		writeStoreError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, c)
}

// degradedReporter is implemented by stores that can fall back to a working set.
type degradedReporter interface {
	Degraded() bool
}

// Health answers liveness; a failing store is reported but does not fail
// the check since the service keeps working on its working set.
func (h *Handlers) Health(ctx *fasthttp.RequestCtx) {
	status := "ok"
	if err := h.Store.Ping(ctx); err != nil {
		status = "degraded"
		logger.Debug("health_store_ping_failed", "error", err)
	}
	if d, ok := h.Store.(degradedReporter); ok && d.Degraded() {
		status = "degraded"
	}
	_ = router.WriteJSON(ctx, map[string]interface{}{
		"status":           "ok",
		"store":            status,
		"pending_messages": h.Messages.Pending(),
	})
}

func (h *Handlers) RunArchive(ctx *fasthttp.RequestCtx) {
	if h.Archiver == nil {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "archive sweep not configured")
		return
	}
	rep, err := h.Archiver.RunNow(ctx)
	switch {
	case errors.Is(err, retention.ErrRunning):
		router.WriteJSONError(ctx, fasthttp.StatusConflict, err.Error())
	case err != nil:
		logger.Error("archive_job_failed", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "archive sweep failed")
	default:
		_ = router.WriteJSON(ctx, rep)
	}
}

func writeStoreError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case store.IsNotFound(err):
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "conversation not found")
	case errors.Is(err, channels.ErrMissingID):
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, err.Error())
	default:
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "internal error")
	}
}
