// Package api exposes the messaging core over HTTP.
package api

import (
	"net/http"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"guardcomms/pkg/auth"
	"guardcomms/pkg/config"
	"guardcomms/pkg/router"
)

var (
	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "guardcomms_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardcomms_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(heapAlloc, requests)
}

// wrapHTTPHandler wraps an http.Handler to work with fasthttp.
func wrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// counted records the response status of h under the route label.
func counted(route string, h fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		h(ctx)
		requests.WithLabelValues(route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
	}
}

// RegisterRoutes wires all API routes onto the provided router.
func RegisterRoutes(r *router.Router, h *Handlers) {
	// session start
	r.POST("/v1/session", counted("session", h.StartSession))

	// conversations; counts is registered before {id} so it wins
	r.GET("/v1/conversations", counted("list_conversations", h.ListConversations))
	r.GET("/v1/conversations/counts", counted("conversation_counts", h.ConversationCounts))
	r.GET("/v1/conversations/{id}", counted("get_conversation", h.GetConversation))
	r.POST("/v1/conversations/{id}/read", counted("mark_read", h.MarkRead))
	r.POST("/v1/conversations/{id}/archive", counted("archive_conversation", h.ArchiveConversation))

	// messages
	r.GET("/v1/conversations/{id}/messages", counted("get_messages", h.GetMessages))
	r.POST("/v1/conversations/{id}/messages", counted("send_message", h.SendMessage))

	// mission subsystem
	r.PUT("/v1/missions/{missionId}/channel", counted("mission_channel", h.EnsureMissionChannel))

	r.GET("/healthz", h.Health)

	// admin
	r.GET("/admin/debug/prometheus", wrapHTTPHandler(promhttp.Handler()))
	r.POST("/admin/jobs/archive", counted("archive_job", h.RunArchive))
}

// Handler returns the fasthttp handler for the API behind the request gate.
func Handler(h *Handlers, sec config.SecurityConfig) fasthttp.RequestHandler {
	r := router.New()
	RegisterRoutes(r, h)
	r.NotFound(counted("unmatched", func(ctx *fasthttp.RequestCtx) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "no route for "+string(ctx.Path()))
	}))
	return auth.Middleware(sec)(r.Handler)
}
