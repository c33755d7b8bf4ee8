// Package auth holds the request gate in front of the API: CORS, per-client
// rate limiting and the caller identity header. Authentication itself
// happens upstream; X-User-ID is trusted as sent.
package auth

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"

	"guardcomms/pkg/config"
	"guardcomms/pkg/logger"
	"guardcomms/pkg/router"
)

const (
	HeaderUserID = "X-User-ID"
	userIDKey    = "auth.user_id"
)

// identityPrefixes are the routes that act on behalf of a viewer.
var identityPrefixes = []string{"/v1/conversations"}

// Middleware returns the request gate configured by cfg.
func Middleware(cfg config.SecurityConfig) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	limiters := newLimiterPool(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	allowed := cfg.CORS.AllowedOrigins
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			logger.LogRequestFast(ctx)

			origin := string(ctx.Request.Header.Peek("Origin"))
			if origin != "" && originAllowed(origin, allowed) {
				ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
				ctx.Response.Header.Set("Vary", "Origin")
				ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
				ctx.Response.Header.Set("Access-Control-Max-Age", "600")
				ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type,"+HeaderUserID)
			}
			if string(ctx.Method()) == fasthttp.MethodOptions {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}

			path := string(ctx.Path())
			if path == "/healthz" && string(ctx.Method()) == fasthttp.MethodGet {
				next(ctx)
				return
			}

			userID := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderUserID)))
			key := userID
			if key == "" {
				key = clientIP(ctx)
			}
			if !limiters.Allow(key) {
				router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "key", key, "path", path)
				return
			}

			if requiresIdentity(path) && userID == "" {
				router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "missing "+HeaderUserID+" header")
				logger.Debug("request_missing_identity", "path", path, "remote", ctx.RemoteAddr().String())
				return
			}
			if userID != "" {
				ctx.SetUserValue(userIDKey, userID)
			}
			next(ctx)
		}
	}
}

// UserID returns the caller id accepted by the middleware.
func UserID(ctx *fasthttp.RequestCtx) string {
	v, _ := ctx.UserValue(userIDKey).(string)
	return v
}

func requiresIdentity(path string) bool {
	for _, p := range identityPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	host := ctx.RemoteAddr().String()
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	return h
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
