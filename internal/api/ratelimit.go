package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// rateLimitCapture is a huma middleware limiting photo uploads per client IP.
// Rejected requests get 429 with a Retry-After header.
func (s *Server) rateLimitCapture(ctx huma.Context, next func(huma.Context)) {
	key := getClientIP(ctx.RemoteAddr(), ctx.Header)

	ok, wait := s.captureLimiter.Reserve(key)
	if !ok {
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
			"retry_after", wait,
		)
		ctx.SetHeader("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many uploads, try again later")
		return
	}

	next(ctx)
}

// getClientIP extracts the client IP from a remote address and request headers.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to the
// remote address.
func getClientIP(remoteAddr string, header func(string) string) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
