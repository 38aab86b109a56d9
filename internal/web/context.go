package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/mistakelog/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx so service
// logs can name who made a change.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}
