package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// withRequestMetadata adds client IP, User-Agent and the conversion id to
// ctx for history records and logs.
func withRequestMetadata(ctx context.Context, r *http.Request, conversionID string) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r)) // already resolved by TrustedRealIP
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return core.ContextWithConversionID(ctx, conversionID)
}
