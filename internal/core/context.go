package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress    contextKey = "client_ip"
	ctxKeyUserAgent    contextKey = "client_ua"
	ctxKeyConversionID contextKey = "conversion_id"
)

// ContextWithIPAddress adds the client IP to ctx for history records.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds the client User-Agent to ctx for history records.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// ContextWithConversionID tags ctx with the id of the running conversion.
func ContextWithConversionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyConversionID, id)
}

// IPAddressFromContext extracts the client IP from ctx.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext extracts the client User-Agent from ctx.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// ConversionIDFromContext extracts the conversion id from ctx.
func ConversionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyConversionID).(string); ok {
		return v
	}
	return ""
}
