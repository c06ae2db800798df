package audit

import "context"

type clientInfoKey struct{}

type requestIDKey struct{}

type clientInfo struct {
	ip        string
	userAgent string
}

// Extractor pulls a value from the request context.
type Extractor func(context.Context) (string, bool)

// WithClientInfo stores the caller's IP and user agent. Both values are opaque
// strings supplied by the request layer.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

// WithRequestID stores a request id for correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func IPFromContext(ctx context.Context) (string, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(clientInfo)
	return info.ip, ok && info.ip != ""
}

func UserAgentFromContext(ctx context.Context) (string, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(clientInfo)
	return info.userAgent, ok && info.userAgent != ""
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
