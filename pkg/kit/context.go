package kit

import "context"

type contextKey string

const (
	TransportKey contextKey = "kit_transport" // "http", "mcp", "cli"
	RequestIDKey contextKey = "kit_request_id"
	DomainKey    contextKey = "kit_domain"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// WithDomain records the canonicalization domain a request targets, for logs.
func WithDomain(ctx context.Context, d string) context.Context {
	return context.WithValue(ctx, DomainKey, d)
}
func GetDomain(ctx context.Context) string {
	v, _ := ctx.Value(DomainKey).(string)
	return v
}
