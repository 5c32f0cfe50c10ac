package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client_info"

// ClientInfo identifies who requested a reconciliation, for the run audit.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches client details to ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientInfoFrom returns the client details stored in ctx, if any.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
