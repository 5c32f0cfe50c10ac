package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/PayrollRecon/internal/core"
	"github.com/JonMunkholm/PayrollRecon/internal/logging"
)

// clientIP returns the client address without its port. RemoteAddr has
// already been rewritten by TrustedRealIP when behind a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withRequestMetadata adds client IP and User-Agent to ctx for the run
// audit, and the IP to every log entry written under ctx.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := clientIP(r)
	ctx = logging.ContextWithFields(ctx, "client_ip", ip)
	return core.WithClientInfo(ctx, core.ClientInfo{
		IP:        ip,
		UserAgent: r.UserAgent(),
	})
}
