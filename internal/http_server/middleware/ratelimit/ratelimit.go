package rateLimit

import (
	"net"
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

// Auth is the coarse per-IP limit applied to every auth route. Per-account
// login attempts are counted separately by the auth service.
func Auth(limit int, window time.Duration) func(http.Handler) http.Handler {
	return limitByIP(limit, window)
}

func Register() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func ResendVerificationEmail() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// ClientIP returns the request's remote host without the port. Forwarding
// headers count only when the router installs chi's RealIP, which is gated
// on http_server.trust_proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
