package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmail_auth/internal/auth"
	"webmail_auth/internal/config"
	"webmail_auth/internal/lib/password"
	"webmail_auth/internal/ratelimit"
	"webmail_auth/internal/session"
	"webmail_auth/internal/storage/memory"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Str0ng!pass"
)

func newTestRouter(t *testing.T, trustProxy bool) http.Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := password.NewHasher(password.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	repo := memory.New()
	digest, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	uid, err := repo.SaveUser(context.Background(), testEmail, digest)
	require.NoError(t, err)
	require.NoError(t, repo.SetEmailVerified(context.Background(), uid))

	cfg := &config.Config{
		HTTPServer: config.HTTPServer{PublicURL: "http://mail.local", TrustProxy: trustProxy},
		Tokens:     config.Tokens{Secret: "access", TTL: time.Hour, VerificationTokenTTL: time.Hour, VerificationTokenSecret: "verify"},
		RateLimit:  config.RateLimit{MaxAttempts: 5, Window: 15 * time.Minute, IPLimit: 1000, IPWindow: time.Minute},
		Session:    config.Session{Timeout: time.Hour, CookieName: "webmail_session"},
	}

	authService := auth.New(log, repo, repo, hasher,
		ratelimit.New(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window),
		session.NewStore(cfg.Session.Timeout),
		cfg.Tokens.Secret, cfg.Tokens.TTL,
	)

	return setupRouter(log, cfg, authService, logPublisher{log: log})
}

func postLogin(h http.Handler, pass, realIP string) int {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, testEmail, pass)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.RemoteAddr = "198.51.100.10:40000"
	r.Header.Set("X-Real-IP", realIP)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w.Code
}

func TestLoginQuota_IgnoresSpoofedRealIP(t *testing.T) {
	h := newTestRouter(t, false)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, postLogin(h, "wrong", fmt.Sprintf("203.0.113.%d", i+1)))
	}

	assert.Equal(t, http.StatusTooManyRequests, postLogin(h, "wrong", "203.0.113.99"))
	assert.Equal(t, http.StatusTooManyRequests, postLogin(h, testPassword, "203.0.113.100"))
}

func TestLoginQuota_TrustedProxyKeysOnRealIP(t *testing.T) {
	h := newTestRouter(t, true)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, postLogin(h, "wrong", "203.0.113.1"))
	}

	assert.Equal(t, http.StatusTooManyRequests, postLogin(h, "wrong", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, postLogin(h, testPassword, "203.0.113.2"))
}
