// Package authn resolves the caller's identity from a bearer token or the
// session cookie and stores it in the request context.
package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "webmail_auth/internal/lib/api/response"
	"webmail_auth/internal/session"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type Authenticator interface {
	Authenticate(token string) (session.Identity, error)
	SessionIdentity(sessionID string) (session.Identity, bool)
}

type Cookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func New(log *slog.Logger, a Authenticator, cookie Cookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			if token, ok := BearerToken(r); ok {
				identity, err := a.Authenticate(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
					return
				}

				log.Debug("bearer token rejected",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("reason", err.Error()),
				)
			} else if sid := SessionID(r, cookie.Name); sid != "" {
				if identity, ok := a.SessionIdentity(sid); ok {
					// Get slid the idle window; move the cookie expiry with it.
					SetSessionCookie(w, cookie, sid)
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
					return
				}
			}

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))
		}

		return http.HandlerFunc(fn)
	}
}

func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(session.Identity)
	return id, ok
}

func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	return token, token != ""
}

func SessionID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}

func SetSessionCookie(w http.ResponseWriter, cookie Cookie, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, cookie Cookie) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
