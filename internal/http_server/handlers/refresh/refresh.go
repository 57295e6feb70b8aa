package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"webmail_auth/internal/auth"
	"webmail_auth/internal/http_server/middleware/authn"
	resp "webmail_auth/internal/lib/api/response"
	"webmail_auth/internal/lib/jwt"
	sl "webmail_auth/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type TokenRefresher interface {
	Refresh(ctx context.Context, token string) (string, time.Time, error)
}

// New exchanges the bearer token for one with a fresh expiry.
func New(
	log *slog.Logger,
	refresher TokenRefresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token, ok := authn.BearerToken(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Missing bearer token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		newToken, expiresAt, err := refresher.Refresh(ctx, token)
		if err != nil {
			if isUnauthorized(err) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid credentials"))

				return
			}

			log.Error("failed to refresh token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Token refreshed successfully")

		ResponseOK(w, r, newToken, expiresAt)
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenInvalid) ||
		errors.Is(err, jwt.ErrTokenMalformed)
}

func ResponseOK(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	render.JSON(w, r, Response{
		Response:    resp.OK(),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}
