package login

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"webmail_auth/internal/auth"
	"webmail_auth/internal/http_server/middleware/authn"
	rateLimit "webmail_auth/internal/http_server/middleware/ratelimit"
	resp "webmail_auth/internal/lib/api/response"
	sl "webmail_auth/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,webmail_email"`
	Pass  string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken string    `json:"access_token"`
	SessionID   string    `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password, clientKey string) (auth.Session, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService Authenticator,
	cookie authn.Cookie,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid request"))

				return
			}

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sess, err := authService.Login(ctx, req.Email, req.Pass, rateLimit.ClientIP(r))
		if err != nil {
			var limited *auth.RateLimitError

			switch {
			case errors.As(err, &limited):
				w.Header().Set("Retry-After", retryAfter(limited.ResetAt, time.Now()))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error("Too many login attempts"))
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid credentials"))
			case errors.Is(err, auth.ErrEmailNotVerified):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Email is not verified"))
			default:
				log.Error("failed to login user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		authn.SetSessionCookie(w, cookie, sess.ID)

		log.Info("User logged in successfully", slog.Int64("uid", sess.UserID))

		ResponseOK(w, r, sess)
	}
}

// retryAfter renders the whole seconds until resetAt, never less than one.
func retryAfter(resetAt, now time.Time) string {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}

	return strconv.Itoa(secs)
}

func ResponseOK(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	render.JSON(w, r, Response{
		Response:    resp.OK(),
		AccessToken: sess.Token,
		SessionID:   sess.ID,
		ExpiresAt:   sess.ExpiresAt,
	})
}
