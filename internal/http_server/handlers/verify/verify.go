package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "webmail_auth/internal/lib/api/response"
	sl "webmail_auth/internal/lib/logger/sl"
	"webmail_auth/internal/lib/verification"
	"webmail_auth/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type UserVerifier interface {
	VerifyUser(ctx context.Context, verificationToken string, verificationTokenSecret string) (int64, error)
}

func New(
	log *slog.Logger,
	verifier UserVerifier,
	tokenSecret string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing verification token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := verifier.VerifyUser(ctx, token, tokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, verification.ErrInvalidToken), errors.Is(err, storage.ErrUserNotFound):
				log.Warn("invalid verification token", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid or expired token"))
			default:
				log.Error("failed to mark user as verified", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("internal error"))
			}

			return
		}

		log.Info("email verified successfully", slog.Int64("uid", userID))

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
