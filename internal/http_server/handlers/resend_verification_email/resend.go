package resendEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"webmail_auth/internal/http_server/handlers/register"
	resp "webmail_auth/internal/lib/api/response"
	sl "webmail_auth/internal/lib/logger/sl"
	"webmail_auth/internal/lib/verification"
	"webmail_auth/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,webmail_email"`
}

type Response struct {
	resp.Response
}

type VerificationChecker interface {
	CheckUserVerification(ctx context.Context, email string) (int64, bool, error)
}

// New answers OK for unknown and already verified addresses alike so the
// route does not reveal which accounts exist.
func New(
	log *slog.Logger,
	v *validator.Validate,
	checker VerificationChecker,
	mail register.Mail,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendVerificationEmail.New"

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

		if err := v.Struct(req); err != nil {
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

		userID, isVerified, err := checker.CheckUserVerification(ctx, req.Email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				log.Info("resend for unknown address")

				ResponseOK(w, r)

				return
			}

			log.Error("failed to check user verification", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if !isVerified {
			err = verification.VerifyUserEmail(
				ctx,
				log,
				mail.Publisher,
				mail.TokenTTL,
				mail.TokenSecret,
				userID,
				mail.PublicURL,
				req.Email,
			)
			if err != nil {
				log.Error("Failed to send verification email", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))

				return
			}

			log.Info("Verification email resent", slog.Int64("uid", userID))
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
