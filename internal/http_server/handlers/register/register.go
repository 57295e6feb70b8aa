package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"webmail_auth/internal/auth"
	resp "webmail_auth/internal/lib/api/response"
	sl "webmail_auth/internal/lib/logger/sl"
	"webmail_auth/internal/lib/validate"
	"webmail_auth/internal/lib/verification"

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
	UserID int64 `json:"user_id"`
}

type UserRegistrar interface {
	RegisterNewUser(ctx context.Context, email string, pass string) (int64, error)
}

// Mail carries what the verification link needs.
type Mail struct {
	Publisher   verification.Publisher
	TokenTTL    time.Duration
	TokenSecret string
	PublicURL   string
}

func New(
	log *slog.Logger,
	v *validator.Validate,
	registrar UserRegistrar,
	mail Mail,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		// Credentials are stored as sent; input the sanitizer would alter is refused.
		if validate.SanitizeInput(req.Email) != req.Email {
			log.Info("Email contains markup")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("field Email is not a valid email"))

			return
		}

		email := req.Email

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := registrar.RegisterNewUser(ctx, email, req.Pass)
		if err != nil {
			var weak *auth.WeakPasswordError

			switch {
			case errors.As(err, &weak):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ErrorList("Password is too weak", weak.Violations))
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("User already exists"))
			default:
				log.Error("failed to register user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User registered", slog.Int64("id", userID))

		// The account exists either way; the link can be requested again.
		err = verification.VerifyUserEmail(
			ctx,
			log,
			mail.Publisher,
			mail.TokenTTL,
			mail.TokenSecret,
			userID,
			mail.PublicURL,
			email,
		)
		if err != nil {
			log.Error("Failed to send verification email", sl.Err(err))
		}

		render.Status(r, http.StatusCreated)
		ResponseOK(w, r, userID)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, userID int64) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		UserID:   userID,
	})
}
