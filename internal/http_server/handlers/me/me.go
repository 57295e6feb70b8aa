package me

import (
	"net/http"

	"webmail_auth/internal/http_server/middleware/authn"
	resp "webmail_auth/internal/lib/api/response"

	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// New reports the identity resolved by the authn middleware.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := authn.IdentityFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			UserID:   id.UserID,
			Email:    id.Email,
		})
	}
}
