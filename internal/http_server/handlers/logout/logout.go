package logout

import (
	"log/slog"
	"net/http"

	"webmail_auth/internal/http_server/middleware/authn"
	resp "webmail_auth/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type SessionCloser interface {
	Logout(sessionID string)
}

// New ends the cookie's session. Logging out without a session succeeds.
func New(
	log *slog.Logger,
	closer SessionCloser,
	cookie authn.Cookie,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if sid := authn.SessionID(r, cookie.Name); sid != "" {
			closer.Logout(sid)

			log.Info("session closed")
		}

		authn.ClearSessionCookie(w, cookie)

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
