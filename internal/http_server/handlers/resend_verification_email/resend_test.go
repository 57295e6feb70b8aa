package resendEmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"webmail_auth/internal/http_server/handlers/register"
	"webmail_auth/internal/lib/validate"
	"webmail_auth/internal/models"
	"webmail_auth/internal/storage"
)

type stubChecker struct {
	id       int64
	verified bool
	err      error
}

func (s stubChecker) CheckUserVerification(context.Context, string) (int64, bool, error) {
	return s.id, s.verified, s.err
}

type recordingPublisher struct {
	msgs []models.Message
	err  error
}

func (p *recordingPublisher) SendMessage(_ context.Context, msg models.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestResend(t *testing.T) {
	tests := []struct {
		name     string
		checker  stubChecker
		pubErr   error
		body     string
		wantCode int
		wantSent int
	}{
		{name: "unverified", checker: stubChecker{id: 1}, wantCode: http.StatusOK, wantSent: 1},
		{name: "already verified", checker: stubChecker{id: 1, verified: true}, wantCode: http.StatusOK},
		{name: "unknown address", checker: stubChecker{err: fmt.Errorf("x: %w", storage.ErrUserNotFound)}, wantCode: http.StatusOK},
		{name: "storage", checker: stubChecker{err: errors.New("db down")}, wantCode: http.StatusInternalServerError},
		{name: "publish fails", checker: stubChecker{id: 1}, pubErr: errors.New("broker down"), wantCode: http.StatusInternalServerError},
		{name: "bad email", checker: stubChecker{id: 1}, body: `{"email":"nope"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{err: tt.pubErr}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), validate.New(), tt.checker, register.Mail{
				Publisher:   pub,
				TokenTTL:    time.Hour,
				TokenSecret: "verify-secret",
				PublicURL:   "http://mail.local",
			})

			body := tt.body
			if body == "" {
				body = `{"email":"carol@example.com"}`
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify/resend", strings.NewReader(body)))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Len(t, pub.msgs, tt.wantSent)
		})
	}
}
