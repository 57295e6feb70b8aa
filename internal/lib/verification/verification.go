package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"webmail_auth/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired verification token")

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type verificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// VerifyUserEmail publishes a message carrying a link to baseURL/verify.
func VerifyUserEmail(
	ctx context.Context,
	log *slog.Logger,
	pub Publisher,
	tokenTTL time.Duration,
	tokenSecret string,
	userID int64,
	baseURL, email string,
) error {
	const op = "verification.VerifyUserEmail"

	token, err := NewVerificationToken(userID, tokenTTL, tokenSecret, time.Now())
	if err != nil {
		log.Error("failed to generate token", slog.Any("err", err))

		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		Email:   email,
		Link:    fmt.Sprintf("%s/verify?token=%s", baseURL, url.QueryEscape(token)),
		Purpose: models.PurposeEmailVerification,
	}

	if err := pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send verification link", slog.Any("err", err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func NewVerificationToken(userID int64, tokenTTL time.Duration, secret string, now time.Time) (string, error) {
	claims := verificationClaims{
		Purpose: models.PurposeEmailVerification,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

func ParseVerificationToken(tokenStr, secret string, now time.Time) (int64, error) {
	const op = "verification.ParseVerificationToken"

	claims := &verificationClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if claims.Purpose != models.PurposeEmailVerification {
		return 0, fmt.Errorf("%s: %w: wrong purpose", op, ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	return userID, nil
}
