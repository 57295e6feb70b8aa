package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"webmail_auth/internal/lib/jwt"
	sl "webmail_auth/internal/lib/logger/sl"
	"webmail_auth/internal/lib/validate"
	"webmail_auth/internal/lib/verification"
	"webmail_auth/internal/models"
	"webmail_auth/internal/ratelimit"
	"webmail_auth/internal/session"
	"webmail_auth/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrWeakPassword       = errors.New("password is too weak")
)

// RateLimitError is returned by Login once the attempt quota for the
// client and account is spent.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrTooManyAttempts, e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// WeakPasswordError lists every strength rule the password broke.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash string) (uid int64, err error)
	SetEmailVerified(ctx context.Context, uid int64) error
	UpdatePasswordHash(ctx context.Context, uid int64, passHash string) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	NeedsRehash(digest string) bool
}

type RateLimiter interface {
	Check(key string) ratelimit.Result
	Reset(key string)
}

type SessionStore interface {
	Create(id string, userID int64, email string)
	Get(id string) (session.Identity, bool)
	Destroy(id string)
}

// Session is what a successful login hands back to the client.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	UserID    int64
	Email     string
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	hasher      Hasher
	limiter     RateLimiter
	sessions    SessionStore
	tokenSecret []byte
	tokenTTL    time.Duration
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*Auth)

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	hasher Hasher,
	limiter RateLimiter,
	sessions SessionStore,
	tokenSecret string,
	tokenTTL time.Duration,
	opts ...Option,
) *Auth {
	if tokenTTL <= 0 {
		tokenTTL = jwt.DefaultTTL
	}

	a := &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		hasher:      hasher,
		limiter:     limiter,
		sessions:    sessions,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LimiterKey is the rate-limit key for a login by clientKey against email.
func LimiterKey(clientKey, email string) string {
	return clientKey + "|" + normalizeEmail(email)
}

// Login checks credentials and opens a session. Unknown accounts and wrong
// passwords both yield ErrInvalidCredentials.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
	clientKey string,
) (Session, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	email = normalizeEmail(email)
	key := LimiterKey(clientKey, email)

	quota := a.limiter.Check(key)
	if !quota.Allowed {
		log.Warn("login rate limit exceeded", slog.String("key", key))

		return Session{}, &RateLimitError{ResetAt: quota.ResetAt}
	}

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			a.hasher.Verify(password, a.dummyDigest())
			log.Info("user not found")

			return Session{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))

		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(password, user.PassHash) {
		log.Info("invalid credentials", slog.Int64("uid", user.ID), slog.Int("remaining", quota.Remaining))

		return Session{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return Session{}, ErrEmailNotVerified
	}

	now := a.now()

	token, err := jwt.NewToken(strconv.FormatInt(user.ID, 10), user.Email, a.tokenSecret, a.tokenTTL, now)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	sid := session.NewID()
	a.sessions.Create(sid, user.ID, user.Email)
	a.limiter.Reset(key)

	if a.hasher.NeedsRehash(user.PassHash) {
		a.rehash(ctx, log, user.ID, password)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return Session{
		ID:        sid,
		Token:     token,
		ExpiresAt: now.Add(a.tokenTTL),
		UserID:    user.ID,
		Email:     user.Email,
	}, nil
}

// rehash upgrades a stored digest. Failures leave the old digest in place.
func (a *Auth) rehash(ctx context.Context, log *slog.Logger, uid int64, password string) {
	digest, err := a.hasher.Hash(password)
	if err != nil {
		log.Error("failed to rehash password", sl.Err(err))
		return
	}

	if err := a.usrSaver.UpdatePasswordHash(ctx, uid, digest); err != nil {
		log.Error("failed to store upgraded password hash", sl.Err(err))
		return
	}

	log.Info("password hash upgraded", slog.Int64("uid", uid))
}

// fallbackDummyDigest is a well-formed argon2id digest at the default cost,
// used when the dummy digest cannot be derived.
const fallbackDummyDigest = "$argon2id$v=19$m=65536,t=3,p=2$" +
	"AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// dummyDigest is verified against on unknown accounts so they cost as much
// as a wrong password.
func (a *Auth) dummyDigest() string {
	a.dummyOnce.Do(func() {
		digest, err := a.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			a.log.Error("failed to derive dummy digest, using fallback",
				slog.String("op", "auth.dummyDigest"), sl.Err(err))

			digest = fallbackDummyDigest
		}

		a.dummyHash = digest
	})

	return a.dummyHash
}

func (a *Auth) RegisterNewUser(
	ctx context.Context,
	email string,
	pass string,
) (int64, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("registering new user")

	if res := validate.ValidatePasswordStrength(pass); !res.Valid {
		return 0, &WeakPasswordError{Violations: res.Errors}
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, normalizeEmail(email), passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (a *Auth) Authenticate(token string) (session.Identity, error) {
	claims, err := jwt.ParseToken(token, a.tokenSecret, a.now())
	if err != nil {
		return session.Identity{}, err
	}

	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return session.Identity{}, jwt.ErrTokenInvalid
	}

	return session.Identity{UserID: uid, Email: claims.Email}, nil
}

func (a *Auth) SessionIdentity(sessionID string) (session.Identity, bool) {
	return a.sessions.Get(sessionID)
}

// Refresh trades a still-valid token for one with a fresh expiry.
func (a *Auth) Refresh(
	ctx context.Context,
	token string,
) (string, time.Time, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	identity, err := a.Authenticate(token)
	if err != nil {
		log.Info("refresh with unusable token", sl.Err(err))

		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrProvider.UserByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to load user", sl.Err(err))

		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()

	newToken, err := jwt.NewToken(strconv.FormatInt(user.ID, 10), user.Email, a.tokenSecret, a.tokenTTL, now)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return newToken, now.Add(a.tokenTTL), nil
}

func (a *Auth) VerifyUser(
	ctx context.Context,
	verificationToken string,
	verificationTokenSecret string,
) (int64, error) {
	const op = "auth.VerifyUser"

	log := a.log.With(
		slog.String("op", op),
	)

	userID, err := verification.ParseVerificationToken(verificationToken, verificationTokenSecret, a.now())
	if err != nil {
		log.Info("failed to parse verification token", sl.Err(err))

		return 0, err
	}

	if err = a.usrSaver.SetEmailVerified(ctx, userID); err != nil {
		log.Error("failed to update verification status", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

func (a *Auth) CheckUserVerification(
	ctx context.Context,
	email string,
) (int64, bool, error) {
	const op = "auth.CheckUserVerification"

	user, err := a.usrProvider.User(ctx, normalizeEmail(email))
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return user.ID, user.IsVerified, nil
}

func (a *Auth) Logout(sessionID string) {
	const op = "auth.Logout"

	a.sessions.Destroy(sessionID)

	a.log.Info("logout successful", slog.String("op", op))
}
