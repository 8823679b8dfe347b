// Package session issues the anonymous, signed sessions reviewers act under.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session errors.
var (
	ErrInvalidToken = errors.New("session token invalid")
	ErrExpiredToken = errors.New("session token expired")
	ErrNoSecret     = errors.New("session secret not configured")
)

const (
	defaultIssuer = "recruiter-scoop"
	defaultTTL    = 30 * 24 * time.Hour
)

// Session identifies the author of a review and the device it came from.
type Session struct {
	AuthorID    string    `json:"author_id"`
	Fingerprint string    `json:"fingerprint"`
	Anonymous   bool      `json:"anonymous"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims is the signed token body.
type Claims struct {
	Fingerprint string `json:"fp"`
	Anonymous   bool   `json:"anon"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens (HS256).
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option applies a configuration option to the Issuer.
type Option func(*Issuer)

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuerName sets the iss claim written and required.
func WithIssuerName(name string) Option {
	return func(i *Issuer) {
		if name != "" {
			i.issuer = name
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates an Issuer signing with secret.
func NewIssuer(secret string, opts ...Option) *Issuer {
	i := &Issuer{
		secret: []byte(secret),
		ttl:    defaultTTL,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start opens a session. A valid custom token keeps its author id; a missing
// or unusable one falls back to a fresh anonymous author.
func (i *Issuer) Start(_ context.Context, customToken, fingerprint string) (Session, string, error) {
	if len(i.secret) == 0 {
		return Session{}, "", ErrNoSecret
	}
	authorID := ""
	anonymous := true
	if strings.TrimSpace(customToken) != "" {
		if prev, err := i.Parse(customToken); err == nil {
			authorID = prev.AuthorID
			anonymous = prev.Anonymous
		}
	}
	if authorID == "" {
		authorID = uuid.NewString()
		anonymous = true
	}
	return i.Mint(authorID, fingerprint, anonymous)
}

// Mint signs a session for authorID.
func (i *Issuer) Mint(authorID, fingerprint string, anonymous bool) (Session, string, error) {
	if len(i.secret) == 0 {
		return Session{}, "", ErrNoSecret
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		Fingerprint: fingerprint,
		Anonymous:   anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   authorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Session{}, "", err
	}
	return Session{
		AuthorID:    authorID,
		Fingerprint: fingerprint,
		Anonymous:   anonymous,
		ExpiresAt:   exp.Truncate(time.Second),
	}, signed, nil
}

// Parse verifies a token and returns its session.
func (i *Issuer) Parse(token string) (Session, error) {
	if len(i.secret) == 0 {
		return Session{}, ErrNoSecret
	}
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrInvalidToken
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrExpiredToken
		}
		return Session{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{
		AuthorID:    claims.Subject,
		Fingerprint: claims.Fingerprint,
		Anonymous:   claims.Anonymous,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
