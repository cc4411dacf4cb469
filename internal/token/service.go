package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/theodoreromeos/account-management/internal/obs"
)

const defaultTTL = 24 * time.Hour

// Claims is the signed payload of a verification token. The registered ID
// claim carries the jti, Subject the profile id the token authorizes.
type Claims struct {
	TokenID      int64   `json:"tid"`
	Email        string  `json:"email"`
	Organization string  `json:"organization,omitempty"`
	Purpose      Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// IssueParams describe one token issuance.
type IssueParams struct {
	SubjectID    string
	Email        string
	Organization string
	Purpose      Purpose
}

// Service mints and verifies tokens using HS256 over a shared secret.
type Service struct {
	store  Store
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service) error

// WithTTL overrides the default 24h token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithIssuer sets the issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service with optional configuration.
func NewService(store Store, signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("token: signing key is required")
	}
	svc := &Service{
		store: store,
		key:   signingKey,
		ttl:   defaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Issue inserts a fresh PENDING verification row and returns the signed
// compact token bound to it.
func (s *Service) Issue(ctx context.Context, p IssueParams) (string, error) {
	if p.SubjectID == "" || p.Email == "" || p.Purpose == "" {
		return "", errors.New("token: subject, email and purpose are required")
	}
	now := s.now().UTC()
	rec := &VerificationToken{
		JTI:       uuid.NewString(),
		SubjectID: p.SubjectID,
		Status:    StatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("create verification token: %w", err)
	}

	claims := Claims{
		TokenID:      rec.ID,
		Email:        p.Email,
		Organization: p.Organization,
		Purpose:      p.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.JTI,
			Subject:   p.SubjectID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign verification token: %w", err)
	}
	obs.TokensIssuedTotal.WithLabelValues(string(p.Purpose)).Inc()
	return signed, nil
}

// Redemption is a verified token together with its backing row. The caller
// must invoke MarkUsed only after the whole confirmation operation succeeds;
// until then the row stays PENDING and redemption can be retried.
type Redemption struct {
	Claims *Claims
	Record *VerificationToken
}

// Verify validates signature and expiry cryptographically, then checks the
// backing row: it must exist, carry the same jti, and still be PENDING. The
// purpose claim must match the endpoint's expected purpose.
func (s *Service) Verify(ctx context.Context, raw string, purpose Purpose) (*Redemption, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, s.reject(purpose, ErrTokenExpired)
		}
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	if claims.Purpose != purpose {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, s.reject(purpose, ErrInvalidToken)
	}

	rec, err := s.store.Find(ctx, claims.TokenID)
	if err != nil {
		// A missing row means a forged or purged token; anything else is a
		// store failure and must not masquerade as a bad token.
		if errors.Is(err, ErrInvalidToken) {
			return nil, s.reject(purpose, ErrInvalidToken)
		}
		return nil, fmt.Errorf("token: find record: %w", err)
	}
	// The jti comparison defends against a guessed or reused surrogate id.
	if rec.JTI != claims.ID || rec.SubjectID != claims.Subject {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	if rec.Status != StatusPending {
		return nil, s.reject(purpose, ErrInvalidToken)
	}
	obs.TokensRedeemedTotal.WithLabelValues(string(purpose), "valid").Inc()
	return &Redemption{Claims: claims, Record: rec}, nil
}

// MarkUsed consumes the backing row once the confirmation operation that
// redeemed the token has fully succeeded.
func (s *Service) MarkUsed(ctx context.Context, id int64) error {
	return s.store.MarkUsed(ctx, id)
}

func (s *Service) reject(purpose Purpose, err error) error {
	obs.TokensRedeemedTotal.WithLabelValues(string(purpose), "rejected").Inc()
	return err
}
