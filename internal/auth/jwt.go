package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fmanana/autosense-backend/internal/observability/metrics"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims represents JWT claims used by this service.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the clock used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService constructs a token service. A non-positive ttl selects
// DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject.
func (s *TokenService) Issue(subject string) (string, error) {
	if s == nil {
		return "", errors.New("auth: nil token service")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("auth: empty subject")
	}
	now := s.now()
	claims := Claims{
		ID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	metrics.IncTokenIssued()
	return signed, nil
}

// Verify checks a token, with or without the "Bearer " prefix, and returns
// its subject.
func (s *TokenService) Verify(header string) (string, error) {
	if s == nil {
		return "", errors.New("auth: nil token service")
	}
	token := stripBearer(header)
	if token == "" {
		return "", ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", invalid(err)
	}
	if !parsed.Valid {
		return "", invalid(errors.New("auth: invalid token"))
	}
	if claims.ID == "" {
		return "", invalid(errors.New("auth: missing id claim"))
	}
	return claims.ID, nil
}

func stripBearer(header string) string {
	parts := strings.Fields(header)
	switch {
	case len(parts) == 0:
		return ""
	case strings.EqualFold(parts[0], "Bearer"):
		if len(parts) < 2 {
			return ""
		}
		return parts[1]
	default:
		return parts[0]
	}
}
