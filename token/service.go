package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/gitstats/backend/models"
)

const (
	// MinKeyLength is the minimum HS256 signing key length in bytes
	MinKeyLength = 32

	// DefaultTTL is used when Config.TTL is not set
	DefaultTTL = 24 * time.Hour

	// DefaultIssuer is used when Config.Issuer is not set
	DefaultIssuer = "gitstats-backend"
)

// Config holds configuration for Service
type Config struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
}

// Service mints and verifies identity tokens. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	key    []byte
	ttl    time.Duration
	issuer string
	sealer *sealer
	parser *jwt.Parser
}

// NewService creates a token service. A missing or short signing key is a
// configuration error and fails with ErrSigningKeyMisconfigured.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: no signing key configured", ErrSigningKeyMisconfigured)
	}
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("%w: key must be at least %d bytes, got %d",
			ErrSigningKeyMisconfigured, MinKeyLength, len(cfg.SigningKey))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	s, err := newSealer(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningKeyMisconfigured, err)
	}

	return &Service{
		key:    key,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		sealer: s,
		// Expiry is checked against the caller's clock in verify, after the
		// signature, so the parser's own claim validation is disabled.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the lifetime of minted tokens
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Mint signs a new identity token for p, valid from issuedAt for the
// configured TTL.
func (s *Service) Mint(p models.Principal, issuedAt time.Time) (string, error) {
	if p.Login == "" {
		return "", ErrMissingSubject
	}

	iat := jwt.NewNumericDate(issuedAt)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Login,
			Issuer:    s.issuer,
			IssuedAt:  iat,
			ExpiresAt: jwt.NewNumericDate(expiry(issuedAt, s.ttl)),
		},
		Login:     p.Login,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
	if p.ProviderToken != "" {
		claims.Credential = s.sealer.seal(p.ProviderToken, p.Login, iat.Unix())
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningKeyMisconfigured, err)
	}
	return signed, nil
}

// expiry rounds issuedAt+ttl up to the whole second. NumericDate drops
// fractional seconds, so truncating here would end the token early.
func expiry(issuedAt time.Time, ttl time.Duration) time.Time {
	exp := issuedAt.Add(ttl)
	if whole := exp.Truncate(time.Second); !whole.Equal(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

// Verify checks the token's structure, signature and expiry, in that order,
// and rebuilds the Principal it was minted for. Failures are
// *VerificationError values matching ErrTokenMalformed,
// ErrTokenSignatureInvalid or ErrTokenExpired.
func (s *Service) Verify(tokenString string, now time.Time) (*models.Principal, error) {
	v, err := s.verify(tokenString, now)
	if err != nil {
		return nil, err
	}
	return &models.Principal{
		Login:         v.claims.Login,
		Name:          v.claims.Name,
		AvatarURL:     v.claims.AvatarURL,
		ProviderToken: v.credential,
	}, nil
}

// ExtractClaim projects a value out of a verified token. It fails exactly
// when Verify fails.
func ExtractClaim[T any](s *Service, tokenString string, now time.Time, selector func(*Claims) T) (T, error) {
	var zero T
	v, err := s.verify(tokenString, now)
	if err != nil {
		return zero, err
	}
	return selector(v.claims), nil
}

// Subject returns the login a verified token was minted for
func (s *Service) Subject(tokenString string, now time.Time) (string, error) {
	return ExtractClaim(s, tokenString, now, func(c *Claims) string { return c.Subject })
}

type verified struct {
	claims     *Claims
	credential string
}

func (s *Service) verify(tokenString string, now time.Time) (*verified, error) {
	// Cheap shape check before any decoding or HMAC work
	if tokenString == "" || strings.Count(tokenString, ".") != 2 {
		return nil, malformed(errors.New("token must have three segments"))
	}

	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc); err != nil {
		return nil, s.classify(tokenString, err)
	}

	if claims.Subject == "" || claims.Login != claims.Subject {
		return nil, malformed(errors.New("subject and login claims missing or inconsistent"))
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, malformed(errors.New("iat and exp claims are required"))
	}

	if !now.Before(claims.ExpiresAt.Time) {
		return nil, expired(fmt.Errorf("expired at %s", claims.ExpiresAt.Time.UTC().Format(time.RFC3339)))
	}

	var credential string
	if claims.Credential != "" {
		c, err := s.sealer.open(claims.Credential, claims.Subject, claims.IssuedAt.Unix())
		if err != nil {
			return nil, signatureInvalid(err)
		}
		credential = c
	}

	return &verified{claims: claims, credential: credential}, nil
}

func (s *Service) keyFunc(*jwt.Token) (interface{}, error) {
	return s.key, nil
}

// classify maps parser errors onto the three verification failure kinds
func (s *Service) classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return signatureInvalid(err)
	case errors.Is(err, jwt.ErrTokenMalformed) && s.onlySignatureUndecodable(tokenString):
		return signatureInvalid(err)
	default:
		return malformed(err)
	}
}

// onlySignatureUndecodable reports whether the header and payload parse but
// the signature segment is not canonical base64url.
func (s *Service) onlySignatureUndecodable(tokenString string) bool {
	cut := strings.LastIndex(tokenString, ".")
	if _, err := s.parser.DecodeSegment(tokenString[cut+1:]); err == nil {
		return false
	}
	_, _, err := s.parser.ParseUnverified(tokenString[:cut+1], &Claims{})
	return err == nil
}
