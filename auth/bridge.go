package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// TokenQueryParam carries the identity token on the redirect to the frontend
const TokenQueryParam = "token"

// ErrorQueryParam carries a provider error code on the redirect to the frontend
const ErrorQueryParam = "error"

// ErrIdentityExtraction is returned when the provider attributes carry no
// usable login.
var ErrIdentityExtraction = errors.New("auth: failed to extract user identity")

// TokenMinter signs identity tokens for authenticated principals.
type TokenMinter interface {
	Mint(p models.Principal, issuedAt time.Time) (string, error)
}

// Bridge turns a completed GitHub login into an identity token and hands it
// to the frontend.
type Bridge struct {
	minter   TokenMinter
	frontend *url.URL
	logger   *zap.Logger
	now      func() time.Time
}

// NewBridge creates a bridge redirecting to frontendURL, which must be absolute.
func NewBridge(minter TokenMinter, frontendURL string, logger *zap.Logger) (*Bridge, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return nil, fmt.Errorf("parse frontend url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("frontend url %q must be absolute", frontendURL)
	}
	return &Bridge{
		minter:   minter,
		frontend: u,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithClock overrides the issue time source
func (b *Bridge) WithClock(now func() time.Time) *Bridge {
	b.now = now
	return b
}

// Principal validates attrs and builds the principal they describe.
func (b *Bridge) Principal(attrs models.ProviderAttributes, providerToken string) (models.Principal, error) {
	if err := utils.ValidateStruct(attrs); err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrIdentityExtraction, err)
	}
	return models.NewPrincipal(attrs, providerToken), nil
}

// RedirectURL returns the frontend URL with the token appended. Query
// parameters already on the frontend URL are kept.
func (b *Bridge) RedirectURL(token string) string {
	return b.withParam(TokenQueryParam, token)
}

// Complete mints a token for the authenticated user and redirects the browser
// to the frontend with it. It writes a 500 when no identity can be extracted.
func (b *Bridge) Complete(w http.ResponseWriter, r *http.Request, attrs models.ProviderAttributes, providerToken string) {
	principal, err := b.Principal(attrs, providerToken)
	if err != nil {
		b.logger.Error("identity extraction failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to extract user identity")
		return
	}

	signed, err := b.minter.Mint(principal, b.now())
	if err != nil {
		b.logger.Error("failed to mint identity token",
			zap.String("login", principal.Login),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to issue identity token")
		return
	}

	b.logger.Info("login completed", zap.String("login", principal.Login))
	http.Redirect(w, r, b.RedirectURL(signed), http.StatusFound)
}

// Fail sends the browser back to the frontend with the provider's error code.
func (b *Bridge) Fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, b.withParam(ErrorQueryParam, code), http.StatusFound)
}

func (b *Bridge) withParam(key, value string) string {
	u := *b.frontend
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
