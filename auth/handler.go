package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/gitstats/backend/config"
	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName = "oauth_state"
	// VerifierCookieName is the cookie name for the PKCE code verifier
	VerifierCookieName  = "oauth_verifier"
	stateCookieMaxAge   = 600
	handshakeCookiePath = "/login/oauth2/code/github"
)

// CodeExchanger drives the provider side of the authorization code flow.
// *oauth2.Config satisfies it.
type CodeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// AttributesFetcher loads the signed-in user's attributes with a fresh access token.
type AttributesFetcher interface {
	GetProviderAttributes(ctx context.Context, accessToken string) (models.ProviderAttributes, error)
}

// NewOAuthConfig builds the GitHub OAuth2 client config, or nil when no
// client credentials are configured.
func NewOAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GitHub.OAuthConfigured() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  cfg.GitHub.RedirectURI,
		Scopes:       cfg.GitHub.Scopes,
	}
}

// Handler handles the GitHub OAuth2 login flow (authorize + callback).
type Handler struct {
	cfg       *config.Config
	exchanger CodeExchanger
	fetcher   AttributesFetcher
	bridge    *Bridge
	logger    *zap.Logger
}

// NewHandler creates a new auth handler. A nil exchanger means login is not configured.
func NewHandler(cfg *config.Config, exchanger CodeExchanger, fetcher AttributesFetcher, bridge *Bridge, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		fetcher:   fetcher,
		bridge:    bridge,
		logger:    logger,
	}
}

// HandleLogin redirects to GitHub's authorization page
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.exchanger == nil {
		h.logger.Error("github oauth not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	// Lax, not Strict: the callback arrives as a cross-site top-level redirect from GitHub.
	h.setCookie(w, StateCookieName, state, stateCookieMaxAge)
	h.setCookie(w, VerifierCookieName, verifier, stateCookieMaxAge)

	authURL := h.exchanger.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback exchanges the authorization code, loads the user's GitHub
// attributes and completes the login through the bridge.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("github authorization denied",
			zap.String("error", providerErr),
			zap.String("description", query.Get("error_description")))
		h.clearCookies(w)
		h.bridge.Fail(w, r, providerErr)
		return
	}

	code := query.Get("code")
	state := query.Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}
	verifierCookie, err := r.Cookie(VerifierCookieName)
	if err != nil || verifierCookie.Value == "" {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}

	h.clearCookies(w)

	if h.exchanger == nil || h.fetcher == nil {
		h.logger.Error("github oauth not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	tok, err := h.exchanger.Exchange(r.Context(), code, oauth2.VerifierOption(verifierCookie.Value))
	if err != nil {
		h.logger.Warn("authorization code exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	attrs, err := h.fetcher.GetProviderAttributes(r.Context(), tok.AccessToken)
	if err != nil {
		h.logger.Error("failed to load github user", zap.Error(err))
		_ = utils.WriteBadGateway(w, "Failed to load GitHub user")
		return
	}

	h.bridge.Complete(w, r, attrs, tok.AccessToken)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     handshakeCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.GitHub.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookies(w http.ResponseWriter) {
	h.setCookie(w, StateCookieName, "", -1)
	h.setCookie(w, VerifierCookieName, "", -1)
}
