package models

// Principal is the authenticated GitHub identity for one request or one token.
// It is never persisted; it is rebuilt from provider attributes at login and
// from token claims on every request.
type Principal struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`

	// ProviderToken is the GitHub access token recovered from the identity
	// token. It never leaves the process.
	ProviderToken string `json:"-"`
}

// NewPrincipal creates a Principal from validated provider attributes
func NewPrincipal(attrs ProviderAttributes, providerToken string) Principal {
	return Principal{
		Login:         attrs.Login,
		Name:          attrs.Name,
		AvatarURL:     attrs.AvatarURL,
		ProviderToken: providerToken,
	}
}

// HasProviderToken returns true if the principal can call GitHub on its own behalf
func (p Principal) HasProviderToken() bool {
	return p.ProviderToken != ""
}

// ProviderAttributes are the user attributes GitHub returns once the OAuth2
// handshake has completed. Only these fields cross into the bridge.
type ProviderAttributes struct {
	Login     string `json:"login" validate:"required"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}
