package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an identity token. It carries everything needed to
// rebuild a Principal without calling GitHub again.
type Claims struct {
	jwt.RegisteredClaims
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// Credential is the sealed GitHub access token (see sealer)
	Credential string `json:"ghc,omitempty"`
}
