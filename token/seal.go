package token

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "gitstats/identity-token/credential/v1"

// sealer encrypts the GitHub access token carried inside identity tokens.
// JWT payloads are only signed, so the credential must not travel in clear.
//
// The nonce is synthetic: an HMAC over the associated data and plaintext.
// Minting therefore stays deterministic for a fixed key, principal and clock.
type sealer struct {
	aead     cipher.AEAD
	nonceKey []byte
}

func newSealer(signingKey []byte) (*sealer, error) {
	kdf := hkdf.New(sha256.New, signingKey, nil, []byte(sealInfo))

	encKey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, encKey); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	nonceKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, nonceKey); err != nil {
		return nil, fmt.Errorf("derive nonce key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	return &sealer{aead: aead, nonceKey: nonceKey}, nil
}

// seal binds the credential to the token's subject and issue time
func (s *sealer) seal(plaintext, subject string, issuedAt int64) string {
	ad := associatedData(subject, issuedAt)

	mac := hmac.New(sha256.New, s.nonceKey)
	mac.Write(ad)
	mac.Write([]byte(plaintext))
	nonce := mac.Sum(nil)[:chacha20poly1305.NonceSizeX]

	// [nonce][ciphertext+tag]
	out := s.aead.Seal(append([]byte(nil), nonce...), nonce, []byte(plaintext), ad)
	return base64.RawURLEncoding.EncodeToString(out)
}

func (s *sealer) open(sealed, subject string, issuedAt int64) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX+s.aead.Overhead() {
		return "", fmt.Errorf("credential too short")
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, associatedData(subject, issuedAt))
	if err != nil {
		return "", fmt.Errorf("open credential: %w", err)
	}
	return string(plaintext), nil
}

func associatedData(subject string, issuedAt int64) []byte {
	ad := make([]byte, 8, 8+len(subject))
	binary.BigEndian.PutUint64(ad, uint64(issuedAt))
	return append(ad, subject...)
}
