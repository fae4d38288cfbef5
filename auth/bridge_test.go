package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/gitstats/backend/models"
	"github.com/upb/gitstats/backend/token"
	"go.uber.org/zap"
)

var loginAt = time.Unix(1_700_000_000, 0)

// MockTokenMinter mocks the token service
type MockTokenMinter struct {
	mock.Mock
}

func (m *MockTokenMinter) Mint(p models.Principal, issuedAt time.Time) (string, error) {
	args := m.Called(p, issuedAt)
	return args.String(0), args.Error(1)
}

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Config{
		SigningKey: []byte("bridge-test-signing-key-32-bytes!!"),
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func newBridge(t *testing.T, minter TokenMinter, frontend string) *Bridge {
	t.Helper()
	b, err := NewBridge(minter, frontend, zap.NewNop())
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return loginAt })
}

func TestNewBridge(t *testing.T) {
	_, err := NewBridge(&MockTokenMinter{}, "/relative", zap.NewNop())
	assert.Error(t, err)

	_, err = NewBridge(&MockTokenMinter{}, "://bad", zap.NewNop())
	assert.Error(t, err)

	_, err = NewBridge(&MockTokenMinter{}, "http://localhost:3000", zap.NewNop())
	assert.NoError(t, err)
}

func TestBridge_CompleteRedirectsWithVerifiableToken(t *testing.T) {
	svc := newTokenService(t)
	bridge := newBridge(t, svc, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/github", nil)
	rec := httptest.NewRecorder()

	bridge.Complete(rec, req, models.ProviderAttributes{Login: "octocat", Name: "The Octocat"}, "gho_secret")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http", loc.Scheme)
	assert.Equal(t, "localhost:3000", loc.Host)

	tok := loc.Query().Get(TokenQueryParam)
	require.NotEmpty(t, tok)

	p, err := svc.Verify(tok, loginAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "octocat", p.Login)
	assert.Equal(t, "The Octocat", p.Name)
	assert.Equal(t, "gho_secret", p.ProviderToken)
	assert.NotContains(t, rec.Header().Get("Location"), "gho_secret")
}

func TestBridge_CompleteKeepsFrontendQuery(t *testing.T) {
	minter := &MockTokenMinter{}
	minter.On("Mint", mock.Anything, loginAt).Return("signed.token.value", nil)
	bridge := newBridge(t, minter, "https://app.example/dashboard?tab=stats")

	rec := httptest.NewRecorder()
	bridge.Complete(rec, httptest.NewRequest(http.MethodGet, "/", nil), models.ProviderAttributes{Login: "octocat"}, "")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", loc.Path)
	assert.Equal(t, "stats", loc.Query().Get("tab"))
	assert.Equal(t, "signed.token.value", loc.Query().Get(TokenQueryParam))
	minter.AssertExpectations(t)
}

func TestBridge_CompleteWithoutLogin(t *testing.T) {
	tests := []struct {
		name  string
		attrs models.ProviderAttributes
	}{
		{"empty attributes", models.ProviderAttributes{}},
		{"name only", models.ProviderAttributes{Name: "The Octocat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minter := &MockTokenMinter{}
			bridge := newBridge(t, minter, "http://localhost:3000")

			rec := httptest.NewRecorder()
			bridge.Complete(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.attrs, "gho_secret")

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Empty(t, rec.Header().Get("Location"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Failed to extract user identity", body["message"])
			minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything)
		})
	}
}

func TestBridge_CompleteKeepsUnusualAvatar(t *testing.T) {
	minter := &MockTokenMinter{}
	minter.On("Mint", mock.MatchedBy(func(p models.Principal) bool {
		return p.Login == "octocat" && p.AvatarURL == "not a url"
	}), mock.Anything).Return("signed.token.value", nil)
	bridge := newBridge(t, minter, "http://localhost:3000")

	rec := httptest.NewRecorder()
	bridge.Complete(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		models.ProviderAttributes{Login: "octocat", AvatarURL: "not a url"}, "gho_secret")

	assert.Equal(t, http.StatusFound, rec.Code)
	minter.AssertExpectations(t)
}

func TestBridge_Principal(t *testing.T) {
	bridge := newBridge(t, &MockTokenMinter{}, "http://localhost:3000")

	_, err := bridge.Principal(models.ProviderAttributes{}, "")
	assert.ErrorIs(t, err, ErrIdentityExtraction)

	p, err := bridge.Principal(models.ProviderAttributes{
		Login:     "octocat",
		AvatarURL: "https://avatars.githubusercontent.com/u/583231",
	}, "gho_x")
	require.NoError(t, err)
	assert.Equal(t, "octocat", p.Login)
	assert.True(t, p.HasProviderToken())
}

func TestBridge_CompleteMintFailure(t *testing.T) {
	minter := &MockTokenMinter{}
	minter.On("Mint", mock.Anything, mock.Anything).Return("", errors.New("boom"))
	bridge := newBridge(t, minter, "http://localhost:3000")

	rec := httptest.NewRecorder()
	bridge.Complete(rec, httptest.NewRequest(http.MethodGet, "/", nil), models.ProviderAttributes{Login: "octocat"}, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestBridge_Fail(t *testing.T) {
	bridge := newBridge(t, &MockTokenMinter{}, "http://localhost:3000/")

	rec := httptest.NewRecorder()
	bridge.Fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), "access_denied")

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "access_denied", loc.Query().Get(ErrorQueryParam))
	assert.Empty(t, loc.Query().Get(TokenQueryParam))
}
