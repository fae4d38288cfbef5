package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Evaluate(t *testing.T) {
	table := MustDefaultTable()

	tests := []struct {
		name     string
		method   string
		path     string
		want     Visibility
		wantRule int
	}{
		{"health check", http.MethodGet, "/api/health-check", Public, 0},
		{"public user", http.MethodGet, "/api/users/octocat", Public, 1},
		{"public repos", http.MethodGet, "/api/users/octocat/repos", Public, 2},
		{"public languages", http.MethodGet, "/api/users/octocat/languages", Public, 3},
		{"public events", http.MethodGet, "/api/users/octocat/events", Public, 4},
		{"oauth callback get", http.MethodGet, "/login/oauth2/code/github", Public, 5},
		{"oauth callback post", http.MethodPost, "/login/oauth2/code/github", Public, 5},
		{"oauth authorize", http.MethodGet, "/oauth2/authorization/github", Public, 6},
		{"options anything", http.MethodOptions, "/api/anything-at-all", Public, 7},
		{"options root", http.MethodOptions, "/", Public, 7},
		{"options me", http.MethodOptions, "/api/user/me", Public, 7},
		{"me", http.MethodGet, "/api/user/me", Authenticated, 8},
		{"me post", http.MethodPost, "/api/user/me", Authenticated, 8},
		{"user repos", http.MethodGet, "/api/user/repos", Authenticated, 9},
		{"post to public path", http.MethodPost, "/api/users/octocat", Authenticated, 9},
		{"health check delete", http.MethodDelete, "/api/health-check", Authenticated, 9},
		{"empty username segment", http.MethodGet, "/api/users//repos", Authenticated, 9},
		{"trailing slash", http.MethodGet, "/api/users/octocat/", Authenticated, 9},
		{"deeper than public", http.MethodGet, "/api/users/octocat/repos/extra", Authenticated, 9},
		{"unknown path", http.MethodGet, "/nope", Authenticated, 9},
		{"root", http.MethodGet, "/", Authenticated, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := table.Evaluate(tt.method, tt.path)
			assert.Equal(t, tt.want, d.Visibility)
			assert.Equal(t, tt.wantRule, d.Rule)
			assert.Equal(t, tt.want == Authenticated, d.RequiresAuthentication())
		})
	}
}

func TestTable_FirstMatchWins(t *testing.T) {
	table, err := NewTable([]Rule{
		{Method: AnyMethod, Pattern: "/api/**", Visibility: Authenticated},
		{Method: http.MethodGet, Pattern: "/api/public", Visibility: Public},
	})
	require.NoError(t, err)

	d := table.Evaluate(http.MethodGet, "/api/public")
	assert.Equal(t, Authenticated, d.Visibility)
	assert.Equal(t, 0, d.Rule)
}

func TestTable_NoMatchRequiresAuthentication(t *testing.T) {
	table, err := NewTable([]Rule{
		{Method: http.MethodGet, Pattern: "/open", Visibility: Public},
	})
	require.NoError(t, err)

	d := table.Evaluate(http.MethodGet, "/closed")
	assert.Equal(t, Authenticated, d.Visibility)
	assert.Equal(t, -1, d.Rule)
	assert.True(t, d.RequiresAuthentication())
}

func TestTable_TailWildcardMatchesZeroSegments(t *testing.T) {
	table, err := NewTable([]Rule{
		{Method: AnyMethod, Pattern: "/static/**", Visibility: Public},
	})
	require.NoError(t, err)

	assert.Equal(t, Public, table.Evaluate(http.MethodGet, "/static").Visibility)
	assert.Equal(t, Public, table.Evaluate(http.MethodGet, "/static/css/app.css").Visibility)
	assert.Equal(t, Authenticated, table.Evaluate(http.MethodGet, "/other").Visibility)
}

func TestNewTable_InvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"relative pattern", Rule{Pattern: "api", Visibility: Public}},
		{"inner wildcard", Rule{Pattern: "/a/**/b", Visibility: Public}},
		{"empty segment", Rule{Pattern: "/a//b", Visibility: Public}},
		{"unknown visibility", Rule{Pattern: "/a", Visibility: "private"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable([]Rule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestTable_RulesPreservesOrder(t *testing.T) {
	table := MustDefaultTable()
	assert.Equal(t, DefaultRules(), table.Rules())
}
