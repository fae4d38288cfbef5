package policy

import "net/http"

// Visibility is the access requirement attached to a rule.
type Visibility string

const (
	Public        Visibility = "public"
	Authenticated Visibility = "authenticated"
)

// AnyMethod matches every HTTP method.
const AnyMethod = ""

// Rule binds a method and path pattern to a visibility.
type Rule struct {
	Method     string
	Pattern    string
	Visibility Visibility
}

// Decision is the outcome of evaluating a request against a Table.
type Decision struct {
	Visibility Visibility
	// Rule is the matching rule's position, or -1 when nothing matched
	Rule int
}

// RequiresAuthentication reports whether the request needs a principal
func (d Decision) RequiresAuthentication() bool {
	return d.Visibility != Public
}

// DefaultRules returns the route table of the API. Order matters.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodGet, Pattern: "/api/health-check", Visibility: Public},
		{Method: http.MethodGet, Pattern: "/api/users/{username}", Visibility: Public},
		{Method: http.MethodGet, Pattern: "/api/users/{username}/repos", Visibility: Public},
		{Method: http.MethodGet, Pattern: "/api/users/{username}/languages", Visibility: Public},
		{Method: http.MethodGet, Pattern: "/api/users/{username}/events", Visibility: Public},
		{Method: AnyMethod, Pattern: "/login/oauth2/code/github", Visibility: Public},
		{Method: AnyMethod, Pattern: "/oauth2/authorization/github", Visibility: Public},
		{Method: http.MethodOptions, Pattern: "/**", Visibility: Public},
		{Method: AnyMethod, Pattern: "/api/user/me", Visibility: Authenticated},
		{Method: AnyMethod, Pattern: "/**", Visibility: Authenticated},
	}
}
