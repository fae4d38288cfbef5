// Package policy decides which requests may proceed without an authenticated
// principal.
//
// Rules are evaluated in declaration order and the first rule whose method
// and path pattern match wins. A request that matches no rule requires
// authentication.
//
// Path patterns are slash separated. Literal segments match exactly,
// {name} matches exactly one non-empty segment, and a trailing /** matches
// zero or more remaining segments.
package policy
