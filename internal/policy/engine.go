package policy

import (
	"fmt"
	"strings"
)

const (
	wildcardTail = "**"
)

// Table is an ordered, immutable set of compiled rules. It is safe for
// concurrent use.
type Table struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	segments []string
	tail     bool
}

// NewTable compiles rules in order. It rejects patterns that are not absolute
// or that use ** anywhere but the last segment.
func NewTable(rules []Rule) (*Table, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		cr, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s %s): %w", i, rule.Method, rule.Pattern, err)
		}
		compiled = append(compiled, cr)
	}
	return &Table{rules: compiled}, nil
}

// MustDefaultTable compiles DefaultRules and panics if they are invalid
func MustDefaultTable() *Table {
	t, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

func compile(rule Rule) (compiledRule, error) {
	if !strings.HasPrefix(rule.Pattern, "/") {
		return compiledRule{}, fmt.Errorf("pattern must start with /")
	}
	if rule.Visibility != Public && rule.Visibility != Authenticated {
		return compiledRule{}, fmt.Errorf("unknown visibility %q", rule.Visibility)
	}

	segments := splitPath(rule.Pattern)
	cr := compiledRule{Rule: rule}
	for i, seg := range segments {
		if seg == wildcardTail {
			if i != len(segments)-1 {
				return compiledRule{}, fmt.Errorf("** is only allowed as the last segment")
			}
			cr.tail = true
			segments = segments[:i]
			break
		}
		if seg == "" {
			return compiledRule{}, fmt.Errorf("empty segment")
		}
	}
	cr.segments = segments
	return cr, nil
}

// Evaluate returns the visibility of the first rule matching method and path.
// Unmatched requests require authentication.
func (t *Table) Evaluate(method, path string) Decision {
	segments := splitPath(path)
	for i, rule := range t.rules {
		if rule.Method != AnyMethod && rule.Method != method {
			continue
		}
		if rule.matches(segments) {
			return Decision{Visibility: rule.Visibility, Rule: i}
		}
	}
	return Decision{Visibility: Authenticated, Rule: -1}
}

// Rules returns a copy of the table's rules in evaluation order
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.Rule
	}
	return out
}

func (r compiledRule) matches(path []string) bool {
	if r.tail {
		if len(path) < len(r.segments) {
			return false
		}
	} else if len(path) != len(r.segments) {
		return false
	}

	for i, seg := range r.segments {
		if isParam(seg) {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

func isParam(seg string) bool {
	return len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}'
}

// splitPath turns "/a/b" into ["a", "b"]. The root path has no segments.
func splitPath(p string) []string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
