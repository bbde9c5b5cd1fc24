// Package capability decides whether a viewer may see a gated route or
// navigation entry.
//
// Tokens are dotted action names such as "file.read" or "schedule.update".
// A requirement may name a whole family with a trailing wildcard ("file.*"),
// and a granted "*" satisfies everything.
package capability

import (
	"sort"
	"strings"
)

// Wildcard is the token that grants every capability.
const Wildcard = "*"

// Requirement is the set of tokens a route or navigation entry asks for.
// The zero Requirement is always satisfied.
type Requirement struct {
	Tokens []string

	// MatchAny is satisfied by any one token instead of all of them.
	MatchAny bool
}

// Require builds a requirement that needs every token.
func Require(tokens ...string) Requirement {
	return Requirement{Tokens: tokens}
}

// RequireAny builds a requirement satisfied by a single token.
func RequireAny(tokens ...string) Requirement {
	return Requirement{Tokens: tokens, MatchAny: true}
}

// IsZero reports whether the requirement names no tokens.
func (r Requirement) IsZero() bool {
	return len(r.Tokens) == 0
}

// String renders the requirement for logs and route listings.
func (r Requirement) String() string {
	if r.IsZero() {
		return "-"
	}
	sep := " & "
	if r.MatchAny {
		sep = " | "
	}
	return strings.Join(r.Tokens, sep)
}

// Checker answers capability questions for one viewer. Implementations are
// evaluated on every resolve and must not block.
type Checker interface {
	Can(req Requirement) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(req Requirement) bool

// Can implements Checker.
func (f CheckerFunc) Can(req Requirement) bool {
	return f(req)
}

// Set is a Checker over a fixed list of granted tokens.
type Set struct {
	granted map[string]struct{}
}

// NewSet returns a Set granting tokens. Empty tokens are ignored.
func NewSet(tokens ...string) *Set {
	s := &Set{granted: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			s.granted[t] = struct{}{}
		}
	}
	return s
}

// All returns a Set that grants everything.
func All() *Set {
	return NewSet(Wildcard)
}

// Has reports whether a single token is granted.
func (s *Set) Has(token string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.granted[Wildcard]; ok {
		return true
	}
	if prefix, ok := strings.CutSuffix(token, "*"); ok {
		for g := range s.granted {
			if strings.HasPrefix(g, prefix) {
				return true
			}
		}
		return false
	}
	_, ok := s.granted[token]
	return ok
}

// Can implements Checker.
func (s *Set) Can(req Requirement) bool {
	if req.IsZero() {
		return true
	}
	if req.MatchAny {
		for _, t := range req.Tokens {
			if s.Has(t) {
				return true
			}
		}
		return false
	}
	for _, t := range req.Tokens {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Tokens returns the granted tokens in sorted order.
func (s *Set) Tokens() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.granted))
	for t := range s.granted {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Parse splits a comma separated token list, as carried in headers and
// configuration, into a Set.
func Parse(list string) *Set {
	if strings.TrimSpace(list) == "" {
		return NewSet()
	}
	return NewSet(strings.Split(list, ",")...)
}
