package router

import (
	"fmt"
	"strings"
)

// ValidationError describes one problem with a route table.
type ValidationError struct {
	Type ValidationErrorType

	// Message is the human-readable description.
	Message string

	// Pattern is the offending route pattern, relative to the table base.
	Pattern string

	// Index is the position of the offending route.
	Index int
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ValidationErrorType categorizes validation errors.
type ValidationErrorType string

const (
	// ErrorMalformedPattern indicates a pattern that does not parse.
	// Example: ":(edit|new)" or "*rest/more"
	ErrorMalformedPattern ValidationErrorType = "MALFORMED_PATTERN"

	// ErrorDuplicateRoute indicates two routes with the same pattern and exactness.
	ErrorDuplicateRoute ValidationErrorType = "DUPLICATE_ROUTE"

	// ErrorShadowedRoute indicates a route that an earlier route always wins over.
	// Example: "/schedules/:id" listed before "/schedules/new"
	ErrorShadowedRoute ValidationErrorType = "SHADOWED_ROUTE"

	// ErrorWildcardNotLast indicates a catch-all followed by more routes.
	ErrorWildcardNotLast ValidationErrorType = "WILDCARD_NOT_LAST"

	// ErrorMissingFallback indicates a table that does not end in a catch-all.
	ErrorMissingFallback ValidationErrorType = "MISSING_FALLBACK"
)

// MultiValidationError wraps multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Has reports whether any error has the given type.
func (e *MultiValidationError) Has(typ ValidationErrorType) bool {
	for _, err := range e.Errors {
		if err.Type == typ {
			return true
		}
	}
	return false
}

// Validate checks the ordering rules of the table. NewTable calls it; it is
// exported so route listings can report problems without rebuilding.
func (t *Table) Validate() error {
	var errs []ValidationError

	seen := make(map[string]int)
	for j, p := range t.compiled {
		r := t.routes[j]

		key := fmt.Sprintf("%s|%t", p.raw, r.Exact)
		if first, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Type:    ErrorDuplicateRoute,
				Message: fmt.Sprintf("route %d repeats the pattern %q of route %d", j, r.Pattern, first),
				Pattern: r.Pattern,
				Index:   j,
			})
			continue
		}
		seen[key] = j

		sample := p.sample()
		for i := 0; i < j; i++ {
			if !t.compiled[i].match(sample, t.routes[i].Exact, make(map[string]string)) {
				continue
			}
			if t.isFallback(i) {
				errs = append(errs, ValidationError{
					Type:    ErrorWildcardNotLast,
					Message: fmt.Sprintf("catch-all route %d is followed by %q", i, r.Pattern),
					Pattern: r.Pattern,
					Index:   j,
				})
			} else {
				errs = append(errs, ValidationError{
					Type:    ErrorShadowedRoute,
					Message: fmt.Sprintf("route %q is unreachable behind %q", r.Pattern, t.routes[i].Pattern),
					Pattern: r.Pattern,
					Index:   j,
				})
			}
			break
		}
	}

	if n := len(t.compiled); n == 0 || !t.isFallback(n-1) {
		errs = append(errs, ValidationError{
			Type:    ErrorMissingFallback,
			Message: fmt.Sprintf("table at %s must end with a catch-all route", t.base.raw),
			Index:   n - 1,
		})
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// isFallback reports whether route i is a bare catch-all directly below the base.
func (t *Table) isFallback(i int) bool {
	p := t.compiled[i]
	return p.endsInCatchAll() && len(p.segments) == len(t.base.segments)+1
}
