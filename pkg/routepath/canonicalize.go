package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Result is a canonicalized path and the query string that was split off it.
type Result struct {
	// Path is the canonical path, always starting with "/" and never ending
	// with one unless it is the root.
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether Path differs from the input path.
	Changed bool
}

var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrEncodedSlash         = errors.New("encoded slash (%2F) in path segment")
)

// Canonicalize normalizes input:
//   - a missing leading slash is added
//   - repeated slashes collapse
//   - "." segments are dropped and ".." segments are resolved
//   - the trailing slash is removed (except for "/")
//
// The query string is split off and returned untouched.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := checkEscapes(path); err != nil {
			return Result{}, err
		}
	}

	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	canonical := "/" + strings.Join(out, "/")
	return Result{Path: canonical, Query: query, Changed: canonical != path}, nil
}

// MustCanonicalize is Canonicalize for paths known at init time, such as
// route table prefixes. It panics on invalid input.
func MustCanonicalize(input string) string {
	res, err := Canonicalize(input)
	if err != nil {
		panic("routepath: " + err.Error() + ": " + input)
	}
	return res.Path
}

func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Segments splits a canonical path into its decoded segments. The root path
// has no segments. A segment that decodes to something containing "/" is
// rejected so that "%2F" cannot smuggle an extra level into a parameter.
func Segments(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, seg := range raw {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return nil, ErrInvalidPercentEscape
		}
		if strings.Contains(decoded, "/") {
			return nil, ErrEncodedSlash
		}
		segs = append(segs, decoded)
	}
	return segs, nil
}

// HasPrefix reports whether path is prefix or lies below it, comparing whole
// segments: "/account/api" has prefix "/account" but "/accounts" does not.
func HasPrefix(path, prefix string) bool {
	if prefix == "/" || prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Join appends rel to base and canonicalizes the result. It is used to build
// absolute link targets from a mount point and a route pattern.
func Join(base, rel string) string {
	if rel == "" {
		return MustCanonicalize(base)
	}
	return MustCanonicalize(strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/"))
}
