package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/panelnav/panelnav/pkg/routepath"
)

type segmentKind int

const (
	segStatic segmentKind = iota
	segParam
	segCatchAll
)

// segment is one compiled pattern segment.
type segment struct {
	kind segmentKind

	// value is the literal for static segments
	value string

	// name is the parameter name for param and catch-all segments
	name string

	// choices restricts a param segment to a fixed set of values
	choices []string
}

// pattern is a compiled route pattern.
type pattern struct {
	raw      string
	segments []segment
}

// compilePattern parses a full (base-joined) pattern.
func compilePattern(raw string) (*pattern, error) {
	p := &pattern{raw: raw}
	parts := splitPattern(raw)
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", raw, err)
		}
		if seg.kind == segCatchAll && i != len(parts)-1 {
			return nil, fmt.Errorf("pattern %q: catch-all must be the last segment", raw)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

func splitPattern(raw string) []string {
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "/")
}

// parseSegment turns "files", ":id", ":action(edit|new)" or "*rest" into a segment.
func parseSegment(part string) (segment, error) {
	switch {
	case strings.HasPrefix(part, "*"):
		name := part[1:]
		if name == "" {
			name = "*"
		}
		return segment{kind: segCatchAll, name: name}, nil

	case strings.HasPrefix(part, ":"):
		name := part[1:]
		var choices []string
		if open := strings.Index(name, "("); open != -1 {
			if !strings.HasSuffix(name, ")") {
				return segment{}, fmt.Errorf("unterminated choice list in %q", part)
			}
			list := name[open+1 : len(name)-1]
			name = name[:open]
			for _, c := range strings.Split(list, "|") {
				if c == "" {
					return segment{}, fmt.Errorf("empty choice in %q", part)
				}
				choices = append(choices, c)
			}
		}
		if name == "" {
			return segment{}, fmt.Errorf("parameter without a name in %q", part)
		}
		return segment{kind: segParam, name: name, choices: choices}, nil

	default:
		return segment{kind: segStatic, value: part}, nil
	}
}

// match tests decoded path segments against the pattern and fills params.
func (p *pattern) match(path []string, exact bool, params map[string]string) bool {
	for i, seg := range p.segments {
		if seg.kind == segCatchAll {
			params[seg.name] = strings.Join(path[i:], "/")
			return true
		}
		if i >= len(path) {
			return false
		}
		switch seg.kind {
		case segStatic:
			if path[i] != seg.value {
				return false
			}
		case segParam:
			if len(seg.choices) > 0 && !contains(seg.choices, path[i]) {
				return false
			}
			params[seg.name] = path[i]
		}
	}
	if exact {
		return len(path) == len(p.segments)
	}
	return true
}

// endsInCatchAll reports whether the last segment is a catch-all.
func (p *pattern) endsInCatchAll() bool {
	n := len(p.segments)
	return n > 0 && p.segments[n-1].kind == segCatchAll
}

// sample builds a concrete path the pattern matches, used to probe for
// shadowing during validation.
func (p *pattern) sample() []string {
	out := make([]string, 0, len(p.segments))
	for _, seg := range p.segments {
		switch seg.kind {
		case segStatic:
			out = append(out, seg.value)
		case segParam:
			if len(seg.choices) > 0 {
				out = append(out, seg.choices[0])
			} else {
				out = append(out, "_"+seg.name)
			}
		case segCatchAll:
			out = append(out, "_"+seg.name)
		}
	}
	return out
}

// build substitutes params into the pattern. Catch-all segments are dropped
// unless a value is supplied.
func (p *pattern) build(params map[string]string) (string, error) {
	parts := make([]string, 0, len(p.segments))
	for _, seg := range p.segments {
		switch seg.kind {
		case segStatic:
			parts = append(parts, seg.value)
		case segParam:
			v, ok := params[seg.name]
			if !ok || v == "" {
				return "", fmt.Errorf("pattern %q: missing parameter %q", p.raw, seg.name)
			}
			if len(seg.choices) > 0 && !contains(seg.choices, v) {
				return "", fmt.Errorf("pattern %q: %q is not a valid %s", p.raw, v, seg.name)
			}
			parts = append(parts, url.PathEscape(v))
		case segCatchAll:
			if v := params[seg.name]; v != "" {
				parts = append(parts, v)
			}
		}
	}
	res, err := routepath.Canonicalize("/" + strings.Join(parts, "/"))
	if err != nil {
		return "", fmt.Errorf("pattern %q: %w", p.raw, err)
	}
	return res.Path, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
