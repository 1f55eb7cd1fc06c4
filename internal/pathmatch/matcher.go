// Package pathmatch implements the request-path inclusion/exclusion
// policy used to decide whether a request qualifies for GeoIP
// enrichment.
package pathmatch

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned by New when the supplied pattern has no
// segments to match against.
var ErrEmptyPattern = errors.New("pathmatch: pattern must not be empty")

// wildcard is the single-segment wildcard token.
const wildcard = "*"

// Matcher is a compiled representation of a single path pattern: an
// ordered list of literal or wildcard segments. It is immutable after
// construction.
type Matcher struct {
	segments []string
}

// New compiles pattern, splitting on "/". Each non-empty segment is
// either the literal wildcard token "*" or a literal string.
// Construction fails when the pattern contributes no segments.
func New(pattern string) (*Matcher, error) {
	var segments []string
	for _, segment := range strings.Split(pattern, "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}

	if len(segments) == 0 {
		return nil, ErrEmptyPattern
	}

	return &Matcher{segments: segments}, nil
}

// MatchStart reports whether path matches this pattern as a prefix:
// every compiled segment, in order, matches the corresponding segment
// of path (literally, or via the wildcard matching any non-empty
// segment). Extra trailing segments in path are permitted.
func (m *Matcher) MatchStart(path string) bool {
	var targetSegments []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		targetSegments = append(targetSegments, segment)
	}

	if len(targetSegments) < len(m.segments) {
		return false
	}

	for i, want := range m.segments {
		got := targetSegments[i]
		if want == wildcard {
			if got == "" {
				return false
			}
			continue
		}
		if want != got {
			return false
		}
	}

	return true
}
