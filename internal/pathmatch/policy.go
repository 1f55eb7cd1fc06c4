package pathmatch

import "github.com/pterm/pterm"

// Policy holds the compiled inclusion and exclusion matchers for one
// feature (e.g. "which paths get a MaxMind lookup"). Either list may
// be empty.
type Policy struct {
	inclusions []*Matcher
	exclusions []*Matcher
}

// NewPolicy compiles the inclusion and exclusion pattern lists, one
// pattern per element. Patterns that fail to compile are logged and skipped
// rather than aborting the whole policy, matching the reference
// implementation's "best effort" construction.
func NewPolicy(inclusions, exclusions []string, logger *pterm.Logger) *Policy {
	return &Policy{
		inclusions: compileAll(inclusions, "inclusion", logger),
		exclusions: compileAll(exclusions, "exclusion", logger),
	}
}

func compileAll(patterns []string, kind string, logger *pterm.Logger) []*Matcher {
	matchers := make([]*Matcher, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := New(pattern)
		if err != nil {
			if logger != nil {
				logger.Warn("Unable to construct path matcher",
					logger.Args("kind", kind, "pattern", pattern, "error", err))
			}
			continue
		}
		matchers = append(matchers, m)
	}
	return matchers
}

// Validate reports whether path is admitted by the policy: admitted by
// default when there are no inclusions, otherwise it must match at
// least one inclusion and no exclusion.
func (p *Policy) Validate(path string) bool {
	if len(p.inclusions) == 0 {
		return true
	}

	if !anyMatch(p.inclusions, path) {
		return false
	}

	return !anyMatch(p.exclusions, path)
}

func anyMatch(matchers []*Matcher, path string) bool {
	for _, m := range matchers {
		if m.MatchStart(path) {
			return true
		}
	}
	return false
}
