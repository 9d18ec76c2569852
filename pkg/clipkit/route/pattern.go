package route

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// segmentMatcher is one pattern segment: a literal or a named capture.
type segmentMatcher struct {
	literal string
	capture string
}

func (m segmentMatcher) isCapture() bool {
	return m.capture != ""
}

// pattern is a compiled route pattern. The first matcher is always a literal.
type pattern struct {
	raw      string
	matchers []segmentMatcher
}

// segment returns the dispatch key.
func (p pattern) segment() string {
	return p.matchers[0].literal
}

// compilePattern parses "/product/:id/:variant".
func compilePattern(raw string) (pattern, error) {
	parts, err := splitPath(raw)
	if err != nil {
		return pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
	}
	if len(parts) == 0 {
		return pattern{}, fmt.Errorf("%w: %q has no segments", ErrInvalidPattern, raw)
	}

	seen := make(map[string]bool)
	matchers := make([]segmentMatcher, 0, len(parts))
	for i, part := range parts {
		name, isCapture := strings.CutPrefix(part, ":")
		switch {
		case !isCapture:
			matchers = append(matchers, segmentMatcher{literal: part})
		case i == 0:
			return pattern{}, fmt.Errorf("%w: %q must start with a literal segment", ErrInvalidPattern, raw)
		case name == "":
			return pattern{}, fmt.Errorf("%w: %q has an unnamed capture", ErrInvalidPattern, raw)
		case seen[name]:
			return pattern{}, fmt.Errorf("%w: %q captures %q twice", ErrInvalidPattern, raw, name)
		default:
			seen[name] = true
			matchers = append(matchers, segmentMatcher{capture: name})
		}
	}

	return pattern{raw: raw, matchers: matchers}, nil
}

// bind matches request segments after the first against the pattern.
// complete is false when a literal differs or the request is shorter than
// the pattern. A literal mismatch binds nothing.
func (p pattern) bind(path []string) (captures map[string]string, complete bool) {
	captures = make(map[string]string)
	complete = len(path) >= len(p.matchers)

	for i := 1; i < len(p.matchers) && i < len(path); i++ {
		m := p.matchers[i]
		if !m.isCapture() {
			if NormalizeSegment(m.literal) != NormalizeSegment(path[i]) {
				return map[string]string{}, false
			}
			continue
		}
		captures[m.capture] = path[i]
	}
	return captures, complete
}

// NormalizeSegment returns the dispatch key for a path segment: Unicode NFC
// then case folding, so "Product", "PRODUCT" and a decomposed "Prodüct"
// compare as their canonical forms.
func NormalizeSegment(s string) string {
	// Casers are stateful; build one per call.
	return cases.Fold().String(norm.NFC.String(s))
}
