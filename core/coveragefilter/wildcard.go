package coveragefilter

import (
	"regexp"
	"strings"
)

// WildcardFilter matches module and source-file paths against glob-style
// patterns: "*" matches any run of characters including path separators,
// "?" matches exactly one character. Matching is case-insensitive, since
// Windows paths are case-insensitive.
type WildcardFilter struct {
	included []*regexp.Regexp
	excluded []*regexp.Regexp
}

// NewWildcardFilter compiles includePatterns and excludePatterns. An empty
// includePatterns matches everything not explicitly excluded.
func NewWildcardFilter(includePatterns, excludePatterns []string) (*WildcardFilter, error) {
	included, err := compilePatterns(includePatterns)
	if err != nil {
		return nil, err
	}
	excluded, err := compilePatterns(excludePatterns)
	if err != nil {
		return nil, err
	}
	return &WildcardFilter{included: included, excluded: excluded}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compileWildcard(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// compileWildcard turns a glob pattern into an anchored, case-insensitive
// regexp. path/filepath.Match does not let '*' span path separators, which
// real-world module/source patterns rely on (e.g. "*\\vendor\\*"), so the
// pattern is translated by hand instead.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, ErrInvalidWildcard
	}
	return re, nil
}

// Match reports whether path is selected: included by at least one include
// pattern (or there are none), and excluded by none.
func (f *WildcardFilter) Match(path string) bool {
	for _, re := range f.excluded {
		if re.MatchString(path) {
			return false
		}
	}
	if len(f.included) == 0 {
		return true
	}
	for _, re := range f.included {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
