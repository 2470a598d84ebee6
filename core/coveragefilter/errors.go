package coveragefilter

import "errors"

var (
	// ErrInvalidWildcard is returned when a malformed pattern is supplied
	// to WildcardFilter.
	ErrInvalidWildcard = errors.New("coveragefilter: invalid wildcard pattern")
	// ErrInvalidDiff is returned when a diff filter cannot be built from
	// the supplied unified diff text.
	ErrInvalidDiff = errors.New("coveragefilter: invalid unified diff")
)
