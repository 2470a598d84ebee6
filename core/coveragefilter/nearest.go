package coveragefilter

import "sort"

// nearestExecutableLine resolves line against a sorted ascending list of
// line numbers known to be executable in a source file. It returns the
// exact match when line itself is executable; otherwise the greatest
// executable line strictly below it (a diff often touches a comment or
// blank line that sits just above the statement it changed); otherwise ok
// is false when no executable line at or below line exists.
func nearestExecutableLine(executableLines []int, line int) (resolved int, ok bool) {
	if len(executableLines) == 0 {
		return 0, false
	}

	// idx is the first index whose value is > line.
	idx := sort.Search(len(executableLines), func(i int) bool {
		return executableLines[i] > line
	})

	if idx == 0 {
		// Every executable line is strictly after `line`; no predecessor.
		return 0, false
	}

	return executableLines[idx-1], true
}
