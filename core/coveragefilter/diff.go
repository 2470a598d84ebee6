package coveragefilter

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// UnifiedDiffFilter selects only the source lines that a unified diff added
// or changed, so a coverage run can report "did the new/changed code run"
// instead of the whole file. pmezard/go-difflib (pulled in transitively via
// testify) generates and compares diffs but has no unified-diff parser, so
// the parse below is hand-rolled against the format's grammar.
type UnifiedDiffFilter struct {
	rootFolder string

	mu      sync.Mutex
	files   map[string][]int // normalized path -> sorted line numbers added/changed
	queried map[string]bool  // which files IsSourceFileSelected/IsLineSelected have been asked about
}

// NewUnifiedDiffFilter parses diffText (the output of `git diff` or `diff
// -u`) and resolves every file path in it relative to rootFolder.
func NewUnifiedDiffFilter(diffText, rootFolder string) (*UnifiedDiffFilter, error) {
	files, err := parseUnifiedDiff(diffText)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no file hunks found", ErrInvalidDiff)
	}

	for path, lines := range files {
		sort.Ints(lines)
		files[path] = lines
	}

	return &UnifiedDiffFilter{
		rootFolder: rootFolder,
		files:      files,
		queried:    make(map[string]bool),
	}, nil
}

func parseUnifiedDiff(diffText string) (map[string][]int, error) {
	files := make(map[string][]int)

	var currentPath string
	var newLine int
	inHunk := false

	scanner := bufio.NewScanner(strings.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "+++ "):
			currentPath = parseDiffPath(line, "+++ ")
			inHunk = false

		case strings.HasPrefix(line, "--- "):
			inHunk = false

		case strings.HasPrefix(line, "@@"):
			m := hunkHeaderPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: malformed hunk header %q", ErrInvalidDiff, line)
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDiff, err)
			}
			newLine = n
			inHunk = true

		case inHunk && currentPath != "":
			switch {
			case strings.HasPrefix(line, "+"):
				files[currentPath] = append(files[currentPath], newLine)
				newLine++
			case strings.HasPrefix(line, "-"):
				// removed line: does not exist in the new file, no line number to advance.
			default:
				newLine++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDiff, err)
	}

	return files, nil
}

// parseDiffPath strips the "+++ "/"--- " marker, a trailing tab-separated
// timestamp, and the conventional "a/"/"b/" prefix git diffs use.
func parseDiffPath(line, marker string) string {
	path := strings.TrimPrefix(line, marker)
	if idx := strings.IndexByte(path, '\t'); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimSpace(path)
	if path == "/dev/null" {
		return ""
	}
	if len(path) > 2 && (path[:2] == "a/" || path[:2] == "b/") {
		path = path[2:]
	}
	return filepath.ToSlash(path)
}

func (f *UnifiedDiffFilter) normalize(sourceFile string) string {
	rel := sourceFile
	if f.rootFolder != "" {
		if r, err := filepath.Rel(f.rootFolder, sourceFile); err == nil {
			rel = r
		}
	}
	return filepath.ToSlash(rel)
}

// IsSourceFileSelected reports whether sourceFile appears in the diff.
// It mutates filter state: every queried path is remembered so
// GetUnmatchedPaths can later report diff entries no coverage run ever
// asked about (a sign the diff targets a different checkout layout).
func (f *UnifiedDiffFilter) IsSourceFileSelected(sourceFile string) bool {
	key := f.normalize(sourceFile)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried[key] = true
	_, ok := f.files[key]
	return ok
}

// IsLineSelected reports whether line in sourceFile was added or changed by
// the diff. When line itself was not touched but sits above the nearest
// changed line, the lookup matches the nearest executable line at or below
// it via executableLines (supplied by the symbol reader), so a changed
// statement split across lines is still credited correctly.
func (f *UnifiedDiffFilter) IsLineSelected(sourceFile string, line int, executableLines []int) bool {
	key := f.normalize(sourceFile)

	f.mu.Lock()
	changed, ok := f.files[key]
	f.queried[key] = true
	f.mu.Unlock()

	if !ok {
		return false
	}

	resolved, ok := nearestExecutableLine(executableLines, line)
	if !ok {
		return false
	}

	idx := sort.SearchInts(changed, resolved)
	return idx < len(changed) && changed[idx] == resolved
}

// GetUnmatchedPaths returns every file path the diff mentions that no
// IsSourceFileSelected/IsLineSelected call ever queried, capped at max
// entries (0 means unlimited). These are surfaced to the user as a warning:
// the diff likely refers to a checkout layout different from rootFolder.
func (f *UnifiedDiffFilter) GetUnmatchedPaths(max int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unmatched []string
	for path := range f.files {
		if !f.queried[path] {
			unmatched = append(unmatched, path)
		}
	}
	sort.Strings(unmatched)

	if max > 0 && len(unmatched) > max {
		unmatched = unmatched[:max]
	}
	return unmatched
}
