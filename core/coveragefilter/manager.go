package coveragefilter

import (
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Manager combines a wildcard module/source-file filter with zero or more
// unified-diff filters into the selection predicates the debug loop
// consults while walking coverage data.
type Manager struct {
	modules     *WildcardFilter
	sources     *WildcardFilter
	diffFilters []*UnifiedDiffFilter
}

// NewManager builds a Manager from settings and an optional list of diff
// filters (typically one per unified diff file, each covering every file
// that diff touches).
func NewManager(settings CoverageSettings, diffFilters ...*UnifiedDiffFilter) (*Manager, error) {
	modules, err := NewWildcardFilter(settings.ModulePatterns, settings.ExcludedModulePatterns)
	if err != nil {
		return nil, err
	}
	sources, err := NewWildcardFilter(settings.SourcePatterns, settings.ExcludedSourcePatterns)
	if err != nil {
		return nil, err
	}
	return &Manager{modules: modules, sources: sources, diffFilters: diffFilters}, nil
}

// IsModuleSelected reports whether modulePath (a loaded binary's image
// path) should be instrumented for coverage. Diff filters never apply at
// the module level; only the wildcard filter decides.
func (m *Manager) IsModuleSelected(modulePath string) bool {
	return m.modules.Match(modulePath)
}

// IsSourceFileSelected reports whether sourceFile should be included,
// combining the wildcard filter with every diff filter under an
// ANY_OR_TRUE_IF_EMPTY rule: with no diff filters configured, the wildcard
// result alone decides; with one or more configured, the file is selected
// if the wildcard filter matches AND at least one diff filter also
// references the file.
func (m *Manager) IsSourceFileSelected(sourceFile string) bool {
	if !m.sources.Match(sourceFile) {
		return false
	}
	if len(m.diffFilters) == 0 {
		return true
	}
	for _, d := range m.diffFilters {
		if d.IsSourceFileSelected(sourceFile) {
			return true
		}
	}
	return false
}

// IsLineSelected reports whether line in sourceFile should be reported as
// covered or uncovered. executableLines lists every line the symbol reader
// considers executable in this file, sorted ascending, used to resolve a
// diff hunk's line reference to the nearest real statement. With no diff
// filters configured, every line is selected (the wildcard source filter is
// applied by IsSourceFileSelected, not here); otherwise the line must fall
// within at least one diff filter's changed ranges (ANY_OR_TRUE_IF_EMPTY,
// same as IsSourceFileSelected).
func (m *Manager) IsLineSelected(sourceFile string, line int, executableLines []int) bool {
	if len(m.diffFilters) == 0 {
		return true
	}
	for _, d := range m.diffFilters {
		if d.IsLineSelected(sourceFile, line, executableLines) {
			return true
		}
	}
	return false
}

// ComputeWarningMessageLines reports the file paths mentioned by any
// configured diff filter that no coverage query ever matched — usually a
// sign the diff was generated against a different checkout layout than the
// one being measured. If no paths went unmatched, it returns nil. Otherwise
// it returns the fixed warning message, truncated to maxUnmatchedPaths paths
// (0 means unlimited) with a trailing ellipsis marker when more were
// dropped. Paths are deduplicated and sorted with a locale-aware collator,
// since diffs frequently carry non-ASCII path segments.
func (m *Manager) ComputeWarningMessageLines(maxUnmatchedPaths int) []string {
	seen := make(map[string]struct{})
	var unmatched []string
	for _, d := range m.diffFilters {
		for _, path := range d.GetUnmatchedPaths(0) {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			unmatched = append(unmatched, path)
		}
	}
	if len(unmatched) == 0 {
		return nil
	}

	collate.New(language.Und).SortStrings(unmatched)

	n := len(unmatched)
	shown := unmatched
	truncated := false
	if maxUnmatchedPaths > 0 && n > maxUnmatchedPaths {
		shown = unmatched[:maxUnmatchedPaths]
		truncated = true
	}

	lines := []string{
		strings.Repeat("-", 60),
		fmt.Sprintf("You have %d path(s) inside unified diff file(s) that were ignored", n),
		"because they did not match any path from pdb files.",
		"To see all files use --verbose",
	}
	for _, path := range shown {
		lines = append(lines, "\t- "+path)
	}
	if truncated {
		lines = append(lines, "\t...")
	}
	return lines
}
