package coveragefilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecov/nativecov/core/coveragefilter"
)

func TestManager_NoDiffFiltersUsesWildcardOnly(t *testing.T) {
	manager, err := coveragefilter.NewManager(coveragefilter.CoverageSettings{
		SourcePatterns: []string{"*.cpp"},
	})
	require.NoError(t, err)

	assert.True(t, manager.IsSourceFileSelected("main.cpp"))
	assert.False(t, manager.IsSourceFileSelected("main.h"))
	assert.True(t, manager.IsLineSelected("main.cpp", 42, nil))
}

func TestManager_DiffFilterNarrowsSelection(t *testing.T) {
	diffFilter, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	manager, err := coveragefilter.NewManager(coveragefilter.CoverageSettings{
		SourcePatterns: []string{"*.cpp"},
	}, diffFilter)
	require.NoError(t, err)

	assert.True(t, manager.IsSourceFileSelected("src/main.cpp"))
	assert.False(t, manager.IsSourceFileSelected("src/other.cpp"))
	assert.True(t, manager.IsLineSelected("src/main.cpp", 12, []int{10, 11, 12, 13, 14}))
	assert.False(t, manager.IsLineSelected("src/main.cpp", 10, []int{10, 11, 12, 13, 14}))
}

func TestManager_ModuleSelectionIgnoresDiffFilters(t *testing.T) {
	diffFilter, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	manager, err := coveragefilter.NewManager(coveragefilter.CoverageSettings{
		ModulePatterns: []string{"*myapp*"},
	}, diffFilter)
	require.NoError(t, err)

	assert.True(t, manager.IsModuleSelected(`C:\bin\myapp.exe`))
}

func TestManager_ComputeWarningMessageLines(t *testing.T) {
	diffFilter, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	manager, err := coveragefilter.NewManager(coveragefilter.CoverageSettings{
		SourcePatterns: []string{"*.cpp"},
	}, diffFilter)
	require.NoError(t, err)

	lines := manager.ComputeWarningMessageLines(0)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "src/main.cpp")

	manager.IsSourceFileSelected("src/main.cpp")
	assert.Empty(t, manager.ComputeWarningMessageLines(0))
}
