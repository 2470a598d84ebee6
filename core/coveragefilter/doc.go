// Package coveragefilter decides which modules, source files, and lines a
// collection run should report coverage for. It layers a wildcard
// module/source pattern filter with zero or more unified-diff filters, so a
// CI job can scope a report down to only the lines a pull request touched.
//
// # Usage
//
//	settings := coveragefilter.CoverageSettings{
//		ModulePatterns: []string{"*\\myapp\\*.exe"},
//		SourcePatterns: []string{"*.cpp", "*.h"},
//	}
//
//	diffFilter, err := coveragefilter.NewUnifiedDiffFilter(diffText, repoRoot)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := coveragefilter.NewManager(settings, diffFilter)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if manager.IsModuleSelected(modulePath) && manager.IsSourceFileSelected(sourceFile) {
//		selected := manager.IsLineSelected(sourceFile, lineNumber, executableLines)
//	}
//
//	for _, line := range manager.ComputeWarningMessageLines(20) {
//		fmt.Println(line)
//	}
package coveragefilter
