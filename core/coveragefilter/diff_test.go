package coveragefilter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativecov/nativecov/core/coveragefilter"
)

const sampleDiff = `diff --git a/src/main.cpp b/src/main.cpp
index 1111111..2222222 100644
--- a/src/main.cpp
+++ b/src/main.cpp
@@ -10,6 +10,8 @@ int main() {
 	int x = 1;
 	int y = 2;
+	int z = 3;
+	doSomething(z);
 	return x + y;
 }

`

func TestUnifiedDiffFilter_SourceFileSelection(t *testing.T) {
	f, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	assert.True(t, f.IsSourceFileSelected("src/main.cpp"))
	assert.False(t, f.IsSourceFileSelected("src/other.cpp"))
}

func TestUnifiedDiffFilter_LineSelection(t *testing.T) {
	f, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	// Lines 12 and 13 are the two added lines ("int z = 3;" and the call).
	assert.True(t, f.IsLineSelected("src/main.cpp", 12, []int{10, 11, 12, 13, 14}))
	assert.True(t, f.IsLineSelected("src/main.cpp", 13, []int{10, 11, 12, 13, 14}))
	assert.False(t, f.IsLineSelected("src/main.cpp", 10, []int{10, 11, 12, 13, 14}))
}

func TestUnifiedDiffFilter_GetUnmatchedPaths(t *testing.T) {
	f, err := coveragefilter.NewUnifiedDiffFilter(sampleDiff, "")
	require.NoError(t, err)

	// Nothing queried yet: the one file the diff mentions is unmatched.
	assert.Equal(t, []string{"src/main.cpp"}, f.GetUnmatchedPaths(0))

	f.IsSourceFileSelected("src/main.cpp")
	assert.Empty(t, f.GetUnmatchedPaths(0))
}

func TestUnifiedDiffFilter_RejectsMalformedDiff(t *testing.T) {
	_, err := coveragefilter.NewUnifiedDiffFilter("not a diff", "")
	assert.ErrorIs(t, err, coveragefilter.ErrInvalidDiff)
}
