package coveragefilter

import "testing"

func TestNearestExecutableLine(t *testing.T) {
	lines := []int{10, 12, 20, 21, 30}

	cases := []struct {
		name     string
		line     int
		wantLine int
		wantOK   bool
	}{
		{"exact match", 20, 20, true},
		{"first line exact", 10, 10, true},
		{"between falls back to predecessor", 15, 12, true},
		{"just above first has no predecessor", 9, 0, false},
		{"past the end resolves to last", 100, 30, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := nearestExecutableLine(lines, tc.line)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.wantLine {
				t.Fatalf("line = %d, want %d", got, tc.wantLine)
			}
		})
	}
}

func TestNearestExecutableLine_EmptyList(t *testing.T) {
	_, ok := nearestExecutableLine(nil, 5)
	if ok {
		t.Fatal("expected ok = false for empty executable line list")
	}
}
