// file: internal/matcher/fuzzy_test.go
// version: 2.0.0
// guid: a92753b5-01d3-45b0-b5c1-bf97b95d6cc4

package matcher

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"abc", "abc", 0},
		{"ABC", "abc", 0}, // case insensitive
	}
	for _, tt := range tests {
		got := LevenshteinDistance(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b     string
		min, max int
	}{
		{"microsoft", "microsoft", 100, 100},
		{"Microsoft", "microsoft", 100, 100},
		{"microsoft_corporation", "Microsoft Corporation", 100, 100},
		{"microsoft", "microsft", 85, 95},
		{"rarlab", "win.rar", 0, 60},
		{"oracle", "mozilla", 0, 40},
		{"", "microsoft", 0, 0},
		{"microsoft", "", 0, 0},
	}
	for _, tt := range tests {
		got := Ratio(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Ratio(%q, %q) = %d, want [%d, %d]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{{"adobe", "adobe_systems"}, {"google", "gogle"}, {"7-zip", "7zip"}}
	for _, p := range pairs {
		if Ratio(p[0], p[1]) != Ratio(p[1], p[0]) {
			t.Errorf("Ratio not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestRankResults(t *testing.T) {
	candidates := []string{"mozilla", "microsoft", "microsoft_corporation", "micro_focus"}
	results := RankResults("microsoft", candidates, 50)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Index != 1 || results[0].Score != 100 {
		t.Errorf("expected exact match first, got %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: %+v", results)
		}
	}
	for _, r := range results {
		if r.Score < 50 {
			t.Errorf("result below threshold: %+v", r)
		}
	}
}

func TestBestMatch(t *testing.T) {
	got, score := BestMatch("Micorsoft", []string{"oracle", "microsoft"}, 80)
	if got != "microsoft" || score < 80 {
		t.Errorf("BestMatch = %q (%d), want microsoft", got, score)
	}
	got, _ = BestMatch("zzz", []string{"oracle", "microsoft"}, 80)
	if got != "" {
		t.Errorf("BestMatch = %q, want empty", got)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Visual C++":        "visual_c++",
		"  Adobe   Reader ": "adobe_reader",
		"winrar":            "winrar",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
