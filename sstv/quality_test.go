package sstv

import (
	"strings"
	"testing"
)

func TestQualityVerdicts(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		r, g, b uint8
		verdict string
		warning string
	}{
		{"black frame", 2, 3, 2, VerdictBad, "almost entirely black"},
		{"green tint", 50, 120, 50, VerdictBad, "green tint"},
		{"dark imbalance", 90, 5, 5, VerdictWarn, "frequency offset"},
		{"bright imbalance", 200, 60, 200, VerdictWarn, "chroma misalignment"},
		{"mid gray", 128, 128, 128, VerdictGood, ""},
		{"mild color", 140, 150, 120, VerdictGood, ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			q := AnalyzeQuality(solidImage(16, 16, tc.r, tc.g, tc.b), 16, 16)
			if q.Verdict != tc.verdict {
				t.Errorf("verdict = %s, want %s (q=%+v)", q.Verdict, tc.verdict, q)
			}
			if tc.warning == "" {
				if len(q.Warnings) != 0 {
					t.Errorf("unexpected warnings %v", q.Warnings)
				}
				return
			}
			if len(q.Warnings) != 1 || !strings.Contains(q.Warnings[0], tc.warning) {
				t.Errorf("warnings = %v, want one containing %q", q.Warnings, tc.warning)
			}
		})
	}
}

func TestQualityMeans(t *testing.T) {
	t.Parallel()
	q := AnalyzeQuality(solidImage(8, 8, 10, 20, 60), 8, 8)
	if q.RAvg != 10 || q.GAvg != 20 || q.BAvg != 60 {
		t.Errorf("means = %.1f/%.1f/%.1f, want 10/20/60", q.RAvg, q.GAvg, q.BAvg)
	}
	if q.Brightness != 30 {
		t.Errorf("brightness = %.1f, want 30", q.Brightness)
	}
}
