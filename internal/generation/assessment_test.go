package generation

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestParseAssessment(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		score      float64
		scored     bool
		violations bool
	}{
		{
			name:   "valid object",
			raw:    `{"assessment":"Strong","match_score":72.5,"strengths":["Go"],"gaps":[],"recommendations":["Apply"]}`,
			score:  72.5,
			scored: true,
		},
		{
			name:   "code fence",
			raw:    "```json\n{\"assessment\":\"ok\",\"match_score\":60,\"strengths\":[],\"gaps\":[],\"recommendations\":[]}\n```",
			score:  60,
			scored: true,
		},
		{
			name:       "string score is coerced",
			raw:        `{"assessment":"ok","match_score":"85","strengths":[],"gaps":[],"recommendations":[]}`,
			score:      85,
			scored:     true,
			violations: true,
		},
		{
			name:       "missing score",
			raw:        `{"assessment":"ok","strengths":[],"gaps":[],"recommendations":[]}`,
			violations: true,
		},
		{
			name:       "unparseable score",
			raw:        `{"assessment":"ok","match_score":"high","strengths":[],"gaps":[],"recommendations":[]}`,
			violations: true,
		},
		{
			name:       "score out of range",
			raw:        `{"assessment":"ok","match_score":150,"strengths":[],"gaps":[],"recommendations":[]}`,
			violations: true,
		},
		{
			name:   "wrapped in prose",
			raw:    `Here is the result: {"assessment":"ok","match_score":40,"strengths":[],"gaps":[],"recommendations":[]} Thanks.`,
			score:  40,
			scored: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAssessment(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Scored() != tc.scored {
				t.Fatalf("expected scored=%v, got %v", tc.scored, got.Scored())
			}
			if tc.scored && got.Score() != tc.score {
				t.Fatalf("expected score %v, got %v", tc.score, got.Score())
			}
			if !tc.scored && !math.IsNaN(got.Score()) {
				t.Fatalf("expected NaN score, got %v", got.Score())
			}
			if (len(got.Violations) > 0) != tc.violations {
				t.Fatalf("unexpected violations: %v", got.Violations)
			}
		})
	}
}

func TestParseAssessmentCoercesLists(t *testing.T) {
	got, err := ParseAssessment(`{"assessment":" Fine ","match_score":70,"strengths":"Go","gaps":["", "AWS", 3],"recommendations":null}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Summary != "Fine" {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if len(got.Strengths) != 1 || got.Strengths[0] != "Go" {
		t.Fatalf("unexpected strengths %v", got.Strengths)
	}
	if strings.Join(got.Gaps, ",") != "AWS,3" {
		t.Fatalf("unexpected gaps %v", got.Gaps)
	}
	if got.Recommendations != nil {
		t.Fatalf("expected no recommendations, got %v", got.Recommendations)
	}
}

func TestParseAssessmentRejectsNonJSON(t *testing.T) {
	if _, err := ParseAssessment("not json at all"); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnscoredAssessmentEncodesNullScore(t *testing.T) {
	data, err := json.Marshal(&Assessment{Summary: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"match_score":null`) {
		t.Fatalf("expected null score, got %s", data)
	}
}
