package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/job-seeker/internal/ai"
)

const (
	minScore = 0.0
	maxScore = 100.0
)

// Assessment is the parsed result of the assessment step.
type Assessment struct {
	Summary string `json:"assessment"`
	// MatchScore is nil when the score was missing, unparseable or out of range.
	MatchScore      *float64 `json:"match_score"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`

	// Violations lists schema violations found in the raw response.
	Violations []string `json:"violations,omitempty"`
	Raw        string   `json:"-"`
}

// Score returns the match score, or NaN when the assessment is unscored.
func (a *Assessment) Score() float64 {
	if a == nil || a.MatchScore == nil {
		return math.NaN()
	}
	return *a.MatchScore
}

// Scored reports whether a usable score is present.
func (a *Assessment) Scored() bool {
	return a != nil && a.MatchScore != nil
}

// AssessmentSchema describes the JSON object requested from the generator.
func AssessmentSchema() *ai.Schema {
	lo, hi := minScore, maxScore
	list := func(desc string) *ai.Schema {
		return &ai.Schema{Type: ai.TypeArray, Description: desc, Items: &ai.Schema{Type: ai.TypeString}}
	}
	return &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"assessment":      {Type: ai.TypeString, Description: "Executive summary of the match in two or three sentences"},
			"match_score":     {Type: ai.TypeNumber, Description: "Weighted match score", Minimum: &lo, Maximum: &hi},
			"strengths":       list("Strengths that align with the role, with concrete evidence"),
			"gaps":            list("Missing skills, experience or other concerns"),
			"recommendations": list("Actionable recommendations for the application"),
		},
		Required: []string{"assessment", "match_score", "strengths", "gaps", "recommendations"},
	}
}

// ParseAssessment decodes a generator response leniently. Only a response that
// is not a JSON object is an error; everything else is coerced and schema
// violations are recorded on the result.
func ParseAssessment(raw string) (*Assessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse assessment response: %w", err)
	}

	assessment := &Assessment{
		Summary:         coerceString(data["assessment"]),
		Strengths:       coerceStrings(data["strengths"]),
		Gaps:            coerceStrings(data["gaps"]),
		Recommendations: coerceStrings(data["recommendations"]),
		Raw:             raw,
	}

	score := coerceFloat(data["match_score"])
	if !math.IsNaN(score) && !math.IsInf(score, 0) && score >= minScore && score <= maxScore {
		assessment.MatchScore = &score
	}

	violations, err := validateAssessment(cleaned)
	if err != nil {
		return nil, err
	}
	assessment.Violations = violations

	return assessment, nil
}

func validateAssessment(document string) ([]string, error) {
	schema := gojsonschema.NewGoLoader(AssessmentSchema().JSONSchema())
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(document))
	if err != nil {
		return nil, fmt.Errorf("validate assessment: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// Some models wrap the object in prose.
	if !strings.HasPrefix(raw, "{") {
		start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}
