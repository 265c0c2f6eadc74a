package generation

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/spigell/job-seeker/internal/ai"
)

var (
	//go:embed prompts/assessment.md
	assessmentPrompt string
	//go:embed prompts/cv.md
	cvPrompt string
	//go:embed prompts/cover_letter.md
	coverLetterPrompt string
	//go:embed prompts/interview_prep.md
	interviewPrepPrompt string
)

// Step is one generator invocation with a fixed instruction template.
type Step struct {
	Kind            Kind
	Requires        []Input
	Instructions    string
	MaxOutputTokens int32
	Temperature     float32
	Schema          *ai.Schema
}

// Steps is an ordered step table.
type Steps []Step

// DefaultSteps returns the assessment step followed by the three documents in
// dependency order.
func DefaultSteps() Steps {
	return Steps{
		{
			Kind:            KindAssessment,
			Requires:        []Input{InputPosting, InputProfile},
			Instructions:    assessmentPrompt,
			MaxOutputTokens: 3000,
			Temperature:     0.3,
			Schema:          AssessmentSchema(),
		},
		{
			Kind:            KindCV,
			Requires:        []Input{InputProfile, InputPosting, InputAssessment},
			Instructions:    cvPrompt,
			MaxOutputTokens: 4000,
			Temperature:     0.3,
		},
		{
			Kind:            KindCoverLetter,
			Requires:        []Input{InputPosting, InputProfile, InputAssessment},
			Instructions:    coverLetterPrompt,
			MaxOutputTokens: 4000,
			Temperature:     0.7,
		},
		{
			Kind:            KindInterviewPrep,
			Requires:        []Input{InputPosting, InputCV, InputCoverLetter, InputAssessment},
			Instructions:    interviewPrepPrompt,
			MaxOutputTokens: 9000,
			Temperature:     0.7,
		},
	}
}

// Find returns the step for kind.
func (s Steps) Find(kind Kind) (Step, bool) {
	for _, step := range s {
		if step.Kind == kind {
			return step, true
		}
	}
	return Step{}, false
}

// Kinds returns the step kinds in table order.
func (s Steps) Kinds() []Kind {
	kinds := make([]Kind, 0, len(s))
	for _, step := range s {
		kinds = append(kinds, step.Kind)
	}
	return kinds
}

// Execute performs exactly one generator call. Every returned error is an *Error.
func (s Step) Execute(ctx context.Context, gen ai.Generator, in Inputs) (*Artifact, error) {
	if gen == nil {
		return nil, newError(s.Kind, ReasonGenerationFailed, errors.New("generator is not configured"))
	}

	payload, placeholders, err := s.payload(in)
	if err != nil {
		return nil, err
	}

	raw, err := gen.Generate(ctx, ai.Request{
		Instructions:    s.Instructions,
		Input:           payload,
		MaxOutputTokens: s.MaxOutputTokens,
		Temperature:     s.Temperature,
		Schema:          s.Schema,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(s.Kind, ReasonTimeout, err)
		}
		return nil, newError(s.Kind, ReasonGenerationFailed, err)
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, newError(s.Kind, ReasonEmptyOutput, errors.New("generator returned no content"))
	}

	artifact := &Artifact{
		Kind:         s.Kind,
		Text:         text,
		Sources:      append([]Input(nil), s.Requires...),
		Placeholders: placeholders,
	}

	if s.Kind == KindAssessment {
		assessment, err := ParseAssessment(text)
		if err != nil {
			return nil, newError(s.Kind, ReasonInvalidOutput, err)
		}
		artifact.Assessment = assessment
	}

	return artifact, nil
}

func (s Step) payload(in Inputs) (string, []Input, error) {
	var (
		b            strings.Builder
		placeholders []Input
	)
	b.WriteString("INPUT DATA:\n")

	for _, input := range s.Requires {
		value, err := inputValue(input, in)
		if err != nil {
			if !in.AllowPlaceholders || !isArtifactInput(input) {
				return "", nil, newError(s.Kind, ReasonUpstreamUnavailable, err)
			}
			value = fmt.Sprintf("[%s not available]", inputLabel(input))
			placeholders = append(placeholders, input)
		}

		fmt.Fprintf(&b, "\n%s:\n%s\n", inputLabel(input), value)
	}

	return strings.TrimRight(b.String(), "\n"), placeholders, nil
}

func inputValue(input Input, in Inputs) (string, error) {
	switch input {
	case InputPosting:
		if strings.TrimSpace(in.Posting) == "" {
			return "", errors.New("job posting is empty")
		}
		return strings.TrimSpace(in.Posting), nil
	case InputProfile:
		if len(in.Profile) == 0 {
			return "", errors.New("candidate profile is empty")
		}
		data, err := yaml.Marshal(in.Profile)
		if err != nil {
			return "", fmt.Errorf("encode profile: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case InputAssessment:
		if in.Assessment == nil {
			return "", errors.New("assessment is not available")
		}
		data, err := json.MarshalIndent(in.Assessment, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode assessment: %w", err)
		}
		return string(data), nil
	case InputCV, InputCoverLetter:
		artifact := in.Artifacts[Kind(input)]
		if artifact == nil || strings.TrimSpace(artifact.Text) == "" {
			return "", fmt.Errorf("%s artifact is not available", input)
		}
		return artifact.Text, nil
	default:
		return "", fmt.Errorf("unknown input %q", input)
	}
}

func isArtifactInput(input Input) bool {
	return input == InputCV || input == InputCoverLetter
}

func inputLabel(input Input) string {
	switch input {
	case InputPosting:
		return "Job Posting"
	case InputProfile:
		return "Candidate Profile"
	case InputAssessment:
		return "Job Assessment"
	case InputCV:
		return "Candidate CV"
	case InputCoverLetter:
		return "Cover Letter"
	default:
		return string(input)
	}
}
