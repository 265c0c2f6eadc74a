// Package generation wraps single text-generator invocations as typed steps.
package generation

import (
	"errors"
	"fmt"
)

// Kind identifies a generation step and the artifact it produces.
type Kind string

const (
	KindAssessment    Kind = "assessment"
	KindCV            Kind = "cv"
	KindCoverLetter   Kind = "cover_letter"
	KindInterviewPrep Kind = "interview_prep"
)

// Input names a field a step draws from.
type Input string

const (
	InputPosting     Input = "posting"
	InputProfile     Input = "profile"
	InputAssessment  Input = "assessment"
	InputCV          Input = Input(KindCV)
	InputCoverLetter Input = Input(KindCoverLetter)
)

// Inputs carries everything a step may need. Artifacts holds the outputs of
// earlier steps of the same run.
type Inputs struct {
	Posting    string
	Profile    map[string]any
	Assessment *Assessment
	Artifacts  map[Kind]*Artifact

	// AllowPlaceholders substitutes an explicit marker for a missing upstream
	// artifact instead of failing with ReasonUpstreamUnavailable.
	AllowPlaceholders bool
}

// Artifact is the output of one step.
type Artifact struct {
	Kind    Kind    `json:"kind"`
	Text    string  `json:"text"`
	Sources []Input `json:"sources"`
	// Placeholders lists inputs that were substituted because they were missing.
	Placeholders []Input `json:"placeholders,omitempty"`

	Assessment *Assessment `json:"-"`
}

// Reason classifies a failed step.
type Reason string

const (
	ReasonGenerationFailed    Reason = "generation_failed"
	ReasonTimeout             Reason = "timeout"
	ReasonEmptyOutput         Reason = "empty_output"
	ReasonInvalidOutput       Reason = "invalid_output"
	ReasonUpstreamUnavailable Reason = "upstream_unavailable"
)

// Error is returned by Step.Execute for every failure.
type Error struct {
	Kind   Kind   `json:"kind"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, reason Reason, err error) *Error {
	genErr := &Error{Kind: kind, Reason: reason, Err: err}
	if err != nil {
		genErr.Detail = err.Error()
	}
	return genErr
}

// ReasonOf returns the reason of a generation error, or an empty string.
func ReasonOf(err error) Reason {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Reason
	}
	return ""
}
