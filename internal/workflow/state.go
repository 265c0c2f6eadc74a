package workflow

import (
	"time"

	"github.com/spigell/job-seeker/internal/generation"
)

// State is a workflow state machine state.
type State string

const (
	StateStart                   State = "start"
	StateAssessing               State = "assessing"
	StateRejected                State = "rejected"
	StateGeneratingCV            State = "generating_cv"
	StateGeneratingCoverLetter   State = "generating_cover_letter"
	StateGeneratingInterviewPrep State = "generating_interview_prep"
	StateDone                    State = "done"
)

// Terminal reports whether no further steps can run from s.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateDone
}

// stateKinds maps each working state to the only step kind it accepts.
var stateKinds = map[State]generation.Kind{
	StateAssessing:               generation.KindAssessment,
	StateGeneratingCV:            generation.KindCV,
	StateGeneratingCoverLetter:   generation.KindCoverLetter,
	StateGeneratingInterviewPrep: generation.KindInterviewPrep,
}

// Expected returns the step kind the state accepts.
func (s State) Expected() (generation.Kind, bool) {
	kind, ok := stateKinds[s]
	return kind, ok
}

func nextDocumentState(s State) State {
	switch s {
	case StateAssessing:
		return StateGeneratingCV
	case StateGeneratingCV:
		return StateGeneratingCoverLetter
	case StateGeneratingCoverLetter:
		return StateGeneratingInterviewPrep
	default:
		return StateDone
	}
}

// StepStatus is the outcome of one step request.
type StepStatus string

const (
	StatusSucceeded         StepStatus = "succeeded"
	StatusFailed            StepStatus = "failed"
	StatusSkippedDuplicate  StepStatus = "skipped_duplicate"
	StatusSkippedOutOfOrder StepStatus = "skipped_out_of_order"
	StatusBlockedByGate     StepStatus = "blocked_by_gate"
)

// StepRecord is one entry of the step log. Every request made by the driver
// gets a record, executed or not.
type StepRecord struct {
	Seq      int               `json:"seq"`
	Kind     generation.Kind   `json:"kind"`
	State    State             `json:"state"`
	Status   StepStatus        `json:"status"`
	Reason   generation.Reason `json:"reason,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Snapshot is the read-only view of a run handed to a Driver.
type Snapshot struct {
	State    State
	Executed []generation.Kind
	Requests int
}

// workflowState is owned by a single Run call.
type workflowState struct {
	state      State
	executed   map[generation.Kind]bool
	order      []generation.Kind
	requests   int
	assessment *generation.Assessment
	gatePassed bool
	artifacts  map[generation.Kind]*generation.Artifact
	failures   map[generation.Kind]*generation.Error
	log        []StepRecord
}

func newWorkflowState() *workflowState {
	return &workflowState{
		state:     StateStart,
		executed:  make(map[generation.Kind]bool),
		artifacts: make(map[generation.Kind]*generation.Artifact),
		failures:  make(map[generation.Kind]*generation.Error),
	}
}

func (s *workflowState) snapshot() Snapshot {
	return Snapshot{
		State:    s.state,
		Executed: append([]generation.Kind(nil), s.order...),
		Requests: s.requests,
	}
}

func (s *workflowState) record(kind generation.Kind, status StepStatus, reason generation.Reason, d time.Duration) StepRecord {
	rec := StepRecord{
		Seq:      s.requests,
		Kind:     kind,
		State:    s.state,
		Status:   status,
		Reason:   reason,
		Duration: d,
	}
	s.log = append(s.log, rec)
	return rec
}

func (s *workflowState) markExecuted(kind generation.Kind) {
	s.executed[kind] = true
	s.order = append(s.order, kind)
}
