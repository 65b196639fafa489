package models

import (
	"encoding/json"
	"fmt"
)

// Phase represents the execution phase of a job. Phases follow the UWS
// lifecycle and only ever move forward through the state machine.
type Phase string

// Job phase constants
const (
	// PhasePending indicates the job has been accepted but not yet sent for execution
	PhasePending Phase = "PENDING"
	// PhaseQueued indicates the job has been sent for execution but not yet started
	PhaseQueued Phase = "QUEUED"
	// PhaseExecuting indicates the job is currently in progress
	PhaseExecuting Phase = "EXECUTING"
	// PhaseCompleted indicates the job finished and its results are available
	PhaseCompleted Phase = "COMPLETED"
	// PhaseError indicates the job failed and reported an error
	PhaseError Phase = "ERROR"
	// PhaseAborted indicates the job was aborted before it completed
	PhaseAborted Phase = "ABORTED"
)

// Phases lists every defined phase in lifecycle order.
var Phases = []Phase{
	PhasePending,
	PhaseQueued,
	PhaseExecuting,
	PhaseCompleted,
	PhaseError,
	PhaseAborted,
}

// phaseTransitions is the set of legal forward transitions. Terminal
// phases have no outgoing edges.
var phaseTransitions = map[Phase][]Phase{
	PhasePending:   {PhaseQueued, PhaseAborted},
	PhaseQueued:    {PhaseExecuting, PhaseAborted},
	PhaseExecuting: {PhaseCompleted, PhaseError, PhaseAborted},
}

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase permits no further transitions
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseError, PhaseAborted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine permits moving from
// this phase to next.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to a Phase
func ParsePhase(str string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == str {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid job phase: %s", str)
}

// UnmarshalJSON implements json.Unmarshaler for Phase
func (p *Phase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	phase, err := ParsePhase(str)
	if err != nil {
		return err
	}

	*p = phase
	return nil
}

// MarshalJSON implements json.Marshaler for Phase
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}
