package domain

import "time"

// DecisionKind is the merge policy verdict.
type DecisionKind string

const (
	DecisionMerge DecisionKind = "merge"
	DecisionHold  DecisionKind = "hold"
)

// Decision pairs the verdict with a human-readable reason.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// Hold builds a hold decision with the given reason.
func Hold(reason string) Decision {
	return Decision{Kind: DecisionHold, Reason: reason}
}

// Merge builds a merge decision with the given reason.
func Merge(reason string) Decision {
	return Decision{Kind: DecisionMerge, Reason: reason}
}

// Pipeline step names as they appear in reports and logs.
const (
	StepValidate = "validate"
	StepRender   = "render"
	StepComment  = "comment"
	StepLabels   = "labels"
	StepMerge    = "merge"
)

// StepStatus classifies how a pipeline step ended.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult is the per-step outcome. Side-effecting steps report
// independently so one failure never hides its siblings' results.
type StepResult struct {
	Name   string
	Status StepStatus
	Detail string
	Err    error
}

// Failed reports whether any listed step failed.
func Failed(steps []StepResult) bool {
	for _, s := range steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// PipelineReport aggregates one review cycle's outcomes.
type PipelineReport struct {
	RunID      string
	Repository string
	Number     int
	Decision   Decision
	Merged     bool
	MergeSHA   string
	Steps      []StepResult
	StartedAt  time.Time
	Duration   time.Duration
}

// Step returns the result for a named step, or nil when it never ran.
func (r *PipelineReport) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}
