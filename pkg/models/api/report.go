package api

import "time"

type DecisionKind string

const (
	DecisionMerge DecisionKind = "merge"
	DecisionHold  DecisionKind = "hold"
)

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Reason string       `json:"reason"`
}

type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type PipelineReport struct {
	RunID      string       `json:"run_id"`
	Repository string       `json:"repository"`
	Number     int          `json:"pr_number"`
	Decision   Decision     `json:"decision"`
	Merged     bool         `json:"merged"`
	MergeSHA   string       `json:"merge_sha,omitempty"`
	Steps      []StepResult `json:"steps"`
	StartedAt  time.Time    `json:"started_at"`
	Duration   string       `json:"duration"`
}
