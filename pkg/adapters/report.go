package adapters

import (
	"github.com/de-tools/review-gate/pkg/models/api"
	"github.com/de-tools/review-gate/pkg/models/domain"
)

func MapDecisionKindDomainToApi(k domain.DecisionKind) api.DecisionKind {
	switch k {
	case domain.DecisionMerge:
		return api.DecisionMerge
	case domain.DecisionHold:
		return api.DecisionHold
	default:
		return api.DecisionHold
	}
}

func MapDecisionDomainToApi(d domain.Decision) api.Decision {
	return api.Decision{
		Kind:   MapDecisionKindDomainToApi(d.Kind),
		Reason: d.Reason,
	}
}

func MapStepStatusDomainToApi(s domain.StepStatus) api.StepStatus {
	switch s {
	case domain.StepOK:
		return api.StepOK
	case domain.StepFailed:
		return api.StepFailed
	case domain.StepSkipped:
		return api.StepSkipped
	default:
		return api.StepSkipped
	}
}

func MapStepResultDomainToApi(s domain.StepResult) api.StepResult {
	res := api.StepResult{
		Name:   s.Name,
		Status: MapStepStatusDomainToApi(s.Status),
		Detail: s.Detail,
	}
	if s.Err != nil {
		res.Error = s.Err.Error()
	}
	return res
}

func MapPipelineReportDomainToApi(r domain.PipelineReport) api.PipelineReport {
	res := api.PipelineReport{
		RunID:      r.RunID,
		Repository: r.Repository,
		Number:     r.Number,
		Decision:   MapDecisionDomainToApi(r.Decision),
		Merged:     r.Merged,
		MergeSHA:   r.MergeSHA,
		Steps:      make([]api.StepResult, 0, len(r.Steps)),
		StartedAt:  r.StartedAt,
		Duration:   r.Duration.String(),
	}
	for _, s := range r.Steps {
		res.Steps = append(res.Steps, MapStepResultDomainToApi(s))
	}
	return res
}
