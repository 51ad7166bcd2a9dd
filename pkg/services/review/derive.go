package review

import (
	"sort"
	"strings"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

const defaultHeadline = "Automated Review Summary"

// Derive computes display ordering, the managed label set, and the blocking
// count from a validated document plus repository configuration. It is pure:
// identical inputs always produce identical output, so retried runs converge
// on the same remote state.
func Derive(doc *domain.ReviewDocument, cfg domain.RepoConfig) domain.DerivedState {
	state := domain.DerivedState{
		Approved:    doc.Approved,
		OverallRisk: doc.OverallRisk,
		Summary:     doc.Summary,
		Headline:    headline(doc.Summary),
		Labels:      deriveLabels(doc, cfg.Labels),
	}

	state.Findings = make([]domain.Finding, len(doc.Findings))
	copy(state.Findings, doc.Findings)
	sort.SliceStable(state.Findings, func(i, j int) bool {
		return state.Findings[i].Risk.Rank() > state.Findings[j].Risk.Rank()
	})

	for _, f := range doc.Findings {
		if !f.Cosmetic {
			state.Blocking++
		}
	}

	return state
}

func headline(summary string) string {
	if summary == "" {
		return defaultHeadline
	}
	first, _, _ := strings.Cut(summary, "\n")
	return strings.TrimSpace(first)
}

// deriveLabels walks findings in document order and collects one label per
// distinct managed tag, then appends the overall-risk label. Resource
// findings without an explicit change type still get a change:other label so
// every resource change is visible in the label set.
func deriveLabels(doc *domain.ReviewDocument, cfg domain.LabelConfig) []domain.Label {
	var labels []domain.Label
	seen := map[string]bool{}

	add := func(name, color, prefix string) {
		if seen[name] {
			return
		}
		labels = append(labels, domain.Label{
			Name:        name,
			Color:       color,
			Description: cfg.DescriptionFor(prefix),
		})
		seen[name] = true
	}

	for _, f := range doc.Findings {
		hasChangeTag := false
		for _, tag := range f.Tags {
			prefix, value, ok := strings.Cut(tag, ":")
			if !ok || prefix == "" || value == "" {
				continue
			}
			switch prefix {
			case "change", "update":
				add(prefix+":"+value, cfg.TagColor(prefix, value), prefix)
				if prefix == "change" {
					hasChangeTag = true
				}
			}
		}

		if f.Type == domain.FindingTypeResource && !hasChangeTag {
			add("change:other", cfg.TagColor("change", "other"), "change")
		}
	}

	risk := strings.ToLower(string(doc.OverallRisk))
	add("risk:"+risk, cfg.RiskColor(doc.OverallRisk), "risk")

	return labels
}
