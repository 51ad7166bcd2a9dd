package review

import (
	"fmt"
	"strings"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// normalizeDocument maps checked JSON into the typed document. It resolves
// legacy aliases (changes, component, isCosmetic, bare resource strings),
// lowercases types and tags, and synthesizes the change:/update: tags that
// label derivation keys on.
func normalizeDocument(data map[string]any) *domain.ReviewDocument {
	doc := &domain.ReviewDocument{
		Approved:    boolValue(data["approved"]),
		OverallRisk: domain.RiskLevel(strings.ToUpper(strings.TrimSpace(stringValue(data["overallRisk"])))),
		Summary:     strings.TrimSpace(stringValue(data["summary"])),
	}

	raw, _, _ := findingsField(data)
	list, _ := raw.([]any)
	doc.Findings = make([]domain.Finding, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc.Findings = append(doc.Findings, normalizeFinding(entry))
	}

	return doc
}

func normalizeFinding(entry map[string]any) domain.Finding {
	f := domain.Finding{
		Type:    domain.FindingType(strings.ToLower(strings.TrimSpace(stringValue(entry["type"])))),
		Summary: strings.TrimSpace(stringValue(entry["summary"])),
		Risk:    domain.RiskLevel(strings.ToUpper(strings.TrimSpace(stringValue(entry["risk"])))),
	}

	subject := objectValue(entry["subject"])
	component := objectValue(entry["component"])
	if subject == nil && component != nil {
		subject = component
	}
	if subject != nil {
		s := domain.Subject{
			Kind: strings.TrimSpace(stringValue(subject["kind"])),
			Name: strings.TrimSpace(stringValue(subject["name"])),
			From: strings.TrimSpace(stringValue(subject["from"])),
			To:   strings.TrimSpace(stringValue(subject["to"])),
		}
		if s.Kind != "" || s.Name != "" {
			f.Subject = &s
		}
	}

	location := objectValue(entry["location"])
	if location == nil {
		if resource := strings.TrimSpace(stringValue(entry["resource"])); resource != "" {
			location = map[string]any{"resource": resource}
		}
	}
	if location != nil {
		l := domain.Location{
			Resource: strings.TrimSpace(stringValue(location["resource"])),
			Path:     strings.TrimSpace(stringValue(location["path"])),
			Line:     intValue(location["line"]),
			Column:   intValue(location["column"]),
		}
		if l.Resource != "" || l.Path != "" || l.Line != 0 || l.Column != 0 {
			f.Location = &l
		}
	}

	f.Title = findingTitle(entry, f)

	f.Tags = findingTags(entry, f)

	cosmetic, ok := entry["cosmetic"]
	if !ok {
		cosmetic = entry["isCosmetic"]
	}
	f.Cosmetic = boolValue(cosmetic)

	if evidence := objectValue(entry["evidence"]); evidence != nil {
		e := domain.Evidence{
			Diff:    strings.TrimSpace(stringValue(evidence["diff"])),
			Snippet: strings.TrimSpace(stringValue(evidence["snippet"])),
			YAML:    strings.TrimSpace(stringValue(evidence["yaml"])),
		}
		if e.Diff != "" || e.Snippet != "" || e.YAML != "" {
			f.Evidence = &e
		}
	}

	if refs, ok := entry["references"].([]any); ok {
		for _, item := range refs {
			ref := objectValue(item)
			if ref == nil {
				continue
			}
			url := strings.TrimSpace(stringValue(ref["url"]))
			note := strings.TrimSpace(stringValue(ref["note"]))
			if url != "" || note != "" {
				f.References = append(f.References, domain.Reference{URL: url, Note: note})
			}
		}
	}

	return f
}

// findingTitle falls back through subject and location details when the
// reviewer left the title blank.
func findingTitle(entry map[string]any, f domain.Finding) string {
	title := strings.TrimSpace(stringValue(entry["title"]))
	if title != "" {
		return title
	}

	if f.Subject != nil && f.Subject.Name != "" {
		if f.Subject.From != "" || f.Subject.To != "" {
			from := f.Subject.From
			if from == "" {
				from = "n/a"
			}
			to := f.Subject.To
			if to == "" {
				to = "n/a"
			}
			return fmt.Sprintf("%s %s -> %s", f.Subject.Name, from, to)
		}
		return f.Subject.Name
	}
	if f.Location != nil && f.Location.Resource != "" {
		return f.Location.Resource
	}
	return fmt.Sprintf("%s finding", f.Type)
}

// findingTags normalizes declared tags and appends the synthesized
// change:/update: tags derived from legacy-shaped fields.
func findingTags(entry map[string]any, f domain.Finding) []string {
	var tags []string
	seen := map[string]bool{}

	addTag := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			return
		}
		tags = append(tags, tag)
		seen[tag] = true
	}

	if declared, ok := entry["tags"].([]any); ok {
		for _, item := range declared {
			if s, ok := item.(string); ok {
				addTag(s)
			}
		}
	}

	if changeType := strings.ToLower(strings.TrimSpace(stringValue(entry["changeType"]))); changeType != "" {
		addTag("change:" + changeType)
	}

	if f.Type == domain.FindingTypeVersion && f.Subject != nil {
		if kind := strings.ToLower(f.Subject.Kind); kind != "" {
			addTag("update:" + kind)
		}
	}

	return tags
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func intValue(v any) int {
	// JSON numbers decode as float64.
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int(f)
}

func objectValue(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
