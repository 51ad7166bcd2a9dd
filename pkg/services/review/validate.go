package review

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// maxDocumentSize guards against runaway model output; anything larger than
// this is rejected before parsing.
const maxDocumentSize = 10 << 20

var requiredFields = []string{"approved", "overallRisk", "summary", "findings"}

var requiredFindingFields = []string{"type", "title", "summary", "risk"}

// Violation is a single schema problem located by a slash-separated path.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError reports every violation found in a document, not just the
// first, so the caller can surface all problems at once. A document that
// produces one is rejected wholesale: nothing downstream runs.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("review document invalid (%d violations): %s",
		len(e.Violations), strings.Join(msgs, "; "))
}

// Validate parses raw review JSON and checks it against the document schema.
// On success it returns the fully-typed document with aliases resolved and
// values normalized; on failure it returns a ValidationError listing every
// violation, sorted by path.
func Validate(raw []byte) (*domain.ReviewDocument, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, &ValidationError{Violations: []Violation{
			{Path: "<root>", Message: "document is empty"},
		}}
	}
	if len(raw) > maxDocumentSize {
		return nil, &ValidationError{Violations: []Violation{
			{Path: "<root>", Message: fmt.Sprintf("document too large (%d bytes)", len(raw))},
		}}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &ValidationError{Violations: []Violation{
			{Path: "<root>", Message: fmt.Sprintf("unable to parse JSON: %v", err)},
		}}
	}

	violations := checkDocument(data)
	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return violations[i].Path < violations[j].Path
		})
		return nil, &ValidationError{Violations: violations}
	}

	return normalizeDocument(data), nil
}

func checkDocument(data map[string]any) []Violation {
	var violations []Violation

	add := func(path, format string, args ...any) {
		violations = append(violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	for _, field := range requiredFields {
		if _, ok := data[field]; ok {
			continue
		}
		// "changes" is the legacy alias for "findings".
		if field == "findings" {
			if _, ok := data["changes"]; ok {
				continue
			}
		}
		add(field, "required field missing")
	}

	if v, ok := data["approved"]; ok {
		if _, isBool := v.(bool); !isBool {
			add("approved", "must be boolean, got %s", jsonTypeName(v))
		}
	}

	if v, ok := data["overallRisk"]; ok {
		s, isString := v.(string)
		if !isString {
			add("overallRisk", "must be string, got %s", jsonTypeName(v))
		} else if !validRisk(s) {
			add("overallRisk", "must be one of %v, got %q", domain.RiskLevels(), s)
		}
	}

	if v, ok := data["summary"]; ok {
		if _, isString := v.(string); !isString {
			add("summary", "must be string, got %s", jsonTypeName(v))
		}
	}

	findings, path, present := findingsField(data)
	if present {
		list, isList := findings.([]any)
		if !isList {
			add(path, "must be array, got %s", jsonTypeName(findings))
		} else {
			violations = append(violations, checkFindings(path, list)...)
		}
	}

	return violations
}

func checkFindings(basePath string, findings []any) []Violation {
	var violations []Violation

	add := func(path, format string, args ...any) {
		violations = append(violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	for i, item := range findings {
		path := fmt.Sprintf("%s/%d", basePath, i)

		entry, isObject := item.(map[string]any)
		if !isObject {
			add(path, "must be object, got %s", jsonTypeName(item))
			continue
		}

		for _, field := range requiredFindingFields {
			if _, ok := entry[field]; !ok {
				add(path+"/"+field, "required field missing")
			}
		}

		if v, ok := entry["type"]; ok {
			s, isString := v.(string)
			if !isString {
				add(path+"/type", "must be string, got %s", jsonTypeName(v))
			} else if strings.TrimSpace(s) == "" {
				add(path+"/type", "must be a non-empty string")
			}
		}

		if v, ok := entry["title"]; ok {
			if _, isString := v.(string); !isString {
				add(path+"/title", "must be string, got %s", jsonTypeName(v))
			}
		}

		if v, ok := entry["summary"]; ok {
			if _, isString := v.(string); !isString {
				add(path+"/summary", "must be string, got %s", jsonTypeName(v))
			}
		}

		if v, ok := entry["risk"]; ok {
			s, isString := v.(string)
			if !isString {
				add(path+"/risk", "must be string, got %s", jsonTypeName(v))
			} else if !validRisk(s) {
				add(path+"/risk", "must be one of %v, got %q", domain.RiskLevels(), s)
			}
		}
	}

	return violations
}

// findingsField resolves the findings array, honoring the "changes" alias
// emitted by older prompt versions.
func findingsField(data map[string]any) (any, string, bool) {
	if v, ok := data["findings"]; ok {
		return v, "findings", true
	}
	if v, ok := data["changes"]; ok {
		return v, "changes", true
	}
	return nil, "findings", false
}

func validRisk(s string) bool {
	r := domain.RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	for _, level := range domain.RiskLevels() {
		if r == level {
			return true
		}
	}
	return false
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
