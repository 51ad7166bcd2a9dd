package review

import (
	"fmt"
	"regexp"
	"strings"
)

// fencedJSON matches a ```json code fence and captures the object inside.
// The reviewer model wraps its verdict this way; surrounding prose and
// earlier draft blocks are noise.
var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// ExtractDocument pulls the raw review JSON out of model output. When the
// output contains multiple fenced blocks the last one wins, since the model
// emits its final verdict after any intermediate reasoning. Output that is
// already a bare JSON object is accepted unchanged.
func ExtractDocument(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("model output is empty")
	}

	matches := fencedJSON.FindAllStringSubmatch(trimmed, -1)
	if len(matches) > 0 {
		return matches[len(matches)-1][1], nil
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, nil
	}

	return "", fmt.Errorf("no fenced json block found in model output")
}
