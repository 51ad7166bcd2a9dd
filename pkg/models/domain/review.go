package domain

// RiskLevel categorizes how risky a change or finding is.
type RiskLevel string

const (
	RiskCritical   RiskLevel = "CRITICAL"
	RiskHigh       RiskLevel = "HIGH"
	RiskMedium     RiskLevel = "MEDIUM"
	RiskLow        RiskLevel = "LOW"
	RiskNegligible RiskLevel = "NEGLIGIBLE"

	// RiskUnknown is a display-only normalization target for absent or
	// unrecognized values. It is never accepted on input.
	RiskUnknown RiskLevel = "UNKNOWN"
)

// riskLevels in severity order, most severe first.
var riskLevels = []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow, RiskNegligible}

// Rank returns a numeric rank for ordering (higher = more severe).
// RiskUnknown and any unrecognized value rank below NEGLIGIBLE.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 5
	case RiskHigh:
		return 4
	case RiskMedium:
		return 3
	case RiskLow:
		return 2
	case RiskNegligible:
		return 1
	default:
		return 0
	}
}

// RiskLevels returns the valid input values, most severe first.
func RiskLevels() []RiskLevel {
	out := make([]RiskLevel, len(riskLevels))
	copy(out, riskLevels)
	return out
}

// FindingType labels what kind of entry a finding is. The three well-known
// values cover everything the pipeline derives labels from; other non-empty
// values are preserved as-is.
type FindingType string

const (
	FindingTypeFinding  FindingType = "finding"
	FindingTypeVersion  FindingType = "version"
	FindingTypeResource FindingType = "resource"
)

// Subject identifies the component a version finding is about.
type Subject struct {
	Kind string
	Name string
	From string
	To   string
}

// Location points at the resource and file position a finding refers to.
type Location struct {
	Resource string
	Path     string
	Line     int
	Column   int
}

// Evidence carries raw supporting material attached to a finding.
type Evidence struct {
	Diff    string
	Snippet string
	YAML    string
}

// Reference is an external link attached to a finding.
type Reference struct {
	URL  string
	Note string
}

// Finding is a single reviewed observation. Once validated it is immutable
// and owned by the ReviewDocument that contains it.
type Finding struct {
	Type       FindingType
	Title      string
	Summary    string
	Risk       RiskLevel
	Tags       []string
	Cosmetic   bool
	Subject    *Subject
	Location   *Location
	Evidence   *Evidence
	References []Reference
}

// ReviewDocument is the validated form of the structured review verdict.
type ReviewDocument struct {
	Approved    bool
	OverallRisk RiskLevel
	Summary     string
	Findings    []Finding
}
