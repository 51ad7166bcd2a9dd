package domain

// AutoMergeConfig gates the merge executor. Empty filter sets match any value.
type AutoMergeConfig struct {
	Enabled        bool
	BranchPrefixes []string
	BranchRegexes  []string
	AuthorLogins   []string

	// MaxRisk is the risk ceiling rule: a review whose overall risk ranks
	// above it is held even when approved. Repo config may widen or narrow it.
	MaxRisk RiskLevel
}

// LabelConfig styles the derived labels.
type LabelConfig struct {
	DefaultColor     string
	RiskColors       map[string]string
	ChangeTypeColors map[string]string
	UpdateColors     map[string]string
	Descriptions     map[string]string
}

// RepoConfig is the per-repository configuration, resolved once per run.
type RepoConfig struct {
	AutoMerge AutoMergeConfig
	Labels    LabelConfig
}

const defaultLabelColor = "6f42c1"

const defaultLabelDescription = "Automated review metadata label."

// DefaultRepoConfig returns the built-in configuration used when a file or
// key is absent. A missing config is never an error.
func DefaultRepoConfig() RepoConfig {
	return RepoConfig{
		AutoMerge: AutoMergeConfig{
			Enabled: false,
			MaxRisk: RiskMedium,
		},
		Labels: LabelConfig{
			DefaultColor: defaultLabelColor,
			RiskColors: map[string]string{
				string(RiskCritical):   "b60205",
				string(RiskHigh):       "d93f0b",
				string(RiskMedium):     "fbca04",
				string(RiskLow):        "0e8a16",
				string(RiskNegligible): "c2e0c6",
			},
			ChangeTypeColors: map[string]string{},
			UpdateColors:     map[string]string{},
			Descriptions: map[string]string{
				"risk":   "Overall risk assessed by the automated review.",
				"update": "Dependency or version update detected by the automated review.",
				"change": "Resource change detected by the automated review.",
			},
		},
	}
}

// RiskColor resolves the color for a risk label, falling back to the default.
func (c LabelConfig) RiskColor(r RiskLevel) string {
	if color, ok := c.RiskColors[string(r)]; ok && color != "" {
		return color
	}
	return c.fallbackColor()
}

// TagColor resolves the color for a recognized tag prefix and value.
func (c LabelConfig) TagColor(prefix, value string) string {
	var m map[string]string
	switch prefix {
	case "change":
		m = c.ChangeTypeColors
	case "update":
		m = c.UpdateColors
	}
	if color, ok := m[value]; ok && color != "" {
		return color
	}
	return c.fallbackColor()
}

// DescriptionFor resolves the label description for a namespace prefix.
func (c LabelConfig) DescriptionFor(prefix string) string {
	if d, ok := c.Descriptions[prefix]; ok && d != "" {
		return d
	}
	return defaultLabelDescription
}

func (c LabelConfig) fallbackColor() string {
	if c.DefaultColor != "" {
		return c.DefaultColor
	}
	return defaultLabelColor
}
