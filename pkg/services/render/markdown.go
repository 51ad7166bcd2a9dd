package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// Settings bounds the rendered output. GitHub rejects comment bodies over
// 65536 characters, so BodyLimit defaults to exactly that.
type Settings struct {
	FindingSummaryLimit int
	ReferenceNoteLimit  int
	BodyLimit           int
}

func DefaultSettings() Settings {
	return Settings{
		FindingSummaryLimit: 280,
		ReferenceNoteLimit:  240,
		BodyLimit:           65536,
	}
}

const truncationNotice = "\n\n... (truncated due to length)"

// Renderer turns derived state into the pull request comment body. Rendering
// is deterministic: the same state and decision always produce a byte-equal
// body, which is what makes the publisher's comment diffing reliable.
type Renderer struct {
	settings Settings
	tmpl     *template.Template
}

func NewRenderer(settings Settings) (*Renderer, error) {
	if settings.BodyLimit <= 0 {
		settings = DefaultSettings()
	}

	tmpl, err := template.New("comment").Parse(commentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse comment template: %w", err)
	}

	return &Renderer{settings: settings, tmpl: tmpl}, nil
}

// Render produces the full comment body, marker first. Oversized fields are
// truncated with an explicit marker rather than rejected; truncation is the
// designed degradation path here, never an error.
func (r *Renderer) Render(state domain.DerivedState, decision domain.Decision) (string, error) {
	view := r.buildView(state, decision)

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("failed to render comment: %w", err)
	}

	body := strings.TrimSpace(sb.String()) + "\n"
	return r.capBody(body), nil
}

func (r *Renderer) capBody(body string) string {
	runes := []rune(body)
	if len(runes) <= r.settings.BodyLimit {
		return body
	}
	keep := r.settings.BodyLimit - len([]rune(truncationNotice))
	return string(runes[:keep]) + truncationNotice
}

type commentView struct {
	Marker    string
	Headline  string
	Verdict   string
	Risk      string
	Total     int
	Blocking  int
	Summary   string
	AutoMerge string
	Findings  []findingView
}

type findingView struct {
	Open       bool
	Icon       string
	Risk       string
	Type       string
	Title      string
	Anchor     string
	Summary    string
	Cosmetic   bool
	Meta       []string
	Blocks     []codeBlock
	References []referenceView
}

type codeBlock struct {
	Lang string
	Body string
	Stat string
}

type referenceView struct {
	Line string
}

func (r *Renderer) buildView(state domain.DerivedState, decision domain.Decision) commentView {
	verdict := "Needs manual review"
	if state.Approved {
		verdict = "Approved"
	}

	autoMerge := "held"
	if decision.Kind == domain.DecisionMerge {
		autoMerge = "will merge"
	}
	if decision.Reason != "" {
		autoMerge += " (" + decision.Reason + ")"
	}

	view := commentView{
		Marker:    domain.CommentMarker,
		Headline:  state.Headline,
		Verdict:   verdict,
		Risk:      string(displayRisk(state.OverallRisk)),
		Total:     len(state.Findings),
		Blocking:  state.Blocking,
		Summary:   state.Summary,
		AutoMerge: autoMerge,
	}

	anchors := map[string]int{}
	for _, f := range state.Findings {
		view.Findings = append(view.Findings, r.buildFindingView(f, anchors))
	}

	return view
}

func (r *Renderer) buildFindingView(f domain.Finding, anchors map[string]int) findingView {
	view := findingView{
		Open:    f.Risk.Rank() >= domain.RiskMedium.Rank(),
		Icon:    riskIcon(f.Risk),
		Risk:    string(displayRisk(f.Risk)),
		Type:    string(f.Type),
		Title:   f.Title,
		Anchor:  makeAnchor(anchors, "finding", f.Title),
		Summary: truncate(f.Summary, r.settings.FindingSummaryLimit),
	}
	if view.Summary == "" {
		view.Summary = "n/a"
	}
	view.Cosmetic = f.Cosmetic

	if f.Subject != nil {
		view.Meta = append(view.Meta, subjectLine(f.Subject))
	}
	if f.Location != nil {
		view.Meta = append(view.Meta, locationLine(f.Location))
	}
	if len(f.Tags) > 0 {
		view.Meta = append(view.Meta, "Tags: `"+strings.Join(f.Tags, "`, `")+"`")
	}

	if f.Evidence != nil {
		if f.Evidence.Diff != "" {
			view.Blocks = append(view.Blocks, codeBlock{
				Lang: "diff",
				Body: f.Evidence.Diff,
				Stat: diffStat(f.Evidence.Diff),
			})
		}
		if f.Evidence.Snippet != "" {
			view.Blocks = append(view.Blocks, codeBlock{
				Lang: fenceLanguage(f.Location),
				Body: f.Evidence.Snippet,
			})
		}
		if f.Evidence.YAML != "" {
			view.Blocks = append(view.Blocks, codeBlock{
				Lang: "yaml",
				Body: f.Evidence.YAML,
			})
		}
	}

	for _, ref := range f.References {
		view.References = append(view.References, referenceView{
			Line: referenceLine(ref, r.settings.ReferenceNoteLimit),
		})
	}

	return view
}

func referenceLine(ref domain.Reference, noteLimit int) string {
	note := truncate(ref.Note, noteLimit)
	switch {
	case ref.URL != "" && note != "":
		return fmt.Sprintf("[%s](%s)", note, ref.URL)
	case ref.URL != "":
		return ref.URL
	default:
		return note
	}
}

func subjectLine(s *domain.Subject) string {
	line := "Subject: "
	if s.Kind != "" {
		line += s.Kind + " "
	}
	line += "`" + s.Name + "`"
	if s.From != "" || s.To != "" {
		from := s.From
		if from == "" {
			from = "n/a"
		}
		to := s.To
		if to == "" {
			to = "n/a"
		}
		line += fmt.Sprintf(" %s -> %s", from, to)
	}
	return line
}

func locationLine(l *domain.Location) string {
	var parts []string
	if l.Resource != "" {
		parts = append(parts, l.Resource)
	}
	if l.Path != "" {
		p := l.Path
		if l.Line > 0 {
			p = fmt.Sprintf("%s:%d", p, l.Line)
		}
		parts = append(parts, p)
	}
	return "Location: `" + strings.Join(parts, "` `") + "`"
}

// displayRisk substitutes UNKNOWN for a blank level. Validated documents never
// carry one, but hand-assembled state may.
func displayRisk(r domain.RiskLevel) domain.RiskLevel {
	if r == "" {
		return domain.RiskUnknown
	}
	return r
}

func riskIcon(r domain.RiskLevel) string {
	switch r {
	case domain.RiskCritical:
		return ":red_circle:"
	case domain.RiskHigh:
		return ":orange_circle:"
	case domain.RiskMedium:
		return ":yellow_circle:"
	case domain.RiskLow:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

// fenceLanguage infers a markdown fence language from the finding's file
// path, so evidence snippets get highlighted on GitHub.
func fenceLanguage(l *domain.Location) string {
	if l == nil || l.Path == "" {
		return ""
	}
	lexer := lexers.Match(filepath.Base(l.Path))
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}

// diffStat summarizes evidence that parses as a unified diff. Fragments that
// are not full diffs render without a stat line.
func diffStat(diff string) string {
	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil || len(files) == 0 {
		return ""
	}

	var added, deleted int64
	for _, f := range files {
		for _, frag := range f.TextFragments {
			added += frag.LinesAdded
			deleted += frag.LinesDeleted
		}
	}

	noun := "files"
	if len(files) == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s changed, +%d -%d", len(files), noun, added, deleted)
}

const commentTemplate = `{{.Marker}}
## {{.Headline}}

**Verdict:** {{.Verdict}} | **Overall risk:** ` + "`{{.Risk}}`" + ` | **Findings:** {{.Total}} ({{.Blocking}} blocking)

{{if .Summary}}{{.Summary}}

{{end}}**Auto-merge:** {{.AutoMerge}}
{{if .Findings}}
### Findings
{{range .Findings}}
<details{{if .Open}} open{{end}}>
<summary>{{.Icon}} {{.Risk}} [{{.Type}}] {{.Title}}</summary>

<a id="{{.Anchor}}"></a>

{{.Summary}}{{if .Cosmetic}} _(cosmetic)_{{end}}
{{range .Meta}}
- {{.}}
{{- end}}
{{range .Blocks}}
` + "```{{.Lang}}\n{{.Body}}\n```" + `
{{- if .Stat}}
_{{.Stat}}_
{{- end}}
{{end}}
{{- if .References}}
References:
{{range .References}}
- {{.Line}}
{{- end}}
{{end}}
</details>
{{end}}{{end}}`
