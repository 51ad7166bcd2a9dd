package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/charmbracelet/lipgloss"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("#50fa7b")
	colorRed    = lipgloss.Color("#ff5555")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorDim    = lipgloss.Color("#6272a4")
)

// Style definitions.
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mergeStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	holdStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle   = lipgloss.NewStyle().Foreground(colorRed)
	skipStyle   = lipgloss.NewStyle().Foreground(colorDim)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(report *domain.PipelineReport) error {
	funcMap := template.FuncMap{
		"decision": func(d domain.Decision) string {
			style := holdStyle
			if d.Kind == domain.DecisionMerge {
				style = mergeStyle
			}
			return style.Render(string(d.Kind)) + dimStyle.Render(" ("+d.Reason+")")
		},
		"status": func(s domain.StepStatus) string {
			switch s {
			case domain.StepOK:
				return okStyle.Render("ok  ")
			case domain.StepFailed:
				return failStyle.Render("fail")
			default:
				return skipStyle.Render("skip")
			}
		},
		"header": headerStyle.Render,
		"dim":    dimStyle.Render,
	}

	tmpl := `
{{header .Repository}} #{{.Number}} {{dim .RunID}}

Decision: {{decision .Decision}}
{{- if .Merged}}
Merged: {{.MergeSHA}}
{{- end}}

{{range .Steps}}  {{status .Status}} {{printf "%-8s" .Name}}{{if .Detail}} {{dim .Detail}}{{end}}{{if .Err}} {{dim .Err.Error}}{{end}}
{{end}}
Completed in {{.Duration}}
`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
