package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var funcs = template.FuncMap{
	"join":      joinAny,
	"statusTag": statusTag,
	"signed":    func(n int) string { return fmt.Sprintf("%+d", n) },
	"inc":       func(n int) int { return n + 1 },
}

const resultsTmpl = `{{range .Outputs}}{{if .Failed}}[ERROR] item {{.PairedItem}}: {{.Error}}
{{else}}{{with .Result}}[{{statusTag .Status}}] {{.InputControlText | printf "%q"}}
  Score: {{.Score}}/100  Confidence: {{.Confidence}}  Evaluation: {{.Evaluation}}
  Categories: {{join .Categories}}
  Rationale: {{.Rationale}}
{{- if .MappedRequirements}}
  Mapped requirements:
{{- range .MappedRequirements}}
    - {{.Framework}} {{.Clause}}: {{.Title}}
{{- end}}{{end}}
{{- if .Gaps}}
  Gaps: {{join .Gaps}}{{end}}
  Actions:
{{- range .Actions}}
    - {{.}}
{{- end}}
{{end}}{{end}}
{{end}}Summary: {{.Total}} items, {{.Compliant}} Compliant, {{.Partial}} Partial, {{.NonCompliant}} Non-Compliant, {{.Failures}} failed
`

const diffTmpl = `{{define "changes"}}{{range .}}  {{.ControlText | printf "%q"}}{{if and .Before .After}}: {{.Before.Status}} {{.Before.Score}} -> {{.After.Status}} {{.After.Score}} ({{signed .ScoreDelta}}){{else if .After}}: {{.After.Status}} {{.After.Score}}{{else}}: was {{.Before.Status}} {{.Before.Score}}{{end}}
{{end}}{{end -}}
{{if .Improved}}Improved:
{{template "changes" .Improved}}{{end -}}
{{if .Regressed}}Regressed:
{{template "changes" .Regressed}}{{end -}}
{{if .Added}}Added:
{{template "changes" .Added}}{{end -}}
{{if .Removed}}Removed:
{{template "changes" .Removed}}{{end -}}
Unchanged: {{len .Unchanged}}
`

const runsTmpl = `{{range .}}{{.ID}}  {{.CreatedAt.Format "2006-01-02 15:04:05"}}  items={{.Items}} compliant={{.Compliant}} partial={{.Partial}} non_compliant={{.NonCompliant}} failed={{.Failures}} avg={{printf "%.1f" .AverageScore}}  crosswalk={{.CrosswalkSource}}
{{else}}No recorded runs.
{{end}}`

const crosswalkTmpl = `{{range .}}{{.Category}}
{{- range .Clauses}}
  {{.Framework}} {{.Clause}}: {{.Title}}
{{- else}}
  (no clauses)
{{- end}}
{{end}}`

var (
	resultsT   = template.Must(template.New("results").Funcs(funcs).Parse(resultsTmpl))
	diffT      = template.Must(template.New("diff").Funcs(funcs).Parse(diffTmpl))
	runsT      = template.Must(template.New("runs").Funcs(funcs).Parse(runsTmpl))
	crosswalkT = template.Must(template.New("crosswalk").Funcs(funcs).Parse(crosswalkTmpl))
)

type resultsView struct {
	Outputs                                           []engine.Output
	Total, Compliant, Partial, NonCompliant, Failures int
}

// Results renders batch outputs for a terminal
func Results(w io.Writer, outputs []engine.Output) error {
	v := resultsView{Outputs: outputs, Total: len(outputs)}
	for _, o := range outputs {
		if o.Failed() {
			v.Failures++
			continue
		}
		switch o.Result.Status {
		case engine.StatusCompliant:
			v.Compliant++
		case engine.StatusPartial:
			v.Partial++
		default:
			v.NonCompliant++
		}
	}
	return execute(resultsT, w, v)
}

// Diff renders a snapshot comparison
func Diff(w io.Writer, d engine.SnapshotDiff) error {
	return execute(diffT, w, d)
}

// Runs renders a history listing
func Runs(w io.Writer, runs []history.Summary) error {
	return execute(runsT, w, runs)
}

type crosswalkRow struct {
	Category engine.Category
	Clauses  []engine.Clause
}

// Crosswalk lists the clauses for every known category and the given frameworks
func Crosswalk(w io.Writer, cw engine.Crosswalk, frameworks []engine.Framework) error {
	rows := make([]crosswalkRow, 0, len(engine.Categories()))
	for _, c := range engine.Categories() {
		rows = append(rows, crosswalkRow{Category: c, Clauses: cw.Map([]engine.Category{c}, frameworks)})
	}
	return execute(crosswalkT, w, rows)
}

// Encode writes v as JSON or YAML
func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// ValidFormat reports whether format is text, json or yaml
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

func execute(t *template.Template, w io.Writer, data any) error {
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return nil
}

func statusTag(s engine.Status) string {
	return strings.ToUpper(string(s))
}

func joinAny(v any) string {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ", ")
	case []engine.Category:
		parts := make([]string, len(list))
		for i, c := range list {
			parts[i] = string(c)
		}
		return strings.Join(parts, ", ")
	case []engine.Framework:
		parts := make([]string, len(list))
		for i, fw := range list {
			parts[i] = string(fw)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
