package render

import (
	"html/template"
	"io"
)

// The browser console toggles an occurrence by posting the data-pos of the
// clicked summary; the server answers with the entry rendered again.
var htmlTemplates = template.Must(template.New("item").Parse(`
{{- define "value" -}}
{{- if .Expandable -}}
<details class="node {{.Kind}}" data-pos="{{.Pos}}"{{if .Expanded}} open{{end}}><summary>{{.Text}}</summary>
{{- if .Expanded -}}
<div class="children">
{{- range .Children}}<div class="row">{{template "row" .}}</div>{{end -}}
{{- with .Footer}}<div class="row footer">{{.}}</div>{{end -}}
</div>
{{- end -}}
</details>
{{- else if .Fault -}}
<span class="node fault" title="{{.Fault}}">{{.Text}}</span>
{{- else -}}
<span class="node {{.Kind}}">{{.Text}}</span>
{{- end -}}
{{- end -}}
{{- define "row" -}}
{{- with .Label}}<span class="label">{{.}}</span>{{end -}}
{{- with .Key}}{{template "value" .}}<span class="sep"> : </span>{{end -}}
{{- template "value" . -}}
{{- end -}}
{{- template "row" . -}}
`))

// WriteHTML writes it as nested <details> elements. Text is escaped.
func WriteHTML(w io.Writer, it *Item) error {
	return htmlTemplates.Execute(w, it)
}
