package console

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/render"
)

// WriteText writes the block's output: the tree of a successful entry, or
// its single line otherwise. Error lines go through opts.Style as faults.
func WriteText(w io.Writer, b Block, opts render.TextOptions) error {
	if b.Item != nil {
		return render.WriteText(w, b.Item, opts)
	}
	line := b.Text
	if b.IsError && opts.Style != nil {
		line = opts.Style(decode.KindUndefined, true, line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

var entryTemplate = template.Must(template.New("entry").Parse(
	`<div class="entry{{if .IsError}} error{{end}}{{if .Fallback}} fallback{{end}}" data-entry="{{.EntryID}}" data-status="{{.Status}}">` +
		`<div class="input">{{.Input}}</div>` +
		`<div class="output">{{if .Tree}}{{.Tree}}{{else}}<span class="line">{{.Text}}</span>{{end}}</div>` +
		`</div>`))

// WriteHTML writes the block as a browser console entry.
func WriteHTML(w io.Writer, b Block) error {
	data := struct {
		Block
		Tree template.HTML
	}{Block: b}

	if b.Item != nil {
		var buf bytes.Buffer
		if err := render.WriteHTML(&buf, b.Item); err != nil {
			return err
		}
		// render.WriteHTML escapes every text it emits.
		data.Tree = template.HTML(buf.String())
	}
	return entryTemplate.Execute(w, data)
}
