package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/aretw0/flatval/pkg/decode"
)

// Styler decorates a fragment of text output. fault is set for contained
// failures; kind is meaningless in that case.
type Styler func(kind decode.Kind, fault bool, s string) string

// TextOptions controls WriteText.
type TextOptions struct {
	// Indent is repeated once per nesting level (default two spaces).
	Indent string
	// Markers prefixes composites with ▸ (collapsed) or ▾ (expanded).
	Markers bool
	// Positions appends the position of each composite, for terminals
	// where the user toggles by typing it.
	Positions bool
	Style     Styler
}

// WriteText writes it as indented lines.
func WriteText(w io.Writer, it *Item, opts TextOptions) error {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	bw := bufio.NewWriter(w)
	tw := &textWriter{w: bw, opts: opts}
	tw.row(it, 0)
	if tw.err != nil {
		return tw.err
	}
	return bw.Flush()
}

// Text renders it as a string with default options.
func Text(it *Item) string {
	var sb strings.Builder
	_ = WriteText(&sb, it, TextOptions{})
	return strings.TrimSuffix(sb.String(), "\n")
}

type textWriter struct {
	w    *bufio.Writer
	opts TextOptions
	err  error
}

func (t *textWriter) write(s string) {
	if t.err == nil {
		_, t.err = t.w.WriteString(s)
	}
}

func (t *textWriter) row(it *Item, depth int) {
	t.write(strings.Repeat(t.opts.Indent, depth))
	t.write(it.Label)
	if it.Key != nil {
		t.value(it.Key)
		t.write(" : ")
	}
	t.value(it)
	t.write("\n")

	if it.Key != nil {
		t.children(it.Key, depth+1)
	}
	t.children(it, depth+1)
}

func (t *textWriter) value(it *Item) {
	if t.opts.Markers && it.Expandable {
		if it.Expanded {
			t.write("▾ ")
		} else {
			t.write("▸ ")
		}
	}
	text := it.Text
	if t.opts.Style != nil {
		text = t.opts.Style(it.Kind, it.Fault != nil, text)
	}
	t.write(text)
	if t.opts.Positions && it.Expandable {
		t.write(" ")
		pos := string(it.Pos)
		if t.opts.Style != nil {
			pos = t.opts.Style(decode.KindUndefined, false, pos)
		}
		t.write(pos)
	}
}

func (t *textWriter) children(it *Item, depth int) {
	if !it.Expanded {
		return
	}
	for _, c := range it.Children {
		t.row(c, depth)
	}
	if it.Footer != "" {
		t.write(strings.Repeat(t.opts.Indent, depth))
		t.write(it.Footer)
		t.write("\n")
	}
}
