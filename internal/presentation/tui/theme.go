package tui

import (
	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/muesli/termenv"
)

var kindColors = map[decode.Kind]string{
	decode.KindString:    "#ce9178",
	decode.KindNumber:    "#b5cea8",
	decode.KindNaN:       "#b5cea8",
	decode.KindInfinity:  "#b5cea8",
	decode.KindBoolean:   "#569cd6",
	decode.KindNull:      "#569cd6",
	decode.KindUndefined: "#808080",
	decode.KindDate:      "#c586c0",
	decode.KindFunction:  "#c586c0",
	decode.KindCycle:     "#808080",
}

const faultColor = "#f28b82"

// Styler colours text output by kind. With the Ascii profile it returns
// text unchanged.
func Styler(p termenv.Profile) render.Styler {
	return func(kind decode.Kind, fault bool, s string) string {
		if p == termenv.Ascii {
			return s
		}
		if fault {
			return p.String(s).Foreground(p.Color(faultColor)).String()
		}
		c, ok := kindColors[kind]
		if !ok {
			return s
		}
		out := p.String(s).Foreground(p.Color(c))
		if kind == decode.KindCycle {
			out = out.Italic()
		}
		return out.String()
	}
}
