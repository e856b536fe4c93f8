package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flatval banner with the version underneath.
func PrintBanner(w io.Writer, p termenv.Profile, version string) {
	// A subtle gradient from teal to indigo
	lines := []struct{ text, color string }{
		{"   __ _       _               _ ", "#2dd4bf"},
		{"  / _| | __ _| |___   ____ _| |", "#22d3ee"},
		{" | |_| |/ _` | __\\ \\ / / _` | |", "#38bdf8"},
		{" |  _| | (_| | |_ \\ V / (_| | |", "#60a5fa"},
		{" |_| |_|\\__,_|\\__| \\_/ \\__,_|_|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+strings.TrimSpace(version)+"  :help for commands").Faint())
	fmt.Fprintln(w)
}
