package repl

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Prompt is shown before every line on a terminal.
const Prompt = "> "

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when unknown.
func Width(f *os.File, fallback int) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Terminal puts in into raw mode and edits lines with history recall on the
// arrow keys. Write to the returned writer while it is open so newlines are
// translated. restore must be called before exit.
func Terminal(in *os.File, out io.Writer) (lines LineReader, w io.Writer, restore func() error, err error) {
	fd := int(in.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, nil, err
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, Prompt)
	if width, height, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(width, height)
	}
	return t, t, func() error { return term.Restore(fd, old) }, nil
}

// promptReader prints a prompt before each line it reads.
type promptReader struct {
	LineReader
	out    io.Writer
	prompt string
}

// WithPrompt shows prompt on out before each line. It stands in for the
// line editor when the terminal cannot be put into raw mode.
func WithPrompt(r LineReader, out io.Writer, prompt string) LineReader {
	return &promptReader{LineReader: r, out: out, prompt: prompt}
}

func (p *promptReader) ReadLine() (string, error) {
	_, _ = io.WriteString(p.out, p.prompt)
	return p.LineReader.ReadLine()
}
