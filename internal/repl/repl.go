// Package repl implements the terminal console: it reads lines, evaluates
// them in one session and prints the rendered entries. Lines starting with
// ':' are commands.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/flatval"
	"github.com/aretw0/flatval/internal/logging"
	"github.com/aretw0/flatval/pkg/console"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/render"
)

// ErrQuit is returned by Execute for :quit.
var ErrQuit = errors.New("quit")

// LineReader yields one line of input at a time. *term.Terminal satisfies it.
type LineReader interface {
	ReadLine() (string, error)
}

// REPL is one terminal session.
type REPL struct {
	console   *flatval.Console
	sessionID string
	out       io.Writer
	logger    *slog.Logger

	textOpts    render.TextOptions
	help        func(string) (string, error)
	expandLimit int
	nav         *domain.Navigator
	recalled    string
}

// Option configures a REPL.
type Option func(*REPL)

// WithStyler colours the output.
func WithStyler(s render.Styler) Option {
	return func(r *REPL) {
		r.textOpts.Style = s
	}
}

// WithHelpRenderer renders the :help markdown (default: printed as is).
func WithHelpRenderer(fn func(string) (string, error)) Option {
	return func(r *REPL) {
		r.help = fn
	}
}

// WithExpandLimit bounds :expand (default 500, 0 means all).
func WithExpandLimit(n int) Option {
	return func(r *REPL) {
		r.expandLimit = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *REPL) {
		r.logger = logger
	}
}

// New creates a REPL writing to out.
func New(c *flatval.Console, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		console:     c,
		out:         out,
		logger:      logging.NewNop(),
		textOpts:    render.TextOptions{Markers: true, Positions: true},
		help:        func(s string) (string, error) { return s, nil },
		expandLimit: 500,
		nav:         domain.NewNavigator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the current session, which changes on :clear.
func (r *REPL) SessionID() string {
	return r.sessionID
}

// Start opens the session.
func (r *REPL) Start(ctx context.Context) error {
	id, err := r.console.NewSession(ctx)
	if err != nil {
		return err
	}
	r.sessionID = id
	return nil
}

// Run reads lines until EOF, :quit or ctx is done.
func (r *REPL) Run(ctx context.Context, in LineReader) error {
	if r.sessionID == "" {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := r.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(r.out, "!! %v\n", err)
		}
	}
}

// Execute runs one line: a command, or code to evaluate.
func (r *REPL) Execute(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if trimmed == "!!" {
		if r.recalled == "" {
			return errors.New("nothing recalled, use :prev first")
		}
		return r.eval(ctx, r.recalled)
	}
	if !strings.HasPrefix(trimmed, ":") {
		return r.eval(ctx, line)
	}

	name, arg, _ := strings.Cut(trimmed[1:], " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "help", "h", "?":
		return r.printHelp()
	case "quit", "q", "exit":
		return ErrQuit
	case "toggle", "t":
		return r.toggle(ctx, arg)
	case "expand", "e":
		return r.expand(ctx, arg)
	case "clear":
		return r.clear(ctx)
	case "filter", "f":
		return r.list(ctx, arg)
	case "history":
		return r.history(ctx)
	case "prev", "next":
		return r.recall(ctx, name)
	}
	return fmt.Errorf("unknown command :%s (try :help)", name)
}

func (r *REPL) eval(ctx context.Context, code string) error {
	b, err := r.console.Eval(ctx, r.sessionID, code)
	if err != nil {
		return err
	}
	r.nav.Reset()
	r.recalled = ""

	entries, err := r.console.Entries(ctx, r.sessionID, "")
	if err != nil {
		return err
	}
	return r.printBlock(len(entries), b)
}

// toggle handles ":toggle <pos> [n]".
func (r *REPL) toggle(ctx context.Context, arg string) error {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return errors.New("usage: :toggle <pos> [entry]")
	}
	n, id, err := r.resolve(ctx, fields[1:])
	if err != nil {
		return err
	}
	b, err := r.console.Toggle(ctx, r.sessionID, id, render.Pos(fields[0]))
	if err != nil {
		return err
	}
	return r.printBlock(n, b)
}

// expand handles ":expand [n]".
func (r *REPL) expand(ctx context.Context, arg string) error {
	n, id, err := r.resolve(ctx, strings.Fields(arg))
	if err != nil {
		return err
	}
	b, err := r.console.ExpandAll(ctx, r.sessionID, id, r.expandLimit)
	if err != nil {
		return err
	}
	return r.printBlock(n, b)
}

func (r *REPL) clear(ctx context.Context) error {
	next, err := r.console.Clear(ctx, r.sessionID)
	if err != nil {
		return err
	}
	r.logger.Debug("History cleared", "session_id", r.sessionID, "next_session_id", next)
	r.sessionID = next
	r.nav.Reset()
	r.recalled = ""
	fmt.Fprintln(r.out, "History cleared.")
	return nil
}

// list prints the entries whose input contains filter, numbered by their
// place in the full history.
func (r *REPL) list(ctx context.Context, filter string) error {
	all, err := r.console.Entries(ctx, r.sessionID, "")
	if err != nil {
		return err
	}
	matched := 0
	for i, b := range all {
		if !strings.Contains(b.Input, filter) {
			continue
		}
		matched++
		if err := r.printBlock(i+1, b); err != nil {
			return err
		}
	}
	if matched == 0 {
		fmt.Fprintln(r.out, "No matching entries.")
	}
	return nil
}

func (r *REPL) history(ctx context.Context) error {
	inputs, err := r.inputs(ctx)
	if err != nil {
		return err
	}
	for i, in := range inputs {
		fmt.Fprintf(r.out, "%4d  %s\n", i+1, in)
	}
	return nil
}

// recall walks previous inputs; "!!" runs the one shown last.
func (r *REPL) recall(ctx context.Context, dir string) error {
	inputs, err := r.inputs(ctx)
	if err != nil {
		return err
	}
	if dir == "prev" {
		r.recalled = r.nav.Previous(inputs)
	} else {
		r.recalled = r.nav.Next(inputs)
	}
	if r.recalled == "" {
		fmt.Fprintln(r.out, "(empty line)")
		return nil
	}
	fmt.Fprintf(r.out, "recalled: %s  (!! to run)\n", r.recalled)
	return nil
}

func (r *REPL) inputs(ctx context.Context) ([]string, error) {
	blocks, err := r.console.Entries(ctx, r.sessionID, "")
	if err != nil {
		return nil, err
	}
	inputs := make([]string, len(blocks))
	for i, b := range blocks {
		inputs[i] = b.Input
	}
	return inputs, nil
}

// resolve maps an optional 1-based entry number to an entry ID; no number
// means the latest entry.
func (r *REPL) resolve(ctx context.Context, args []string) (int, string, error) {
	blocks, err := r.console.Entries(ctx, r.sessionID, "")
	if err != nil {
		return 0, "", err
	}
	if len(blocks) == 0 {
		return 0, "", errors.New("no entries yet")
	}
	n := len(blocks)
	if len(args) > 0 {
		n, err = strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(blocks) {
			return 0, "", fmt.Errorf("no entry %q (have 1..%d)", args[0], len(blocks))
		}
	}
	return n, blocks[n-1].EntryID, nil
}

func (r *REPL) printBlock(n int, b console.Block) error {
	fmt.Fprintf(r.out, "[%d] > %s\n", n, b.Input)
	return console.WriteText(r.out, b, r.textOpts)
}

func (r *REPL) printHelp() error {
	out, err := r.help(helpText)
	if err != nil {
		r.logger.Warn("Help render failed", "err", err)
	}
	_, werr := io.WriteString(r.out, out)
	return werr
}

const helpText = `# flatval

Type an expression and press Enter to evaluate it. Entries are numbered;
composites show their position (like ` + "`$/0`" + `) so they can be toggled.

| Command | Effect |
|---|---|
| ` + "`:toggle <pos> [n]`" + ` | expand or collapse one occurrence of entry n (default: latest) |
| ` + "`:expand [n]`" + ` | expand every occurrence of entry n |
| ` + "`:filter <text>`" + ` | show entries whose input contains text |
| ` + "`:history`" + ` | list previous inputs |
| ` + "`:prev`, `:next`, `!!`" + ` | walk previous inputs and run the recalled one |
| ` + "`:clear`" + ` | drop the history and start a fresh session |
| ` + "`:help`" + ` | this help |
| ` + "`:quit`" + ` | leave |
`

// ScannerReader adapts an io.Reader to LineReader, for pipes and tests.
type ScannerReader struct {
	s *bufio.Scanner
}

// NewScannerReader reads lines from r.
func NewScannerReader(r io.Reader) *ScannerReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &ScannerReader{s: s}
}

// ReadLine returns the next line, or io.EOF.
func (sr *ScannerReader) ReadLine() (string, error) {
	if sr.s.Scan() {
		return sr.s.Text(), nil
	}
	if err := sr.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
