package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/flatval"
	"github.com/aretw0/flatval/internal/presentation/tui"
	"github.com/aretw0/flatval/internal/repl"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive console in the terminal",
	Long: `Starts a console session in the terminal. Each line is evaluated and its
result printed as a tree; composites are toggled by position (:help lists
the commands). Input from a pipe is evaluated line by line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runREPL(ctx, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
	addEvaluatorFlags(replCmd)
}

func runREPL(ctx context.Context, in *os.File, out io.Writer) error {
	hooks := createDebugHooks(logger)
	c, closeFn, err := newConsole(ctx, cfg, logger, hooks)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close history store", "err", err)
		}
	}()

	interactive := repl.IsTerminal(in)
	profile := termenv.Ascii
	if interactive {
		profile = termenv.EnvColorProfile()
	}

	opts := []repl.Option{
		repl.WithLogger(logger),
		repl.WithStyler(tui.Styler(profile)),
		repl.WithExpandLimit(cfg.Render.ExpandLimit),
	}
	if interactive {
		opts = append(opts, repl.WithHelpRenderer(tui.NewRenderer(repl.Width(in, 80))))
	}

	var lines repl.LineReader = repl.NewScannerReader(in)
	if interactive {
		t, w, restore, err := repl.Terminal(in, out)
		if err != nil {
			// Line mode without editing, but still prompted.
			logger.Warn("Raw terminal mode unavailable", "err", err)
			lines = repl.WithPrompt(lines, out, repl.Prompt)
		} else {
			defer func() { _ = restore() }()
			out = w
			lines = t
		}
		tui.PrintBanner(out, profile, flatval.Version)
	}

	r := repl.New(c, out, opts...)
	err = r.Run(ctx, lines)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
