package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/flatval/internal/presentation/tui"
	"github.com/aretw0/flatval/internal/repl"
	"github.com/aretw0/flatval/pkg/console"
	"github.com/aretw0/flatval/pkg/decode"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/aretw0/flatval/pkg/render"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <file|->",
	Short: "Render a heap JSON file",
	Long: `Reads a heap in the wire format ({"<id>": {"type", "value"}}) and prints it
as a tree. With --check the heap is validated first and every structural
problem is reported; the command fails if any is found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expandAll, _ := cmd.Flags().GetBool("expand-all")
		check, _ := cmd.Flags().GetBool("check")
		asHTML, _ := cmd.Flags().GetBool("html")
		return runRender(args[0], cmd.InOrStdin(), cmd.OutOrStdout(), expandAll, check, asHTML)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().Bool("expand-all", false, "Expand every occurrence (bounded by --expand-limit)")
	renderCmd.Flags().Bool("check", false, "Validate the heap and report problems")
	renderCmd.Flags().Bool("html", false, "Write HTML instead of text")
	renderCmd.Flags().Int("expand-limit", 0, "Most occurrences opened by --expand-all")
	renderCmd.Flags().String("location", "", "Time zone dates are shown in")
}

func runRender(path string, stdin io.Reader, out io.Writer, expandAll, check, asHTML bool) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read heap: %w", err)
	}

	h, err := heap.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse heap: %w", err)
	}

	dec := decode.New(
		decode.WithLocation(cfg.Location()),
		decode.WithMaxDepth(cfg.Render.MaxDepth),
	)
	if check {
		if err := checkHeap(out, path, dec, h); err != nil {
			return err
		}
		logger.Debug("Heap is valid", "nodes", len(h))
	}

	r := render.New(render.WithDecoder(dec))
	s := render.NewState()
	if expandAll {
		opened := r.ExpandAll(h, s, cfg.Render.ExpandLimit)
		logger.Debug("Expanded", "occurrences", opened, "limit", cfg.Render.ExpandLimit)
	}

	entry, err := domain.NewPending(path, path).Succeed(h)
	if err != nil {
		return err
	}
	b := console.RenderEntry(r, entry, s)
	if b.Err != nil {
		logger.Warn("Could not render heap", "err", b.Err)
	}

	if asHTML {
		return console.WriteHTML(out, b)
	}
	profile := termenv.Ascii
	if f, ok := out.(*os.File); ok && repl.IsTerminal(f) {
		profile = termenv.EnvColorProfile()
	}
	return console.WriteText(out, b, render.TextOptions{Markers: true, Style: tui.Styler(profile)})
}

var errWalkLimit = errors.New("walk limit reached")

// checkHeap reports structural problems, then walks the occurrences (up to
// the expand limit) for faults only the decoder sees, like excessive depth.
func checkHeap(out io.Writer, path string, dec *decode.Decoder, h heap.Heap) error {
	if problems := heap.Validate(h); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(out, "%s: %s\n", path, p)
		}
		return fmt.Errorf("%d problem(s) found", len(problems))
	}

	var seen, faults int
	err := dec.Walk(h, func(ref decode.Ref, _ decode.Node, err error) error {
		seen++
		if err != nil {
			faults++
			fmt.Fprintf(out, "%s: node %d at depth %d: %v\n", path, ref.ID, ref.Path.Depth(), err)
		}
		if limit := cfg.Render.ExpandLimit; limit > 0 && seen >= limit {
			return errWalkLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errWalkLimit) {
		return err
	}
	if faults > 0 {
		return fmt.Errorf("%d fault(s) found", faults)
	}
	return nil
}
