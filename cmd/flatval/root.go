package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/flatval/internal/config"
	"github.com/aretw0/flatval/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg    config.Config
	logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "flatval",
	Short: "flatval is a console for values flattened into heaps",
	Long: `flatval evaluates code in a session and displays the result, a value
graph flattened into a heap, as an expandable tree. Shared and cyclic
structures are rendered lazily, one occurrence at a time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// flagKeys maps command-line flags onto configuration keys. Only flags the
// user actually set override the file and the environment.
var flagKeys = map[string]string{
	"log-format":   "log_format",
	"evaluator":    "evaluator.kind",
	"url":          "evaluator.url",
	"timeout":      "evaluator.timeout",
	"addr":         "server.addr",
	"view-idle":    "server.view_idle",
	"redis":        "redis.addr",
	"expand-limit": "render.expand_limit",
	"location":     "render.location",
}

func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	overrides := map[string]any{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	if debug {
		overrides["log_level"] = "debug"
	}

	var err error
	cfg, err = config.Load(path, overrides)
	if err != nil {
		return err
	}
	logger = logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.LogLevel), logging.Format(cfg.LogFormat))
	slog.SetDefault(logger)
	logger.Debug("Configuration loaded", "evaluator", cfg.Evaluator.Kind, "redis", cfg.Redis.Addr != "")
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
}

// addEvaluatorFlags registers the flags of commands that evaluate code.
func addEvaluatorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("evaluator", "e", config.EvaluatorExpr, "Evaluator: remote, expr or jq")
	cmd.Flags().String("url", "", "Evaluation endpoint for the remote evaluator")
	cmd.Flags().Duration("timeout", 0, "Timeout of one remote evaluation")
	cmd.Flags().String("redis", "", "Redis address for shared history (empty keeps history in memory)")
	cmd.Flags().Int("expand-limit", 0, "Most occurrences opened by one expand-all")
	cmd.Flags().String("location", "", "Time zone dates are shown in")
}
