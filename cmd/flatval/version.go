package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/flatval"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flatval",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flatval version %s\n", strings.TrimSpace(flatval.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
