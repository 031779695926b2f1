package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winewarden/internal/bootstrap"
)

// bootstrapChildCmd is the hidden subcommand the parent re-execs itself
// with. It runs the pre-exec sequence and never returns on success; any
// setup failure is reported on stderr and exits non-zero without invoking
// the target.
var bootstrapChildCmd = &cobra.Command{
	Use:    bootstrap.Subcommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootstrap.RunChildBootstrap(); err != nil {
			fmt.Fprintln(os.Stderr, "winewarden: bootstrap:", err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapChildCmd)
}
