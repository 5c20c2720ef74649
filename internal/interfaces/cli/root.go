package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRoot() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "cleanersched",
		Short:         "Cleaner availability and assignment engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newServerCmd(&envFile))
	cmd.AddCommand(newWorkerCmd(&envFile))
	cmd.AddCommand(newAssignCmd(&envFile))
	cmd.AddCommand(newMigrateCmd(&envFile))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cleanersched %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}
