package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Driver   string
}

// NewRootCommand creates the root command for the reimbursement service.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reimburse",
		Short: "Expense reimbursement ticket service",
		Long: `Employees submit reimbursement tickets and managers approve or deny them.

Configuration is read from the environment and an optional .env file.
Flags given here override the matching environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "store", "", "ticket store override (memory|sqlite|postgres)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))

	return cmd
}
