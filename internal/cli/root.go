// Package cli implements upictl, a terminal front end for the wallet.
package cli

import (
	"fmt"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/config"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	DBPath    string
	Ephemeral bool

	cfg   *config.Config
	store port.KVStore
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for upictl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upictl",
		Short: "upictl - a local UPI wallet",
		Long:  "Pay contacts, scan UPI QR codes and manage the local wallet from a terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.cfg == nil {
				_ = config.LoadDotEnv(".env")
				opts.cfg = config.Load()
			}
			if opts.DBPath == "" {
				opts.DBPath = opts.cfg.DBPath
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "wallet database file (default $DB_PATH)")
	cmd.PersistentFlags().BoolVar(&opts.Ephemeral, "ephemeral", false, "keep wallet state in memory only")

	// Add subcommands
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewContactsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewPayCommand(opts))
	cmd.AddCommand(NewTabCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
