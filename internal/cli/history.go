package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/device"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"tx"},
		Short:   "Browse and manage transaction history",
	}
	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryShowCommand(rootOpts))
	cmd.AddCommand(newHistoryDeleteCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))
	cmd.AddCommand(newHistoryCopyCommand(rootOpts))
	return cmd
}

func newHistoryListCommand(opts *RootOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions grouped by month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				groups := env.wallet.SearchTransactions(query)
				return newFormatter(opts, cmd).Success(groups, func(w io.Writer) { printGroups(w, groups, query) })
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by payee name")

	return cmd
}

func printGroups(w io.Writer, groups []domain.TransactionGroup, query string) {
	if len(groups) == 0 {
		if query != "" {
			fmt.Fprintf(w, "No transactions match %q.\n", query)
		} else {
			fmt.Fprintln(w, "No transactions yet.")
		}
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, g.Label)
		tw := newTable(w)
		for _, tx := range g.Transactions {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", tx.ID, tx.Payee.Name, formatAmount(tx), formatTime(tx.Timestamp))
		}
		tw.Flush()
	}
}

func newHistoryShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				tx, err := env.wallet.Transaction(args[0])
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(tx, func(w io.Writer) { printTransaction(w, tx) })
			})
		},
	}
}

func newHistoryDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <transaction-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete one or more transactions",
		Long: `Delete one or more transactions.

With a single id an unknown transaction is an error. With several ids
unknown ones are skipped and the number removed is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				if len(args) == 1 {
					if err := env.wallet.DeleteTransaction(cmd.Context(), args[0]); err != nil {
						return f.Fail(err)
					}
					res := domain.SuccessResponse{Message: "transaction deleted", ID: args[0]}
					return f.Success(res, func(w io.Writer) { fmt.Fprintf(w, "Deleted %s\n", args[0]) })
				}

				removed := env.wallet.DeleteTransactions(cmd.Context(), args)
				res := map[string]int{"removed": removed}
				return f.Success(res, func(w io.Writer) { fmt.Fprintf(w, "Deleted %d of %d transactions\n", removed, len(args)) })
			})
		},
	}
}

func newHistoryClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirmer port.Confirmer = &device.PromptConfirmer{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			if yes {
				confirmer = port.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
			}

			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				cleared, err := env.wallet.ClearTransactions(cmd.Context(), confirmer)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]bool{"cleared": cleared}, func(w io.Writer) {
					if cleared {
						fmt.Fprintln(w, "Transaction history cleared.")
					} else {
						fmt.Fprintln(w, "Cancelled.")
					}
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func newHistoryCopyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <transaction-id>",
		Short: "Copy a transaction id to the clipboard",
		Long: `Copy a transaction id to the clipboard.

The id is sent with an OSC 52 escape sequence, which most terminal
emulators (and tmux with set-clipboard on) forward to the system clipboard.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				tx, err := env.wallet.Transaction(args[0])
				if err != nil {
					return f.Fail(err)
				}

				var clip port.Clipboard = device.OSC52Clipboard{W: cmd.ErrOrStderr()}
				if err := clip.WriteText(cmd.Context(), tx.ID); err != nil {
					return f.Fail(&domain.ErrCapability{Capability: "clipboard", Message: "Could not copy to clipboard.", Err: err})
				}
				return f.Success(map[string]string{"copied": tx.ID}, func(w io.Writer) { fmt.Fprintf(w, "Copied %s\n", tx.ID) })
			})
		},
	}
}
