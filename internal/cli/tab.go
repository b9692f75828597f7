package cli

import (
	"fmt"
	"io"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"

	"github.com/spf13/cobra"
)

// NewTabCommand creates the tab command.
func NewTabCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "tab [home|pay|profile]",
		Short:     "Render a navigation tab",
		Long:      "Render a navigation tab. Unknown names show Home.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"home", "pay", "profile"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return withWallet(cmd.Context(), rootOpts, func(env *walletEnv) error {
				view := env.wallet.TabView(domain.ParseNavTab(name))
				return newFormatter(rootOpts, cmd).Success(view, func(w io.Writer) { printTab(w, view) })
			})
		},
	}
}

func printTab(w io.Writer, view domain.TabView) {
	fmt.Fprintf(w, "[ %s ]\n\n", view.Tab)
	switch {
	case view.Home != nil:
		fmt.Fprintf(w, "Hello, %s\n", view.Home.Name)
		fmt.Fprintln(w, "Scan any QR code to pay.")
	case view.Pay != nil:
		fmt.Fprintln(w, "Recent payments")
		if len(view.Pay.Transactions) == 0 {
			fmt.Fprintln(w, "No transactions yet.")
		}
		tw := newTable(w)
		for _, tx := range view.Pay.Transactions {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", tx.Payee.Name, formatAmount(tx), formatTime(tx.Timestamp))
		}
		tw.Flush()
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Contacts")
		printContacts(w, view.Pay.Contacts)
	case view.Profile != nil:
		printProfile(w, view.Profile.Profile)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Contacts")
		printContacts(w, view.Profile.Contacts)
	}
}
