package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"

	"github.com/spf13/cobra"
)

// NewContactsCommand creates the contacts command group.
func NewContactsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "Manage saved UPI contacts",
	}
	cmd.AddCommand(newContactsListCommand(rootOpts))
	cmd.AddCommand(newContactsAddCommand(rootOpts))
	cmd.AddCommand(newContactsUpdateCommand(rootOpts))
	cmd.AddCommand(newContactsDeleteCommand(rootOpts))
	return cmd
}

func newContactsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				contacts := env.wallet.Contacts()
				return newFormatter(opts, cmd).Success(contacts, func(w io.Writer) { printContacts(w, contacts) })
			})
		},
	}
}

func newContactsAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <upi-id> <name>",
		Short:   "Add a contact",
		Example: `  upictl contacts add asha@okaxis "Asha Kumar"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.ContactRequest{UpiID: args[0], Name: strings.Join(args[1:], " ")}
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				c, err := env.wallet.AddContact(cmd.Context(), req)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, func(w io.Writer) { fmt.Fprintf(w, "Added %s (%s)\n", c.Name, c.UpiID) })
			})
		},
	}
}

func newContactsUpdateCommand(opts *RootOptions) *cobra.Command {
	var upiID, name string

	cmd := &cobra.Command{
		Use:   "update <contact-id>",
		Short: "Change a contact's UPI ID or name",
		Example: `  upictl contacts update asha@okaxis --name "Asha K"
  upictl contacts update asha@okaxis --upi-id asha@ybl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)

				current, ok := deeplink.ContactList(env.wallet.Contacts()).LookupContact(args[0])
				if !ok {
					return f.Fail(&domain.ErrNotFound{Resource: "contact", ID: args[0]})
				}
				req := domain.ContactRequest{UpiID: current.UpiID, Name: current.Name}
				if cmd.Flags().Changed("upi-id") {
					req.UpiID = upiID
				}
				if cmd.Flags().Changed("name") {
					req.Name = name
				}

				c, err := env.wallet.UpdateContact(cmd.Context(), current.ID, req)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, func(w io.Writer) { fmt.Fprintf(w, "Updated %s (%s)\n", c.Name, c.UpiID) })
			})
		},
	}

	cmd.Flags().StringVar(&upiID, "upi-id", "", "new UPI ID")
	cmd.Flags().StringVar(&name, "name", "", "new name")

	return cmd
}

func newContactsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <contact-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				f := newFormatter(opts, cmd)
				if err := env.wallet.DeleteContact(cmd.Context(), args[0]); err != nil {
					return f.Fail(err)
				}
				res := domain.SuccessResponse{Message: "contact deleted", ID: args[0]}
				return f.Success(res, func(w io.Writer) { fmt.Fprintf(w, "Deleted %s\n", args[0]) })
			})
		},
	}
}
