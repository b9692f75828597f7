package cli

import (
	"io"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"

	"github.com/spf13/cobra"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the wallet profile",
	}
	cmd.AddCommand(newProfileShowCommand(rootOpts))
	cmd.AddCommand(newProfileSetCommand(rootOpts))
	return cmd
}

func newProfileShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				p := env.wallet.Profile()
				return newFormatter(opts, cmd).Success(p, func(w io.Writer) { printProfile(w, p) })
			})
		},
	}
}

func newProfileSetCommand(opts *RootOptions) *cobra.Command {
	var upd domain.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; blank values are ignored",
		Example: `  upictl profile set --name "Asha Kumar"
  upictl profile set --phone "+91 98765 43210" --image ./me.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd.Context(), opts, func(env *walletEnv) error {
				p := env.wallet.UpdateProfile(cmd.Context(), upd)
				return newFormatter(opts, cmd).Success(p, func(w io.Writer) { printProfile(w, p) })
			})
		},
	}

	cmd.Flags().StringVar(&upd.Name, "name", "", "display name")
	cmd.Flags().StringVar(&upd.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&upd.Image, "image", "", "profile image reference")

	return cmd
}
