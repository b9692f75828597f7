package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/deeplink"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// PayOptions holds flags for the pay command.
type PayOptions struct {
	*RootOptions
	PIN  string
	Name string
}

// NewPayCommand creates the pay command.
func NewPayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pay <upi-id> <amount>",
		Short: "Pay a UPI ID",
		Long: `Pay a UPI ID.

The payee name is taken from saved contacts, then --name, then the UPI ID.
The amount is in whole rupees.`,
		Example: `  upictl pay vinitadubey063@okicici 250 --pin 2580`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPay(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.PIN, "pin", "", "4-digit UPI PIN")
	cmd.Flags().StringVar(&opts.Name, "name", "", "payee name when the UPI ID is not a saved contact")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}

func runPay(cmd *cobra.Command, opts *PayOptions, upiID, rawAmount string) error {
	f := newFormatter(opts.RootOptions, cmd)

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() || !amount.IsInteger() {
		return f.Fail(&domain.ErrValidation{Field: "amount", Message: "amount must be a whole number of rupees greater than zero"})
	}

	if len(opts.PIN) != domain.PINLength {
		return f.Fail(&domain.ErrValidation{Field: "pin", Message: fmt.Sprintf("PIN must be %d digits", domain.PINLength)})
	}

	cfg := opts.cfg
	verifier, err := service.NewBcryptPIN(cfg.PIN, cfg.PINHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "configure PIN", err)
	}
	timings := service.SessionTimings{
		PINCheckDelay:      cfg.PINCheckDelay,
		PINErrorResetDelay: cfg.PINErrorResetDelay,
		SettlementDelay:    cfg.SettlementDelay,
	}

	return withWallet(cmd.Context(), opts.RootOptions, func(env *walletEnv) error {
		payee := domain.PayeeInfo{Name: opts.Name, UpiID: upiID}
		if c, ok := deeplink.ContactList(env.wallet.Contacts()).LookupContact(upiID); ok {
			payee.Name = c.Name
		}
		if payee.Name == "" {
			payee.Name = upiID
		}

		s := service.NewPaymentSession(uuid.NewString(), domain.NewPayment{Payee: payee}, env.wallet, verifier, timings, env.metrics, env.logger)
		defer s.Close()

		if _, err := s.SetAmount(amount.String()); err != nil {
			return f.Fail(err)
		}
		if _, err := s.Proceed(); err != nil {
			return f.Fail(err)
		}
		for _, d := range opts.PIN {
			if _, err := s.PressDigit(string(d)); err != nil {
				return f.Fail(err)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timings.PINCheckDelay+timings.SettlementDelay+10*time.Second)
		defer cancel()

		snap, err := s.WaitUntil(ctx, func(snap domain.SessionSnapshot) bool {
			return snap.State == domain.StateSuccess || snap.PINError != ""
		})
		if err != nil {
			return WrapExitError(ExitFailure, "payment did not complete", err)
		}
		if snap.PINError != "" {
			return f.Fail(&domain.ErrValidation{Field: "pin", Message: snap.PINError})
		}

		tx := *snap.Transaction
		env.logger.Info("payment completed", zap.String("tx_id", tx.ID), zap.String("upi_id", tx.Payee.UpiID))
		return f.Success(tx, func(w io.Writer) {
			fmt.Fprintln(w, "Payment successful")
			printTransaction(w, tx)
		})
	})
}
