package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/device"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/service"

	"github.com/spf13/cobra"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	File     string
	Interval time.Duration
	Timeout  time.Duration
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Resolve a scanned UPI QR payload",
		Long: `Resolve a scanned UPI QR payload.

Each input line is one decoded frame, as written by a barcode reader such
as zbarcam --raw. The first non-blank line is classified; the rest of the
input is not read.`,
		Example: `  zbarcam --raw | upictl scan
  upictl scan --file payload.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", "read frames from file (- for stdin)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "frame sampling interval (default $SCAN_INTERVAL)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "give up after this long (0 waits forever)")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	f := newFormatter(opts.RootOptions, cmd)

	in := cmd.InOrStdin()
	if opts.File != "-" {
		file, err := os.Open(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "open frames file", err)
		}
		defer file.Close()
		in = file
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = opts.cfg.ScanInterval
	}

	ctx := cmd.Context()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	return withWallet(ctx, opts.RootOptions, func(env *walletEnv) error {
		scanner := service.NewScanner(device.NewLineSource(in), device.TextDetector{}, env.wallet, interval, env.metrics, env.logger)
		payee, err := scanner.Scan(ctx)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(payee, func(w io.Writer) {
			fmt.Fprintf(w, "%s (%s)\n", payee.Name, payee.UpiID)
		})
	})
}
