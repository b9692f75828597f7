package device

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
)

// OSC52Clipboard copies text by emitting an OSC 52 escape sequence, which
// most terminal emulators forward to the system clipboard.
type OSC52Clipboard struct {
	W io.Writer
}

var _ port.Clipboard = OSC52Clipboard{}

// WriteText implements port.Clipboard.
func (c OSC52Clipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.W == nil {
		return port.ErrUnsupported
	}
	seq := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\a"
	if _, err := io.WriteString(c.W, seq); err != nil {
		return fmt.Errorf("write clipboard sequence: %w", err)
	}
	return nil
}

// PromptConfirmer asks a yes/no question on a terminal.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

var _ port.Confirmer = (*PromptConfirmer)(nil)

// Confirm prints question and waits for a line. Only "y" or "yes"
// (any case) confirm; EOF declines.
func (p *PromptConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", question); err != nil {
		return false, err
	}

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
