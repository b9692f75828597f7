// Package device adapts terminal and file I/O to the wallet's device
// capability ports (camera, barcode detector, clipboard, confirm dialog).
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"
)

// LineSource is a VideoSource whose frames are the lines of a reader.
// Each line is delivered as one string frame. It can be acquired once.
type LineSource struct {
	mu       sync.Mutex
	r        io.Reader
	acquired bool
}

var _ port.VideoSource = (*LineSource)(nil)

// NewLineSource creates a source reading from r.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

// Acquire starts reading lines in the background.
func (s *LineSource) Acquire(ctx context.Context) (port.VideoStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.r == nil {
		return nil, port.ErrUnsupported
	}
	if s.acquired {
		return nil, errors.New("line source already in use")
	}
	s.acquired = true

	st := &lineStream{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go st.pump(s.r)
	return st, nil
}

type lineStream struct {
	lines chan string
	done  chan struct{}

	mu      sync.Mutex
	readErr error
	closed  bool
	once    sync.Once
}

func (st *lineStream) pump(r io.Reader) {
	defer close(st.lines)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case st.lines <- sc.Text():
		case <-st.done:
			return
		}
	}
	st.mu.Lock()
	st.readErr = sc.Err()
	st.mu.Unlock()
}

// Frame returns the next line if one is ready. It never blocks on the reader.
func (st *lineStream) Frame(ctx context.Context) (port.Frame, bool, error) {
	st.mu.Lock()
	closed := st.closed
	st.mu.Unlock()
	if closed {
		return nil, false, errors.New("stream closed")
	}

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case line, ok := <-st.lines:
		if !ok {
			st.mu.Lock()
			err := st.readErr
			st.mu.Unlock()
			if err != nil {
				return nil, false, fmt.Errorf("read frame: %w", err)
			}
			return nil, false, io.EOF
		}
		return line, true, nil
	default:
		return nil, false, nil
	}
}

// Close stops the background reader.
func (st *lineStream) Close() error {
	st.once.Do(func() {
		st.mu.Lock()
		st.closed = true
		st.mu.Unlock()
		close(st.done)
	})
	return nil
}

// TextDetector treats a string frame as the decoded QR payload.
type TextDetector struct{}

var _ port.BarcodeDetector = TextDetector{}

// Detect returns the trimmed frame text, or nothing for a blank frame.
func (TextDetector) Detect(_ context.Context, f port.Frame) ([]string, error) {
	s, ok := f.(string)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", f)
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil, nil
	}
	return []string{s}, nil
}
