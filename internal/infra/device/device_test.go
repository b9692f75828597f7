package device_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/device"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSource_DeliversLinesThenEOF(t *testing.T) {
	src := device.NewLineSource(strings.NewReader("first\nupi://pay?pa=a@b\n"))
	st, err := src.Acquire(context.Background())
	require.NoError(t, err)
	defer st.Close()

	var got []string
	require.Eventually(t, func() bool {
		f, ok, err := st.Frame(context.Background())
		if errors.Is(err, io.EOF) {
			return true
		}
		assert.NoError(t, err)
		if ok {
			got = append(got, f.(string))
		}
		return false
	}, time.Second, time.Millisecond)

	assert.Equal(t, []string{"first", "upi://pay?pa=a@b"}, got)
}

func TestLineSource_SingleAcquire(t *testing.T) {
	src := device.NewLineSource(strings.NewReader(""))
	st, err := src.Acquire(context.Background())
	require.NoError(t, err)
	defer st.Close()

	_, err = src.Acquire(context.Background())
	assert.Error(t, err)
}

func TestLineSource_NilReaderUnsupported(t *testing.T) {
	_, err := device.NewLineSource(nil).Acquire(context.Background())
	assert.ErrorIs(t, err, port.ErrUnsupported)
}

func TestLineSource_FrameAfterClose(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	st, err := device.NewLineSource(r).Acquire(context.Background())
	require.NoError(t, err)

	_, ok, err := st.Frame(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	_, _, err = st.Frame(context.Background())
	assert.Error(t, err)
}

func TestTextDetector(t *testing.T) {
	d := device.TextDetector{}

	got, err := d.Detect(context.Background(), "  upi://pay?pa=x@y \r")
	require.NoError(t, err)
	assert.Equal(t, []string{"upi://pay?pa=x@y"}, got)

	got, err = d.Detect(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = d.Detect(context.Background(), 42)
	assert.Error(t, err)
}

func TestOSC52Clipboard(t *testing.T) {
	var buf bytes.Buffer
	cb := device.OSC52Clipboard{W: &buf}

	require.NoError(t, cb.WriteText(context.Background(), "564514873417"))

	want := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte("564514873417")) + "\a"
	assert.Equal(t, want, buf.String())

	assert.ErrorIs(t, device.OSC52Clipboard{}.WriteText(context.Background(), "x"), port.ErrUnsupported)
}

func TestPromptConfirmer(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		c := &device.PromptConfirmer{In: strings.NewReader(tc.input), Out: &out}
		got, err := c.Confirm(context.Background(), "Clear all history?")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Contains(t, out.String(), "Clear all history? [y/N]")
	}
}

func TestPromptConfirmer_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &device.PromptConfirmer{In: r, Out: io.Discard}
	_, err := c.Confirm(ctx, "Clear?")
	assert.ErrorIs(t, err, context.Canceled)
}
