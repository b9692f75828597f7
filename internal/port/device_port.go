package port

import (
	"context"
	"errors"
)

// Device capability errors returned by VideoSource implementations.
var (
	ErrUnsupported      = errors.New("capability not supported")
	ErrPermissionDenied = errors.New("permission denied")
)

// Frame is one captured video frame, opaque to the core.
type Frame any

// VideoSource acquires a live video stream.
type VideoSource interface {
	Acquire(ctx context.Context) (VideoStream, error)
}

// VideoStream yields frames until closed.
type VideoStream interface {
	// Frame returns the current frame; ok is false while the stream is not ready.
	Frame(ctx context.Context) (f Frame, ok bool, err error)
	// Close releases the stream.
	Close() error
}

// BarcodeDetector decodes barcodes in a frame. It returns zero or one
// decoded string for QR-only detectors.
type BarcodeDetector interface {
	Detect(ctx context.Context, f Frame) ([]string, error)
}
