package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var scanTracer = otel.Tracer("service/scanner")

// User-visible scanner messages.
const (
	MsgScanUnsupported      = "QR code scanning is not supported on this device or browser."
	MsgScanPermissionDenied = "Camera permission denied. Please enable it in your browser settings."
	MsgScanCameraFailure    = "Could not access camera."
)

// DefaultScanInterval is how often a frame is sampled.
const DefaultScanInterval = 500 * time.Millisecond

// Scanner reads QR codes from a video source and resolves the first one.
type Scanner struct {
	source   port.VideoSource
	detector port.BarcodeDetector
	wallet   *Wallet
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewScanner creates a scanner. A nil source or detector makes every scan
// fail with MsgScanUnsupported.
func NewScanner(source port.VideoSource, detector port.BarcodeDetector, wallet *Wallet, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Scanner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scanner{
		source:   source,
		detector: detector,
		wallet:   wallet,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Scan polls frames until one decodes, then releases the stream and
// classifies the payload. It has no timeout of its own; cancel ctx to stop.
// The stream is released on every return path.
func (s *Scanner) Scan(ctx context.Context) (domain.PayeeInfo, error) {
	ctx, span := scanTracer.Start(ctx, "Scanner.Scan")
	defer span.End()

	if s.source == nil || s.detector == nil {
		s.metrics.IncrScan("error")
		return domain.PayeeInfo{}, &domain.ErrCapability{Capability: "barcode", Message: MsgScanUnsupported, Err: port.ErrUnsupported}
	}

	stream, err := s.source.Acquire(ctx)
	if err != nil {
		s.metrics.IncrScan("error")
		s.logger.Warn("camera acquisition failed", zap.Error(err))
		return domain.PayeeInfo{}, acquireError(err)
	}
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := stream.Close(); err != nil {
			s.logger.Warn("release camera stream failed", zap.Error(err))
		}
	}
	defer release()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			span.SetAttributes(attribute.Int("scan.frames", frames))
			return domain.PayeeInfo{}, ctx.Err()
		case <-ticker.C:
		}

		frame, ok, err := stream.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return domain.PayeeInfo{}, ctx.Err()
			}
			s.metrics.IncrScan("error")
			s.logger.Warn("camera stream failed", zap.Error(err))
			return domain.PayeeInfo{}, &domain.ErrCapability{Capability: "camera", Message: MsgScanCameraFailure, Err: err}
		}
		if !ok {
			continue
		}
		frames++

		codes, err := s.detector.Detect(ctx, frame)
		if err != nil {
			s.logger.Debug("barcode detection failed", zap.Error(err))
			continue
		}
		if len(codes) == 0 {
			continue
		}

		release()
		span.SetAttributes(attribute.Int("scan.frames", frames))
		return s.wallet.ResolveScan(ctx, codes[0])
	}
}

func acquireError(err error) error {
	switch {
	case errors.Is(err, port.ErrUnsupported):
		return &domain.ErrCapability{Capability: "camera", Message: MsgScanUnsupported, Err: err}
	case errors.Is(err, port.ErrPermissionDenied):
		return &domain.ErrCapability{Capability: "camera", Message: MsgScanPermissionDenied, Err: err}
	default:
		return &domain.ErrCapability{Capability: "camera", Message: MsgScanCameraFailure, Err: err}
	}
}
