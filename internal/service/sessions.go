package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/upi-wallet-bfa-go/internal/domain"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/cache"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/infra/observability"
	"github.com/boddenberg/upi-wallet-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/sessions")

const tokenIssuer = "upi-wallet-bfa"

// SessionClaims are the claims of a payment session token.
type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionManager opens payment sessions, keeps the live ones in a TTL
// registry and issues the signed tokens that address them.
type SessionManager struct {
	wallet   *Wallet
	verifier port.PINVerifier
	timings  SessionTimings
	secret   []byte
	ttl      time.Duration
	registry port.Cache[*PaymentSession]
	stop     func()
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSessionManager creates a session manager. Call Shutdown to stop the
// registry sweeper.
func NewSessionManager(wallet *Wallet, verifier port.PINVerifier, timings SessionTimings, secret string, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *SessionManager {
	registry := cache.New[*PaymentSession](ttl, cache.WithEvictHook(func(_ string, s *PaymentSession) {
		s.Close()
	}))
	return &SessionManager{
		wallet:   wallet,
		verifier: verifier,
		timings:  timings,
		secret:   []byte(secret),
		ttl:      ttl,
		registry: registry,
		stop:     registry.Close,
		metrics:  metrics,
		logger:   logger,
	}
}

// OpenSession represents a newly opened session and its bearer token.
type OpenSession struct {
	Token     string                 `json:"token"`
	ExpiresIn int                    `json:"expiresIn"`
	Session   domain.SessionSnapshot `json:"session"`
}

// OpenForPayee starts a new payment to payee.
func (m *SessionManager) OpenForPayee(ctx context.Context, payee domain.PayeeInfo) (*PaymentSession, *OpenSession, error) {
	if payee.UpiID == "" {
		return nil, nil, &domain.ErrValidation{Field: "payee.upiId", Message: "payee UPI ID is required"}
	}
	if payee.Name == "" {
		payee.Name = payee.UpiID
	}
	return m.open(ctx, domain.NewPayment{Payee: payee})
}

// OpenForTransaction shows the receipt of a ledger entry.
func (m *SessionManager) OpenForTransaction(ctx context.Context, txID string) (*PaymentSession, *OpenSession, error) {
	tx, err := m.wallet.Transaction(txID)
	if err != nil {
		return nil, nil, err
	}
	return m.open(ctx, domain.HistoricalPayment{Transaction: tx})
}

func (m *SessionManager) open(ctx context.Context, view domain.PaymentView) (*PaymentSession, *OpenSession, error) {
	_, span := sessionTracer.Start(ctx, "SessionManager.Open")
	defer span.End()

	id := uuid.NewString()
	token, err := m.signToken(id)
	if err != nil {
		return nil, nil, fmt.Errorf("sign session token: %w", err)
	}

	s := NewPaymentSession(id, view, m.wallet, m.verifier, m.timings, m.metrics, m.logger)
	m.registry.Set(id, s)

	span.SetAttributes(attribute.String("session.id", id))
	m.logger.Info("payment session opened",
		zap.String("session_id", id),
		zap.String("upi_id", view.ViewPayee().UpiID),
	)
	return s, &OpenSession{
		Token:     token,
		ExpiresIn: int(m.ttl.Seconds()),
		Session:   s.Snapshot(),
	}, nil
}

// Lookup returns the live session with the given id.
func (m *SessionManager) Lookup(id string) (*PaymentSession, error) {
	s, ok := m.registry.Get(id)
	if !ok {
		m.metrics.IncrSessionMiss()
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	m.metrics.IncrSessionHit()
	return s, nil
}

// Done closes and forgets a session.
func (m *SessionManager) Done(id string) error {
	if _, err := m.Lookup(id); err != nil {
		return err
	}
	m.registry.Delete(id)
	m.logger.Info("payment session closed", zap.String("session_id", id))
	return nil
}

// Active returns the number of registered sessions.
func (m *SessionManager) Active() int {
	return m.registry.Len()
}

// Shutdown closes every session and stops the registry.
func (m *SessionManager) Shutdown() {
	m.stop()
}

// ============================================================
// Session tokens
// ============================================================

func (m *SessionManager) signToken(id string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken checks a session token and returns the session id it carries.
func (m *SessionManager) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired session token"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	return claims.SID, nil
}
