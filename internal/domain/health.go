package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// MetricsSummary is returned by GET /v1/metrics/summary.
type MetricsSummary struct {
	PaymentsCompleted  int64   `json:"paymentsCompleted"`
	PINAttempts        int64   `json:"pinAttempts"`
	PINFailureRate     float64 `json:"pinFailureRate"`
	ScansResolved      int64   `json:"scansResolved"`
	ScansRejected      int64   `json:"scansRejected"`
	StoreWriteFailures int64   `json:"storeWriteFailures"`
	SessionHitRate     float64 `json:"sessionHitRate"`
	ActiveSessions     int     `json:"activeSessions"`
	Period             string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
