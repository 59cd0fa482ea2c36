package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status         string          `json:"status"` // healthy, degraded, unhealthy
	Services       []ServiceHealth `json:"services"`
	ActiveSessions int             `json:"activeSessions"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// CacheMetrics is returned by GET /v1/metrics/cache.
type CacheMetrics struct {
	DocumentHits    int64   `json:"documentHits"`
	DocumentMisses  int64   `json:"documentMisses"`
	DocumentHitRate float64 `json:"documentHitRate"`
	SessionHits     int64   `json:"sessionHits"`
	SessionMisses   int64   `json:"sessionMisses"`
	SessionHitRate  float64 `json:"sessionHitRate"`
	ActiveSessions  int64   `json:"activeSessions"`
	SourceErrors    int64   `json:"sourceErrors"`
	FallbacksServed int64   `json:"fallbacksServed"`
	Period          string  `json:"period"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful action without a body.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
