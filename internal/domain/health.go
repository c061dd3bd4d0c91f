package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	AccountsCreated  int64   `json:"accountsCreated"`
	Deposits         int64   `json:"deposits"`
	WagersWon        int64   `json:"wagersWon"`
	WagersLost       int64   `json:"wagersLost"`
	Rejections       int64   `json:"rejections"`
	WinRate          float64 `json:"winRate"`
	DesignedWinRate  float64 `json:"designedWinRate"`
	EntropyFallbacks int64   `json:"entropyFallbacks"`
	Period           string  `json:"period"`
}
