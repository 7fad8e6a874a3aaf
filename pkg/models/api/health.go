package api

import "time"

type RefreshState struct {
	Provider        string     `json:"provider"`
	LastAttemptAt   time.Time  `json:"lastAttemptAt"`
	LastRefreshedAt *time.Time `json:"lastRefreshedAt,omitempty"`
	LastError       *string    `json:"lastError,omitempty"`
	Records         int64      `json:"records"`
}

type CacheHealth struct {
	Enabled bool           `json:"enabled"`
	Records int64          `json:"records"`
	Refresh []RefreshState `json:"refresh,omitempty"`
}

type HealthResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Cache     CacheHealth `json:"cache"`
}
