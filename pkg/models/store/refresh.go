package store

import "time"

type RefreshState struct {
	Provider        string
	LastAttemptAt   time.Time
	LastRefreshedAt *time.Time
	LastError       *string
	RecordsCount    int64
}
