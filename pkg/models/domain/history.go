package domain

import "time"

// PricePoint is the price of one offering as seen by a cache refresh.
type PricePoint struct {
	Provider      Provider
	InstanceType  string
	Region        string
	PriceOnDemand float64
	PriceSpot     float64
	Currency      string
	RecordedAt    time.Time
}
