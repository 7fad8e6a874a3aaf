package store

import "time"

// InstanceRecord is a cached offering, keyed by (Provider, InstanceType, Region).
type InstanceRecord struct {
	ID               string
	Provider         string
	InstanceType     string
	Family           string
	Region           string
	VCPUs            float64
	MemoryGB         float64
	StorageGB        float64
	Architecture     string
	GPU              bool
	GPUCount         int
	GPUType          string
	PriceOnDemand    float64
	PriceSpot        float64
	Category         string
	RegionAggregated bool
	Currency         string
	UpdatedAt        time.Time
}

type InstanceQuery struct {
	Provider string
	Region   string
	Limit    int
}

// PricePoint is one observed price of an offering, appended on every cache refresh.
type PricePoint struct {
	Provider      string
	InstanceType  string
	Region        string
	PriceOnDemand float64
	PriceSpot     float64
	Currency      string
	RecordedAt    time.Time
}

type HistoryQuery struct {
	Provider     string
	InstanceType string
	Region       string
	Limit        int
}
