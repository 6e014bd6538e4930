package model

import "time"

// PoolRecord is the pool metadata row kept by the reporting store.
type PoolRecord struct {
	Address     string `json:"address"`
	MintX       string `json:"mint_x"`
	MintY       string `json:"mint_y"`
	FeeRate     uint64 `json:"fee_rate"`
	Authority   string `json:"authority"`
	FirstSeenTs int64  `json:"first_seen_ts"`
}

// PoolWindowMetrics stores aggregated metrics for a pool window.
type PoolWindowMetrics struct {
	PoolAddress    string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	VolumeX        string
	VolumeY        string
	FeeX           string
	FeeY           string
	RewardsPaid    string
	FeeRateX       *string
	FeeRateY       *string
	TVLX           *string
	TVLY           *string
	APR            *string
}
