package dex

import "fmt"

// RewardScale divides amount*rate*elapsed in reward accrual.
const RewardScale = 10000

// Params holds the tunable bounds of the pool engines.
type Params struct {
	MaxFeeRate        uint64
	MaxRewardRate     uint64
	RatioToleranceBps uint64
	// VolumeWindow is the length of the rolling telemetry window in seconds.
	VolumeWindow  int64
	MaxOpenOrders int
}

// DefaultParams returns the production bounds.
func DefaultParams() Params {
	return Params{
		MaxFeeRate:        5000,
		MaxRewardRate:     10000,
		RatioToleranceBps: 100,
		VolumeWindow:      86400,
		MaxOpenOrders:     1000,
	}
}

// Validate checks that the bounds are usable.
func (p Params) Validate() error {
	if p.MaxFeeRate >= BpsDenominator {
		return fmt.Errorf("max fee rate must be below %d bps", BpsDenominator)
	}
	if p.RatioToleranceBps > BpsDenominator {
		return fmt.Errorf("ratio tolerance must be at most %d bps", BpsDenominator)
	}
	if p.VolumeWindow <= 0 {
		return fmt.Errorf("volume window must be positive")
	}
	if p.MaxOpenOrders <= 0 {
		return fmt.Errorf("max open orders must be positive")
	}
	return nil
}
