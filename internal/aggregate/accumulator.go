package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"soondex/internal/model"
)

// poolState is what the aggregator remembers about a pool across windows.
type poolState struct {
	record     model.PoolRecord
	mintX      solana.PublicKey
	reserveX   uint64
	reserveY   uint64
	hasReserve bool
}

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress string
	WindowStart int64
	WindowEnd   int64
	SwapCount   uint64
	VolumeX     decimal.Decimal
	VolumeY     decimal.Decimal
	FeeX        decimal.Decimal
	FeeY        decimal.Decimal
	RewardsPaid decimal.Decimal
	ReserveX    uint64
	ReserveY    uint64
	HasReserve  bool
	LastTS      int64
}

// NewAccumulator opens a window for pool, carrying its last known reserves.
func NewAccumulator(pool string, state *poolState, windowStart, windowEnd int64) *Accumulator {
	acc := &Accumulator{
		PoolAddress: pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
	if state != nil && state.hasReserve {
		acc.ReserveX, acc.ReserveY, acc.HasReserve = state.reserveX, state.reserveY, true
	}
	return acc
}

// AddEvent folds one event into the window. mintX identifies the X side of
// swap payloads.
func (a *Accumulator) AddEvent(record model.EventRecord, mintX solana.PublicKey) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.Name {
	case model.EventTokensSwapped:
		var swap model.SwapData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		if swap.InputMint.Equals(mintX) {
			a.VolumeX = a.VolumeX.Add(amount(swap.InputAmount))
			a.VolumeY = a.VolumeY.Add(amount(swap.OutputAmount))
			a.FeeX = a.FeeX.Add(amount(swap.Fee))
		} else {
			a.VolumeY = a.VolumeY.Add(amount(swap.InputAmount))
			a.VolumeX = a.VolumeX.Add(amount(swap.OutputAmount))
			a.FeeY = a.FeeY.Add(amount(swap.Fee))
		}
		a.SwapCount++
		a.setReserves(swap.ReserveX, swap.ReserveY)

	case model.EventLiquidityProvided, model.EventLiquidityRemoved:
		var liq model.LiquidityData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode liquidity: %w", err)
		}
		a.setReserves(liq.ReserveX, liq.ReserveY)

	case model.EventRewardsClaimed:
		var rewards model.RewardsData
		if err := json.Unmarshal(record.Decoded, &rewards); err != nil {
			return fmt.Errorf("decode rewards: %w", err)
		}
		a.RewardsPaid = a.RewardsPaid.Add(amount(rewards.Amount))

	case model.EventTokensUnstaked:
		var unstake model.UnstakeData
		if err := json.Unmarshal(record.Decoded, &unstake); err != nil {
			return fmt.Errorf("decode unstake: %w", err)
		}
		a.RewardsPaid = a.RewardsPaid.Add(amount(unstake.Rewards))
	}
	return nil
}

func (a *Accumulator) setReserves(x, y uint64) {
	a.ReserveX, a.ReserveY, a.HasReserve = x, y, true
}

func amount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
