package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"soondex/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds int64
	BatchSize     int
	RecomputeFrom int64
	StateStore    StateStore
}

// Store receives pool metadata and window metrics.
type Store interface {
	UpsertPools(ctx context.Context, pools []model.PoolRecord) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Summary counts what a Run did.
type Summary struct {
	Total      int
	Aggregated int
	Skipped    int
	Failed     int
	Windows    int
}

// Aggregator folds pool events into per-pool window metrics.
type Aggregator struct {
	cfg          Config
	store        Store
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	pools        map[string]*poolState
	registered   map[string]bool
}

func NewAggregator(cfg Config, store Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		pools:        make(map[string]*poolState),
		registered:   make(map[string]bool),
	}
}

// Run aggregates an events JSONL stream. Events at or before the saved
// state are read only for pool metadata and reserves.
func (a *Aggregator) Run(ctx context.Context, input io.Reader) (Summary, error) {
	var summary Summary
	if a.store == nil {
		return summary, fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds <= 0 {
		return summary, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return summary, err
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Total++

		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			summary.Failed++
			a.logger.Warn("decode event", zap.Error(err))
			continue
		}

		state, err := a.track(record)
		if err != nil {
			summary.Failed++
			a.logger.Warn("track pool", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.Name))
			continue
		}

		if record.Timestamp <= startTs {
			if state != nil {
				if x, y, ok := reservesOf(record); ok {
					state.reserveX, state.reserveY, state.hasReserve = x, y, true
				}
			}
			summary.Skipped++
			continue
		}
		if state == nil {
			summary.Failed++
			a.logger.Warn("missing pool meta", zap.String("pool", record.Pool), zap.Uint64("seq", record.Seq))
			continue
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		acc := a.accumulators[record.Pool]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, a.flushAccumulator(acc))
			summary.Windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(record.Pool, state, start, start+a.cfg.WindowSeconds)
			a.accumulators[record.Pool] = acc
		}

		if err := acc.AddEvent(record, state.mintX); err != nil {
			summary.Failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.Name))
			continue
		}
		if acc.HasReserve {
			state.reserveX, state.reserveY, state.hasReserve = acc.ReserveX, acc.ReserveY, true
		}
		summary.Aggregated++

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flushBatch(ctx, batch); err != nil {
				return summary, err
			}
			batch = batch[:0]
			if err := a.saveState(ctx, maxTs); err != nil {
				return summary, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}

	// Open windows may still grow, so the saved state stops before the
	// earliest of them and the next run recomputes them whole.
	safeTs := maxTs
	if len(a.accumulators) > 0 {
		safeTs = minOpenWindowStart(a.accumulators) - 1
	}
	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
		summary.Windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if err := a.flushBatch(ctx, batch); err != nil {
		return summary, err
	}
	if err := a.saveState(ctx, safeTs); err != nil {
		return summary, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", summary.Total),
		zap.Int("aggregated", summary.Aggregated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("windows", summary.Windows),
	)
	return summary, nil
}

// track updates pool metadata from lifecycle events and returns the pool's
// state, or nil if the pool was never initialized in this stream.
func (a *Aggregator) track(record model.EventRecord) (*poolState, error) {
	switch record.Name {
	case model.EventPoolInitialized:
		var data model.PoolInitializedData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return nil, fmt.Errorf("decode pool initialized: %w", err)
		}
		state := &poolState{
			record: model.PoolRecord{
				Address:     record.Pool,
				MintX:       data.MintX.String(),
				MintY:       data.MintY.String(),
				FeeRate:     data.FeeRate,
				Authority:   data.Authority.String(),
				FirstSeenTs: record.Timestamp,
			},
			mintX: data.MintX,
		}
		if prev, ok := a.pools[record.Pool]; ok && prev.record.FirstSeenTs < state.record.FirstSeenTs {
			state.record.FirstSeenTs = prev.record.FirstSeenTs
		}
		a.pools[record.Pool] = state
		delete(a.registered, record.Pool)
		return state, nil
	default:
		return a.pools[record.Pool], nil
	}
}

func (a *Aggregator) flushBatch(ctx context.Context, batch []model.PoolWindowMetrics) error {
	var pools []model.PoolRecord
	for _, m := range batch {
		if a.registered[m.PoolAddress] {
			continue
		}
		if state, ok := a.pools[m.PoolAddress]; ok {
			pools = append(pools, state.record)
			a.registered[m.PoolAddress] = true
		}
	}
	if len(pools) > 0 {
		if err := a.store.UpsertPools(ctx, pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}
	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	tvlX := optionalAmount(acc.ReserveX, acc.HasReserve)
	tvlY := optionalAmount(acc.ReserveY, acc.HasReserve)
	feeRateX := computeFeeRate(acc.FeeX, tvlX)
	feeRateY := computeFeeRate(acc.FeeY, tvlY)

	return model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: a.cfg.WindowSeconds,
		WindowStart:    time.Unix(acc.WindowStart, 0).UTC(),
		WindowEnd:      time.Unix(acc.WindowEnd, 0).UTC(),
		SwapCount:      acc.SwapCount,
		VolumeX:        acc.VolumeX.String(),
		VolumeY:        acc.VolumeY.String(),
		FeeX:           acc.FeeX.String(),
		FeeY:           acc.FeeY.String(),
		RewardsPaid:    acc.RewardsPaid.String(),
		FeeRateX:       feeRateX,
		FeeRateY:       feeRateY,
		TVLX:           optionalString(tvlX),
		TVLY:           optionalString(tvlY),
		APR:            computeAPR(feeRateX, feeRateY, a.cfg.WindowSeconds),
	}
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (int64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context, ts int64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) > 0 {
		ts = min(ts, minOpenWindowStart(a.accumulators)-1)
	}
	if err := a.cfg.StateStore.Save(ctx, ts); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// reservesOf returns the post-event reserves carried by swap and liquidity events.
func reservesOf(record model.EventRecord) (uint64, uint64, bool) {
	switch record.Name {
	case model.EventTokensSwapped:
		var swap model.SwapData
		if json.Unmarshal(record.Decoded, &swap) == nil {
			return swap.ReserveX, swap.ReserveY, true
		}
	case model.EventLiquidityProvided, model.EventLiquidityRemoved:
		var liq model.LiquidityData
		if json.Unmarshal(record.Decoded, &liq) == nil {
			return liq.ReserveX, liq.ReserveY, true
		}
	}
	return 0, 0, false
}

func windowStart(ts, windowSec int64) int64 {
	rem := ts % windowSec
	if rem < 0 {
		rem += windowSec
	}
	return ts - rem
}

func minOpenWindowStart(acc map[string]*Accumulator) int64 {
	first := true
	var lowest int64
	for _, entry := range acc {
		if first || entry.WindowStart < lowest {
			lowest = entry.WindowStart
			first = false
		}
	}
	return lowest
}
