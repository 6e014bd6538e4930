package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"soondex/internal/dex"
	"soondex/internal/exchange"
	"soondex/internal/ledger"
	"soondex/internal/metrics"
	"soondex/internal/model"
	"soondex/internal/registry"
	"soondex/internal/storage"
)

// RunConfig holds runtime settings for the replayer.
type RunConfig struct {
	ProgramID    solana.PublicKey
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// ErrorSink receives instructions that were rejected.
type ErrorSink interface {
	PutErrorBatch(errs []model.InstructionError) error
}

// StateSink receives pool metadata and snapshots after each batch.
type StateSink interface {
	UpsertPools(ctx context.Context, pools []model.PoolRecord) error
	UpsertSnapshots(ctx context.Context, pools []*model.Pool) error
}

// Outputs are where a Runner writes. Only Events is required.
type Outputs struct {
	Events     storage.EventSink
	Errors     ErrorSink
	State      StateSink
	Checkpoint Checkpointer
	Metrics    *metrics.Metrics
}

// Summary counts what a Run did.
type Summary struct {
	Lines    uint64
	Resumed  uint64
	Applied  uint64
	Failed   uint64
	Events   uint64
	Sequence uint64
}

// Runner applies an instruction script to a fresh in-memory exchange.
type Runner struct {
	cfg      RunConfig
	out      Outputs
	logger   *zap.Logger
	exchange *exchange.Exchange
	registry *registry.Registry
	ledger   *ledger.Memory
	clock    *exchange.ManualClock
	buffer   *storage.Buffer

	// first PoolInitialized timestamp per pool address
	firstSeen map[string]int64
}

// NewRunner builds a Runner with its own registry, ledger and clock.
func NewRunner(cfg RunConfig, xcfg exchange.Config, out Outputs, logger *zap.Logger) (*Runner, error) {
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if out.Events == nil {
		return nil, fmt.Errorf("event sink is nil")
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = registry.DefaultProgramID
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		cfg:       cfg,
		out:       out,
		logger:    logger,
		registry:  registry.New(cfg.ProgramID),
		ledger:    ledger.NewMemory(logger.Named("ledger")),
		clock:     exchange.NewManualClock(0),
		buffer:    &storage.Buffer{},
		firstSeen: make(map[string]int64),
	}
	x, err := exchange.New(xcfg, exchange.Deps{
		Registry: r.registry,
		Ledger:   r.ledger,
		Clock:    r.clock,
		Sink:     r.buffer,
	}, logger.Named("exchange"))
	if err != nil {
		return nil, err
	}
	r.exchange = x
	return r, nil
}

func (r *Runner) Exchange() *exchange.Exchange { return r.exchange }

func (r *Runner) Ledger() *ledger.Memory { return r.ledger }

func (r *Runner) Registry() *registry.Registry { return r.registry }

// Run replays the script read from input. Lines up to the checkpoint are
// applied again to rebuild state but their events are not re-published.
func (r *Runner) Run(ctx context.Context, input io.Reader) (Summary, error) {
	lines, err := ReadInstructions(input)
	if err != nil {
		return Summary{}, err
	}
	total := uint64(len(lines))
	summary := Summary{Lines: total}

	var resume uint64
	if r.out.Checkpoint != nil {
		last, ok, err := r.out.Checkpoint.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			resume = min(last, total)
			r.logger.Info("resume from checkpoint", zap.Uint64("last_applied", last), zap.Uint64("from", resume+1))
		}
	}
	if resume > 0 {
		if err := r.restore(ctx, lines[:resume]); err != nil {
			return summary, err
		}
		summary.Resumed = resume
	}
	r.attachMetrics()

	if resume >= total {
		r.logger.Info("nothing to replay", zap.Uint64("lines", total))
		summary.Sequence = r.exchange.Sequence()
		return summary, nil
	}

	ranges, err := SplitRange(resume+1, total, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range ranges {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var failures []model.InstructionError
		for line := batch.From; line <= batch.To; line++ {
			ins := lines[line-1]
			if ins.Op == "" {
				continue
			}
			if err := r.apply(ctx, ins); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return summary, ctxErr
				}
				r.logger.Debug("instruction rejected", zap.Uint64("line", line), zap.String("op", ins.Op), zap.Error(err))
				failures = append(failures, instructionError(line, ins, err))
				summary.Failed++
				continue
			}
			summary.Applied++
		}

		events := r.buffer.Drain()
		r.track(events)
		if err := r.flush(ctx, events, failures); err != nil {
			return summary, err
		}
		summary.Events += uint64(len(events))

		if r.out.Checkpoint != nil {
			if err := r.out.Checkpoint.Save(ctx, batch.To); err != nil {
				return summary, fmt.Errorf("save checkpoint: %w", err)
			}
		}

		r.logger.Info("batch complete",
			zap.Uint64("from", batch.From),
			zap.Uint64("to", batch.To),
			zap.Int("events", len(events)),
			zap.Int("failed", len(failures)),
		)
	}

	summary.Sequence = r.exchange.Sequence()
	return summary, nil
}

func (r *Runner) restore(ctx context.Context, lines []model.Instruction) error {
	for _, ins := range lines {
		if ins.Op == "" {
			continue
		}
		if err := r.apply(ctx, ins); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	r.track(r.buffer.Drain())
	return nil
}

// attachMetrics starts counting operations from here on and publishes the
// gauges of the pools rebuilt so far.
func (r *Runner) attachMetrics() {
	if r.out.Metrics == nil {
		return
	}
	r.exchange.SetMetrics(r.out.Metrics)
	for _, snap := range r.registry.Snapshots() {
		p := snap.Pool
		r.out.Metrics.ObservePool(p.Address.String(), p.ReserveX, p.ReserveY, len(p.Orders))
	}
}

func (r *Runner) track(events []model.Event) {
	for _, ev := range events {
		switch ev.Name {
		case model.EventPoolInitialized:
			if _, ok := r.firstSeen[ev.Pool]; !ok {
				r.firstSeen[ev.Pool] = ev.Timestamp
			}
		case model.EventPoolRemoved:
			delete(r.firstSeen, ev.Pool)
		}
	}
}

func (r *Runner) flush(ctx context.Context, events []model.Event, failures []model.InstructionError) error {
	if len(events) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context, attempt int) error {
			err := r.out.Events.PutEventBatch(ctx, events)
			if err != nil {
				r.logger.Warn("store events failed", zap.Int("attempt", attempt), zap.Int("events", len(events)), zap.Error(err))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("store events: %w", err)
		}
	}

	if r.out.Errors != nil && len(failures) > 0 {
		if err := r.out.Errors.PutErrorBatch(failures); err != nil {
			return fmt.Errorf("store errors: %w", err)
		}
	}

	if r.out.State != nil {
		pools, records := r.snapshot()
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context, attempt int) error {
			if err := r.out.State.UpsertPools(ctx, records); err != nil {
				r.logger.Warn("upsert pools failed", zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			if err := r.out.State.UpsertSnapshots(ctx, pools); err != nil {
				r.logger.Warn("upsert snapshots failed", zap.Int("attempt", attempt), zap.Error(err))
				return err
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("store pool state: %w", err)
		}
	}
	return nil
}

func (r *Runner) snapshot() ([]*model.Pool, []model.PoolRecord) {
	snaps := r.registry.Snapshots()
	pools := make([]*model.Pool, 0, len(snaps))
	records := make([]model.PoolRecord, 0, len(snaps))
	for _, snap := range snaps {
		p := snap.Pool
		pools = append(pools, p)
		records = append(records, model.PoolRecord{
			Address:     p.Address.String(),
			MintX:       p.MintX.String(),
			MintY:       p.MintY.String(),
			FeeRate:     p.FeeRate,
			Authority:   p.Authority.String(),
			FirstSeenTs: r.firstSeen[p.Address.String()],
		})
	}
	return pools, records
}

func instructionError(line uint64, ins model.Instruction, err error) model.InstructionError {
	return model.InstructionError{
		Line:   line,
		Op:     ins.Op,
		Signer: ins.Signer,
		Code:   dex.Code(err),
		Error:  err.Error(),
	}
}
