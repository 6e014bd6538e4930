package exchange

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"soondex/internal/dex"
	"soondex/internal/metrics"
	"soondex/internal/model"
	"soondex/internal/registry"
	"soondex/internal/storage"
)

// NativeMint is the wrapped SOL mint protocol fees are charged in by default.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Config holds exchange-wide settings.
type Config struct {
	Params            dex.Params
	DefaultRewardRate uint64
	// ProtocolFee is charged to the payer of InitializePool when non-zero.
	ProtocolFee     uint64
	ProtocolFeeMint solana.PublicKey
	ProtocolWallet  solana.PublicKey
}

func DefaultConfig() Config {
	return Config{
		Params:            dex.DefaultParams(),
		DefaultRewardRate: 1,
		ProtocolFeeMint:   NativeMint,
	}
}

// Deps are the collaborators an Exchange runs against.
type Deps struct {
	Registry   *registry.Registry
	Ledger     Ledger
	Clock      Clock
	Authorizer Authorizer
	Sink       storage.EventSink
	Metrics    *metrics.Metrics
}

// Exchange is the entry point for every pool operation.
type Exchange struct {
	cfg    Config
	engine *dex.Engine
	deps   Deps
	logger *zap.Logger
	seq    atomic.Uint64
}

func New(cfg Config, deps Deps, logger *zap.Logger) (*Exchange, error) {
	engine, err := dex.NewEngine(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	if cfg.DefaultRewardRate > cfg.Params.MaxRewardRate {
		return nil, fmt.Errorf("default reward rate %d above max %d", cfg.DefaultRewardRate, cfg.Params.MaxRewardRate)
	}
	if cfg.ProtocolFee > 0 && cfg.ProtocolWallet.IsZero() {
		return nil, fmt.Errorf("protocol wallet required when protocol fee is set")
	}
	if deps.Registry == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("registry and ledger are required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Authorizer == nil {
		deps.Authorizer = SignerAuthorizer{}
	}
	if deps.Sink == nil {
		deps.Sink = storage.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchange{cfg: cfg, engine: engine, deps: deps, logger: logger}, nil
}

// SetSequence positions the event sequence so the next event gets seq+1.
func (x *Exchange) SetSequence(seq uint64) { x.seq.Store(seq) }

func (x *Exchange) Sequence() uint64 { return x.seq.Load() }

// SetMetrics swaps the metrics sink. A nil sink records nothing.
func (x *Exchange) SetMetrics(m *metrics.Metrics) { x.deps.Metrics = m }

type runFunc func(tx *registry.Tx, c dex.Call) (dex.Outcome, error)

type committed struct {
	outcome dex.Outcome
	pool    *model.Pool
	now     int64
}

// execute authorizes actor, stages the pair's pool, runs the engine,
// validates, settles transfers and commits. The event is published after
// the commit.
func (x *Exchange) execute(ctx context.Context, op string, actor, mintA, mintB solana.PublicKey, run runFunc) (dex.Outcome, error) {
	res, err := x.stage(ctx, actor, func(apply func(*registry.Tx) error) error {
		return x.deps.Registry.Update(mintA, mintB, apply)
	}, run)
	return x.finish(ctx, op, actor, res, err)
}

func (x *Exchange) stage(ctx context.Context, actor solana.PublicKey, open func(func(*registry.Tx) error) error, run runFunc) (committed, error) {
	if err := x.deps.Authorizer.Authorize(ctx, actor); err != nil {
		return committed{}, err
	}
	now := x.deps.Clock.Now()

	var res committed
	err := open(func(tx *registry.Tx) error {
		c := dex.Call{Signer: actor, Now: now, Custody: tx.Custody()}
		out, err := run(tx, c)
		if err != nil {
			return err
		}
		if err := dex.CheckInvariants(tx.Pool(), tx.Users()); err != nil {
			return err
		}
		if err := x.settle(ctx, out.Transfers); err != nil {
			return err
		}
		res = committed{outcome: out, pool: tx.Pool(), now: now}
		return nil
	})
	return res, err
}

func (x *Exchange) finish(ctx context.Context, op string, actor solana.PublicKey, res committed, err error) (dex.Outcome, error) {
	x.deps.Metrics.ObserveOperation(op, err)
	if err != nil {
		x.logger.Warn("operation rejected",
			zap.String("op", op),
			zap.Stringer("actor", actor),
			zap.String("code", metrics.CodeLabel(err)),
			zap.Error(err),
		)
		return dex.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	pool := res.pool
	if res.outcome.Name == model.EventPoolRemoved {
		x.deps.Metrics.ForgetPool(pool.Address.String())
	} else {
		x.deps.Metrics.ObservePool(pool.Address.String(), pool.ReserveX, pool.ReserveY, len(pool.Orders))
	}
	if swap, ok := res.outcome.Payload.(model.SwapData); ok {
		x.deps.Metrics.ObserveSwap(swap.InputMint.String(), swap.InputAmount, swap.Fee)
	}

	x.logger.Debug("operation committed",
		zap.String("op", op),
		zap.Stringer("pool", pool.Address),
		zap.Stringer("actor", actor),
		zap.Int("transfers", len(res.outcome.Transfers)),
	)

	if res.outcome.Name != "" {
		ev := model.Event{
			Seq:       x.seq.Add(1),
			Pool:      pool.Address.String(),
			Name:      res.outcome.Name,
			Timestamp: res.now,
			Actor:     actor.String(),
			Decoded:   res.outcome.Payload,
		}
		if err := x.deps.Sink.PutEventBatch(ctx, []model.Event{ev}); err != nil {
			x.logger.Warn("event sink write failed",
				zap.String("event", ev.Name),
				zap.Uint64("seq", ev.Seq),
				zap.Error(err),
			)
		}
	}
	return res.outcome, nil
}

// settle executes transfers in order. On failure the moves already made are
// reversed and the original error is returned.
func (x *Exchange) settle(ctx context.Context, transfers []dex.Transfer) error {
	for i, tr := range transfers {
		if err := x.deps.Ledger.Move(ctx, tr.Token, tr.From, tr.To, tr.Amount); err != nil {
			x.compensate(transfers[:i])
			return fmt.Errorf("transfer %d of %s: %w", tr.Amount, tr.Token, err)
		}
	}
	return nil
}

func (x *Exchange) compensate(done []dex.Transfer) {
	ctx := context.Background()
	for i := len(done) - 1; i >= 0; i-- {
		tr := done[i]
		if err := x.deps.Ledger.Move(ctx, tr.Token, tr.To, tr.From, tr.Amount); err != nil {
			x.logger.Error("transfer compensation failed",
				zap.Stringer("token", tr.Token),
				zap.Stringer("from", tr.To),
				zap.Stringer("to", tr.From),
				zap.Uint64("amount", tr.Amount),
				zap.Error(err),
			)
		}
	}
}
