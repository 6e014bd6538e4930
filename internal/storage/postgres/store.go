package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"soondex/internal/model"
)

// Store provides Postgres persistence for events, pools and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	seq BIGINT PRIMARY KEY,
	pool_address TEXT NOT NULL,
	name TEXT NOT NULL,
	ts BIGINT NOT NULL,
	actor TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pool_events_pool_ts ON pool_events (pool_address, ts);

CREATE TABLE IF NOT EXISTS pools (
	pool_address TEXT PRIMARY KEY,
	mint_x TEXT NOT NULL,
	mint_y TEXT NOT NULL,
	fee_rate BIGINT NOT NULL,
	authority TEXT NOT NULL,
	first_seen_ts BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_address TEXT PRIMARY KEY,
	state JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_address TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts TIMESTAMPTZ NOT NULL,
	window_end_ts TIMESTAMPTZ NOT NULL,
	swap_count BIGINT NOT NULL,
	volume_x NUMERIC NOT NULL,
	volume_y NUMERIC NOT NULL,
	fee_x NUMERIC NOT NULL,
	fee_y NUMERIC NOT NULL,
	rewards_paid NUMERIC NOT NULL,
	fee_rate_x NUMERIC,
	fee_rate_y NUMERIC,
	tvl_x NUMERIC,
	tvl_y NUMERIC,
	apr NUMERIC,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_address, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS runner_state (
	name TEXT PRIMARY KEY,
	last_processed BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables the store writes to.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutEventBatch inserts events, ignoring sequence numbers already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Decoded)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", ev.Name, err)
		}
		batch.Queue(`
			INSERT INTO pool_events (seq, pool_address, name, ts, actor, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(ev.Seq),
			ev.Pool,
			ev.Name,
			ev.Timestamp,
			ev.Actor,
			payload,
		)
	}
	return s.sendBatch(ctx, batch, len(events))
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, mint_x, mint_y, fee_rate, authority, first_seen_ts, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				mint_x = EXCLUDED.mint_x,
				mint_y = EXCLUDED.mint_y,
				fee_rate = EXCLUDED.fee_rate,
				authority = EXCLUDED.authority,
				first_seen_ts = LEAST(pools.first_seen_ts, EXCLUDED.first_seen_ts),
				updated_at = now()
		`,
			pool.Address,
			pool.MintX,
			pool.MintY,
			int64(pool.FeeRate),
			pool.Authority,
			pool.FirstSeenTs,
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertSnapshots stores the latest committed state of each pool.
func (s *Store) UpsertSnapshots(ctx context.Context, pools []*model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		state, err := json.Marshal(pool)
		if err != nil {
			return fmt.Errorf("marshal pool %s: %w", pool.Address, err)
		}
		batch.Queue(`
			INSERT INTO pool_snapshots (pool_address, state, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (pool_address)
			DO UPDATE SET state = EXCLUDED.state, updated_at = now()
		`, pool.Address.String(), state)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume_x, volume_y, fee_x, fee_y, rewards_paid,
				fee_rate_x, fee_rate_y, tvl_x, tvl_y, apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				rewards_paid = EXCLUDED.rewards_paid,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				tvl_x = EXCLUDED.tvl_x,
				tvl_y = EXCLUDED.tvl_y,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.RewardsPaid,
			m.FeeRateX,
			m.FeeRateY,
			m.TVLX,
			m.TVLY,
			m.APR,
		)
	}
	return s.sendBatch(ctx, batch, len(metrics))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed position stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM runner_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed position for name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runner_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}
