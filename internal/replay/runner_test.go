package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"soondex/internal/dex"
	"soondex/internal/exchange"
	"soondex/internal/metrics"
	"soondex/internal/model"
	"soondex/internal/storage"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

var (
	mintX = key(1).String()
	mintY = key(2).String()
	alice = key(10).String()
	bob   = key(11).String()
)

func script(t *testing.T, lines ...*model.Instruction) string {
	t.Helper()
	var buf bytes.Buffer
	for _, ins := range lines {
		if ins != nil {
			data, err := json.Marshal(ins)
			if err != nil {
				t.Fatalf("marshal instruction: %v", err)
			}
			buf.Write(data)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

func swapScript(t *testing.T) string {
	return script(t,
		&model.Instruction{Op: model.OpAirdrop, Signer: alice, Token: mintX, Amount: 100_000_000},
		&model.Instruction{Op: model.OpAirdrop, Signer: alice, Token: mintY, Amount: 100_000_000},
		&model.Instruction{Op: model.OpInitializePool, Signer: alice, Timestamp: 1_000, MintX: mintX, MintY: mintY, FeeRate: 25},
		&model.Instruction{Op: model.OpAddLiquidity, Signer: alice, Timestamp: 1_001, MintX: mintX, MintY: mintY, AmountX: 100_000_000, AmountY: 100_000_000},
		&model.Instruction{Op: model.OpAirdrop, Signer: bob, Token: mintX, Amount: 10_000_000},
		&model.Instruction{Op: model.OpSwap, Signer: bob, Timestamp: 1_002, InputMint: mintX, OutputMint: mintY, AmountIn: 10_000_000},
		&model.Instruction{Op: model.OpSwap, Signer: bob, Timestamp: 1_003, InputMint: mintX, OutputMint: mintY, AmountIn: 10_000_000},
		nil,
		&model.Instruction{Op: "teleport", Signer: bob},
	)
}

type memCheckpoint struct {
	last  uint64
	ok    bool
	saves []uint64
}

func (m *memCheckpoint) Load(context.Context) (uint64, bool, error) { return m.last, m.ok, nil }

func (m *memCheckpoint) Save(_ context.Context, last uint64) error {
	m.last, m.ok = last, true
	m.saves = append(m.saves, last)
	return nil
}

type memErrors struct {
	errs []model.InstructionError
}

func (m *memErrors) PutErrorBatch(errs []model.InstructionError) error {
	m.errs = append(m.errs, errs...)
	return nil
}

type memState struct {
	pools     []model.PoolRecord
	snapshots []*model.Pool
}

func (m *memState) UpsertPools(_ context.Context, pools []model.PoolRecord) error {
	m.pools = pools
	return nil
}

func (m *memState) UpsertSnapshots(_ context.Context, pools []*model.Pool) error {
	m.snapshots = pools
	return nil
}

type flakySink struct {
	storage.Buffer
	failures int
	calls    int
}

func (f *flakySink) PutEventBatch(ctx context.Context, events []model.Event) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("sink unavailable")
	}
	return f.Buffer.PutEventBatch(ctx, events)
}

func newRunner(t *testing.T, batch uint64, out Outputs) *Runner {
	t.Helper()
	r, err := NewRunner(RunConfig{BatchSize: batch, MaxRetries: 2, RetryBackoff: time.Millisecond}, exchange.DefaultConfig(), out, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r
}

func eventNames(events []model.Event) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}

func TestRunAppliesScript(t *testing.T) {
	sink := &storage.Buffer{}
	errs := &memErrors{}
	state := &memState{}
	cp := &memCheckpoint{}
	r := newRunner(t, 2, Outputs{Events: sink, Errors: errs, State: state, Checkpoint: cp})

	summary, err := r.Run(context.Background(), strings.NewReader(swapScript(t)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Lines != 9 || summary.Applied != 6 || summary.Failed != 2 || summary.Events != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	want := []string{model.EventPoolInitialized, model.EventLiquidityProvided, model.EventTokensSwapped}
	if got := eventNames(sink.Events()); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if got := r.Ledger().Balance(key(2), key(11)); got != 9_070_244 {
		t.Fatalf("bob output balance = %d", got)
	}

	if len(errs.errs) != 2 {
		t.Fatalf("expected 2 instruction errors, got %+v", errs.errs)
	}
	if errs.errs[0].Line != 7 || errs.errs[0].Code != dex.ErrInsufficientFunds.Code {
		t.Fatalf("unexpected first error: %+v", errs.errs[0])
	}
	if errs.errs[1].Line != 9 || errs.errs[1].Code != 0 {
		t.Fatalf("unexpected second error: %+v", errs.errs[1])
	}

	if got := cp.saves; len(got) != 5 || got[len(got)-1] != 9 {
		t.Fatalf("checkpoint saves = %v", got)
	}
	if len(state.pools) != 1 || state.pools[0].FirstSeenTs != 1_000 || state.pools[0].FeeRate != 25 {
		t.Fatalf("unexpected pool records: %+v", state.pools)
	}
	if len(state.snapshots) != 1 || state.snapshots[0].ReserveX != 110_000_000 {
		t.Fatalf("unexpected snapshots: %+v", state.snapshots)
	}
}

func TestRunResumesWithoutRepublishing(t *testing.T) {
	full := swapScript(t)
	head := strings.Join(strings.SplitAfter(full, "\n")[:4], "")

	cp := &memCheckpoint{}
	first := &storage.Buffer{}
	if _, err := newRunner(t, 10, Outputs{Events: first, Checkpoint: cp}).Run(context.Background(), strings.NewReader(head)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if cp.last != 4 || len(first.Events()) != 2 {
		t.Fatalf("first run: checkpoint %d, %d events", cp.last, len(first.Events()))
	}

	second := &storage.Buffer{}
	r := newRunner(t, 10, Outputs{Events: second, Checkpoint: cp})
	summary, err := r.Run(context.Background(), strings.NewReader(full))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Resumed != 4 {
		t.Fatalf("resumed = %d", summary.Resumed)
	}

	events := second.Events()
	if len(events) != 1 || events[0].Name != model.EventTokensSwapped || events[0].Seq != 3 {
		t.Fatalf("unexpected events after resume: %+v", events)
	}
	if got := r.Ledger().Balance(key(2), key(11)); got != 9_070_244 {
		t.Fatalf("bob output balance = %d", got)
	}
}

func TestRunResumeCountsOnlyNewOperations(t *testing.T) {
	full := swapScript(t)
	head := strings.Join(strings.SplitAfter(full, "\n")[:4], "")

	cp := &memCheckpoint{}
	if _, err := newRunner(t, 10, Outputs{Events: &storage.Buffer{}, Checkpoint: cp}).Run(context.Background(), strings.NewReader(head)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	m := metrics.New()
	r := newRunner(t, 10, Outputs{Events: &storage.Buffer{}, Checkpoint: cp, Metrics: m})
	if _, err := r.Run(context.Background(), strings.NewReader(full)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := testutil.ToFloat64(m.Operations.WithLabelValues(exchange.OpInitializePool, "ok")); got != 0 {
		t.Fatalf("restored initialize counted %v times", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues(exchange.OpAddLiquidity, "ok")); got != 0 {
		t.Fatalf("restored deposit counted %v times", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues(exchange.OpSwap, "ok")); got != 1 {
		t.Fatalf("swaps counted = %v", got)
	}
	if got := testutil.ToFloat64(m.SwapVolume.WithLabelValues(mintX)); got != 10_000_000 {
		t.Fatalf("swap volume = %v", got)
	}

	pool, err := r.Exchange().Pool(key(1), key(2))
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if got := testutil.ToFloat64(m.PoolReserves.WithLabelValues(pool.Address.String(), "x")); got != 110_000_000 {
		t.Fatalf("reserve x gauge = %v", got)
	}
}

func TestRunNothingToReplay(t *testing.T) {
	cp := &memCheckpoint{last: 100, ok: true}
	sink := &storage.Buffer{}
	summary, err := newRunner(t, 10, Outputs{Events: sink, Checkpoint: cp}).Run(context.Background(), strings.NewReader(swapScript(t)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Resumed != 9 || summary.Applied != 0 || len(sink.Events()) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Sequence != 3 {
		t.Fatalf("sequence = %d", summary.Sequence)
	}
}

func TestRunRetriesSink(t *testing.T) {
	sink := &flakySink{failures: 2}
	if _, err := newRunner(t, 100, Outputs{Events: sink}).Run(context.Background(), strings.NewReader(swapScript(t))); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sink.calls != 3 || len(sink.Events()) != 3 {
		t.Fatalf("calls %d, events %d", sink.calls, len(sink.Events()))
	}
}

func TestRunStopsWhenSinkGivesUp(t *testing.T) {
	sink := &flakySink{failures: 100}
	cp := &memCheckpoint{}
	_, err := newRunner(t, 100, Outputs{Events: sink, Checkpoint: cp}).Run(context.Background(), strings.NewReader(swapScript(t)))
	if err == nil {
		t.Fatalf("expected sink error")
	}
	if cp.ok {
		t.Fatalf("checkpoint saved after failed flush: %d", cp.last)
	}
}

func TestReadInstructionsRejectsUnknownFields(t *testing.T) {
	_, err := ReadInstructions(strings.NewReader(`{"op":"swap","signer":"x","amount_out":1}`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParsePublicKey(t *testing.T) {
	if _, err := ParsePublicKey("mint_x", ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := ParsePublicKey("mint_x", "not-base58-0OIl"); err == nil {
		t.Fatalf("expected error for invalid key")
	}
	keys, err := ParsePublicKeys("mint", []string{mintX, " ", mintY})
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != key(1) {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 4 {
		t.Fatalf("err %v after %d calls", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = withRetry(ctx, 3, time.Millisecond, func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 1 {
		t.Fatalf("err %v after %d calls with cancelled context", err, calls)
	}
}
