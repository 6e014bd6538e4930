package exchange

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"soondex/internal/ledger"
	"soondex/internal/metrics"
	"soondex/internal/model"
	"soondex/internal/registry"
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
	mintX = key(1)
	mintY = key(2)
	alice = key(10)
	bob   = key(11)
	carol = key(12)
)

type harness struct {
	x       *Exchange
	reg     *registry.Registry
	ledger  *ledger.Memory
	clock   *ManualClock
	sink    *storage.Buffer
	metrics *metrics.Metrics
}

// t is require.TestingT so rapid.T can drive the same harness.
func newHarness(t require.TestingT, cfg Config) *harness {
	h := &harness{
		reg:     registry.New(registry.DefaultProgramID),
		ledger:  ledger.NewMemory(nil),
		clock:   NewManualClock(1_000),
		sink:    &storage.Buffer{},
		metrics: metrics.New(),
	}
	x, err := New(cfg, Deps{
		Registry: h.reg,
		Ledger:   h.ledger,
		Clock:    h.clock,
		Sink:     h.sink,
		Metrics:  h.metrics,
	}, nil)
	require.NoError(t, err)
	h.x = x
	return h
}

func as(user solana.PublicKey) context.Context {
	return WithSigner(context.Background(), user)
}

func (h *harness) credit(t require.TestingT, mint, owner solana.PublicKey, amount uint64) {
	require.NoError(t, h.ledger.Credit(mint, owner, amount))
}

// seeded returns a harness with an X/Y pool owned by alice holding
// x and y reserves.
func seeded(t require.TestingT, feeRate, x, y uint64) *harness {
	h := newHarness(t, DefaultConfig())
	_, err := h.x.InitializePool(as(alice), alice, mintX, mintY, feeRate)
	require.NoError(t, err)
	if x > 0 || y > 0 {
		h.credit(t, mintX, alice, x)
		h.credit(t, mintY, alice, y)
		_, err = h.x.AddLiquidity(as(alice), alice, mintX, mintY, x, y)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) pool(t require.TestingT) *model.Pool {
	pool, err := h.x.Pool(mintX, mintY)
	require.NoError(t, err)
	return pool
}

func (h *harness) eventNames() []string {
	var names []string
	for _, ev := range h.sink.Events() {
		names = append(names, ev.Name)
	}
	return names
}
