package dex

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = 0xA0 | b
	return k
}

var (
	mintX     = testKey(1)
	mintY     = testKey(2)
	alice     = testKey(10)
	bob       = testKey(11)
	carol     = testKey(12)
	poolAddr  = testKey(20)
	stakeAddr = testKey(21)
	rewardAdr = testKey(22)
)

type memUsers struct {
	pool  solana.PublicKey
	users map[solana.PublicKey]*model.UserState
}

func newMemUsers(pool solana.PublicKey) *memUsers {
	return &memUsers{pool: pool, users: make(map[solana.PublicKey]*model.UserState)}
}

func (m *memUsers) UserState(owner solana.PublicKey) *model.UserState {
	return m.users[owner]
}

func (m *memUsers) OpenUserState(owner solana.PublicKey) (*model.UserState, error) {
	if us, ok := m.users[owner]; ok {
		return us, nil
	}
	us := &model.UserState{Pool: m.pool, Owner: owner}
	m.users[owner] = us
	return us, nil
}

func (m *memUsers) DeleteUserState(owner solana.PublicKey) {
	delete(m.users, owner)
}

func (m *memUsers) Users() []*model.UserState {
	out := make([]*model.UserState, 0, len(m.users))
	for _, us := range m.users {
		out = append(out, us)
	}
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func call(signer solana.PublicKey, now int64) Call {
	return Call{
		Signer: signer,
		Now:    now,
		Custody: Custody{
			Reserve:     poolAddr,
			StakeVault:  stakeAddr,
			RewardVault: rewardAdr,
		},
	}
}

// newTestPool returns an initialized pool owned by alice.
func newTestPool(t *testing.T, e *Engine, feeRate uint64) *model.Pool {
	t.Helper()
	pool := &model.Pool{Address: poolAddr}
	if _, err := e.InitializePool(pool, call(alice, 1000), mintX, mintY, feeRate, 1); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return pool
}

func seedPool(t *testing.T, e *Engine, pool *model.Pool, x, y uint64) {
	t.Helper()
	if _, err := e.AddLiquidity(pool, call(alice, 1000), mintX, mintY, x, y); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", target)
	}
	if Code(err) != Code(target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
