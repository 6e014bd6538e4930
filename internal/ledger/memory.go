package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"soondex/internal/dex"
)

// Balance is one token holding.
type Balance struct {
	Token  solana.PublicKey `json:"token"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// Memory is an in-process token ledger.
type Memory struct {
	logger *zap.Logger

	mu       sync.Mutex
	balances map[solana.PublicKey]map[solana.PublicKey]uint64
}

func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		logger:   logger,
		balances: make(map[solana.PublicKey]map[solana.PublicKey]uint64),
	}
}

// Credit mints amount of token to owner.
func (m *Memory) Credit(token, owner solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, overflow := gmath.SafeAdd(m.balances[token][owner], amount)
	if overflow {
		return dex.ErrMathOverflow
	}
	m.set(token, owner, next)
	return nil
}

func (m *Memory) Balance(token, owner solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[token][owner]
}

// Move transfers amount of token between two accounts.
func (m *Memory) Move(ctx context.Context, token, from, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	have := m.balances[token][from]
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", dex.ErrInsufficientFunds, from, have, token, amount)
	}
	if from.Equals(to) {
		return nil
	}
	next, overflow := gmath.SafeAdd(m.balances[token][to], amount)
	if overflow {
		return dex.ErrMathOverflow
	}
	m.set(token, from, have-amount)
	m.set(token, to, next)

	m.logger.Debug("ledger move",
		zap.Stringer("token", token),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount),
	)
	return nil
}

func (m *Memory) set(token, owner solana.PublicKey, amount uint64) {
	holders, ok := m.balances[token]
	if !ok {
		holders = make(map[solana.PublicKey]uint64)
		m.balances[token] = holders
	}
	if amount == 0 {
		delete(holders, owner)
		return
	}
	holders[owner] = amount
}

// Balances lists every nonzero holding ordered by token then owner.
func (m *Memory) Balances() []Balance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Balance
	for token, holders := range m.balances {
		for owner, amount := range holders {
			out = append(out, Balance{Token: token, Owner: owner, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Token[:], out[j].Token[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Owner[:], out[j].Owner[:]) < 0
	})
	return out
}
