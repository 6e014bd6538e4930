package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"soondex/internal/dex"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	return k
}

func TestMemoryMove(t *testing.T) {
	m := NewMemory(nil)
	token, a, b := key(1), key(2), key(3)
	require.NoError(t, m.Credit(token, a, 100))

	require.NoError(t, m.Move(context.Background(), token, a, b, 40))
	require.Equal(t, uint64(60), m.Balance(token, a))
	require.Equal(t, uint64(40), m.Balance(token, b))

	err := m.Move(context.Background(), token, a, b, 61)
	require.ErrorIs(t, err, dex.ErrInsufficientFunds)
	require.Equal(t, uint64(60), m.Balance(token, a))

	require.NoError(t, m.Move(context.Background(), token, a, b, 60))
	require.Equal(t, []Balance{{Token: token, Owner: b, Amount: 100}}, m.Balances())
}

func TestMemoryOverflowAndCancel(t *testing.T) {
	m := NewMemory(nil)
	token, a, b := key(1), key(2), key(3)
	require.NoError(t, m.Credit(token, a, math.MaxUint64))
	require.NoError(t, m.Credit(token, b, 1))
	require.ErrorIs(t, m.Move(context.Background(), token, b, a, 1), dex.ErrMathOverflow)
	require.ErrorIs(t, m.Credit(token, a, 1), dex.ErrMathOverflow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Move(ctx, token, a, b, 1), context.Canceled)
}
