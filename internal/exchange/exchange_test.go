package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"soondex/internal/dex"
	"soondex/internal/model"
)

func TestSwapScenario(t *testing.T) {
	h := seeded(t, 25, 100_000_000, 100_000_000)
	require.Equal(t, uint64(100_000_000), h.pool(t).LpTokenSupply)

	h.credit(t, mintX, bob, 10_000_000)
	swap, err := h.x.SwapTokens(as(bob), bob, mintX, mintY, 10_000_000, 0)
	require.NoError(t, err)

	require.Less(t, swap.OutputAmount, uint64(10_000_000))
	require.Equal(t, uint64(9_070_244), swap.OutputAmount)
	require.Equal(t, uint64(0), h.ledger.Balance(mintX, bob))
	require.Equal(t, uint64(9_070_244), h.ledger.Balance(mintY, bob))

	pool := h.pool(t)
	require.Equal(t, uint64(110_000_000), pool.ReserveX)
	require.Equal(t, uint64(90_929_756), pool.ReserveY)
	require.Equal(t, pool.ReserveX, h.ledger.Balance(mintX, pool.Address))
	require.Equal(t, pool.ReserveY, h.ledger.Balance(mintY, pool.Address))

	require.Equal(t, []string{
		model.EventPoolInitialized,
		model.EventLiquidityProvided,
		model.EventTokensSwapped,
	}, h.eventNames())
	events := h.sink.Events()
	require.Equal(t, uint64(3), events[2].Seq)
	require.Equal(t, bob.String(), events[2].Actor)
	require.Equal(t, pool.Address.String(), events[2].Pool)

	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Operations.WithLabelValues(OpSwap, "ok")))
	require.Equal(t, float64(10_000_000), testutil.ToFloat64(h.metrics.SwapVolume.WithLabelValues(mintX.String())))
}

func TestQuoteMatchesSwap(t *testing.T) {
	h := seeded(t, 25, 100_000_000, 100_000_000)
	q, err := h.x.Quote(mintX, mintY, 10_000_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(9_070_244), q.AmountOut)
	require.Equal(t, uint64(100_000_000), h.pool(t).ReserveX)

	_, err = h.x.Quote(mintX, mintX, 1, 0)
	require.ErrorIs(t, err, dex.ErrInvalidTokenPair)
}

func TestFailedSwapCommitsNothing(t *testing.T) {
	h := seeded(t, 25, 100_000_000, 100_000_000)
	before := h.pool(t)
	eventsBefore := len(h.sink.Events())

	_, err := h.x.SwapTokens(as(bob), bob, mintX, mintY, 10_000_000, 0)
	require.ErrorIs(t, err, dex.ErrInsufficientFunds)

	h.credit(t, mintX, bob, 10_000_000)
	_, err = h.x.SwapTokens(as(bob), bob, mintX, mintY, 10_000_000, 9_500_000)
	require.ErrorIs(t, err, dex.ErrExcessiveSlippage)

	require.Equal(t, before, h.pool(t))
	require.Len(t, h.sink.Events(), eventsBefore)
	require.Equal(t, uint64(10_000_000), h.ledger.Balance(mintX, bob))
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Operations.WithLabelValues(OpSwap, "ExcessiveSlippage")))
}

func TestSwapShrinkingProductIsRejected(t *testing.T) {
	h := seeded(t, 0, 100, 100)
	h.credit(t, mintX, bob, 3)

	_, err := h.x.SwapTokens(as(bob), bob, mintX, mintY, 3, 0)
	require.ErrorIs(t, err, dex.ErrInvalidK)

	pool := h.pool(t)
	require.Equal(t, uint64(100), pool.ReserveX)
	require.Equal(t, uint64(100), pool.ReserveY)
	require.Equal(t, uint64(3), h.ledger.Balance(mintX, bob))
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Operations.WithLabelValues(OpSwap, "InvalidK")))
}

func TestPartialTransferIsCompensated(t *testing.T) {
	h := seeded(t, 25, 1_000_000, 1_000_000)
	h.credit(t, mintX, bob, 10_000)

	_, err := h.x.AddLiquidity(as(bob), bob, mintX, mintY, 10_000, 10_000)
	require.ErrorIs(t, err, dex.ErrInsufficientFunds)

	pool := h.pool(t)
	require.Equal(t, uint64(10_000), h.ledger.Balance(mintX, bob))
	require.Equal(t, uint64(1_000_000), h.ledger.Balance(mintX, pool.Address))
	require.Equal(t, uint64(1_000_000), pool.ReserveX)
	require.NotContains(t, pool.LpTokens, bob)
}

func TestSignerMustMatchAccount(t *testing.T) {
	h := seeded(t, 25, 1_000, 1_000)
	_, err := h.x.RemoveLiquidity(as(bob), alice, mintX, mintY, 10, 10)
	require.ErrorIs(t, err, dex.ErrUnauthorized)

	_, err = h.x.RemoveLiquidity(context.Background(), alice, mintX, mintY, 10, 10)
	require.ErrorIs(t, err, dex.ErrUnauthorized)
}

func TestInitializePoolRules(t *testing.T) {
	h := seeded(t, 25, 0, 0)

	_, err := h.x.InitializePool(as(bob), bob, mintY, mintX, 25)
	require.ErrorIs(t, err, dex.ErrPoolAlreadyExists)

	_, err = h.x.InitializePool(as(bob), bob, mintX, mintX, 25)
	require.ErrorIs(t, err, dex.ErrInvalidTokenPair)

	_, err = h.x.InitializePool(as(bob), bob, mintX, carol, 6_000)
	require.ErrorIs(t, err, dex.ErrInvalidFeeRate)
	_, err = h.x.Pool(mintX, carol)
	require.ErrorIs(t, err, dex.ErrPoolNotFound)

	pool := h.pool(t)
	require.Equal(t, alice, pool.Authority)
	require.Equal(t, uint64(1), pool.RewardRate)
	require.Equal(t, int64(1_000), pool.LastVolumeReset)
}

func TestProtocolFee(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProtocolFee = 150_000_000
	cfg.ProtocolWallet = carol
	h := newHarness(t, cfg)

	_, err := h.x.InitializePool(as(alice), alice, mintX, mintY, 25)
	require.ErrorIs(t, err, dex.ErrInsufficientFunds)
	_, err = h.x.Pool(mintX, mintY)
	require.ErrorIs(t, err, dex.ErrPoolNotFound)

	h.credit(t, NativeMint, alice, 200_000_000)
	_, err = h.x.InitializePool(as(alice), alice, mintX, mintY, 25)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000_000), h.ledger.Balance(NativeMint, carol))
	require.Equal(t, uint64(50_000_000), h.ledger.Balance(NativeMint, alice))
}

func TestStakeClaimScenario(t *testing.T) {
	h := seeded(t, 25, 0, 0)
	custody, err := h.reg.Deriver().Custody(h.pool(t).Address)
	require.NoError(t, err)

	h.credit(t, mintX, carol, 10_000_000)
	require.NoError(t, h.x.FundRewards(as(carol), carol, mintX, mintY, 10_000_000))

	h.credit(t, mintX, bob, 20_000_000)
	require.NoError(t, h.x.Stake(as(bob), bob, mintX, mintY, 20_000_000))
	require.Equal(t, uint64(20_000_000), h.ledger.Balance(mintX, custody.StakeVault))

	h.clock.Advance(3_600)
	claimed, err := h.x.ClaimRewards(as(bob), bob, mintX, mintY)
	require.NoError(t, err)

	pool := h.pool(t)
	require.Equal(t, 20_000_000*pool.RewardRate*3_600/dex.RewardScale, claimed)
	require.Equal(t, claimed, h.ledger.Balance(mintX, bob))
	require.Equal(t, 10_000_000-claimed, h.ledger.Balance(mintX, custody.RewardVault))

	us, err := h.x.UserState(mintX, mintY, bob)
	require.NoError(t, err)
	require.Equal(t, h.clock.Now(), us.LastStakeTimestamp)
	require.Zero(t, us.RewardsEarned)

	_, err = h.x.ClaimRewards(as(bob), bob, mintX, mintY)
	require.ErrorIs(t, err, dex.ErrNoRewardsAvailable)

	h.clock.Advance(100)
	rewards, err := h.x.Unstake(as(bob), bob, mintX, mintY, 20_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(200_000), rewards)
	require.Equal(t, uint64(20_000_000)+claimed+rewards, h.ledger.Balance(mintX, bob))

	us, err = h.x.UserState(mintX, mintY, bob)
	require.NoError(t, err)
	require.Nil(t, us)
	require.Zero(t, h.pool(t).TotalStaked)
}

func TestRemovePoolLifecycle(t *testing.T) {
	h := seeded(t, 25, 4_000, 9_000)

	err := h.x.RemovePool(as(alice), alice, mintX, mintY)
	require.ErrorIs(t, err, dex.ErrPoolNotEmpty)

	err = h.x.RemovePool(as(bob), bob, mintX, mintY)
	require.ErrorIs(t, err, dex.ErrUnauthorized)

	_, err = h.x.RemoveLiquidity(as(alice), alice, mintX, mintY, 4_000, 9_000)
	require.NoError(t, err)
	require.Equal(t, uint64(4_000), h.ledger.Balance(mintX, alice))

	require.NoError(t, h.x.RemovePool(as(alice), alice, mintX, mintY))
	_, err = h.x.Pool(mintX, mintY)
	require.ErrorIs(t, err, dex.ErrPoolNotFound)
	require.Equal(t, model.EventPoolRemoved, h.eventNames()[len(h.eventNames())-1])

	_, err = h.x.InitializePool(as(bob), bob, mintX, mintY, 30)
	require.NoError(t, err)
	require.Equal(t, bob, h.pool(t).SuperAdmin)
}

func TestAdminAndRewardRate(t *testing.T) {
	h := seeded(t, 25, 0, 0)
	before := h.pool(t).Admins.Keys()

	require.NoError(t, h.x.ManageAdmin(as(alice), alice, mintX, mintY, bob, true))
	require.NoError(t, h.x.SetRewardRate(as(bob), bob, mintX, mintY, 7))
	require.NoError(t, h.x.ManageAdmin(as(bob), bob, mintX, mintY, bob, false))
	require.Equal(t, before, h.pool(t).Admins.Keys())
	require.Equal(t, uint64(7), h.pool(t).RewardRate)

	err := h.x.SetRewardRate(as(bob), bob, mintX, mintY, 8)
	require.ErrorIs(t, err, dex.ErrUnauthorized)
}

func TestOrderFlow(t *testing.T) {
	h := seeded(t, 25, 0, 0)

	sell, err := h.x.PlaceOrder(as(alice), alice, mintX, mintY, model.SideSell, 10, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(1), sell.ID)
	h.clock.Advance(1)
	buy, err := h.x.PlaceOrder(as(bob), bob, mintX, mintY, model.SideBuy, 4, 55)
	require.NoError(t, err)

	err = h.x.CancelOrder(as(bob), bob, mintX, mintY, sell.ID)
	require.ErrorIs(t, err, dex.ErrUnauthorized)

	fills, err := h.x.MatchOrders(as(carol), carol, mintX, mintY)
	require.NoError(t, err)
	require.Equal(t, []model.Fill{{
		BuyOrderID: buy.ID, SellOrderID: sell.ID, Buyer: bob, Seller: alice, Price: 50, Amount: 4,
	}}, fills)

	fills, err = h.x.MatchOrders(as(carol), carol, mintX, mintY)
	require.NoError(t, err)
	require.Empty(t, fills)

	require.NoError(t, h.x.CancelOrder(as(alice), alice, mintX, mintY, sell.ID))
	require.Empty(t, h.pool(t).Orders)
	require.Equal(t, uint64(2), h.pool(t).OrderCount)
}

type failingSink struct{}

func (failingSink) PutEventBatch(context.Context, []model.Event) error {
	return errors.New("sink down")
}

func TestSinkFailureDoesNotUndoCommit(t *testing.T) {
	h := seeded(t, 25, 0, 0)
	h.x.deps.Sink = failingSink{}

	h.credit(t, mintX, bob, 5)
	require.NoError(t, h.x.Stake(as(bob), bob, mintX, mintY, 5))
	require.Equal(t, uint64(5), h.pool(t).TotalStaked)
}
