package exchange

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/dex"
	"soondex/internal/model"
	"soondex/internal/registry"
)

// Operation names used in logs and metrics.
const (
	OpInitializePool  = "initialize_pool"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
	OpStake           = "stake"
	OpUnstake         = "unstake"
	OpClaimRewards    = "claim_rewards"
	OpFundRewards     = "fund_rewards"
	OpManageAdmin     = "manage_admin"
	OpSetRewardRate   = "set_reward_rate"
	OpRemovePool      = "remove_pool"
	OpPlaceOrder      = "place_order"
	OpCancelOrder     = "cancel_order"
	OpMatchOrders     = "match_orders"
)

// InitializePool creates the pool of (mintX, mintY) with payer as its
// authority, super admin and first admin.
func (x *Exchange) InitializePool(ctx context.Context, payer, mintX, mintY solana.PublicKey, feeRate uint64) (*model.Pool, error) {
	res, err := x.stage(ctx, payer, func(apply func(*registry.Tx) error) error {
		return x.deps.Registry.Create(mintX, mintY, apply)
	}, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		out, err := x.engine.InitializePool(tx.Pool(), c, mintX, mintY, feeRate, x.cfg.DefaultRewardRate)
		if err != nil {
			return out, err
		}
		if x.cfg.ProtocolFee > 0 {
			out.Transfers = append(out.Transfers, dex.Transfer{
				Token:  x.cfg.ProtocolFeeMint,
				From:   payer,
				To:     x.cfg.ProtocolWallet,
				Amount: x.cfg.ProtocolFee,
			})
		}
		return out, nil
	})
	if _, err := x.finish(ctx, OpInitializePool, payer, res, err); err != nil {
		return nil, err
	}
	return res.pool.Clone(), nil
}

func (x *Exchange) AddLiquidity(ctx context.Context, user, mintX, mintY solana.PublicKey, amountX, amountY uint64) (model.LiquidityData, error) {
	out, err := x.execute(ctx, OpAddLiquidity, user, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.AddLiquidity(tx.Pool(), c, mintX, mintY, amountX, amountY)
	})
	if err != nil {
		return model.LiquidityData{}, err
	}
	return out.Payload.(model.LiquidityData), nil
}

func (x *Exchange) RemoveLiquidity(ctx context.Context, user, mintX, mintY solana.PublicKey, amountX, amountY uint64) (model.LiquidityData, error) {
	out, err := x.execute(ctx, OpRemoveLiquidity, user, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.RemoveLiquidity(tx.Pool(), c, mintX, mintY, amountX, amountY)
	})
	if err != nil {
		return model.LiquidityData{}, err
	}
	return out.Payload.(model.LiquidityData), nil
}

// SwapTokens sells amountIn of inputMint for at least minimumAmountOut of outputMint.
func (x *Exchange) SwapTokens(ctx context.Context, user, inputMint, outputMint solana.PublicKey, amountIn, minimumAmountOut uint64) (model.SwapData, error) {
	out, err := x.execute(ctx, OpSwap, user, inputMint, outputMint, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.Swap(tx.Pool(), c, inputMint, outputMint, amountIn, minimumAmountOut)
	})
	if err != nil {
		return model.SwapData{}, err
	}
	return out.Payload.(model.SwapData), nil
}

// Quote prices a swap against the committed reserves without executing it.
func (x *Exchange) Quote(inputMint, outputMint solana.PublicKey, amountIn, minimumAmountOut uint64) (dex.SwapQuote, error) {
	pool, err := x.deps.Registry.Pool(inputMint, outputMint)
	if err != nil {
		return dex.SwapQuote{}, err
	}
	return x.engine.Quote(pool, inputMint, outputMint, amountIn, minimumAmountOut)
}

func (x *Exchange) Stake(ctx context.Context, user, mintX, mintY solana.PublicKey, amount uint64) error {
	_, err := x.execute(ctx, OpStake, user, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.Stake(tx.Pool(), tx, c, amount)
	})
	return err
}

// Unstake returns principal and pays owed rewards. It reports the reward paid.
func (x *Exchange) Unstake(ctx context.Context, user, mintX, mintY solana.PublicKey, amount uint64) (uint64, error) {
	out, err := x.execute(ctx, OpUnstake, user, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.Unstake(tx.Pool(), tx, c, amount)
	})
	if err != nil {
		return 0, err
	}
	return out.Payload.(model.UnstakeData).Rewards, nil
}

// ClaimRewards pays the user's owed rewards and reports the amount.
func (x *Exchange) ClaimRewards(ctx context.Context, user, mintX, mintY solana.PublicKey) (uint64, error) {
	out, err := x.execute(ctx, OpClaimRewards, user, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.ClaimRewards(tx.Pool(), tx, c)
	})
	if err != nil {
		return 0, err
	}
	return out.Payload.(model.RewardsData).Amount, nil
}

func (x *Exchange) FundRewards(ctx context.Context, funder, mintX, mintY solana.PublicKey, amount uint64) error {
	_, err := x.execute(ctx, OpFundRewards, funder, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.FundRewards(tx.Pool(), c, amount)
	})
	return err
}

func (x *Exchange) ManageAdmin(ctx context.Context, caller, mintX, mintY, address solana.PublicKey, isAdd bool) error {
	_, err := x.execute(ctx, OpManageAdmin, caller, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.ManageAdmin(tx.Pool(), c, address, isAdd)
	})
	return err
}

func (x *Exchange) SetRewardRate(ctx context.Context, caller, mintX, mintY solana.PublicKey, rate uint64) error {
	_, err := x.execute(ctx, OpSetRewardRate, caller, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.SetRewardRate(tx.Pool(), tx, c, rate)
	})
	return err
}

// RemovePool closes an empty pool.
func (x *Exchange) RemovePool(ctx context.Context, caller, mintX, mintY solana.PublicKey) error {
	_, err := x.execute(ctx, OpRemovePool, caller, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		out, err := x.engine.RemovePool(tx.Pool(), tx, c, mintX, mintY)
		if err != nil {
			return out, err
		}
		tx.RemovePool()
		return out, nil
	})
	return err
}

// PlaceOrder opens a limit order and returns it with its assigned id.
func (x *Exchange) PlaceOrder(ctx context.Context, owner, mintX, mintY solana.PublicKey, side model.Side, amount, price uint64) (model.Order, error) {
	out, err := x.execute(ctx, OpPlaceOrder, owner, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.PlaceOrder(tx.Pool(), c, side, amount, price)
	})
	if err != nil {
		return model.Order{}, err
	}
	return out.Payload.(model.OrderData).Order, nil
}

func (x *Exchange) CancelOrder(ctx context.Context, owner, mintX, mintY solana.PublicKey, id uint64) error {
	_, err := x.execute(ctx, OpCancelOrder, owner, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.CancelOrder(tx.Pool(), c, id)
	})
	return err
}

// MatchOrders crosses the pool's book and returns the fills.
func (x *Exchange) MatchOrders(ctx context.Context, caller, mintX, mintY solana.PublicKey) ([]model.Fill, error) {
	out, err := x.execute(ctx, OpMatchOrders, caller, mintX, mintY, func(tx *registry.Tx, c dex.Call) (dex.Outcome, error) {
		return x.engine.MatchOrders(tx.Pool(), c)
	})
	if err != nil {
		return nil, err
	}
	if data, ok := out.Payload.(model.OrdersMatchedData); ok {
		return data.Fills, nil
	}
	return nil, nil
}

// Pool returns a copy of the committed pool of the pair.
func (x *Exchange) Pool(mintA, mintB solana.PublicKey) (*model.Pool, error) {
	return x.deps.Registry.Pool(mintA, mintB)
}

// UserState returns a copy of owner's staking state, or nil.
func (x *Exchange) UserState(mintA, mintB, owner solana.PublicKey) (*model.UserState, error) {
	return x.deps.Registry.UserState(mintA, mintB, owner)
}
