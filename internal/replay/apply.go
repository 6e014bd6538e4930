package replay

import (
	"context"
	"fmt"

	"soondex/internal/exchange"
	"soondex/internal/model"
)

var knownOps = map[string]bool{
	model.OpAirdrop:         true,
	model.OpInitializePool:  true,
	model.OpAddLiquidity:    true,
	model.OpRemoveLiquidity: true,
	model.OpSwap:            true,
	model.OpStake:           true,
	model.OpUnstake:         true,
	model.OpClaimRewards:    true,
	model.OpFundRewards:     true,
	model.OpManageAdmin:     true,
	model.OpSetRewardRate:   true,
	model.OpRemovePool:      true,
	model.OpPlaceOrder:      true,
	model.OpCancelOrder:     true,
	model.OpMatchOrders:     true,
}

// apply runs one instruction against the exchange at the instruction's
// timestamp, signed by its signer.
func (r *Runner) apply(ctx context.Context, ins model.Instruction) error {
	if !knownOps[ins.Op] {
		return fmt.Errorf("unknown op %q", ins.Op)
	}
	var d keyDecoder
	signer := d.key("signer", ins.Signer)
	if d.err != nil {
		return d.err
	}
	if ins.Timestamp > 0 {
		r.clock.Set(ins.Timestamp)
	}
	ctx = exchange.WithSigner(ctx, signer)
	x := r.exchange

	switch ins.Op {
	case model.OpAirdrop:
		token := d.key("token", ins.Token)
		if d.err != nil {
			return d.err
		}
		return r.ledger.Credit(token, signer, ins.Amount)

	case model.OpSwap:
		in, out := d.key("input_mint", ins.InputMint), d.key("output_mint", ins.OutputMint)
		if d.err != nil {
			return d.err
		}
		_, err := x.SwapTokens(ctx, signer, in, out, ins.AmountIn, ins.MinimumAmountOut)
		return err
	}

	mintX, mintY := d.key("mint_x", ins.MintX), d.key("mint_y", ins.MintY)
	if d.err != nil {
		return d.err
	}

	var err error
	switch ins.Op {
	case model.OpInitializePool:
		_, err = x.InitializePool(ctx, signer, mintX, mintY, ins.FeeRate)
	case model.OpAddLiquidity:
		_, err = x.AddLiquidity(ctx, signer, mintX, mintY, ins.AmountX, ins.AmountY)
	case model.OpRemoveLiquidity:
		_, err = x.RemoveLiquidity(ctx, signer, mintX, mintY, ins.AmountX, ins.AmountY)
	case model.OpStake:
		err = x.Stake(ctx, signer, mintX, mintY, ins.Amount)
	case model.OpUnstake:
		_, err = x.Unstake(ctx, signer, mintX, mintY, ins.Amount)
	case model.OpClaimRewards:
		_, err = x.ClaimRewards(ctx, signer, mintX, mintY)
	case model.OpFundRewards:
		err = x.FundRewards(ctx, signer, mintX, mintY, ins.Amount)
	case model.OpManageAdmin:
		address := d.key("address", ins.Address)
		if d.err != nil {
			return d.err
		}
		err = x.ManageAdmin(ctx, signer, mintX, mintY, address, ins.IsAdd)
	case model.OpSetRewardRate:
		err = x.SetRewardRate(ctx, signer, mintX, mintY, ins.Rate)
	case model.OpRemovePool:
		err = x.RemovePool(ctx, signer, mintX, mintY)
	case model.OpPlaceOrder:
		side, perr := model.ParseSide(ins.Side)
		if perr != nil {
			return perr
		}
		_, err = x.PlaceOrder(ctx, signer, mintX, mintY, side, ins.Amount, ins.Price)
	case model.OpCancelOrder:
		err = x.CancelOrder(ctx, signer, mintX, mintY, ins.OrderID)
	case model.OpMatchOrders:
		_, err = x.MatchOrders(ctx, signer, mintX, mintY)
	}
	return err
}
