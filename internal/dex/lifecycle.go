package dex

import (
	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

// InitializePool fills a freshly derived pool record. pool.Address and
// pool.Bump are set by the caller.
func (e *Engine) InitializePool(pool *model.Pool, c Call, mintX, mintY solana.PublicKey, feeRate, rewardRate uint64) (Outcome, error) {
	if mintX.Equals(mintY) {
		return Outcome{}, ErrInvalidTokenPair
	}
	if feeRate > e.params.MaxFeeRate {
		return Outcome{}, ErrInvalidFeeRate
	}
	if rewardRate > e.params.MaxRewardRate {
		return Outcome{}, ErrInvalidRewardRate
	}

	pool.Authority = c.Signer
	pool.SuperAdmin = c.Signer
	pool.Admins = model.NewAdminSet(c.Signer)
	pool.MintX = mintX
	pool.MintY = mintY
	pool.FeeRate = feeRate
	pool.RewardRate = rewardRate
	pool.LpTokens = make(map[solana.PublicKey]model.LpBalance)
	pool.LastVolumeReset = c.Now

	return Outcome{
		Name: model.EventPoolInitialized,
		Payload: model.PoolInitializedData{
			Authority:  c.Signer,
			MintX:      mintX,
			MintY:      mintY,
			FeeRate:    feeRate,
			RewardRate: rewardRate,
		},
	}, nil
}

// RemovePool checks that pool may be closed. A pool stays open while any
// staker is owed rewards. Leftover reward funding is returned to the signer.
func (e *Engine) RemovePool(pool *model.Pool, users UserStates, c Call, mintX, mintY solana.PublicKey) (Outcome, error) {
	if err := checkPairOrder(pool, mintX, mintY); err != nil {
		return Outcome{}, err
	}
	if !c.Signer.Equals(pool.Authority) && !c.Signer.Equals(pool.SuperAdmin) {
		return Outcome{}, ErrUnauthorized
	}
	if pool.ReserveX != 0 || pool.ReserveY != 0 || pool.LpTokenSupply != 0 ||
		pool.TotalStaked != 0 || len(pool.Orders) != 0 {
		return Outcome{}, ErrPoolNotEmpty
	}
	for _, us := range users.Users() {
		if !us.Empty() {
			return Outcome{}, ErrPoolNotEmpty
		}
	}

	refund := pool.RewardBalance
	pool.RewardBalance = 0
	out := Outcome{
		Name: model.EventPoolRemoved,
		Payload: model.PoolRemovedData{
			Pool:      pool.Address,
			Authority: c.Signer,
		},
	}
	out.move(pool.MintX, c.Custody.RewardVault, c.Signer, refund)
	return out, nil
}
