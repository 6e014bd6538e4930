package dex

import (
	"github.com/holiman/uint256"

	"soondex/internal/model"
)

// Accrual returns amount*rate*elapsed/RewardScale, floored.
func Accrual(amount, rate uint64, elapsed int64) (uint64, error) {
	if elapsed <= 0 || amount == 0 || rate == 0 {
		return 0, nil
	}
	v := new(uint256.Int).Mul(u256(amount), u256(rate))
	v.Mul(v, u256(uint64(elapsed)))
	v.Div(v, u256(RewardScale))
	return narrow(v)
}

// pending is the reward owed to us at now, settled plus accrued.
func pending(us *model.UserState, rate uint64, now int64) (uint64, error) {
	accrued, err := Accrual(us.AmountStaked, rate, now-us.LastStakeTimestamp)
	if err != nil {
		return 0, err
	}
	return addU64(us.RewardsEarned, accrued)
}

// Stake moves amount of the stake token into the stake vault.
func (e *Engine) Stake(pool *model.Pool, users UserStates, c Call, amount uint64) (Outcome, error) {
	if amount == 0 {
		return Outcome{}, ErrInvalidStakeAmount
	}
	us, err := users.OpenUserState(c.Signer)
	if err != nil {
		return Outcome{}, err
	}
	if us.RewardsEarned, err = pending(us, pool.RewardRate, c.Now); err != nil {
		return Outcome{}, err
	}
	if us.AmountStaked, err = addU64(us.AmountStaked, amount); err != nil {
		return Outcome{}, err
	}
	if pool.TotalStaked, err = addU64(pool.TotalStaked, amount); err != nil {
		return Outcome{}, err
	}
	us.LastStakeTimestamp = c.Now

	out := Outcome{
		Name:    model.EventTokensStaked,
		Payload: model.StakeData{User: c.Signer, Amount: amount},
	}
	out.move(pool.MintX, c.Signer, c.Custody.StakeVault, amount)
	return out, nil
}

// ClaimRewards pays every reward owed to the signer.
func (e *Engine) ClaimRewards(pool *model.Pool, users UserStates, c Call) (Outcome, error) {
	us := users.UserState(c.Signer)
	if us == nil {
		return Outcome{}, ErrNoRewardsAvailable
	}
	owed, err := pending(us, pool.RewardRate, c.Now)
	if err != nil {
		return Outcome{}, err
	}
	if owed == 0 {
		return Outcome{}, ErrNoRewardsAvailable
	}
	if owed > pool.RewardBalance {
		return Outcome{}, ErrInsufficientFunds
	}

	if err := e.payRewards(pool, c.Now, owed); err != nil {
		return Outcome{}, err
	}
	us.RewardsEarned = 0
	us.LastStakeTimestamp = c.Now
	if us.Empty() {
		users.DeleteUserState(c.Signer)
	}

	out := Outcome{
		Name:    model.EventRewardsClaimed,
		Payload: model.RewardsData{User: c.Signer, Amount: owed},
	}
	out.move(pool.MintX, c.Custody.RewardVault, c.Signer, owed)
	return out, nil
}

// Unstake returns amount of principal and as much owed reward as the vault holds.
// Any unpaid remainder stays in RewardsEarned.
func (e *Engine) Unstake(pool *model.Pool, users UserStates, c Call, amount uint64) (Outcome, error) {
	if amount == 0 {
		return Outcome{}, ErrInvalidStakeAmount
	}
	us := users.UserState(c.Signer)
	if us == nil || amount > us.AmountStaked {
		return Outcome{}, ErrInsufficientStake
	}
	owed, err := pending(us, pool.RewardRate, c.Now)
	if err != nil {
		return Outcome{}, err
	}
	paid := min(owed, pool.RewardBalance)
	if err := e.payRewards(pool, c.Now, paid); err != nil {
		return Outcome{}, err
	}

	us.RewardsEarned = owed - paid
	us.AmountStaked -= amount
	if pool.TotalStaked, err = subU64(pool.TotalStaked, amount); err != nil {
		return Outcome{}, err
	}
	us.LastStakeTimestamp = c.Now
	if us.Empty() {
		users.DeleteUserState(c.Signer)
	}

	out := Outcome{
		Name:    model.EventTokensUnstaked,
		Payload: model.UnstakeData{User: c.Signer, Amount: amount, Rewards: paid},
	}
	out.move(pool.MintX, c.Custody.StakeVault, c.Signer, amount)
	out.move(pool.MintX, c.Custody.RewardVault, c.Signer, paid)
	return out, nil
}

func (e *Engine) payRewards(pool *model.Pool, now int64, amount uint64) error {
	if amount == 0 {
		return nil
	}
	var err error
	if pool.RewardBalance, err = subU64(pool.RewardBalance, amount); err != nil {
		return err
	}
	rollWindow(pool, now, e.params.VolumeWindow)
	pool.StakingRewards, err = addU64(pool.StakingRewards, amount)
	return err
}

// FundRewards deposits reward tokens into the reward vault. Any signer may fund.
func (e *Engine) FundRewards(pool *model.Pool, c Call, amount uint64) (Outcome, error) {
	if amount == 0 {
		return Outcome{}, ErrInvalidStakeAmount
	}
	var err error
	if pool.RewardBalance, err = addU64(pool.RewardBalance, amount); err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Name:    model.EventRewardsFunded,
		Payload: model.RewardsData{User: c.Signer, Amount: amount},
	}
	out.move(pool.MintX, c.Signer, c.Custody.RewardVault, amount)
	return out, nil
}
