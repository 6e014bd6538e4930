package dex

import (
	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

// ManageAdmin adds or removes address from the pool's admin set.
func (e *Engine) ManageAdmin(pool *model.Pool, c Call, address solana.PublicKey, isAdd bool) (Outcome, error) {
	if !pool.IsAdmin(c.Signer) {
		return Outcome{}, ErrUnauthorized
	}
	if isAdd {
		if pool.Admins.Contains(address) {
			return Outcome{}, ErrAdminAlreadyExists
		}
		if pool.Admins.Full() {
			return Outcome{}, ErrMaxAdminLimitReached
		}
		pool.Admins.Add(address)
	} else {
		if address.Equals(pool.SuperAdmin) {
			return Outcome{}, ErrUnauthorized
		}
		if !pool.Admins.Remove(address) {
			return Outcome{}, ErrAdminDoesntExist
		}
	}
	return Outcome{
		Name: model.EventAdminUpdated,
		Payload: model.AdminUpdatedData{
			Admin:      address,
			IsAdded:    isAdd,
			Actor:      c.Signer,
			SuperAdmin: pool.SuperAdmin,
		},
	}, nil
}

// SetRewardRate changes the staking rate. Rewards accrued at the old rate are
// settled into every staker's state first.
func (e *Engine) SetRewardRate(pool *model.Pool, users UserStates, c Call, rate uint64) (Outcome, error) {
	if !pool.IsAdmin(c.Signer) {
		return Outcome{}, ErrUnauthorized
	}
	if rate > e.params.MaxRewardRate {
		return Outcome{}, ErrInvalidRewardRate
	}
	for _, us := range users.Users() {
		owed, err := pending(us, pool.RewardRate, c.Now)
		if err != nil {
			return Outcome{}, err
		}
		us.RewardsEarned = owed
		us.LastStakeTimestamp = c.Now
	}
	old := pool.RewardRate
	pool.RewardRate = rate
	return Outcome{
		Name: model.EventRewardRateUpdated,
		Payload: model.RewardRateUpdatedData{
			Actor:   c.Signer,
			OldRate: old,
			NewRate: rate,
		},
	}, nil
}
