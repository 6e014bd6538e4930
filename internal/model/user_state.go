package model

import "github.com/gagliardetto/solana-go"

// UserState tracks one owner's stake in one pool.
type UserState struct {
	Address            solana.PublicKey `json:"address"`
	Pool               solana.PublicKey `json:"pool"`
	Owner              solana.PublicKey `json:"owner"`
	AmountStaked       uint64           `json:"amount_staked"`
	LastStakeTimestamp int64            `json:"last_stake_timestamp"`
	RewardsEarned      uint64           `json:"rewards_earned"`
	Bump               uint8            `json:"bump"`
}

func (u *UserState) Clone() *UserState {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// Empty reports whether the state holds neither stake nor unpaid rewards.
func (u *UserState) Empty() bool {
	return u.AmountStaked == 0 && u.RewardsEarned == 0
}
