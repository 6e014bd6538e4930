package dex

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

// CheckInvariants validates a staged pool and its user states before commit.
// Every failure wraps ErrInvariantViolation.
func CheckInvariants(pool *model.Pool, users []*model.UserState) error {
	if pool.LpTokenSupply > 0 && (pool.ReserveX == 0 || pool.ReserveY == 0) {
		return violation("reserves %d/%d with lp supply %d", pool.ReserveX, pool.ReserveY, pool.LpTokenSupply)
	}
	if pool.LpTokenSupply == 0 && (pool.ReserveX != 0) != (pool.ReserveY != 0) {
		return violation("one-sided reserves %d/%d", pool.ReserveX, pool.ReserveY)
	}

	var lpSum uint64
	for owner, bal := range pool.LpTokens {
		if bal.Amount == 0 {
			return violation("empty lp balance for %s", owner)
		}
		var err error
		if lpSum, err = addU64(lpSum, bal.Amount); err != nil {
			return violation("lp balances overflow")
		}
	}
	if lpSum != pool.LpTokenSupply {
		return violation("lp supply %d != sum of balances %d", pool.LpTokenSupply, lpSum)
	}

	var staked uint64
	for _, us := range users {
		if !us.Pool.Equals(pool.Address) {
			return violation("user state %s belongs to pool %s", us.Address, us.Pool)
		}
		var err error
		if staked, err = addU64(staked, us.AmountStaked); err != nil {
			return violation("stake overflow")
		}
	}
	if staked != pool.TotalStaked {
		return violation("total staked %d != sum of stakes %d", pool.TotalStaked, staked)
	}

	if pool.Admins.Len() > model.MaxAdmins {
		return violation("%d admins", pool.Admins.Len())
	}
	seen := make(map[solana.PublicKey]struct{}, pool.Admins.Len())
	for _, k := range pool.Admins.Keys() {
		if _, dup := seen[k]; dup {
			return violation("duplicate admin %s", k)
		}
		seen[k] = struct{}{}
	}

	ids := make(map[uint64]struct{}, len(pool.Orders))
	for _, o := range pool.Orders {
		if o.Amount == 0 {
			return violation("filled order %d still open", o.ID)
		}
		if o.ID == 0 || o.ID > pool.OrderCount {
			return violation("order id %d outside 1..%d", o.ID, pool.OrderCount)
		}
		if _, dup := ids[o.ID]; dup {
			return violation("duplicate order id %d", o.ID)
		}
		ids[o.ID] = struct{}{}
	}
	return nil
}

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
