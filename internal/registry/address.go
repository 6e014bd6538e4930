package registry

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/dex"
)

// Derivation seeds.
const (
	PoolSeed        = "pool"
	UserStateSeed   = "user_state"
	StakeVaultSeed  = "stake_vault"
	RewardVaultSeed = "reward_vault"
)

// DefaultProgramID is the program the pool addresses are derived under.
var DefaultProgramID = solana.MustPublicKeyFromBase58("FKczhwC9sbSnSKwG8Anp2NPsGCumTwbhABursN5a1dmX")

// Deriver computes the program-derived addresses of pools and their accounts.
type Deriver struct {
	ProgramID solana.PublicKey
}

// SortMints orders a mint pair by byte value.
func SortMints(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// PoolAddress derives the pool address of an unordered mint pair.
func (d Deriver) PoolAddress(mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	if mintA.Equals(mintB) {
		return solana.PublicKey{}, 0, dex.ErrInvalidTokenPair
	}
	lo, hi := SortMints(mintA, mintB)
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(PoolSeed), lo[:], hi[:]}, d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive pool address: %w", err)
	}
	return addr, bump, nil
}

// UserStateAddress derives the staking account of owner in pool.
func (d Deriver) UserStateAddress(pool, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(UserStateSeed), pool[:], owner[:]}, d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive user state address: %w", err)
	}
	return addr, bump, nil
}

// Custody derives the ledger accounts that hold pool tokens.
func (d Deriver) Custody(pool solana.PublicKey) (dex.Custody, error) {
	stake, _, err := solana.FindProgramAddress([][]byte{[]byte(StakeVaultSeed), pool[:]}, d.ProgramID)
	if err != nil {
		return dex.Custody{}, fmt.Errorf("derive stake vault: %w", err)
	}
	reward, _, err := solana.FindProgramAddress([][]byte{[]byte(RewardVaultSeed), pool[:]}, d.ProgramID)
	if err != nil {
		return dex.Custody{}, fmt.Errorf("derive reward vault: %w", err)
	}
	return dex.Custody{Reserve: pool, StakeVault: stake, RewardVault: reward}, nil
}
