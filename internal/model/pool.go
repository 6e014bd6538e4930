package model

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"
)

// MaxAdmins bounds the admin set of a pool.
const MaxAdmins = 3

// Pool is the canonical state record of a single token-pair pool.
type Pool struct {
	Address    solana.PublicKey `json:"address"`
	Bump       uint8            `json:"bump"`
	Authority  solana.PublicKey `json:"authority"`
	SuperAdmin solana.PublicKey `json:"super_admin"`
	Admins     AdminSet         `json:"admins"`
	MintX      solana.PublicKey `json:"mint_x"`
	MintY      solana.PublicKey `json:"mint_y"`

	ReserveX      uint64                         `json:"reserve_x"`
	ReserveY      uint64                         `json:"reserve_y"`
	LpTokenSupply uint64                         `json:"lp_token_supply"`
	LpTokens      map[solana.PublicKey]LpBalance `json:"lp_tokens"`

	FeeRate       uint64 `json:"fee_rate"`
	RewardRate    uint64 `json:"reward_rate"`
	TotalStaked   uint64 `json:"total_staked"`
	RewardBalance uint64 `json:"reward_balance"`

	OrderCount uint64  `json:"order_count"`
	Orders     []Order `json:"orders"`

	Volume24h       uint64 `json:"volume_24h"`
	Fees24h         uint64 `json:"fees_24h"`
	LastVolumeReset int64  `json:"last_volume_reset"`
	TvlX            uint64 `json:"tvl_x"`
	TvlY            uint64 `json:"tvl_y"`
	StakingRewards  uint64 `json:"staking_rewards"`
}

// LpBalance is an owner's LP claim and reward checkpoint.
type LpBalance struct {
	Amount          uint64 `json:"amount"`
	LastRewardClaim int64  `json:"last_reward_claim"`
}

// Clone returns a deep copy safe to mutate independently.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.LpTokens = make(map[solana.PublicKey]LpBalance, len(p.LpTokens))
	for owner, bal := range p.LpTokens {
		out.LpTokens[owner] = bal
	}
	if p.Orders != nil {
		out.Orders = make([]Order, len(p.Orders))
		copy(out.Orders, p.Orders)
	}
	return &out
}

// HasMint reports whether mint is one of the pool's two tokens.
func (p *Pool) HasMint(mint solana.PublicKey) bool {
	return p.MintX.Equals(mint) || p.MintY.Equals(mint)
}

// IsAdmin reports whether account may perform admin operations.
func (p *Pool) IsAdmin(account solana.PublicKey) bool {
	return p.SuperAdmin.Equals(account) || p.Admins.Contains(account)
}

// AdminSet is a fixed-capacity, duplicate-free, insertion-ordered set.
type AdminSet struct {
	keys [MaxAdmins]solana.PublicKey
	n    int
}

// NewAdminSet builds a set from keys, dropping duplicates and anything past capacity.
func NewAdminSet(keys ...solana.PublicKey) AdminSet {
	var s AdminSet
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s AdminSet) Len() int { return s.n }

func (s AdminSet) Full() bool { return s.n == MaxAdmins }

func (s AdminSet) Contains(key solana.PublicKey) bool {
	return s.index(key) >= 0
}

// Add appends key. It returns false when key is present or the set is full.
func (s *AdminSet) Add(key solana.PublicKey) bool {
	if s.Contains(key) || s.Full() {
		return false
	}
	s.keys[s.n] = key
	s.n++
	return true
}

// Remove deletes key, keeping the order of the remaining entries.
func (s *AdminSet) Remove(key solana.PublicKey) bool {
	idx := s.index(key)
	if idx < 0 {
		return false
	}
	copy(s.keys[idx:s.n-1], s.keys[idx+1:s.n])
	s.n--
	s.keys[s.n] = solana.PublicKey{}
	return true
}

// Keys returns the members in insertion order.
func (s AdminSet) Keys() []solana.PublicKey {
	out := make([]solana.PublicKey, s.n)
	copy(out, s.keys[:s.n])
	return out
}

func (s AdminSet) index(key solana.PublicKey) int {
	for i := 0; i < s.n; i++ {
		if s.keys[i].Equals(key) {
			return i
		}
	}
	return -1
}

func (s AdminSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Keys())
}

func (s *AdminSet) UnmarshalJSON(data []byte) error {
	var keys []solana.PublicKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewAdminSet(keys...)
	return nil
}
