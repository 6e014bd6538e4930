package model

import "github.com/gagliardetto/solana-go"

// Event names as written to event logs.
const (
	EventPoolInitialized   = "PoolInitialized"
	EventPoolRemoved       = "PoolRemoved"
	EventAdminUpdated      = "AdminUpdated"
	EventRewardRateUpdated = "RewardRateUpdated"
	EventLiquidityProvided = "LiquidityProvided"
	EventLiquidityRemoved  = "LiquidityRemoved"
	EventTokensSwapped     = "TokensSwapped"
	EventTokensStaked      = "TokensStaked"
	EventTokensUnstaked    = "TokensUnstaked"
	EventRewardsClaimed    = "RewardsClaimed"
	EventRewardsFunded     = "RewardsFunded"
	EventOrderPlaced       = "OrderPlaced"
	EventOrderCancelled    = "OrderCancelled"
	EventOrdersMatched     = "OrdersMatched"
)

// PoolInitializedData is the payload of PoolInitialized.
type PoolInitializedData struct {
	Authority  solana.PublicKey `json:"authority"`
	MintX      solana.PublicKey `json:"mint_x"`
	MintY      solana.PublicKey `json:"mint_y"`
	FeeRate    uint64           `json:"fee_rate"`
	RewardRate uint64           `json:"reward_rate"`
}

// PoolRemovedData is the payload of PoolRemoved.
type PoolRemovedData struct {
	Pool      solana.PublicKey `json:"pool"`
	Authority solana.PublicKey `json:"authority"`
}

// AdminUpdatedData is the payload of AdminUpdated.
type AdminUpdatedData struct {
	Admin      solana.PublicKey `json:"admin"`
	IsAdded    bool             `json:"is_added"`
	Actor      solana.PublicKey `json:"actor"`
	SuperAdmin solana.PublicKey `json:"super_admin"`
}

// RewardRateUpdatedData is the payload of RewardRateUpdated.
type RewardRateUpdatedData struct {
	Actor   solana.PublicKey `json:"actor"`
	OldRate uint64           `json:"old_rate"`
	NewRate uint64           `json:"new_rate"`
}

// LiquidityData is the payload of LiquidityProvided and LiquidityRemoved.
// Reserves are the post-operation values.
type LiquidityData struct {
	User         solana.PublicKey `json:"user"`
	TokenXAmount uint64           `json:"token_x_amount"`
	TokenYAmount uint64           `json:"token_y_amount"`
	LpTokens     uint64           `json:"lp_tokens"`
	ReserveX     uint64           `json:"reserve_x"`
	ReserveY     uint64           `json:"reserve_y"`
}

// SwapData is the payload of TokensSwapped.
type SwapData struct {
	User         solana.PublicKey `json:"user"`
	InputMint    solana.PublicKey `json:"input_mint"`
	OutputMint   solana.PublicKey `json:"output_mint"`
	InputAmount  uint64           `json:"input_amount"`
	OutputAmount uint64           `json:"output_amount"`
	Fee          uint64           `json:"fee"`
	ReserveX     uint64           `json:"reserve_x"`
	ReserveY     uint64           `json:"reserve_y"`
}

// StakeData is the payload of TokensStaked.
type StakeData struct {
	User   solana.PublicKey `json:"user"`
	Amount uint64           `json:"amount"`
}

// UnstakeData is the payload of TokensUnstaked.
type UnstakeData struct {
	User    solana.PublicKey `json:"user"`
	Amount  uint64           `json:"amount"`
	Rewards uint64           `json:"rewards"`
}

// RewardsData is the payload of RewardsClaimed and RewardsFunded.
type RewardsData struct {
	User   solana.PublicKey `json:"user"`
	Amount uint64           `json:"amount"`
}

// OrderData is the payload of OrderPlaced and OrderCancelled.
type OrderData struct {
	Order Order `json:"order"`
}

// OrdersMatchedData is the payload of OrdersMatched.
type OrdersMatchedData struct {
	Fills []Fill `json:"fills"`
}
