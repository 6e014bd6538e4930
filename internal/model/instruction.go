package model

// Instruction operation names accepted by the replayer.
const (
	OpAirdrop         = "airdrop"
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

// Instruction is one line of a replay script. Keys are base58 strings;
// fields that do not apply to Op are ignored.
type Instruction struct {
	Op        string `json:"op"`
	Signer    string `json:"signer"`
	Timestamp int64  `json:"ts"`

	MintX      string `json:"mint_x,omitempty"`
	MintY      string `json:"mint_y,omitempty"`
	InputMint  string `json:"input_mint,omitempty"`
	OutputMint string `json:"output_mint,omitempty"`
	Token      string `json:"token,omitempty"`
	Address    string `json:"address,omitempty"`

	AmountX          uint64 `json:"amount_x,omitempty"`
	AmountY          uint64 `json:"amount_y,omitempty"`
	AmountIn         uint64 `json:"amount_in,omitempty"`
	MinimumAmountOut uint64 `json:"minimum_amount_out,omitempty"`
	Amount           uint64 `json:"amount,omitempty"`
	Price            uint64 `json:"price,omitempty"`
	FeeRate          uint64 `json:"fee_rate,omitempty"`
	Rate             uint64 `json:"rate,omitempty"`
	OrderID          uint64 `json:"order_id,omitempty"`
	Side             string `json:"side,omitempty"`
	IsAdd            bool   `json:"is_add,omitempty"`
}

// InstructionError records a failed instruction line.
type InstructionError struct {
	Line   uint64 `json:"line"`
	Op     string `json:"op"`
	Signer string `json:"signer"`
	Code   uint32 `json:"code,omitempty"`
	Error  string `json:"error"`
}
