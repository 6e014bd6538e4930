package dex

import (
	"github.com/gagliardetto/solana-go"

	"soondex/internal/model"
)

// Custody names the ledger accounts that hold a pool's tokens.
type Custody struct {
	Reserve     solana.PublicKey
	StakeVault  solana.PublicKey
	RewardVault solana.PublicKey
}

// Call carries the per-operation inputs shared by every engine.
type Call struct {
	Signer  solana.PublicKey
	Now     int64
	Custody Custody
}

// Transfer is a value movement the ledger must execute for an operation.
type Transfer struct {
	Token  solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

// Outcome is what an engine produced for one staged operation. Name is
// empty when the operation changed nothing worth reporting.
type Outcome struct {
	Name      string
	Payload   interface{}
	Transfers []Transfer
}

// UserStates gives engines access to the staged user states of a pool.
type UserStates interface {
	UserState(owner solana.PublicKey) *model.UserState
	OpenUserState(owner solana.PublicKey) (*model.UserState, error)
	DeleteUserState(owner solana.PublicKey)
	Users() []*model.UserState
}

// Engine applies pool operations to staged state.
type Engine struct {
	params Params
}

func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

func (e *Engine) Params() Params { return e.params }

// checkPairOrder requires the supplied mints to be the pool's in stored order.
func checkPairOrder(pool *model.Pool, mintX, mintY solana.PublicKey) error {
	if !pool.MintX.Equals(mintX) || !pool.MintY.Equals(mintY) {
		return ErrInvalidToken
	}
	return nil
}

func (t *Transfer) valid() bool {
	return t.Amount > 0 && !t.From.Equals(t.To)
}

func (o *Outcome) move(token, from, to solana.PublicKey, amount uint64) {
	tr := Transfer{Token: token, From: from, To: to, Amount: amount}
	if tr.valid() {
		o.Transfers = append(o.Transfers, tr)
	}
}
