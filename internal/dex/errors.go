package dex

import (
	"errors"
	"fmt"
)

// Error is a caller-visible pool failure with a stable numeric code.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

const errorCodeBase = 6000

var (
	ErrUnauthorized           = newError(0, "Unauthorized", "unauthorized access")
	ErrAdminAlreadyExists     = newError(1, "AdminAlreadyExists", "admin already exists")
	ErrAdminDoesntExist       = newError(2, "AdminDoesntExist", "admin does not exist")
	ErrMaxAdminLimitReached   = newError(3, "MaxAdminLimitReached", "maximum admin limit reached")
	ErrInvalidToken           = newError(4, "InvalidToken", "invalid token")
	ErrInvalidTokenPair       = newError(5, "InvalidTokenPair", "invalid token pair")
	ErrMathOverflow           = newError(6, "MathOverflow", "math overflow")
	ErrInvalidLiquidityAmount = newError(7, "InvalidLiquidityAmount", "invalid liquidity amount")
	ErrInvalidSwapInput       = newError(8, "InvalidSwapInput", "invalid swap input")
	ErrExcessiveSlippage      = newError(9, "ExcessiveSlippage", "slippage tolerance exceeded")
	ErrInsufficientFunds      = newError(10, "InsufficientFunds", "insufficient funds")
	ErrInvalidFeeRate         = newError(11, "InvalidFeeRate", "invalid fee rate")
	ErrInvalidTokenRatio      = newError(12, "InvalidTokenRatio", "invalid token ratio")
	ErrInvalidStakeAmount     = newError(13, "InvalidStakeAmount", "invalid stake amount")
	ErrInsufficientStake      = newError(14, "InsufficientStake", "insufficient stake")
	ErrInvalidLpTokenAmount   = newError(15, "InvalidLpTokenAmount", "invalid LP token amount")
	ErrNoLiquidity            = newError(16, "NoLiquidity", "no liquidity in pool")
	ErrNoRewardsAvailable     = newError(17, "NoRewardsAvailable", "no rewards available")
	ErrPoolNotEmpty           = newError(18, "PoolNotEmpty", "pool is not empty")
	ErrInvalidK               = newError(19, "InvalidK", "constant product decreased")
	ErrPoolNotFound           = newError(20, "PoolNotFound", "pool not found")
	ErrPoolAlreadyExists      = newError(21, "PoolAlreadyExists", "pool already exists")
	ErrOrderNotFound          = newError(22, "OrderNotFound", "order not found")
	ErrOrderBookFull          = newError(23, "OrderBookFull", "order book is full")
	ErrInvalidRewardRate      = newError(24, "InvalidRewardRate", "invalid reward rate")
	ErrInvariantViolation     = newError(25, "InvariantViolation", "pool invariant violated")
)

func newError(offset uint32, name, msg string) *Error {
	return &Error{Code: errorCodeBase + offset, Name: name, Msg: msg}
}

// Code returns the code of the first *Error in err's chain, or 0.
func Code(err error) uint32 {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return 0
}
