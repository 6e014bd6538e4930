package dex

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"soondex/internal/model"
)

// SwapQuote is the priced result of a swap against current reserves.
type SwapQuote struct {
	InputMint   solana.PublicKey `json:"input_mint"`
	OutputMint  solana.PublicKey `json:"output_mint"`
	AmountIn    uint64           `json:"amount_in"`
	EffectiveIn uint64           `json:"effective_in"`
	Fee         uint64           `json:"fee"`
	AmountOut   uint64           `json:"amount_out"`
	XToY        bool             `json:"x_to_y"`
}

// Quote prices a swap without touching the pool.
func (e *Engine) Quote(pool *model.Pool, inputMint, outputMint solana.PublicKey, amountIn, minimumAmountOut uint64) (SwapQuote, error) {
	if inputMint.Equals(outputMint) {
		return SwapQuote{}, ErrInvalidTokenPair
	}
	if !pool.HasMint(inputMint) || !pool.HasMint(outputMint) {
		return SwapQuote{}, ErrInvalidToken
	}
	if amountIn == 0 {
		return SwapQuote{}, ErrInvalidSwapInput
	}

	q := SwapQuote{
		InputMint:  inputMint,
		OutputMint: outputMint,
		AmountIn:   amountIn,
		XToY:       pool.MintX.Equals(inputMint),
	}
	reserveIn, reserveOut := pool.ReserveY, pool.ReserveX
	if q.XToY {
		reserveIn, reserveOut = pool.ReserveX, pool.ReserveY
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ErrNoLiquidity
	}
	if pool.FeeRate >= BpsDenominator {
		return SwapQuote{}, ErrInvalidFeeRate
	}

	effectiveIn, err := mulDiv(amountIn, BpsDenominator-pool.FeeRate, BpsDenominator)
	if err != nil {
		return SwapQuote{}, err
	}
	q.EffectiveIn = effectiveIn
	q.Fee = amountIn - effectiveIn

	k := product(reserveIn, reserveOut)
	den := new(uint256.Int).Add(u256(reserveIn), u256(effectiveIn))
	newOut, err := narrow(new(uint256.Int).Div(k, den))
	if err != nil {
		return SwapQuote{}, err
	}
	q.AmountOut = reserveOut - newOut

	if q.AmountOut == 0 || q.AmountOut >= reserveOut {
		return SwapQuote{}, ErrInvalidSwapInput
	}
	if q.AmountOut < minimumAmountOut {
		return SwapQuote{}, ErrExcessiveSlippage
	}
	// the floored output can leave the product below k when the fee is too
	// small to absorb the rounding
	after := new(uint256.Int).Add(u256(reserveIn), u256(amountIn))
	if after.Mul(after, u256(newOut)).Lt(k) {
		return SwapQuote{}, ErrInvalidK
	}
	return q, nil
}

// Swap exchanges amountIn of inputMint for outputMint at the pool price.
func (e *Engine) Swap(pool *model.Pool, c Call, inputMint, outputMint solana.PublicKey, amountIn, minimumAmountOut uint64) (Outcome, error) {
	q, err := e.Quote(pool, inputMint, outputMint, amountIn, minimumAmountOut)
	if err != nil {
		return Outcome{}, err
	}

	reserveX, reserveY := pool.ReserveX, pool.ReserveY
	if q.XToY {
		if reserveX, err = addU64(reserveX, q.AmountIn); err != nil {
			return Outcome{}, err
		}
		reserveY -= q.AmountOut
	} else {
		if reserveY, err = addU64(reserveY, q.AmountIn); err != nil {
			return Outcome{}, err
		}
		reserveX -= q.AmountOut
	}
	if product(reserveX, reserveY).Lt(product(pool.ReserveX, pool.ReserveY)) {
		return Outcome{}, ErrInvalidK
	}
	pool.ReserveX, pool.ReserveY = reserveX, reserveY

	rollWindow(pool, c.Now, e.params.VolumeWindow)
	if pool.Volume24h, err = addU64(pool.Volume24h, q.AmountIn); err != nil {
		return Outcome{}, err
	}
	if pool.Fees24h, err = addU64(pool.Fees24h, q.Fee); err != nil {
		return Outcome{}, err
	}
	refreshTVL(pool)

	out := Outcome{
		Name: model.EventTokensSwapped,
		Payload: model.SwapData{
			User:         c.Signer,
			InputMint:    inputMint,
			OutputMint:   outputMint,
			InputAmount:  q.AmountIn,
			OutputAmount: q.AmountOut,
			Fee:          q.Fee,
			ReserveX:     pool.ReserveX,
			ReserveY:     pool.ReserveY,
		},
	}
	out.move(inputMint, c.Signer, c.Custody.Reserve, q.AmountIn)
	out.move(outputMint, c.Custody.Reserve, c.Signer, q.AmountOut)
	return out, nil
}
