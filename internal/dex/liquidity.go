package dex

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"soondex/internal/model"
)

// AddLiquidity deposits amountX/amountY and mints LP tokens to the signer.
func (e *Engine) AddLiquidity(pool *model.Pool, c Call, mintX, mintY solana.PublicKey, amountX, amountY uint64) (Outcome, error) {
	if err := checkPairOrder(pool, mintX, mintY); err != nil {
		return Outcome{}, err
	}
	if amountX == 0 || amountY == 0 {
		return Outcome{}, ErrInvalidLiquidityAmount
	}

	minted, err := e.lpToMint(pool, amountX, amountY)
	if err != nil {
		return Outcome{}, err
	}
	if minted == 0 {
		return Outcome{}, ErrInvalidLpTokenAmount
	}

	reserveX, err := addU64(pool.ReserveX, amountX)
	if err != nil {
		return Outcome{}, err
	}
	reserveY, err := addU64(pool.ReserveY, amountY)
	if err != nil {
		return Outcome{}, err
	}
	supply, err := addU64(pool.LpTokenSupply, minted)
	if err != nil {
		return Outcome{}, err
	}
	bal, ok := pool.LpTokens[c.Signer]
	if !ok {
		bal.LastRewardClaim = c.Now
	}
	if bal.Amount, err = addU64(bal.Amount, minted); err != nil {
		return Outcome{}, err
	}

	pool.ReserveX = reserveX
	pool.ReserveY = reserveY
	pool.LpTokenSupply = supply
	if pool.LpTokens == nil {
		pool.LpTokens = make(map[solana.PublicKey]model.LpBalance)
	}
	pool.LpTokens[c.Signer] = bal
	refreshTVL(pool)

	out := Outcome{
		Name: model.EventLiquidityProvided,
		Payload: model.LiquidityData{
			User:         c.Signer,
			TokenXAmount: amountX,
			TokenYAmount: amountY,
			LpTokens:     minted,
			ReserveX:     pool.ReserveX,
			ReserveY:     pool.ReserveY,
		},
	}
	out.move(pool.MintX, c.Signer, c.Custody.Reserve, amountX)
	out.move(pool.MintY, c.Signer, c.Custody.Reserve, amountY)
	return out, nil
}

func (e *Engine) lpToMint(pool *model.Pool, amountX, amountY uint64) (uint64, error) {
	if pool.LpTokenSupply == 0 {
		return Isqrt(amountX, amountY), nil
	}
	if pool.ReserveX == 0 || pool.ReserveY == 0 {
		return 0, ErrNoLiquidity
	}
	if err := e.checkRatio(pool, amountX, amountY); err != nil {
		return 0, err
	}
	fromX, err := mulDiv(amountX, pool.LpTokenSupply, pool.ReserveX)
	if err != nil {
		return 0, err
	}
	fromY, err := mulDiv(amountY, pool.LpTokenSupply, pool.ReserveY)
	if err != nil {
		return 0, err
	}
	return min(fromX, fromY), nil
}

// checkRatio compares amountX with the X amount implied by amountY at the
// current reserve ratio.
func (e *Engine) checkRatio(pool *model.Pool, amountX, amountY uint64) error {
	expected := new(uint256.Int).Mul(u256(amountY), u256(pool.ReserveX))
	expected.Div(expected, u256(pool.ReserveY))

	actual := u256(amountX)
	diff := new(uint256.Int)
	if actual.Lt(expected) {
		diff.Sub(expected, actual)
	} else {
		diff.Sub(actual, expected)
	}

	allowed := new(uint256.Int).Mul(expected, u256(e.params.RatioToleranceBps))
	allowed.Div(allowed, u256(BpsDenominator))
	if allowed.IsZero() {
		allowed.SetOne()
	}
	if diff.Gt(allowed) {
		return ErrInvalidTokenRatio
	}
	return nil
}

// RemoveLiquidity withdraws amountX/amountY by burning the signer's LP tokens.
func (e *Engine) RemoveLiquidity(pool *model.Pool, c Call, mintX, mintY solana.PublicKey, amountX, amountY uint64) (Outcome, error) {
	if err := checkPairOrder(pool, mintX, mintY); err != nil {
		return Outcome{}, err
	}
	if amountX == 0 || amountY == 0 {
		return Outcome{}, ErrInvalidLiquidityAmount
	}
	if pool.ReserveX == 0 || pool.ReserveY == 0 || pool.LpTokenSupply == 0 {
		return Outcome{}, ErrNoLiquidity
	}
	bal, ok := pool.LpTokens[c.Signer]
	if !ok || bal.Amount == 0 {
		return Outcome{}, ErrInsufficientFunds
	}
	if amountX > pool.ReserveX || amountY > pool.ReserveY {
		return Outcome{}, ErrInvalidLiquidityAmount
	}

	entitledX, err := mulDiv(bal.Amount, pool.ReserveX, pool.LpTokenSupply)
	if err != nil {
		return Outcome{}, err
	}
	entitledY, err := mulDiv(bal.Amount, pool.ReserveY, pool.LpTokenSupply)
	if err != nil {
		return Outcome{}, err
	}
	if amountX > entitledX || amountY > entitledY {
		return Outcome{}, ErrInvalidLiquidityAmount
	}

	burnX, err := mulDivCeil(amountX, pool.LpTokenSupply, pool.ReserveX)
	if err != nil {
		return Outcome{}, err
	}
	burnY, err := mulDivCeil(amountY, pool.LpTokenSupply, pool.ReserveY)
	if err != nil {
		return Outcome{}, err
	}
	burn := max(burnX, burnY)
	if burn > bal.Amount {
		return Outcome{}, ErrInsufficientFunds
	}
	if burn == pool.LpTokenSupply {
		// last LP out takes the whole pool
		amountX, amountY = pool.ReserveX, pool.ReserveY
	}

	if pool.ReserveX, err = subU64(pool.ReserveX, amountX); err != nil {
		return Outcome{}, err
	}
	if pool.ReserveY, err = subU64(pool.ReserveY, amountY); err != nil {
		return Outcome{}, err
	}
	if pool.LpTokenSupply, err = subU64(pool.LpTokenSupply, burn); err != nil {
		return Outcome{}, err
	}
	bal.Amount -= burn
	if bal.Amount == 0 {
		delete(pool.LpTokens, c.Signer)
	} else {
		pool.LpTokens[c.Signer] = bal
	}
	refreshTVL(pool)

	out := Outcome{
		Name: model.EventLiquidityRemoved,
		Payload: model.LiquidityData{
			User:         c.Signer,
			TokenXAmount: amountX,
			TokenYAmount: amountY,
			LpTokens:     burn,
			ReserveX:     pool.ReserveX,
			ReserveY:     pool.ReserveY,
		},
	}
	out.move(pool.MintX, c.Custody.Reserve, c.Signer, amountX)
	out.move(pool.MintY, c.Custody.Reserve, c.Signer, amountY)
	return out, nil
}
