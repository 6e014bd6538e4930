package aggregate

import (
	"time"

	"github.com/shopspring/decimal"
)

const ratioScale = 18

var yearSeconds = decimal.NewFromInt(int64(365 * 24 * time.Hour / time.Second))

// computeFeeRate returns fee/tvl, or nil when either side is zero.
func computeFeeRate(fee decimal.Decimal, tvl *decimal.Decimal) *string {
	if fee.IsZero() || tvl == nil || tvl.IsZero() {
		return nil
	}
	rate := fee.DivRound(*tvl, ratioScale).StringFixed(ratioScale)
	return &rate
}

// computeAPR annualizes the mean of the two per-side fee rates.
func computeAPR(feeRateX, feeRateY *string, windowSeconds int64) *string {
	if windowSeconds <= 0 || (feeRateX == nil && feeRateY == nil) {
		return nil
	}
	total := decimal.Zero
	for _, rate := range []*string{feeRateX, feeRateY} {
		if rate == nil {
			continue
		}
		parsed, err := decimal.NewFromString(*rate)
		if err != nil {
			return nil
		}
		total = total.Add(parsed)
	}
	apr := total.Div(decimal.NewFromInt(2)).
		Mul(yearSeconds).
		DivRound(decimal.NewFromInt(windowSeconds), ratioScale).
		StringFixed(ratioScale)
	return &apr
}

func optionalAmount(v uint64, ok bool) *decimal.Decimal {
	if !ok {
		return nil
	}
	d := amount(v)
	return &d
}

func optionalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
