package dex

import (
	"errors"
	"math"
	"testing"
)

func TestIsqrt(t *testing.T) {
	cases := []struct {
		a, b, want uint64
	}{
		{1, 1, 1},
		{2, 8, 4},
		{3, 5, 3},
		{100_000_000, 100_000_000, 100_000_000},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64},
	}
	for _, tc := range cases {
		if got := Isqrt(tc.a, tc.b); got != tc.want {
			t.Fatalf("Isqrt(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMulDivRounding(t *testing.T) {
	floor, err := mulDiv(7, 3, 2)
	if err != nil || floor != 10 {
		t.Fatalf("mulDiv = %d, %v", floor, err)
	}
	ceil, err := mulDivCeil(7, 3, 2)
	if err != nil || ceil != 11 {
		t.Fatalf("mulDivCeil = %d, %v", ceil, err)
	}
	exact, err := mulDivCeil(6, 3, 2)
	if err != nil || exact != 9 {
		t.Fatalf("mulDivCeil exact = %d, %v", exact, err)
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	got, err := mulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	if err != nil || got != math.MaxUint64 {
		t.Fatalf("mulDiv = %d, %v", got, err)
	}
	if _, err := mulDiv(math.MaxUint64, 2, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestCheckedHelpers(t *testing.T) {
	if _, err := addU64(math.MaxUint64, 1); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("add overflow not detected")
	}
	if _, err := subU64(1, 2); !errors.Is(err, ErrMathOverflow) {
		t.Fatalf("sub underflow not detected")
	}
}

func TestErrorCodes(t *testing.T) {
	if ErrUnauthorized.Code != 6000 || ErrPoolNotEmpty.Code != 6018 || ErrInvalidK.Code != 6019 {
		t.Fatalf("unexpected codes: %d %d %d", ErrUnauthorized.Code, ErrPoolNotEmpty.Code, ErrInvalidK.Code)
	}
	wrapped := errors.Join(errors.New("context"), ErrNoLiquidity)
	if Code(wrapped) != ErrNoLiquidity.Code {
		t.Fatalf("Code did not unwrap: %d", Code(wrapped))
	}
	if Code(errors.New("plain")) != 0 {
		t.Fatalf("plain errors have no code")
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	p.MaxFeeRate = BpsDenominator
	if err := p.Validate(); err == nil {
		t.Fatalf("expected max fee rate error")
	}
}
