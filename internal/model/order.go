package model

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Side is the direction of a limit order.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(input string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("invalid order side: %q", input)
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if s != SideBuy && s != SideSell {
		return nil, fmt.Errorf("invalid order side: %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order is an open limit order; Amount is the unfilled remainder.
type Order struct {
	ID        uint64           `json:"id"`
	Side      Side             `json:"side"`
	Price     uint64           `json:"price"`
	Amount    uint64           `json:"amount"`
	Owner     solana.PublicKey `json:"owner"`
	Timestamp int64            `json:"timestamp"`
}

// Fill is one execution between a buy and a sell order.
type Fill struct {
	BuyOrderID  uint64           `json:"buy_order_id"`
	SellOrderID uint64           `json:"sell_order_id"`
	Buyer       solana.PublicKey `json:"buyer"`
	Seller      solana.PublicKey `json:"seller"`
	Price       uint64           `json:"price"`
	Amount      uint64           `json:"amount"`
}
