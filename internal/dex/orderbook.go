package dex

import (
	"github.com/google/btree"

	"soondex/internal/model"
)

const orderIndexDegree = 16

// PlaceOrder appends an open limit order owned by the signer.
func (e *Engine) PlaceOrder(pool *model.Pool, c Call, side model.Side, amount, price uint64) (Outcome, error) {
	if side != model.SideBuy && side != model.SideSell {
		return Outcome{}, ErrInvalidLiquidityAmount
	}
	if amount == 0 || price == 0 {
		return Outcome{}, ErrInvalidLiquidityAmount
	}
	if len(pool.Orders) >= e.params.MaxOpenOrders {
		return Outcome{}, ErrOrderBookFull
	}
	id, err := addU64(pool.OrderCount, 1)
	if err != nil {
		return Outcome{}, err
	}
	pool.OrderCount = id
	order := model.Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Amount:    amount,
		Owner:     c.Signer,
		Timestamp: c.Now,
	}
	pool.Orders = append(pool.Orders, order)
	return Outcome{
		Name:    model.EventOrderPlaced,
		Payload: model.OrderData{Order: order},
	}, nil
}

// CancelOrder removes the signer's open order id.
func (e *Engine) CancelOrder(pool *model.Pool, c Call, id uint64) (Outcome, error) {
	idx := -1
	for i := range pool.Orders {
		if pool.Orders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, ErrOrderNotFound
	}
	order := pool.Orders[idx]
	if !order.Owner.Equals(c.Signer) {
		return Outcome{}, ErrUnauthorized
	}
	pool.Orders = append(pool.Orders[:idx], pool.Orders[idx+1:]...)
	return Outcome{
		Name:    model.EventOrderCancelled,
		Payload: model.OrderData{Order: order},
	}, nil
}

// MatchOrders crosses the book with price-time priority. Each fill executes
// at the resting order's price. An uncrossed book yields an empty Outcome.
func (e *Engine) MatchOrders(pool *model.Pool, c Call) (Outcome, error) {
	buys := btree.NewG[*model.Order](orderIndexDegree, buyBefore)
	sells := btree.NewG[*model.Order](orderIndexDegree, sellBefore)
	for i := range pool.Orders {
		o := &pool.Orders[i]
		switch o.Side {
		case model.SideBuy:
			buys.ReplaceOrInsert(o)
		case model.SideSell:
			sells.ReplaceOrInsert(o)
		}
	}

	var fills []model.Fill
	for {
		buy, okBuy := buys.Min()
		sell, okSell := sells.Min()
		if !okBuy || !okSell || buy.Price < sell.Price {
			break
		}
		qty := min(buy.Amount, sell.Amount)
		fills = append(fills, model.Fill{
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Buyer:       buy.Owner,
			Seller:      sell.Owner,
			Price:       resting(buy, sell).Price,
			Amount:      qty,
		})
		buy.Amount -= qty
		sell.Amount -= qty
		if buy.Amount == 0 {
			buys.DeleteMin()
		}
		if sell.Amount == 0 {
			sells.DeleteMin()
		}
	}
	if len(fills) == 0 {
		return Outcome{}, nil
	}

	open := pool.Orders[:0]
	for _, o := range pool.Orders {
		if o.Amount > 0 {
			open = append(open, o)
		}
	}
	pool.Orders = open

	return Outcome{
		Name:    model.EventOrdersMatched,
		Payload: model.OrdersMatchedData{Fills: fills},
	}, nil
}

// resting returns whichever order entered the book first.
func resting(a, b *model.Order) *model.Order {
	if earlier(a, b) {
		return a
	}
	return b
}

func earlier(a, b *model.Order) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

func buyBefore(a, b *model.Order) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return earlier(a, b)
}

func sellBefore(a, b *model.Order) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return earlier(a, b)
}
