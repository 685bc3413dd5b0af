package domain

import (
	"iter"
	"math"
	"time"
)

// MaxLineQuantity is the largest quantity a cart line column can hold.
const MaxLineQuantity = math.MaxInt32

type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	CreatedAt  time.Time  `json:"createdAt"`
	Lines      []CartLine `json:"lines"`
}

// CartLine is one item in a cart. Item holds the current catalog row, so
// totals derived from it are live.
type CartLine struct {
	CartID    string    `json:"cartId"`
	Item      MenuItem  `json:"item"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// TotalCents is the live line total.
func (l CartLine) TotalCents() int64 {
	return l.Item.PriceCents * int64(l.Quantity)
}

// TotalCents sums the live totals of all lines.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.TotalCents()
	}
	return total
}

// CartItemView is a rendering row of a cart snapshot.
type CartItemView struct {
	Item       MenuItem `json:"item"`
	Quantity   int      `json:"quantity"`
	TotalCents int64    `json:"totalCents"`
}

// Items returns a restartable sequence over the cart lines. The sequence reads
// only the already loaded lines and never mutates the cart.
func (c Cart) Items() iter.Seq[CartItemView] {
	lines := c.Lines
	return func(yield func(CartItemView) bool) {
		for _, l := range lines {
			if !yield(CartItemView{Item: l.Item, Quantity: l.Quantity, TotalCents: l.TotalCents()}) {
				return
			}
		}
	}
}
