package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderedItem is one purchased item line captured at checkout time.
type OrderedItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ItemID      int64  `json:"item_id"`
	ItemName    string `json:"item_name"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

func (i OrderedItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// OrderSummary is the order confirmation handed to the notifier.
type OrderSummary struct {
	CheckoutID  uuid.UUID     `json:"checkout_id"`
	CustomerID  int64         `json:"customer_id"`
	Items       []OrderedItem `json:"items"`
	TotalAmount int64         `json:"total_amount"`
	OrderedAt   time.Time     `json:"ordered_at"`
}

// CheckoutSession is the journal record of one checkout attempt past the
// balance check.
type CheckoutSession struct {
	ID          uuid.UUID
	CustomerID  int64
	Status      CheckoutStatus
	TotalAmount int64
	Items       []OrderedItem
	Incident    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderedItems flattens a cart into its ordered item lines, in cart order.
func OrderedItems(cart *Cart) []OrderedItem {
	var items []OrderedItem
	for _, line := range cart.Lines {
		for _, item := range line.Items {
			items = append(items, OrderedItem{
				ProductID:   line.ID,
				ProductName: line.Name,
				ItemID:      item.ID,
				ItemName:    item.Name,
				Price:       item.Price,
				Quantity:    item.Count,
			})
		}
	}
	return items
}
