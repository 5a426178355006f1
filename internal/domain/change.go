package domain

import (
	"fmt"
	"strings"
)

// ChangeKind classifies what happened to a cart line during reconciliation.
type ChangeKind string

const (
	ChangeProductRemoved     ChangeKind = "PRODUCT_REMOVED"
	ChangeProductUnavailable ChangeKind = "PRODUCT_UNAVAILABLE"
	ChangeItemsChanged       ChangeKind = "ITEMS_CHANGED"
)

// ItemChangeKind classifies what happened to a single item line.
type ItemChangeKind string

const (
	ItemRemoved                ItemChangeKind = "ITEM_REMOVED"
	ItemPriceChanged           ItemChangeKind = "PRICE_CHANGED"
	ItemCountClamped           ItemChangeKind = "COUNT_CLAMPED"
	ItemPriceChangedAndClamped ItemChangeKind = "PRICE_CHANGED_AND_COUNT_CLAMPED"
)

// Change is one line-level reconciliation event.
type Change struct {
	Kind        ChangeKind   `json:"kind" bson:"kind"`
	ProductID   int64        `json:"product_id" bson:"product_id"`
	ProductName string       `json:"product_name" bson:"product_name"`
	Items       []ItemChange `json:"items,omitempty" bson:"items,omitempty"`
}

// ItemChange records the old and new snapshot values of one item line.
type ItemChange struct {
	Kind     ItemChangeKind `json:"kind" bson:"kind"`
	ItemID   int64          `json:"item_id" bson:"item_id"`
	ItemName string         `json:"item_name" bson:"item_name"`
	OldPrice int64          `json:"old_price" bson:"old_price"`
	NewPrice int64          `json:"new_price" bson:"new_price"`
	OldCount int            `json:"old_count" bson:"old_count"`
	NewCount int            `json:"new_count" bson:"new_count"`
}

func (c Change) clone() Change {
	out := c
	if c.Items != nil {
		out.Items = append([]ItemChange(nil), c.Items...)
	}
	return out
}

// Message formats the change for display to the customer.
func (c Change) Message() string {
	switch c.Kind {
	case ChangeProductRemoved:
		return fmt.Sprintf("%s has been removed.", c.ProductName)
	case ChangeProductUnavailable:
		return fmt.Sprintf("%s's options have all been removed; purchase impossible.", c.ProductName)
	default:
		parts := make([]string, 0, len(c.Items))
		for _, item := range c.Items {
			parts = append(parts, item.Message())
		}
		return fmt.Sprintf("%s changes: %s", c.ProductName, strings.Join(parts, ", "))
	}
}

func (c ItemChange) Message() string {
	switch c.Kind {
	case ItemRemoved:
		return fmt.Sprintf("%s option has been removed.", c.ItemName)
	case ItemPriceChanged:
		return fmt.Sprintf("%s price changed.", c.ItemName)
	case ItemCountClamped:
		return fmt.Sprintf("%s quantity clamped to max available.", c.ItemName)
	default:
		return fmt.Sprintf("%s price changed and quantity clamped to max available.", c.ItemName)
	}
}
