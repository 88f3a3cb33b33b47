package order

import (
	"errors"
	"fmt"

	"cafe-pos/internal/models"
	"cafe-pos/internal/services/menu"

	"github.com/shopspring/decimal"
)

var (
	// ErrOutOfStock is returned when the selected entry has no stock left
	ErrOutOfStock = errors.New("item is out of stock")
	// ErrEmptyOrder is returned when finalizing an order with no items
	ErrEmptyOrder = errors.New("no items in the order")
)

// Summary is a point-in-time copy of an order
type Summary struct {
	Items []models.LineItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

// IsEmpty reports whether the summary has no items
func (s Summary) IsEmpty() bool {
	return len(s.Items) == 0
}

// ActiveOrder accumulates the entries picked for the current customer.
// total always equals the sum of the entries' prices; AddItem and Clear
// are the only mutators and update both together.
//
// ActiveOrder is not safe for concurrent use.
type ActiveOrder struct {
	entries []*menu.Entry
	total   decimal.Decimal
}

func NewActiveOrder() *ActiveOrder {
	return &ActiveOrder{total: decimal.Zero}
}

// AddItem takes one unit of the entry's stock and appends it to the order.
// With no stock left nothing changes and ErrOutOfStock is returned.
func (o *ActiveOrder) AddItem(entry *menu.Entry) error {
	if !entry.TryTake() {
		return fmt.Errorf("%w: %s", ErrOutOfStock, entry.Name())
	}

	o.entries = append(o.entries, entry)
	o.total = o.total.Add(entry.Price())
	return nil
}

// Summary lists the selected items in the order they were added
func (o *ActiveOrder) Summary() Summary {
	items := make([]models.LineItem, len(o.entries))
	for i, entry := range o.entries {
		items[i] = models.LineItem{Name: entry.Name(), Price: entry.Price()}
	}
	return Summary{Items: items, Total: o.total}
}

// Clear empties the order. Stock already taken stays taken.
func (o *ActiveOrder) Clear() {
	o.entries = nil
	o.total = decimal.Zero
}

func (o *ActiveOrder) IsEmpty() bool {
	return len(o.entries) == 0
}

func (o *ActiveOrder) Len() int {
	return len(o.entries)
}

func (o *ActiveOrder) Total() decimal.Decimal {
	return o.total
}
