package menu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// ErrIndexOutOfRange is returned when a selection index does not name a catalog entry
var ErrIndexOutOfRange = errors.New("menu index out of range")

// Item describes a menu entry before it is placed in a catalog
type Item struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// Entry is one purchasable item. Stock is the only field that changes after
// construction and it only ever goes down.
type Entry struct {
	name  string
	price decimal.Decimal
	stock atomic.Int64
}

func (e *Entry) Name() string {
	return e.name
}

func (e *Entry) Price() decimal.Decimal {
	return e.price
}

// Stock returns the remaining sellable count
func (e *Entry) Stock() int {
	return int(e.stock.Load())
}

// TryTake removes one unit from stock. It returns false, leaving stock
// untouched, when nothing is left.
func (e *Entry) TryTake() bool {
	for {
		current := e.stock.Load()
		if current <= 0 {
			return false
		}
		if e.stock.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// Catalog is the fixed, ordered menu. It owns its entries; orders hold
// pointers into it so stock changes are visible to both.
type Catalog struct {
	entries []*Entry
}

// New builds a catalog from items, preserving their order
func New(items []Item) (*Catalog, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	entries := make([]*Entry, len(items))
	for i, item := range items {
		entry := &Entry{name: item.Name, price: item.Price}
		entry.stock.Store(int64(item.Stock))
		entries[i] = entry
	}

	return &Catalog{entries: entries}, nil
}

// MustNew is New for fixed menus known to be valid
func MustNew(items []Item) *Catalog {
	c, err := New(items)
	if err != nil {
		panic(err)
	}
	return c
}

// EntryAt returns the entry at index
func (c *Catalog) EntryAt(index int) (*Entry, error) {
	if index < 0 || index >= len(c.entries) {
		return nil, fmt.Errorf("%w: %d (menu has %d items)", ErrIndexOutOfRange, index, len(c.entries))
	}
	return c.entries[index], nil
}

// Entries returns the entries in menu order. The slice is a copy; entries
// expose read-only accessors.
func (c *Catalog) Entries() []*Entry {
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// DefaultItems is the cafe's standard menu
func DefaultItems() []Item {
	return []Item{
		{Name: "Espresso", Price: decimal.NewFromInt(100), Stock: 10},
		{Name: "Cappuccino", Price: decimal.NewFromInt(150), Stock: 8},
		{Name: "Latte", Price: decimal.NewFromInt(180), Stock: 5},
		{Name: "Croissant", Price: decimal.NewFromInt(80), Stock: 15},
		{Name: "Muffin", Price: decimal.NewFromInt(90), Stock: 12},
	}
}

// Default builds a catalog from DefaultItems
func Default() *Catalog {
	return MustNew(DefaultItems())
}
