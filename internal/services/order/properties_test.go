package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/services/menu"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func genCatalog(t *rapid.T) (*menu.Catalog, []int) {
	n := rapid.IntRange(1, 6).Draw(t, "menu-size")
	items := make([]menu.Item, n)
	initial := make([]int, n)
	for i := range items {
		initial[i] = rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("stock-%d", i))
		items[i] = menu.Item{
			Name:  fmt.Sprintf("item-%d", i),
			Price: decimal.NewFromInt(int64(rapid.IntRange(0, 500).Draw(t, fmt.Sprintf("price-%d", i)))),
			Stock: initial[i],
		}
	}
	return menu.MustNew(items), initial
}

func sumPrices(s Summary) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// Random sequences of select/clear/finalize must keep stock non-negative,
// keep the running total equal to the item sum, and account for every unit
// of stock taken.
func TestService_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		catalog, initial := genCatalog(t)
		svc := NewService(catalog, logger.Nop())
		ctx := context.Background()
		taken := make([]int, catalog.Len())

		steps := rapid.IntRange(0, 60).Draw(t, "steps")
		for step := 0; step < steps; step++ {
			before := svc.CurrentOrder()

			switch rapid.IntRange(0, 9).Draw(t, "op") {
			case 0:
				svc.ClearOrder(ctx)
				if !svc.CurrentOrder().IsEmpty() {
					t.Fatalf("order not empty after clear")
				}
			case 1:
				bill, err := svc.FinalizeOrder(ctx)
				if before.IsEmpty() {
					if !errors.Is(err, ErrEmptyOrder) {
						t.Fatalf("finalize on empty order: got %v", err)
					}
					break
				}
				if err != nil {
					t.Fatalf("finalize: %v", err)
				}
				if len(bill.Items) != len(before.Items) || !bill.Total.Equal(before.Total) {
					t.Fatalf("bill %v does not match pre-finalize order %v", bill, before)
				}
				if after := svc.CurrentOrder(); !after.IsEmpty() || !after.Total.IsZero() {
					t.Fatalf("order not reset after finalize: %v", after)
				}
			default:
				index := rapid.IntRange(-1, catalog.Len()).Draw(t, "index")
				err := svc.SelectItem(ctx, index)
				switch {
				case err == nil:
					taken[index]++
				case errors.Is(err, menu.ErrIndexOutOfRange), errors.Is(err, ErrOutOfStock):
					if after := svc.CurrentOrder(); len(after.Items) != len(before.Items) || !after.Total.Equal(before.Total) {
						t.Fatalf("failed selection changed the order")
					}
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}

			current := svc.CurrentOrder()
			if !current.Total.Equal(sumPrices(current)) {
				t.Fatalf("running total %s != item sum %s", current.Total, sumPrices(current))
			}
			for i, entry := range catalog.Entries() {
				if entry.Stock() < 0 {
					t.Fatalf("%s stock went negative: %d", entry.Name(), entry.Stock())
				}
				if entry.Stock()+taken[i] != initial[i] {
					t.Fatalf("%s stock %d + taken %d != initial %d", entry.Name(), entry.Stock(), taken[i], initial[i])
				}
			}
		}
	})
}
