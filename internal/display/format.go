// Package display renders menu lines, order summaries and bills as text.
// Currency is a literal symbol placed in front of the amount; nothing here
// is locale aware.
package display

import (
	"fmt"
	"strings"

	"cafe-pos/internal/models"

	"github.com/shopspring/decimal"
)

const DefaultCurrencySymbol = "₹"

type Formatter struct {
	Symbol string
}

func NewFormatter(symbol string) Formatter {
	return Formatter{Symbol: symbol}
}

// Amount prefixes the currency symbol
func (f Formatter) Amount(d decimal.Decimal) string {
	return f.Symbol + d.String()
}

// MenuLabel renders a menu line with its live stock count
func (f Formatter) MenuLabel(name string, price decimal.Decimal, stock int) string {
	return fmt.Sprintf("%s - %s (Stock: %d)", name, f.Amount(price), stock)
}

// Line renders one selected item
func (f Formatter) Line(item models.LineItem) string {
	return fmt.Sprintf("%s - %s", item.Name, f.Amount(item.Price))
}

// Summary renders the items in order followed by the total line
func (f Formatter) Summary(items []models.LineItem, total decimal.Decimal) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(f.Line(item))
		b.WriteByte('\n')
	}
	b.WriteString("Total: ")
	b.WriteString(f.Amount(total))
	return b.String()
}

// Receipt renders a bill with a header carrying its number and issue time
func (f Formatter) Receipt(bill *models.Bill) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bill %s\n", bill.Number)
	fmt.Fprintf(&b, "Issued %s\n", bill.IssuedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("-", 24))
	b.WriteByte('\n')
	b.WriteString(f.Summary(bill.Items, bill.Total))
	return b.String()
}
