package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one selected menu entry as it appears on an order or bill
type LineItem struct {
	Name  string          `json:"name" db:"name"`
	Price decimal.Decimal `json:"price" db:"price"`
}

// Bill is a finalized order
type Bill struct {
	ID       int             `json:"id,omitempty" db:"id"`
	Number   string          `json:"bill_number" db:"number"`
	IssuedAt time.Time       `json:"issued_at" db:"issued_at"`
	Items    []LineItem      `json:"items"`
	Total    decimal.Decimal `json:"total" db:"total_amount"`
}

// ItemCount returns the number of line items on the bill
func (b *Bill) ItemCount() int {
	return len(b.Items)
}

// SumItems adds up the line prices; for a well-formed bill it equals Total
func (b *Bill) SumItems() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range b.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

// BillNumberPrefix is the part of a bill number shared by every bill of a day
func BillNumberPrefix(date time.Time) string {
	return "BILL_" + date.Format("20060102") + "_"
}

// GenerateBillNumber formats a bill number as BILL_YYYYMMDD_NNN
func GenerateBillNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("%s%03d", BillNumberPrefix(date), sequence)
}
