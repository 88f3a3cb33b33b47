package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillMessage is published on the bills exchange after an order is finalized
type BillMessage struct {
	BillNumber string          `json:"bill_number"`
	IssuedAt   time.Time       `json:"issued_at"`
	Items      []LineItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	Terminal   string          `json:"terminal"`
}

// CreateBillMessage builds the wire message for a bill
func CreateBillMessage(bill *Bill, currency, terminal string) *BillMessage {
	items := make([]LineItem, len(bill.Items))
	copy(items, bill.Items)

	return &BillMessage{
		BillNumber: bill.Number,
		IssuedAt:   bill.IssuedAt.UTC(),
		Items:      items,
		Total:      bill.Total,
		Currency:   currency,
		Terminal:   terminal,
	}
}

// Bill converts the message back into a bill
func (m *BillMessage) Bill() *Bill {
	items := make([]LineItem, len(m.Items))
	copy(items, m.Items)

	return &Bill{
		Number:   m.BillNumber,
		IssuedAt: m.IssuedAt,
		Items:    items,
		Total:    m.Total,
	}
}

// GenerateRoutingKey returns the routing key for a terminal's bills
func GenerateRoutingKey(terminal string) string {
	return "bills." + terminal
}
