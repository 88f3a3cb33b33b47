package receipt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latteBill = `{
	"bill_number": "BILL_20261019_001",
	"issued_at": "2026-10-19T09:29:00Z",
	"items": [{"name": "Latte", "price": "180"}, {"name": "Muffin", "price": "90.5"}],
	"total": "270.5",
	"currency": "₹",
	"terminal": "counter-1"
}`

// fakeConsumer hands each body to the handler once and then reports
// cancellation
type fakeConsumer struct {
	bodies  []string
	results []error
	closed  bool
	err     error
}

func (c *fakeConsumer) StartConsuming(ctx context.Context, handler messaging.MessageHandler) error {
	for _, body := range c.bodies {
		c.results = append(c.results, handler(ctx, []byte(body)))
	}
	if c.err != nil {
		return c.err
	}
	return context.Canceled
}

func (c *fakeConsumer) Close() error {
	c.closed = true
	return nil
}

func TestSubscriber_PrintsReceipt(t *testing.T) {
	var out bytes.Buffer
	consumer := &fakeConsumer{bodies: []string{latteBill}}
	sub := NewSubscriber(consumer, logger.Nop(), &out, "$")

	require.NoError(t, sub.Start(context.Background()))
	require.Equal(t, []error{nil}, consumer.results)
	assert.True(t, consumer.closed)

	want := "Terminal counter-1\n" +
		"Bill BILL_20261019_001\n" +
		"Issued 2026-10-19 09:29:00\n" +
		"------------------------\n" +
		"Latte - ₹180\n" +
		"Muffin - ₹90.5\n" +
		"Total: ₹270.5\n\n"
	assert.Equal(t, want, out.String())
}

func TestSubscriber_FallbackCurrency(t *testing.T) {
	var out bytes.Buffer
	sub := NewSubscriber(&fakeConsumer{}, logger.Nop(), &out, "$")

	body := `{"bill_number":"BILL_20261019_002","issued_at":"2026-10-19T10:00:00Z","items":[{"name":"Espresso","price":"100"}],"total":"100"}`
	require.NoError(t, sub.handleBill(context.Background(), []byte(body)))

	assert.Contains(t, out.String(), "Espresso - $100\nTotal: $100")
	assert.NotContains(t, out.String(), "Terminal")
}

func TestSubscriber_MalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `bill please`},
		{name: "missing number", body: `{"items":[{"name":"Latte","price":"180"}],"total":"180"}`},
		{name: "total does not match items", body: `{"bill_number":"BILL_20261019_004","items":[{"name":"Latte","price":"180"}],"total":"200"}`},
		{name: "no items", body: `{"bill_number":"BILL_20261019_003","items":[],"total":"0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			sub := NewSubscriber(&fakeConsumer{}, logger.Nop(), &out, "₹")

			err := sub.handleBill(context.Background(), []byte(tt.body))
			assert.True(t, errors.Is(err, messaging.ErrMalformed))
			assert.Empty(t, out.String())
		})
	}
}

func TestSubscriber_ConsumerFailure(t *testing.T) {
	consumer := &fakeConsumer{err: errors.New("connection refused")}
	sub := NewSubscriber(consumer, logger.Nop(), &bytes.Buffer{}, "₹")

	err := sub.Start(context.Background())
	assert.ErrorContains(t, err, "receipt consumer failed")
	assert.True(t, consumer.closed)
}
