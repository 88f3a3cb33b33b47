package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/services/menu"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecorder captures bills and can be told to fail
type fakeRecorder struct {
	mu    sync.Mutex
	bills []*models.Bill
	err   error
}

func (r *fakeRecorder) RecordBill(ctx context.Context, bill *models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills = append(r.bills, bill)
	return r.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_EspressoAndCroissant(t *testing.T) {
	catalog := menu.MustNew([]menu.Item{
		{Name: "Espresso", Price: decimal.NewFromInt(100), Stock: 1},
		{Name: "Croissant", Price: decimal.NewFromInt(80), Stock: 15},
	})
	svc := NewService(catalog, logger.Nop())
	ctx := context.Background()

	require.NoError(t, svc.SelectItem(ctx, 0))
	require.NoError(t, svc.SelectItem(ctx, 1))

	want := []models.LineItem{
		{Name: "Espresso", Price: decimal.NewFromInt(100)},
		{Name: "Croissant", Price: decimal.NewFromInt(80)},
	}
	current := svc.CurrentOrder()
	assert.Equal(t, want, current.Items)
	assert.True(t, current.Total.Equal(decimal.NewFromInt(180)))

	bill, err := svc.FinalizeOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, bill.Items)
	assert.True(t, bill.Total.Equal(decimal.NewFromInt(180)))

	after := svc.CurrentOrder()
	assert.True(t, after.IsEmpty())
	assert.True(t, after.Total.IsZero())

	entries := svc.Menu()
	assert.Equal(t, 0, entries[0].Stock())
	assert.Equal(t, 14, entries[1].Stock())
}

func TestService_SelectIndexOutOfRange(t *testing.T) {
	svc := NewService(menu.Default(), logger.Nop())

	err := svc.SelectItem(context.Background(), 99)
	assert.True(t, errors.Is(err, menu.ErrIndexOutOfRange))

	assert.True(t, svc.CurrentOrder().IsEmpty())
	for i, item := range menu.DefaultItems() {
		assert.Equal(t, item.Stock, svc.Menu()[i].Stock(), item.Name)
	}
}

func TestService_SelectOutOfStock(t *testing.T) {
	catalog := menu.MustNew([]menu.Item{{Name: "Espresso", Price: decimal.NewFromInt(100), Stock: 10}})
	svc := NewService(catalog, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.SelectItem(ctx, 0))
	}
	err := svc.SelectItem(ctx, 0)
	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.True(t, svc.CurrentOrder().Total.Equal(decimal.NewFromInt(1000)))
}

func TestService_FinalizeEmptyOrder(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := NewService(menu.Default(), logger.Nop(), recorder)

	bill, err := svc.FinalizeOrder(context.Background())
	assert.Nil(t, bill)
	assert.True(t, errors.Is(err, ErrEmptyOrder))

	assert.True(t, svc.CurrentOrder().IsEmpty())
	assert.Empty(t, recorder.bills)
	for i, item := range menu.DefaultItems() {
		assert.Equal(t, item.Stock, svc.Menu()[i].Stock(), item.Name)
	}
}

func TestService_FinalizeRecordsBill(t *testing.T) {
	first, second := &fakeRecorder{}, &fakeRecorder{}
	svc := NewService(menu.Default(), logger.Nop(), first, second)
	ctx := context.Background()

	require.NoError(t, svc.SelectItem(ctx, 2))
	bill, err := svc.FinalizeOrder(ctx)
	require.NoError(t, err)

	require.Len(t, first.bills, 1)
	require.Len(t, second.bills, 1)
	assert.Same(t, bill, first.bills[0])
	assert.Equal(t, bill.Number, second.bills[0].Number)
}

func TestService_RecorderFailureDoesNotFailFinalize(t *testing.T) {
	failing := &fakeRecorder{err: errors.New("ledger unavailable")}
	healthy := &fakeRecorder{}
	svc := NewService(menu.Default(), logger.Nop(), failing, healthy)
	ctx := context.Background()

	require.NoError(t, svc.SelectItem(ctx, 0))
	bill, err := svc.FinalizeOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, bill)

	assert.Len(t, healthy.bills, 1)
	assert.True(t, svc.CurrentOrder().IsEmpty())
}

func TestService_ClearOrderKeepsStockTaken(t *testing.T) {
	svc := NewService(menu.Default(), logger.Nop())
	ctx := context.Background()

	require.NoError(t, svc.SelectItem(ctx, 1))
	require.NoError(t, svc.SelectItem(ctx, 1))
	svc.ClearOrder(ctx)
	svc.ClearOrder(ctx)

	assert.True(t, svc.CurrentOrder().IsEmpty())
	assert.Equal(t, 6, svc.Menu()[1].Stock())

	_, err := svc.FinalizeOrder(ctx)
	assert.True(t, errors.Is(err, ErrEmptyOrder))
}

func TestService_BillNumbering(t *testing.T) {
	svc := NewService(menu.Default(), logger.Nop())
	ctx := context.Background()

	day1 := time.Date(2026, 10, 19, 23, 58, 0, 0, time.UTC)
	day2 := day1.Add(5 * time.Minute)

	finalize := func(at time.Time) string {
		svc.now = fixedClock(at)
		require.NoError(t, svc.SelectItem(ctx, 4))
		bill, err := svc.FinalizeOrder(ctx)
		require.NoError(t, err)
		assert.Equal(t, at, bill.IssuedAt)
		return bill.Number
	}

	assert.Equal(t, "BILL_20261019_001", finalize(day1))
	assert.Equal(t, "BILL_20261019_002", finalize(day1))
	assert.Equal(t, "BILL_20261020_001", finalize(day2))
}

func TestService_ConcurrentSelectionsRespectStock(t *testing.T) {
	catalog := menu.MustNew([]menu.Item{{Name: "Latte", Price: decimal.NewFromInt(180), Stock: 5}})
	svc := NewService(catalog, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.SelectItem(ctx, 0)
		}()
	}
	wg.Wait()

	current := svc.CurrentOrder()
	assert.Len(t, current.Items, 5)
	assert.True(t, current.Total.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, 0, svc.Menu()[0].Stock())
}

type fakeSequenceSource struct {
	last int
	err  error
	day  time.Time
}

func (f *fakeSequenceSource) LastBillSequence(ctx context.Context, day time.Time) (int, error) {
	f.day = day
	return f.last, f.err
}

func TestService_ResumeNumberingAfterRestart(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	src := &fakeSequenceSource{last: 7}
	svc := NewService(menu.Default(), logger.Nop())
	svc.now = fixedClock(now)
	ctx := context.Background()

	require.NoError(t, svc.ResumeNumbering(ctx, src))
	assert.Equal(t, now, src.day)

	require.NoError(t, svc.SelectItem(ctx, 0))
	bill, err := svc.FinalizeOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BILL_20261019_008", bill.Number)

	svc.now = fixedClock(now.Add(24 * time.Hour))
	require.NoError(t, svc.SelectItem(ctx, 0))
	bill, err = svc.FinalizeOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BILL_20261020_001", bill.Number)
}

func TestService_ResumeNumberingFailure(t *testing.T) {
	svc := NewService(menu.Default(), logger.Nop())
	svc.now = fixedClock(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	err := svc.ResumeNumbering(ctx, &fakeSequenceSource{err: errors.New("connection refused")})
	assert.ErrorContains(t, err, "failed to resume bill numbering")

	require.NoError(t, svc.SelectItem(ctx, 0))
	bill, err := svc.FinalizeOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BILL_20261019_001", bill.Number)
}

func TestService_SelectAndSummarizeReturnsOrderAfterAdd(t *testing.T) {
	catalog := menu.MustNew([]menu.Item{
		{Name: "Espresso", Price: decimal.NewFromInt(100), Stock: 1},
		{Name: "Croissant", Price: decimal.NewFromInt(80), Stock: 15},
	})
	svc := NewService(catalog, logger.Nop())
	ctx := context.Background()

	summary, err := svc.SelectAndSummarize(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)

	summary, err = svc.SelectAndSummarize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.LineItem{
		{Name: "Espresso", Price: decimal.NewFromInt(100)},
		{Name: "Croissant", Price: decimal.NewFromInt(80)},
	}, summary.Items)
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(180)))

	summary, err = svc.SelectAndSummarize(ctx, 0)
	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.True(t, summary.IsEmpty())
}

func TestService_SelectAndSummarizeConcurrentReplies(t *testing.T) {
	catalog := menu.MustNew([]menu.Item{{Name: "Croissant", Price: decimal.NewFromInt(80), Stock: 100}})
	svc := NewService(catalog, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	sizes := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := svc.SelectAndSummarize(ctx, 0)
			if assert.NoError(t, err) {
				assert.True(t, summary.Total.Equal(decimal.NewFromInt(int64(80*len(summary.Items)))))
				sizes <- len(summary.Items)
			}
		}()
	}
	wg.Wait()
	close(sizes)

	// every reply reflects its own add, so each order length is seen once
	seen := make(map[int]bool)
	for n := range sizes {
		assert.False(t, seen[n], "order length %d returned twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, 20)
}
