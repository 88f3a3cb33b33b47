package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

var (
	// ErrRecorderQueueFull is returned when bills arrive faster than the
	// recorders drain them
	ErrRecorderQueueFull = errors.New("bill recorder queue is full")
	// ErrRecorderQueueClosed is returned for bills handed over after Close
	ErrRecorderQueueClosed = errors.New("bill recorder queue is closed")
)

const defaultRecordTimeout = 15 * time.Second

type queuedBill struct {
	bill      *models.Bill
	requestID string
}

// RecorderQueue is a BillRecorder that only enqueues. Run delivers the
// queued bills to the wrapped recorders in a background goroutine, so
// finalizing an order never waits on a database or broker.
type RecorderQueue struct {
	mu        sync.RWMutex
	closed    bool
	pending   chan queuedBill
	recorders []BillRecorder
	logger    *logger.Logger
	timeout   time.Duration
}

// NewRecorderQueue creates a queue holding up to size undelivered bills
func NewRecorderQueue(log *logger.Logger, size int, recorders ...BillRecorder) *RecorderQueue {
	return &RecorderQueue{
		pending:   make(chan queuedBill, size),
		recorders: recorders,
		logger:    log,
		timeout:   defaultRecordTimeout,
	}
}

// RecordBill enqueues bill without blocking
func (q *RecorderQueue) RecordBill(ctx context.Context, bill *models.Bill) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrRecorderQueueClosed
	}

	select {
	case q.pending <- queuedBill{bill: bill, requestID: logger.RequestIDFromContext(ctx)}:
		return nil
	default:
		return ErrRecorderQueueFull
	}
}

// Run delivers queued bills until Close is called and the queue is drained.
// Each delivery gets its own timeout and survives cancellation of ctx, so
// bills accepted before shutdown are still written.
func (q *RecorderQueue) Run(ctx context.Context) error {
	for item := range q.pending {
		q.deliver(ctx, item)
	}
	return nil
}

func (q *RecorderQueue) deliver(ctx context.Context, item queuedBill) {
	for _, recorder := range q.recorders {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		recordCtx = logger.WithRequestID(recordCtx, item.requestID)

		err := recorder.RecordBill(recordCtx, item.bill)
		cancel()

		if err != nil {
			q.logger.Error("bill_record_failed", fmt.Sprintf("Failed to record bill %s", item.bill.Number), item.requestID, err, map[string]interface{}{
				"bill_number": item.bill.Number,
				"recorder":    fmt.Sprintf("%T", recorder),
			})
			continue
		}

		q.logger.Debug("bill_recorded", fmt.Sprintf("Recorded bill %s", item.bill.Number), item.requestID, map[string]interface{}{
			"bill_number": item.bill.Number,
			"recorder":    fmt.Sprintf("%T", recorder),
		})
	}
}

// Close stops accepting bills; Run returns once the backlog is delivered
func (q *RecorderQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.pending)
	}
}
