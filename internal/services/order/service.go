package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/services/menu"
)

// BillRecorder receives every finalized bill. Implementations are side
// channels; their failures never undo a finalize.
type BillRecorder interface {
	RecordBill(ctx context.Context, bill *models.Bill) error
}

// BillSequenceSource reports the highest bill sequence already issued on a
// day, so a restarted service does not reuse numbers
type BillSequenceSource interface {
	LastBillSequence(ctx context.Context, day time.Time) (int, error)
}

// Service is the ordering facade for one session: it owns the active order,
// points it at the shared catalog, and serializes every call.
type Service struct {
	mu        sync.Mutex
	catalog   *menu.Catalog
	order     *ActiveOrder
	recorders []BillRecorder
	logger    *logger.Logger
	now       func() time.Time

	billCounter  int
	lastBillDate string
}

// NewService creates a service over catalog with an empty order
func NewService(catalog *menu.Catalog, log *logger.Logger, recorders ...BillRecorder) *Service {
	return &Service{
		catalog:   catalog,
		order:     NewActiveOrder(),
		recorders: recorders,
		logger:    log,
		now:       time.Now,
	}
}

// SelectItem adds the menu entry at index to the order. It returns an error
// wrapping menu.ErrIndexOutOfRange or ErrOutOfStock; in both cases nothing
// changes.
func (s *Service) SelectItem(ctx context.Context, index int) error {
	_, err := s.SelectAndSummarize(ctx, index)
	return err
}

// SelectAndSummarize is SelectItem returning the order as it stands right
// after the add, read under the same lock
func (s *Service) SelectAndSummarize(ctx context.Context, index int) (Summary, error) {
	requestID := logger.RequestIDFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.catalog.EntryAt(index)
	if err != nil {
		s.logger.Warn("selection_rejected", "Selection index out of range", requestID, map[string]interface{}{
			"index":     index,
			"menu_size": s.catalog.Len(),
		})
		return Summary{}, err
	}

	if err := s.order.AddItem(entry); err != nil {
		s.logger.Warn("selection_rejected", fmt.Sprintf("%s is out of stock", entry.Name()), requestID, map[string]interface{}{
			"index": index,
			"item":  entry.Name(),
		})
		return Summary{}, err
	}

	s.logger.Debug("item_selected", fmt.Sprintf("Added %s to order", entry.Name()), requestID, map[string]interface{}{
		"index":           index,
		"item":            entry.Name(),
		"price":           entry.Price().String(),
		"remaining_stock": entry.Stock(),
		"order_total":     s.order.Total().String(),
	})
	return s.order.Summary(), nil
}

// FinalizeOrder captures the current order as a bill, clears the order and
// returns the captured bill. An empty order yields ErrEmptyOrder and is left
// as is.
func (s *Service) FinalizeOrder(ctx context.Context) (*models.Bill, error) {
	requestID := logger.RequestIDFromContext(ctx)

	bill, err := s.closeOrder(requestID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bill_generated", fmt.Sprintf("Generated bill %s", bill.Number), requestID, map[string]interface{}{
		"bill_number": bill.Number,
		"item_count":  bill.ItemCount(),
		"total":       bill.Total.String(),
	})

	s.record(ctx, bill, requestID)
	return bill, nil
}

// closeOrder does the capture-then-clear step under the session lock
func (s *Service) closeOrder(requestID string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.order.IsEmpty() {
		s.logger.Warn("bill_rejected", "No items in the order", requestID, nil)
		return nil, ErrEmptyOrder
	}

	summary := s.order.Summary()
	s.order.Clear()

	issuedAt := s.now().UTC()
	return &models.Bill{
		Number:   s.generateBillNumber(issuedAt),
		IssuedAt: issuedAt,
		Items:    summary.Items,
		Total:    summary.Total,
	}, nil
}

func (s *Service) record(ctx context.Context, bill *models.Bill, requestID string) {
	for _, recorder := range s.recorders {
		if err := recorder.RecordBill(ctx, bill); err != nil {
			s.logger.Error("bill_record_failed", fmt.Sprintf("Failed to record bill %s", bill.Number), requestID, err, map[string]interface{}{
				"bill_number": bill.Number,
				"recorder":    fmt.Sprintf("%T", recorder),
			})
		}
	}
}

// ClearOrder empties the order without billing it
func (s *Service) ClearOrder(ctx context.Context) {
	requestID := logger.RequestIDFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.order.Len()
	s.order.Clear()

	s.logger.Info("order_cleared", "Order cleared", requestID, map[string]interface{}{
		"dropped_items": dropped,
	})
}

// CurrentOrder returns a copy of the order as it stands
func (s *Service) CurrentOrder() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Summary()
}

// Menu returns the catalog entries in menu order
func (s *Service) Menu() []*menu.Entry {
	return s.catalog.Entries()
}

// ResumeNumbering continues today's bill numbering after the last sequence
// reported by src
func (s *Service) ResumeNumbering(ctx context.Context, src BillSequenceSource) error {
	requestID := logger.RequestIDFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().UTC()
	last, err := src.LastBillSequence(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to resume bill numbering: %w", err)
	}

	s.lastBillDate = today.Format("20060102")
	s.billCounter = last

	s.logger.Info("bill_numbering_resumed", fmt.Sprintf("Bill numbering resumes after %d", last), requestID, map[string]interface{}{
		"date":          s.lastBillDate,
		"last_sequence": last,
	})
	return nil
}

// generateBillNumber numbers bills per day, restarting at 001 when the date
// changes. Must be called with s.mu held.
func (s *Service) generateBillNumber(at time.Time) string {
	today := at.Format("20060102")
	if today != s.lastBillDate {
		s.billCounter = 0
		s.lastBillDate = today
	}

	s.billCounter++
	return models.GenerateBillNumber(at, s.billCounter)
}
