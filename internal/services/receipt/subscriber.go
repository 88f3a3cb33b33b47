package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"cafe-pos/internal/display"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Consumer delivers raw message bodies to a handler until ctx is done
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints a receipt for every bill published on the bill bus
type Subscriber struct {
	consumer Consumer
	logger   *logger.Logger
	out      io.Writer
	fallback string

	mu sync.Mutex
}

// NewSubscriber creates a receipt printer writing to out. fallbackSymbol is
// used when a message does not name its currency.
func NewSubscriber(consumer Consumer, log *logger.Logger, out io.Writer, fallbackSymbol string) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      out,
		fallback: fallbackSymbol,
	}
}

// Start consumes bills until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Receipt printer started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.handleBill)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	s.logger.Info("graceful_shutdown", "Stopping receipt printer", requestID, nil)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}

	if err != nil {
		return fmt.Errorf("receipt consumer failed: %w", err)
	}
	return nil
}

// handleBill decodes one bill message and prints its receipt
func (s *Subscriber) handleBill(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.BillMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse bill message", requestID, err, nil)
		return fmt.Errorf("%w: %v", messaging.ErrMalformed, err)
	}
	if msg.BillNumber == "" || len(msg.Items) == 0 {
		return fmt.Errorf("%w: bill message without number or items", messaging.ErrMalformed)
	}
	if sum := msg.Bill().SumItems(); !sum.Equal(msg.Total) {
		return fmt.Errorf("%w: bill %s total %s does not match item sum %s", messaging.ErrMalformed, msg.BillNumber, msg.Total, sum)
	}

	s.logger.Debug("bill_received", "Received bill message", requestID, map[string]interface{}{
		"bill_number": msg.BillNumber,
		"terminal":    msg.Terminal,
		"item_count":  len(msg.Items),
	})

	if err := s.print(&msg); err != nil {
		return fmt.Errorf("failed to print receipt %s: %w", msg.BillNumber, err)
	}

	s.logger.Info("receipt_printed", "Receipt printed", requestID, map[string]interface{}{
		"bill_number": msg.BillNumber,
		"terminal":    msg.Terminal,
		"total":       msg.Total.String(),
	})
	return nil
}

func (s *Subscriber) print(msg *models.BillMessage) error {
	symbol := msg.Currency
	if symbol == "" {
		symbol = s.fallback
	}
	text := display.NewFormatter(symbol).Receipt(msg.Bill())

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Terminal != "" {
		if _, err := fmt.Fprintf(s.out, "Terminal %s\n", msg.Terminal); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(s.out, "%s\n\n", text)
	return err
}
