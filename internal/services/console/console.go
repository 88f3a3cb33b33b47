// Package console is a line-oriented text front end for the ordering
// service. Menu numbers shown to the operator are 1-based.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cafe-pos/internal/display"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/services/menu"
	"cafe-pos/internal/services/order"
)

const helpText = `Commands:
  menu        show the menu with stock
  add <n>     add menu item number n to the order
  order       show the current order
  clear       empty the current order
  bill        generate the bill and start a new order
  help        show this help
  quit        leave the console`

// Console reads commands from in and writes results to out
type Console struct {
	service *order.Service
	format  display.Formatter
	logger  *logger.Logger
	in      io.Reader
	out     io.Writer
}

// New creates a console over service
func New(service *order.Service, format display.Formatter, log *logger.Logger, in io.Reader, out io.Writer) *Console {
	return &Console{
		service: service,
		format:  format,
		logger:  log,
		in:      in,
		out:     out,
	}
}

// Run processes commands until quit, end of input or ctx cancellation
func (c *Console) Run(ctx context.Context) error {
	sessionID := logger.GenerateRequestID()
	ctx = logger.WithRequestID(ctx, sessionID)
	c.logger.Info("console_started", "Console session started", sessionID, nil)

	scanner := bufio.NewScanner(c.in)
	c.showMenu()
	c.prompt()

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		quit := c.dispatch(ctx, strings.Fields(scanner.Text()))
		if quit {
			c.println("Goodbye.")
			break
		}
		c.prompt()
	}

	c.logger.Info("console_stopped", "Console session ended", sessionID, nil)
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read console input: %w", err)
	}
	return nil
}

// dispatch executes one command line and reports whether to stop
func (c *Console) dispatch(ctx context.Context, fields []string) bool {
	if len(fields) == 0 {
		return false
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "menu":
		c.showMenu()
	case "add":
		c.add(ctx, fields[1:])
	case "order":
		c.showOrder()
	case "clear":
		c.service.ClearOrder(ctx)
		c.println("Order cleared.")
		c.showOrder()
	case "bill":
		c.bill(ctx)
	case "help":
		c.println(helpText)
	case "quit", "exit":
		return true
	default:
		c.warn(fmt.Sprintf("Unknown command %q. Type help for the list of commands.", cmd))
	}
	return false
}

func (c *Console) add(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.warn("Usage: add <item number>")
		return
	}

	number, err := strconv.Atoi(args[0])
	if err != nil {
		c.warn(fmt.Sprintf("%q is not an item number.", args[0]))
		return
	}

	summary, err := c.service.SelectAndSummarize(ctx, number-1)
	switch {
	case errors.Is(err, menu.ErrIndexOutOfRange):
		c.warn(fmt.Sprintf("There is no item %d on the menu.", number))
		return
	case errors.Is(err, order.ErrOutOfStock):
		c.warn(fmt.Sprintf("%s is out of stock.", c.service.Menu()[number-1].Name()))
		return
	case err != nil:
		c.warn(err.Error())
		return
	}

	c.println(c.format.Summary(summary.Items, summary.Total))
}

func (c *Console) bill(ctx context.Context) {
	bill, err := c.service.FinalizeOrder(ctx)
	if errors.Is(err, order.ErrEmptyOrder) {
		c.warn("No items in the order. Please add items first.")
		return
	}
	if err != nil {
		c.warn(err.Error())
		return
	}

	c.println(c.format.Receipt(bill))
	c.println("")
	c.showOrder()
}

func (c *Console) showMenu() {
	for i, entry := range c.service.Menu() {
		c.println(fmt.Sprintf("%d. %s", i+1, c.format.MenuLabel(entry.Name(), entry.Price(), entry.Stock())))
	}
}

func (c *Console) showOrder() {
	current := c.service.CurrentOrder()
	c.println(c.format.Summary(current.Items, current.Total))
}

func (c *Console) warn(message string) {
	c.println("Warning: " + message)
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *Console) println(line string) {
	fmt.Fprintln(c.out, line)
}
