package order

import (
	"errors"
	"net/http"
	"time"

	"cafe-pos/internal/display"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/services/menu"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const requestIDKey = "request_id"

// Handler exposes the ordering service over HTTP
type Handler struct {
	service     *Service
	format      display.Formatter
	logger      *logger.Logger
	serviceName string
}

// NewHandler creates a new order handler
func NewHandler(service *Service, format display.Formatter, log *logger.Logger, serviceName string) *Handler {
	return &Handler{
		service:     service,
		format:      format,
		logger:      log,
		serviceName: serviceName,
	}
}

type menuItemResponse struct {
	Index int             `json:"index"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Label string          `json:"label"`
}

type orderResponse struct {
	Items []models.LineItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Text  string            `json:"text"`
}

type billResponse struct {
	BillNumber string            `json:"bill_number"`
	IssuedAt   time.Time         `json:"issued_at"`
	Items      []models.LineItem `json:"items"`
	Total      decimal.Decimal   `json:"total"`
	Text       string            `json:"text"`
}

type selectItemRequest struct {
	Index *int `json:"index" binding:"required"`
}

// GetMenu handles GET /menu
func (h *Handler) GetMenu(c *gin.Context) {
	entries := h.service.Menu()
	items := make([]menuItemResponse, len(entries))
	for i, entry := range entries {
		stock := entry.Stock()
		items[i] = menuItemResponse{
			Index: i,
			Name:  entry.Name(),
			Price: entry.Price(),
			Stock: stock,
			Label: h.format.MenuLabel(entry.Name(), entry.Price(), stock),
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetOrder handles GET /order
func (h *Handler) GetOrder(c *gin.Context) {
	c.JSON(http.StatusOK, h.orderResponse(h.service.CurrentOrder()))
}

// AddItem handles POST /order/items
func (h *Handler) AddItem(c *gin.Context) {
	requestID := c.GetString(requestIDKey)

	var req selectItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(c, http.StatusBadRequest, "request body must be {\"index\": <menu index>}")
		return
	}

	summary, err := h.service.SelectAndSummarize(c.Request.Context(), *req.Index)
	if err != nil {
		switch {
		case errors.Is(err, menu.ErrIndexOutOfRange):
			h.writeErrorResponse(c, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrOutOfStock):
			h.writeErrorResponse(c, http.StatusConflict, err.Error())
		default:
			h.logger.Error("order_update_failed", "Failed to add item", requestID, err, nil)
			h.writeErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, h.orderResponse(summary))
}

// ClearOrder handles DELETE /order
func (h *Handler) ClearOrder(c *gin.Context) {
	h.service.ClearOrder(c.Request.Context())
	c.JSON(http.StatusOK, h.orderResponse(Summary{Total: decimal.Zero}))
}

// GenerateBill handles POST /bill
func (h *Handler) GenerateBill(c *gin.Context) {
	bill, err := h.service.FinalizeOrder(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrEmptyOrder) {
			h.writeErrorResponse(c, http.StatusConflict, "No items in the order. Please add items first.")
			return
		}
		h.logger.Error("bill_failed", "Failed to generate bill", c.GetString(requestIDKey), err, nil)
		h.writeErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, billResponse{
		BillNumber: bill.Number,
		IssuedAt:   bill.IssuedAt,
		Items:      bill.Items,
		Total:      bill.Total,
		Text:       h.format.Summary(bill.Items, bill.Total),
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.serviceName,
	})
}

func (h *Handler) orderResponse(summary Summary) orderResponse {
	items := summary.Items
	if items == nil {
		items = []models.LineItem{}
	}
	return orderResponse{
		Items: items,
		Total: summary.Total,
		Text:  h.format.Summary(summary.Items, summary.Total),
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": c.GetString(requestIDKey),
	})
}

// SetupRoutes builds the gin engine with all routes registered
func (h *Handler) SetupRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.withLogging())

	r.GET("/health", h.HealthCheck)
	r.GET("/menu", h.GetMenu)
	r.GET("/order", h.GetOrder)
	r.POST("/order/items", h.AddItem)
	r.DELETE("/order", h.ClearOrder)
	r.POST("/bill", h.GenerateBill)

	return r
}

// withLogging assigns a request id and logs the start and end of each request
func (h *Handler) withLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))

		h.logger.Debug("request_started", c.Request.Method+" "+c.Request.URL.Path, requestID, map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_addr": c.Request.RemoteAddr,
			"user_agent":  c.Request.UserAgent(),
		})

		c.Next()

		h.logger.Debug("request_completed", c.Request.Method+" "+c.Request.URL.Path, requestID, map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}
