package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/core/domain"
	"github.com/rl1809/retail-pos/internal/core/service"
)

type HTTPHandler struct {
	sales     *service.SaleService
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewHTTPHandler(sales *service.SaleService, inventory *service.InventoryService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{sales: sales, inventory: inventory, logger: logger}
}

// Register mounts all routes on the router.
func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/v1")
	api.POST("/sales", h.CreateSale)
	api.GET("/sales/:id", h.SaleByID)
	api.GET("/sales", h.ListSales)
	api.GET("/inventory/low-stock", h.LowStock)
	api.GET("/inventory/:productId", h.InventoryByProduct)
	api.GET("/inventory", h.InventoryByLocation)
	api.POST("/inventory", h.TrackInventory)
	api.POST("/inventory/:productId/restock", h.Restock)
}

type saleLineRequest struct {
	ProductID         string `json:"product_id"`
	Barcode           string `json:"barcode"`
	Quantity          int    `json:"quantity" binding:"required"`
	UnitPriceOverride *int64 `json:"unit_price_cents,omitempty"`
	DiscountCents     int64  `json:"discount_cents"`
}

type createSaleRequest struct {
	CustomerName  string            `json:"customer_name"`
	CashierName   string            `json:"cashier_name"`
	PaymentMethod string            `json:"payment_method"`
	ReceiptID     string            `json:"receipt_id"`
	Items         []saleLineRequest `json:"items" binding:"required"`
}

type saleLineResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type saleResponse struct {
	ID            string             `json:"id"`
	ReceiptID     string             `json:"receipt_id"`
	CustomerName  string             `json:"customer_name,omitempty"`
	CashierName   string             `json:"cashier_name,omitempty"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Lines         []saleLineResponse `json:"lines"`
	TotalCents    int64              `json:"total_cents"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toSaleResponse(sale *domain.SaleTransaction) saleResponse {
	resp := saleResponse{
		ID:            sale.ID,
		ReceiptID:     sale.ReceiptID,
		CustomerName:  sale.CustomerName,
		CashierName:   sale.CashierName,
		PaymentMethod: sale.PaymentMethod,
		TotalCents:    sale.TotalCents,
		CreatedAt:     sale.CreatedAt,
	}
	for _, line := range sale.Lines {
		resp.Lines = append(resp.Lines, saleLineResponse(line))
	}
	return resp
}

func (h *HTTPHandler) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saleReq := domain.SaleRequest{
		CustomerName:  req.CustomerName,
		CashierName:   req.CashierName,
		PaymentMethod: req.PaymentMethod,
		ReceiptID:     req.ReceiptID,
	}
	for _, item := range req.Items {
		saleReq.Items = append(saleReq.Items, domain.SaleRequestItem{
			Ref:               domain.ProductRef{ProductID: item.ProductID, Barcode: item.Barcode},
			Quantity:          item.Quantity,
			UnitPriceOverride: item.UnitPriceOverride,
			DiscountCents:     item.DiscountCents,
		})
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), saleReq)
	if err != nil {
		h.writeSaleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSaleResponse(sale))
}

func (h *HTTPHandler) writeSaleError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "insufficient stock",
			"product_id": insufficient.ProductID,
			"available":  insufficient.Available,
			"requested":  insufficient.Requested,
		})
	case errors.Is(err, domain.ErrEmptySale),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDiscount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInventoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateReceipt):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("sale creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *HTTPHandler) SaleByID(c *gin.Context) {
	sale, err := h.sales.SaleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("sale lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if sale == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
		return
	}
	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// ListSales serves receipt, customer, cashier and date-range queries off
// one endpoint; exactly one filter must be supplied.
func (h *HTTPHandler) ListSales(c *gin.Context) {
	ctx := c.Request.Context()

	if receipt := c.Query("receipt"); receipt != "" {
		sale, err := h.sales.SaleByReceipt(ctx, receipt)
		if err != nil {
			h.logger.Error("sale lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if sale == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
			return
		}
		c.JSON(http.StatusOK, []saleResponse{toSaleResponse(sale)})
		return
	}

	var (
		sales []domain.SaleTransaction
		err   error
	)
	switch {
	case c.Query("customer") != "":
		sales, err = h.sales.SalesByCustomer(ctx, c.Query("customer"))
	case c.Query("cashier") != "":
		sales, err = h.sales.SalesByCashier(ctx, c.Query("cashier"))
	case c.Query("from") != "" && c.Query("to") != "":
		var from, to time.Time
		from, err = time.Parse(time.RFC3339, c.Query("from"))
		if err == nil {
			to, err = time.Parse(time.RFC3339, c.Query("to"))
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from/to must be RFC3339 timestamps"})
			return
		}
		sales, err = h.sales.SalesBetween(ctx, from, to)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of receipt, customer, cashier or from/to is required"})
		return
	}
	if err != nil {
		h.logger.Error("sale query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for i := range sales {
		resp = append(resp, toSaleResponse(&sales[i]))
	}
	c.JSON(http.StatusOK, resp)
}

type trackInventoryRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity"`
	MinimumStock int    `json:"minimum_stock"`
	MaximumStock int    `json:"maximum_stock"`
	Location     string `json:"location"`
}

func (h *HTTPHandler) TrackInventory(c *gin.Context) {
	var req trackInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.inventory.Track(c.Request.Context(), domain.InventoryRecord{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		MinimumStock: req.MinimumStock,
		MaximumStock: req.MaximumStock,
		Location:     req.Location,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *HTTPHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.inventory.Restock(c.Request.Context(), c.Param("productId"), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrInventoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrConcurrencyConflict):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			h.logger.Error("restock failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(*rec))
}

type inventoryResponse struct {
	ProductID       string    `json:"product_id"`
	Quantity        int       `json:"quantity"`
	MinimumStock    int       `json:"minimum_stock"`
	MaximumStock    int       `json:"maximum_stock"`
	LastRestockedAt time.Time `json:"last_restocked_at,omitempty"`
	Location        string    `json:"location,omitempty"`
}

func toInventoryResponse(rec domain.InventoryRecord) inventoryResponse {
	return inventoryResponse{
		ProductID:       rec.ProductID,
		Quantity:        rec.Quantity,
		MinimumStock:    rec.MinimumStock,
		MaximumStock:    rec.MaximumStock,
		LastRestockedAt: rec.LastRestockedAt,
		Location:        rec.Location,
	}
}

func (h *HTTPHandler) InventoryByProduct(c *gin.Context) {
	rec, err := h.inventory.ByProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		if errors.Is(err, domain.ErrInventoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("inventory lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, toInventoryResponse(*rec))
}

func (h *HTTPHandler) LowStock(c *gin.Context) {
	records, err := h.inventory.LowStock(c.Request.Context())
	if err != nil {
		h.logger.Error("low stock query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	resp := make([]inventoryResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toInventoryResponse(rec))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) InventoryByLocation(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}
	records, err := h.inventory.ByLocation(c.Request.Context(), location)
	if err != nil {
		h.logger.Error("inventory query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	resp := make([]inventoryResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toInventoryResponse(rec))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
