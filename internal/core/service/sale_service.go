package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/retail-pos/internal/core/domain"
	"github.com/rl1809/retail-pos/internal/port"
)

// SaleService coordinates catalog lookup, stock decrement and sale
// persistence into one atomic sale-creation operation. Decrements are
// applied line by line; any failure compensates every decrement already
// applied for the same request before the error is returned.
type SaleService struct {
	catalog  port.Catalog
	ledger   port.InventoryLedger
	sales    port.SaleRepository
	receipts ReceiptGenerator
	events   port.EventPublisher
	logger   *zap.Logger
}

func NewSaleService(
	catalog port.Catalog,
	ledger port.InventoryLedger,
	sales port.SaleRepository,
	receipts ReceiptGenerator,
	events port.EventPublisher,
	logger *zap.Logger,
) *SaleService {
	return &SaleService{
		catalog:  catalog,
		ledger:   ledger,
		sales:    sales,
		receipts: receipts,
		events:   events,
		logger:   logger,
	}
}

// appliedDecrement remembers one successful ledger decrement so it can be
// compensated if a later line fails.
type appliedDecrement struct {
	productID string
	quantity  int
}

// CreateSale validates the request, decrements stock for every line,
// computes totals and persists the finished transaction. On any failure
// all decrements applied for this request are restored first.
func (s *SaleService) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleTransaction, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptySale
	}

	receiptID := req.ReceiptID
	if receiptID == "" {
		receiptID = s.receipts.Generate()
	} else {
		exists, err := s.sales.ReceiptExists(ctx, receiptID)
		if err != nil {
			return nil, fmt.Errorf("receipt uniqueness check: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateReceipt, receiptID)
		}
	}

	var applied []appliedDecrement
	lines := make([]domain.SaleLine, 0, len(req.Items))
	var total int64

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			s.rollback(ctx, applied)
			return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, item.Quantity)
		}

		product, err := s.resolveProduct(ctx, item.Ref)
		if err != nil {
			s.rollback(ctx, applied)
			return nil, err
		}

		unitPrice := product.PriceCents
		if item.UnitPriceOverride != nil {
			unitPrice = *item.UnitPriceOverride
		}

		lineValue := unitPrice * int64(item.Quantity)
		if item.DiscountCents < 0 || item.DiscountCents > lineValue {
			s.rollback(ctx, applied)
			return nil, fmt.Errorf("%w: discount %d on line value %d",
				domain.ErrInvalidDiscount, item.DiscountCents, lineValue)
		}

		if _, err := s.ledger.ReserveAndDecrement(ctx, product.ID, item.Quantity); err != nil {
			s.rollback(ctx, applied)
			return nil, err
		}
		applied = append(applied, appliedDecrement{productID: product.ID, quantity: item.Quantity})

		subtotal := lineValue - item.DiscountCents
		lines = append(lines, domain.SaleLine{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: unitPrice,
			DiscountCents:  item.DiscountCents,
			SubtotalCents:  subtotal,
		})
		total += subtotal
	}

	sale := &domain.SaleTransaction{
		ID:            uuid.New().String(),
		ReceiptID:     receiptID,
		CustomerName:  req.CustomerName,
		CashierName:   req.CashierName,
		PaymentMethod: req.PaymentMethod,
		Lines:         lines,
		TotalCents:    total,
		CreatedAt:     time.Now(),
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		s.rollback(ctx, applied)
		return nil, fmt.Errorf("persist sale: %w", err)
	}

	if err := s.events.PublishSaleRecorded(ctx, sale); err != nil {
		s.logger.Warn("failed to publish sale event",
			zap.String("sale_id", sale.ID), zap.Error(err))
	}

	s.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("receipt_id", sale.ReceiptID),
		zap.Int("lines", len(sale.Lines)),
		zap.Int64("total_cents", sale.TotalCents))

	return sale, nil
}

// SaleByID returns a recorded sale, or (nil, nil) when it does not exist.
func (s *SaleService) SaleByID(ctx context.Context, id string) (*domain.SaleTransaction, error) {
	return s.sales.ByID(ctx, id)
}

// SaleByReceipt returns the sale carrying the receipt id, or (nil, nil).
func (s *SaleService) SaleByReceipt(ctx context.Context, receiptID string) (*domain.SaleTransaction, error) {
	return s.sales.ByReceipt(ctx, receiptID)
}

// SalesBetween returns sales created in [from, to].
func (s *SaleService) SalesBetween(ctx context.Context, from, to time.Time) ([]domain.SaleTransaction, error) {
	return s.sales.Between(ctx, from, to)
}

// SalesByCustomer returns sales for the given customer name.
func (s *SaleService) SalesByCustomer(ctx context.Context, customerName string) ([]domain.SaleTransaction, error) {
	return s.sales.ByCustomer(ctx, customerName)
}

// SalesByCashier returns sales recorded by the given cashier.
func (s *SaleService) SalesByCashier(ctx context.Context, cashierName string) ([]domain.SaleTransaction, error) {
	return s.sales.ByCashier(ctx, cashierName)
}

func (s *SaleService) resolveProduct(ctx context.Context, ref domain.ProductRef) (*domain.Product, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: sale line has no product reference", domain.ErrProductNotFound)
	}
	if ref.ProductID != "" {
		return s.catalog.ProductByID(ctx, ref.ProductID)
	}
	return s.catalog.ProductByBarcode(ctx, ref.Barcode)
}

// rollback restores every decrement applied so far, newest first. Restore
// failures are logged and do not stop the remaining restores.
func (s *SaleService) rollback(ctx context.Context, applied []appliedDecrement) {
	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i]
		if err := s.ledger.Restore(ctx, d.productID, d.quantity); err != nil {
			s.logger.Error("stock restore failed during rollback",
				zap.String("product_id", d.productID),
				zap.Int("quantity", d.quantity),
				zap.Error(err))
		}
	}
}
