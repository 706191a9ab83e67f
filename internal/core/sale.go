package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storecore/pkg/domain"
)

// productLockMap hands out one mutex per product id. Entries are created
// lazily and never removed, trading a small unbounded growth for a lock set
// that exactly tracks the ids ever sold.
type productLockMap struct {
	m sync.Map // int64 -> *sync.Mutex
}

func (l *productLockMap) lockFor(productID int64) *sync.Mutex {
	if mu, ok := l.m.Load(productID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := l.m.LoadOrStore(productID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ProcessSale applies the requested line items as a single logical sale.
//
// Items are processed strictly in request order. For each item the
// per-product lock serializes the check-then-act sequence: re-read the
// product, validate stock, snapshot the sold line, decrement and persist.
// The lock is released before the next item, so a product id appearing twice
// in one request is handled without self-deadlock.
//
// If an item fails (unknown product or insufficient stock) the operation
// aborts and no sale is recorded, but decrements already persisted for
// earlier items are not rolled back. That gap matches the persisted-file
// contract: one write per product touched, no cross-product atomicity.
func (s *Service) ProcessSale(ctx context.Context, items []domain.SaleItemRequest) (domain.Sale, error) {
	start := time.Now()
	sale, err := s.processSale(items)
	s.observe(ctx, "process_sale", start, err)
	if err != nil {
		s.logger.Warn("sale rejected", zap.Int("items", len(items)), zap.Error(err))
		return domain.Sale{}, err
	}
	s.logger.Info("sale processed",
		zap.Int64("id", sale.ID),
		zap.Int("items", len(sale.Items)),
		zap.Int64("total", sale.Total))
	return sale, nil
}

func (s *Service) processSale(items []domain.SaleItemRequest) (domain.Sale, error) {
	if len(items) == 0 {
		return domain.Sale{}, domain.ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.Sale{}, domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}

	sold := make([]domain.SoldItem, 0, len(items))
	var total int64
	for _, item := range items {
		line, err := s.sellItem(item)
		if err != nil {
			return domain.Sale{}, err
		}
		sold = append(sold, line)
		total += line.UnitPrice * line.Quantity
	}

	sale := domain.Sale{
		SoldAt: s.nowFn(),
		Items:  sold,
		Total:  total,
	}
	return s.sales.Append(sale)
}

// sellItem performs the locked check-then-act for one line item and persists
// the stock decrement while the product lock is held.
func (s *Service) sellItem(item domain.SaleItemRequest) (domain.SoldItem, error) {
	mu := s.productLocks.lockFor(item.ProductID)
	mu.Lock()
	defer mu.Unlock()

	product, ok := s.products.FindByID(item.ProductID)
	if !ok {
		return domain.SoldItem{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: item.ProductID}
	}
	if product.Stock < item.Quantity {
		return domain.SoldItem{}, domain.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   item.Quantity,
			Available:   product.Stock,
		}
	}
	line := domain.SoldItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    item.Quantity,
	}
	product.Stock -= item.Quantity
	if _, err := s.products.Save(product); err != nil {
		return domain.SoldItem{}, err
	}
	return line, nil
}
