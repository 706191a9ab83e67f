package core

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"storecore/pkg/domain"
)

// Limits applied to inbound product fields, mirroring the request contract
// of the HTTP layer.
const (
	maxNameLen        = 100
	maxDescriptionLen = 250
)

var nameRE = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// Service exposes the catalog and sale operations consumed by the HTTP
// layer. It assumes all inbound calls are already authorized.
type Service struct {
	products *ProductRepository
	sales    *SaleRepository

	// One mutex per distinct product id ever sold, created lazily and
	// never removed.
	productLocks productLockMap

	logger  *zap.Logger
	metrics MetricsRecorder
	nowFn   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger installs a structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs an operation metrics recorder.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithClock overrides the sale timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service over the supplied repositories.
func NewService(products *ProductRepository, sales *SaleRepository, opts ...Option) *Service {
	s := &Service{
		products: products,
		sales:    sales,
		logger:   zap.NewNop(),
		metrics:  NoopMetricsRecorder{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns the whole catalog.
func (s *Service) ListProducts(ctx context.Context) []domain.Product {
	defer s.observe(ctx, "list_products", time.Now(), nil)
	return s.products.FindAll()
}

// GetProduct returns the product with the given id.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	start := time.Now()
	p, ok := s.products.FindByID(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		s.observe(ctx, "get_product", start, err)
		return domain.Product{}, err
	}
	s.observe(ctx, "get_product", start, nil)
	return p, nil
}

// CreateProduct validates and persists a new product. Any id on the input is
// discarded; the repository assigns one.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	start := time.Now()
	if err := validateProduct(product); err != nil {
		s.observe(ctx, "create_product", start, err)
		return domain.Product{}, err
	}
	product.ID = 0
	created, err := s.products.Save(product)
	s.observe(ctx, "create_product", start, err)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created",
		zap.Int64("id", created.ID),
		zap.String("name", created.Name),
		zap.Int64("price", created.Price),
		zap.Int64("stock", created.Stock))
	return created, nil
}

// DeleteProduct removes a product. Deleting an unknown id is a no-op.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.products.DeleteByID(id)
	s.observe(ctx, "delete_product", start, err)
	if err == nil {
		s.logger.Info("product deleted", zap.Int64("id", id))
	}
	return err
}

// ChangePrice sets a new positive price on an existing product.
func (s *Service) ChangePrice(ctx context.Context, id, newPrice int64) (domain.Product, error) {
	start := time.Now()
	if newPrice <= 0 {
		err := domain.ValidationError{Field: "new_price", Reason: "must be positive"}
		s.observe(ctx, "change_price", start, err)
		return domain.Product{}, err
	}
	p, ok := s.products.FindByID(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		s.observe(ctx, "change_price", start, err)
		return domain.Product{}, err
	}
	old := p.Price
	p.Price = newPrice
	updated, err := s.products.Save(p)
	s.observe(ctx, "change_price", start, err)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product price changed",
		zap.Int64("id", id),
		zap.Int64("old_price", old),
		zap.Int64("new_price", newPrice))
	return updated, nil
}

// SetProductImage records the stored image URL on an existing product.
func (s *Service) SetProductImage(ctx context.Context, id int64, imageURL string) (domain.Product, error) {
	start := time.Now()
	p, ok := s.products.FindByID(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		s.observe(ctx, "set_product_image", start, err)
		return domain.Product{}, err
	}
	p.ImageURL = imageURL
	updated, err := s.products.Save(p)
	s.observe(ctx, "set_product_image", start, err)
	return updated, err
}

// GetSale returns the sale with the given id.
func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	start := time.Now()
	sale, ok := s.sales.FindByID(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntitySale, ID: id}
		s.observe(ctx, "get_sale", start, err)
		return domain.Sale{}, err
	}
	s.observe(ctx, "get_sale", start, nil)
	return sale, nil
}

// ListSales returns the whole ledger.
func (s *Service) ListSales(ctx context.Context) []domain.Sale {
	defer s.observe(ctx, "list_sales", time.Now(), nil)
	return s.sales.FindAll()
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return domain.ValidationError{Field: "name", Reason: "must not be empty"}
	case len(p.Name) > maxNameLen:
		return domain.ValidationError{Field: "name", Reason: "exceeds 100 characters"}
	case !nameRE.MatchString(p.Name):
		return domain.ValidationError{Field: "name", Reason: "must be alphanumeric"}
	case p.Price <= 0:
		return domain.ValidationError{Field: "price", Reason: "must be positive"}
	case len(p.Description) > maxDescriptionLen:
		return domain.ValidationError{Field: "description", Reason: "exceeds 250 characters"}
	case p.Stock < 0:
		return domain.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}
