// Package api exposes the catalog, sale, and auth operations over HTTP.
package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storecore/internal/auth"
	"storecore/internal/blob"
	"storecore/internal/core"
	"storecore/pkg/domain"
)

// Handlers binds the core service, auth components, and blob store to the
// HTTP routes.
type Handlers struct {
	svc    *core.Service
	users  *auth.UserStore
	tokens *auth.TokenManager
	blobs  blob.Store
	logger *zap.Logger
}

// NewHandlers builds the handler set. logger may be nil.
func NewHandlers(svc *core.Service, users *auth.UserStore, tokens *auth.TokenManager, blobs blob.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, users: users, tokens: tokens, blobs: blobs, logger: logger}
}

// Login verifies credentials and issues a bearer token.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}
	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid username or password",
		})
	}
	token, err := h.tokens.Generate(user.Username, []string{user.Role})
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		return internalError(c)
	}
	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		Token:     token,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
	})
}

// ListProducts returns the full catalog.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	products := h.svc.ListProducts(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(toProductResponses(products))
}

// GetProduct returns one product by id.
func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid product id")
	}
	product, err := h.svc.GetProduct(c.UserContext(), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toProductResponse(product))
}

// CreateProduct validates and stores a new product.
func (h *Handlers) CreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	product, err := h.svc.CreateProduct(c.UserContext(), domain.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Stock:       req.Stock,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toProductResponse(product))
}

// DeleteProduct removes a product. Deleting an absent id succeeds.
func (h *Handlers) DeleteProduct(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid product id")
	}
	if err := h.svc.DeleteProduct(c.UserContext(), id); err != nil {
		return domainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePrice updates a product's price.
func (h *Handlers) ChangePrice(c *fiber.Ctx) error {
	var req PriceChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	product, err := h.svc.ChangePrice(c.UserContext(), req.ID, req.NewPrice)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toProductResponse(product))
}

// UploadProductImage stores an image blob and links it to the product. A
// previously linked image is deleted from the blob store.
func (h *Handlers) UploadProductImage(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid product id")
	}
	product, err := h.svc.GetProduct(c.UserContext(), id)
	if err != nil {
		return domainError(c, err)
	}
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "Multipart 'file' field is required")
	}
	file, err := header.Open()
	if err != nil {
		return badRequest(c, "Unreadable upload")
	}
	defer file.Close()

	key := blob.ImageKey(id, header.Filename)
	opts := blob.PutOptions{ContentType: header.Header.Get(fiber.HeaderContentType)}
	if _, err := h.blobs.Put(c.UserContext(), key, file, opts); err != nil {
		h.logger.Error("image upload failed", zap.Int64("product_id", id), zap.Error(err))
		return internalError(c)
	}
	if old := product.ImageURL; old != "" {
		if _, err := h.blobs.Delete(c.UserContext(), old); err != nil {
			h.logger.Warn("stale image not deleted", zap.String("key", old), zap.Error(err))
		}
	}
	updated, err := h.svc.SetProductImage(c.UserContext(), id, key)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toProductResponse(updated))
}

// GetProductImage streams the product's image from the blob store.
func (h *Handlers) GetProductImage(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid product id")
	}
	product, err := h.svc.GetProduct(c.UserContext(), id)
	if err != nil {
		return domainError(c, err)
	}
	if product.ImageURL == "" {
		return notFound(c, "Product has no image")
	}
	info, rc, err := h.blobs.Get(c.UserContext(), product.ImageURL)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return notFound(c, "Image not found")
		}
		h.logger.Error("image fetch failed", zap.String("key", product.ImageURL), zap.Error(err))
		return internalError(c)
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	return c.SendStream(rc, int(info.Size))
}

// ProcessSale executes a sale against current stock.
func (h *Handlers) ProcessSale(c *fiber.Ctx) error {
	var req SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	sale, err := h.svc.ProcessSale(c.UserContext(), toSaleItemRequests(req.Items))
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleResponse(sale))
}

// GetSale returns one recorded sale by id.
func (h *Handlers) GetSale(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "Invalid sale id")
	}
	sale, err := h.svc.GetSale(c.UserContext(), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toSaleResponse(sale))
}

// ListSales returns the full sale ledger.
func (h *Handlers) ListSales(c *fiber.Ctx) error {
	sales := h.svc.ListSales(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(toSaleResponses(sales))
}

// Healthz is the unauthenticated liveness probe.
func (h *Handlers) Healthz(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func pathID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// domainError maps the error taxonomy onto HTTP statuses.
func domainError(c *fiber.Ctx, err error) error {
	var (
		notFoundErr    domain.NotFoundError
		validationErr  domain.ValidationError
		stockErr       domain.InsufficientStockError
		persistenceErr domain.PersistenceError
	)
	switch {
	case errors.As(err, &notFoundErr):
		return notFound(c, notFoundErr.Error())
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Error())
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: stockErr.Error(),
		})
	case errors.As(err, &persistenceErr):
		return internalError(c)
	default:
		return internalError(c)
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: msg})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "Internal server error",
	})
}
