package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"storecore/internal/auth"
)

// RouterConfig carries the optional pieces of the HTTP application.
type RouterConfig struct {
	// Gatherer backs the /metrics endpoint; nil disables it.
	Gatherer prometheus.Gatherer
	// BodyLimit caps request bodies (image uploads); 0 keeps fiber's default.
	BodyLimit int
}

// NewApp assembles the fiber application with all routes and middleware.
func NewApp(h *Handlers, tokens *auth.TokenManager, cfg RouterConfig) *fiber.App {
	fiberCfg := fiber.Config{DisableStartupMessage: true}
	if cfg.BodyLimit > 0 {
		fiberCfg.BodyLimit = cfg.BodyLimit
	}
	app := fiber.New(fiberCfg)

	app.Get("/healthz", h.Healthz)
	if cfg.Gatherer != nil {
		metrics := fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
		app.Get("/metrics", func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	app.Post("/auth/login", h.Login)

	authenticated := app.Group("/api", AuthMiddleware(tokens))

	// Catalog management and sale reads are admin-only; processing a sale is
	// open to both roles.
	admin := RequireRole(auth.RoleAdmin)
	seller := RequireRole(auth.RoleAdmin, auth.RoleUser)

	products := authenticated.Group("/products", admin)
	products.Get("/", h.ListProducts)
	products.Post("/", h.CreateProduct)
	products.Put("/price", h.ChangePrice)
	products.Get("/:id", h.GetProduct)
	products.Delete("/:id", h.DeleteProduct)
	products.Post("/:id/image", h.UploadProductImage)
	products.Get("/:id/image", h.GetProductImage)

	sales := authenticated.Group("/sales")
	sales.Post("/", seller, h.ProcessSale)
	sales.Get("/", admin, h.ListSales)
	sales.Get("/:id", admin, h.GetSale)

	return app
}
