package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storecore/internal/auth"
	"storecore/internal/blob"
	"storecore/internal/core"
	"storecore/internal/infra/persistence/jsonfile"
	"storecore/pkg/domain"
)

type testEnv struct {
	app        *fiber.App
	svc        *core.Service
	blobs      blob.Store
	adminToken string
	userToken  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	productStore, err := jsonfile.Open(jsonfile.Config[domain.Product]{
		Entity: domain.EntityProduct,
		Path:   filepath.Join(dir, "products.json"),
		IDOf:   func(p domain.Product) int64 { return p.ID },
		Clone:  domain.Product.Clone,
	})
	require.NoError(t, err)
	saleStore, err := jsonfile.Open(jsonfile.Config[domain.Sale]{
		Entity: domain.EntitySale,
		Path:   filepath.Join(dir, "sales.json"),
		IDOf:   func(s domain.Sale) int64 { return s.ID },
		Clone:  domain.Sale.Clone,
	})
	require.NoError(t, err)

	svc := core.NewService(core.NewProductRepository(productStore), core.NewSaleRepository(saleStore))

	adminHash, err := auth.HashPassword("admin-pw")
	require.NoError(t, err)
	userHash, err := auth.HashPassword("user-pw")
	require.NoError(t, err)
	users, err := auth.LoadUsers(bytes.NewReader([]byte(
		"username,password,role\nadmin," + adminHash + ",ADMIN\nuser," + userHash + ",USER\n")))
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret"})
	require.NoError(t, err)

	blobs := blob.NewMemory()
	handlers := NewHandlers(svc, users, tokens, blobs, nil)
	app := NewApp(handlers, tokens, RouterConfig{})

	adminToken, err := tokens.Generate("admin", []string{auth.RoleAdmin})
	require.NoError(t, err)
	userToken, err := tokens.Generate("user", []string{auth.RoleUser})
	require.NoError(t, err)

	return &testEnv{app: app, svc: svc, blobs: blobs, adminToken: adminToken, userToken: userToken}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "admin", Password: "admin-pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[TokenResponse](t, resp)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, int64(15*60), body.ExpiresIn)

	resp = env.request(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "ghost", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "Widget", Price: 500, Stock: 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[ProductResponse](t, resp)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Widget", created.Name)

	resp = env.request(t, http.MethodGet, "/api/products/1", env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/products", env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ProductResponse](t, resp)
	assert.Len(t, list, 1)

	resp = env.request(t, http.MethodGet, "/api/products/99", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/products/1", env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// deleting an absent id still succeeds
	resp = env.request(t, http.MethodDelete, "/api/products/1", env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "", Price: 500, Stock: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePrice(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "Widget", Price: 500, Stock: 10})

	resp := env.request(t, http.MethodPut, "/api/products/price", env.adminToken,
		PriceChangeRequest{ID: 1, NewPrice: 750})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[ProductResponse](t, resp)
	assert.Equal(t, int64(750), updated.Price)

	resp = env.request(t, http.MethodPut, "/api/products/price", env.adminToken,
		PriceChangeRequest{ID: 99, NewPrice: 750})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodPut, "/api/products/price", env.adminToken,
		PriceChangeRequest{ID: 1, NewPrice: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessSale(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "Widget", Price: 500, Stock: 10})

	resp := env.request(t, http.MethodPost, "/api/sales", env.userToken,
		SaleRequest{Items: []SaleItemRequest{{ProductID: 1, Quantity: 3}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sale := decode[SaleResponse](t, resp)
	assert.Equal(t, int64(1500), sale.Total)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Widget", sale.Items[0].ProductName)

	// oversell
	resp = env.request(t, http.MethodPost, "/api/sales", env.userToken,
		SaleRequest{Items: []SaleItemRequest{{ProductID: 1, Quantity: 50}}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// unknown product
	resp = env.request(t, http.MethodPost, "/api/sales", env.userToken,
		SaleRequest{Items: []SaleItemRequest{{ProductID: 99, Quantity: 1}}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// empty payload
	resp = env.request(t, http.MethodPost, "/api/sales", env.userToken, SaleRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/sales/1", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/sales", env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sales := decode[[]SaleResponse](t, resp)
	assert.Len(t, sales, 1)
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t)

	// catalog is admin-only
	resp := env.request(t, http.MethodGet, "/api/products", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// so is the sale ledger
	resp = env.request(t, http.MethodGet, "/api/sales", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// missing and malformed tokens are rejected outright
	resp = env.request(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProductImageUploadAndFetch(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "Widget", Price: 500, Stock: 10})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "widget.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/1/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[ProductResponse](t, resp)
	assert.Equal(t, "/api/products/1/image", updated.ImageURL)

	resp = env.request(t, http.MethodGet, "/api/products/1/image", env.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "png-bytes", string(body))
}

func TestProductImage_Missing(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/products", env.adminToken,
		ProductRequest{Name: "Widget", Price: 500, Stock: 10})

	resp := env.request(t, http.MethodGet, "/api/products/1/image", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/products/99/image", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
