package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocandle/marketplace/docs"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
	"github.com/ocandle/marketplace/internal/infrastructure/ratelimit"
)

// routerAuth resolves the tokens "buyer" and "seller"; other methods are not
// reached by these tests.
type routerAuth struct {
	ports.AuthService
	registered int
}

func (a *routerAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	switch token {
	case "buyer":
		return &domain.User{ID: "b1", Role: domain.RoleBuyer, IsActive: true}, nil
	case "seller":
		return &domain.User{ID: "s1", Role: domain.RoleSeller, IsActive: true}, nil
	}
	return nil, domain.ErrInvalidToken
}

func (a *routerAuth) Register(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	a.registered++
	return &ports.AuthResult{Token: "t", User: &domain.User{ID: "u1", Email: in.Email, Role: in.Role}}, nil
}

type routerCatalog struct{ ports.CatalogService }

func (routerCatalog) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{domain.CategoryBakery}, nil
}

func (routerCatalog) FindProduct(_ context.Context, id string) (*domain.Product, error) {
	return &domain.Product{ID: id, SellerID: "someone-else"}, nil
}

func newTestRouter(t *testing.T, auth *routerAuth, verifiedOnly bool) *echo.Echo {
	t.Helper()
	return NewRouter(Services{
		Auth:    auth,
		Catalog: routerCatalog{},
	}, RouterConfig{
		Log:                    zerolog.Nop(),
		AllowedOrigins:         []string{"*"},
		RequireVerifiedSellers: verifiedOnly,
		RateLimitStore:         ratelimit.NewMemoryStore(),
		Metrics:                prometheus.NewRegistry(),
	})
}

func serve(e *echo.Echo, method, target, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OCandle API is running", resp["message"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec, _ = serve(e, http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodGet, "/api/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", resp["message"])
}

func TestRouter_CategoriesBeforeID(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodGet, "/api/products/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp["data"].(map[string]any)
	assert.Equal(t, []any{"bakery"}, data["categories"])
}

func TestRouter_OrdersRequireToken(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", resp["message"])

	rec, _ = serve(e, http.MethodGet, "/api/orders", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_BuyerCannotCreateListing(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodPost, "/api/products", "buyer", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Required role: seller. Your role: buyer", resp["message"])
}

func TestRouter_UnverifiedSellerBlockedWhenConfigured(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, true)

	rec, _ := serve(e, http.MethodPost, "/api/products", "seller", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_SellerCannotEditForeignListing(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	rec, resp := serve(e, http.MethodPut, "/api/products/p9", "seller", `{"price":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. You can only access your own resources.", resp["message"])
}

func TestRouter_RegisterIsRateLimited(t *testing.T) {
	auth := &routerAuth{}
	e := newTestRouter(t, auth, false)
	body := `{"firstName":"Anna","lastName":"Rossi","email":"anna@example.com","password":"Secret1"}`

	for i := 0; i < registerQuota; i++ {
		rec, _ := serve(e, http.MethodPost, "/api/auth/register", "", body)
		require.Equal(t, http.StatusCreated, rec.Code, "attempt %d", i+1)
	}
	rec, resp := serve(e, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get(echo.HeaderRetryAfter))
	assert.Equal(t, float64(900), resp["retryAfter"])
	assert.Equal(t, registerQuota, auth.registered)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)
	serve(e, http.MethodGet, "/api/health", "", "")

	rec, _ := serve(e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

var routeParam = regexp.MustCompile(`:([A-Za-z]+)`)

func TestRouter_APIRoutesDocumented(t *testing.T) {
	e := newTestRouter(t, &routerAuth{}, false)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	methods := map[string]bool{http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true}
	for _, r := range e.Routes() {
		if !methods[r.Method] || !strings.HasPrefix(r.Path, "/api/") {
			continue
		}
		path := routeParam.ReplaceAllString(r.Path, "{$1}")
		_, ok := doc.Paths[path][strings.ToLower(r.Method)]
		assert.True(t, ok, "%s %s is not in the swagger document; run go generate ./cmd/api", r.Method, path)
	}
}
