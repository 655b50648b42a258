package orders_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/auth"
	"rental-backend/internal/platform/validation"
	"rental-backend/internal/rental/orders"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    apierr.Code     `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	f      *fixture
	issuer *auth.Issuer
	r      *gin.Engine
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)
	validation.Register()

	f := newFixture(t)
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	r := gin.New()
	g := r.Group("/api", auth.RequireAuth(issuer))
	orders.RegisterRoutes(g, f.svc)
	return &api{t: t, f: f, issuer: issuer, r: r}
}

func (a *api) do(method, path string, as uint64, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != 0 {
		tok, err := a.issuer.Issue(as)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestHandlerCreateAndCancel(t *testing.T) {
	a := newAPI(t)
	f := a.f
	body := map[string]any{
		"productId": f.product, "ownerId": f.owner,
		"startOfRent": "2024-03-01", "endOfRent": "2024-03-03T12:00:00Z",
	}

	w, env := a.do(http.MethodPost, "/api/orders", f.renter, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var o orders.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, int64(3), o.RentalDays)
	assert.Equal(t, int64(30), o.Total)
	assert.Equal(t, "/api/orders/"+o.OrderID, w.Header().Get("Location"))

	w, env = a.do(http.MethodPost, "/api/orders", f.other, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierr.CodeAlreadyRented, env.Code)

	w, env = a.do(http.MethodGet, "/api/orders/"+o.OrderID, f.other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = a.do(http.MethodDelete, "/api/orders/"+o.OrderID, f.other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierr.CodeForbidden, env.Code)

	w, _ = a.do(http.MethodDelete, "/api/orders/"+o.OrderID, f.owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = a.do(http.MethodDelete, "/api/orders/"+o.OrderID, f.renter, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierr.CodeAlreadyCancelled, env.Code)
}

func TestHandlerCreateValidation(t *testing.T) {
	a := newAPI(t)
	f := a.f

	cases := []struct {
		name string
		as   uint64
		body map[string]any
		want int
		code apierr.Code
	}{
		{"missing dates", f.renter, map[string]any{"productId": f.product, "ownerId": f.owner}, http.StatusBadRequest, apierr.CodeInvalidArgument},
		{"bad date format", f.renter, map[string]any{"productId": f.product, "ownerId": f.owner, "startOfRent": "01/03/2024", "endOfRent": "2024-03-03"}, http.StatusBadRequest, apierr.CodeInvalidArgument},
		{"reversed range", f.renter, map[string]any{"productId": f.product, "ownerId": f.owner, "startOfRent": "2024-03-03", "endOfRent": "2024-03-01"}, http.StatusBadRequest, apierr.CodeInvalidRange},
		{"self rental", f.owner, map[string]any{"productId": f.product, "ownerId": f.owner, "startOfRent": "2024-03-01", "endOfRent": "2024-03-03"}, http.StatusBadRequest, apierr.CodeSelfRental},
		{"wrong owner", f.renter, map[string]any{"productId": f.product, "ownerId": f.other, "startOfRent": "2024-03-01", "endOfRent": "2024-03-03"}, http.StatusBadRequest, apierr.CodeOwnerMismatch},
		{"unknown product", f.renter, map[string]any{"productId": 404, "ownerId": f.owner, "startOfRent": "2024-03-01", "endOfRent": "2024-03-03"}, http.StatusNotFound, apierr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := a.do(http.MethodPost, "/api/orders", tc.as, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.Equal(t, tc.code, env.Code)
			assert.False(t, env.Success)
		})
	}
	assert.False(t, f.rented(t, f.product))
}

func TestHandlerRequiresToken(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/orders", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierr.CodeUnauthenticated, env.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerLists(t *testing.T) {
	a := newAPI(t)
	f := a.f

	w, env := a.do(http.MethodGet, "/api/orders", f.renter, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierr.CodeNotFound, env.Code)

	_, err := f.svc.Create(t.Context(), f.renter, f.req(f.product, f.owner))
	require.NoError(t, err)

	w, env = a.do(http.MethodGet, "/api/orders?limit=10", f.renter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list orders.ListOrdersResult
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)

	w, _ = a.do(http.MethodGet, "/api/users/me/orders/received", f.owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/users/me/orders/received", f.renter, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
