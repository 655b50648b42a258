package users_test

import (
	"bytes"
	"context"
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
	"rental-backend/internal/platform/memdb"
	"rental-backend/internal/platform/validation"
	"rental-backend/internal/products"
	"rental-backend/internal/rental/orders"
	"rental-backend/internal/users"
)

func register(t *testing.T, svc *users.Service, email string) users.UserResponse {
	t.Helper()
	u, err := svc.Register(context.Background(), users.RegisterRequest{
		FirstName: " Ana ", LastName: "Souza", Email: email, Password: "secret1", City: "Recife",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterNormalises(t *testing.T) {
	ctx := context.Background()
	d := memdb.New()
	svc := users.NewService(d.Users())

	u := register(t, svc, "Ana@Example.COM")
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, "Ana", u.FirstName)

	_, err := svc.Register(ctx, users.RegisterRequest{FirstName: "x", LastName: "y", Email: "ANA@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apierr.Conflict(""))

	cred, err := svc.GetCredentialByEmail(ctx, "ana@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, cred.UserID)
	assert.NotEqual(t, "secret1", cred.PasswordHash)
	assert.True(t, auth.CheckPassword(cred.PasswordHash, "secret1"))
}

func TestUpdatePartial(t *testing.T) {
	ctx := context.Background()
	d := memdb.New()
	svc := users.NewService(d.Users())
	u := register(t, svc, "ana@example.com")
	register(t, svc, "bia@example.com")

	city, pw := "Olinda", "another1"
	got, err := svc.Update(ctx, u.ID, users.UpdateUserRequest{City: &city, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Olinda", got.City)
	assert.Equal(t, "Ana", got.FirstName)

	cred, err := svc.GetCredentialByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(cred.PasswordHash, "another1"))

	taken := "BIA@example.com"
	_, err = svc.Update(ctx, u.ID, users.UpdateUserRequest{Email: &taken})
	assert.ErrorIs(t, err, apierr.Conflict(""))

	_, err = svc.Update(ctx, 999, users.UpdateUserRequest{City: &city})
	assert.ErrorIs(t, err, apierr.NotFound(""))
}

func TestListEmpty(t *testing.T) {
	svc := users.NewService(memdb.New().Users())
	_, err := svc.List(context.Background(), users.Page{})
	assert.ErrorIs(t, err, apierr.NotFound(""))

	register(t, svc, "ana@example.com")
	res, err := svc.List(context.Background(), users.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}

func TestDeleteBlockedByActiveOrder(t *testing.T) {
	ctx := context.Background()
	d := memdb.New()
	svc := users.NewService(d.Users())
	owner := register(t, svc, "owner@example.com")
	renter := register(t, svc, "renter@example.com")

	p := products.Product{OwnerID: owner.ID, Name: "Drill", Price: 4, CreatedAt: time.Now()}
	require.NoError(t, d.Products().Insert(ctx, &p))
	osvc := orders.NewService(d.Orders(), nil)
	o, err := osvc.Create(ctx, renter.ID, orders.CreateOrderRequest{
		ProductID: p.ProductID, OwnerID: owner.ID, StartOfRent: "2024-05-01", EndOfRent: "2024-05-02",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, renter.ID), apierr.Conflict(""))
	assert.ErrorIs(t, svc.Delete(ctx, owner.ID), apierr.Conflict(""))

	_, err = osvc.Cancel(ctx, renter.ID, o.OrderID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, renter.ID))
	_, err = svc.Get(ctx, renter.ID)
	assert.ErrorIs(t, err, apierr.NotFound(""))
	assert.ErrorIs(t, svc.Delete(ctx, renter.ID), apierr.NotFound(""))
}

// ---------- HTTP ----------

func newRouter(t *testing.T) (*gin.Engine, *auth.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Register()

	d := memdb.New()
	svc := users.NewService(d.Users())
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)

	r := gin.New()
	pub := r.Group("/api")
	priv := r.Group("/api", auth.RequireAuth(issuer))
	users.RegisterRoutes(pub, priv, svc)
	auth.RegisterRoutes(pub, auth.NewService(svc, issuer), auth.CookieConfig{TTL: time.Hour})
	return r, issuer
}

func send(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	r, _ := newRouter(t)

	w := send(r, http.MethodPost, "/api/users", "", map[string]string{
		"firstName": "Ana", "lastName": "Souza", "email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodPost, "/api/users", "", map[string]string{
		"firstName": "Ana", "lastName": "Souza", "email": "not-an-email", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/api/sessions", "", map[string]string{"email": "ana@example.com", "password": "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodPost, "/api/sessions", "", map[string]string{"email": "ANA@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data auth.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)
	assert.Equal(t, "ana@example.com", env.Data.User.Email)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Bearer と cookie のどちらでも通る
	w = send(r, http.MethodGet, "/api/users/me", env.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = send(r, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/api/users/abc", env.Data.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodDelete, "/api/users/me", env.Data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodGet, "/api/users/me", env.Data.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
