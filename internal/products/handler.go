package products

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rental-backend/internal/platform/auth"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/validation"
)

type Handler struct{ svc *Service }

func RegisterRoutes(pub, priv gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 検索・詳細は未ログインでも可
	pub.GET("/products", h.Search)
	pub.GET("/products/:productId", h.Get)

	priv.GET("/users/me/products", h.ListMine)
	priv.POST("/products", h.Create)
	priv.PUT("/products/:productId", h.Update)
	priv.DELETE("/products/:productId", h.Delete)
}

// @Summary  Search available products
// @Tags     products
// @Produce  json
// @Param    productName query string false "name contains"
// @Success  200 {object} httpx.Envelope{data=ListProductsResult}
// @Failure  404 {object} httpx.Envelope
// @Router   /products [get]
func (h *Handler) Search(c *gin.Context) {
	res, err := h.svc.Search(c.Request.Context(), c.Query("productName"), pageFromQuery(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParseID(c, "productId")
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

func (h *Handler) ListMine(c *gin.Context) {
	res, err := h.svc.ListMine(c.Request.Context(), auth.PrincipalID(c), pageFromQuery(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  List a product for rent
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    body body CreateProductRequest true "product"
// @Success  201 {object} httpx.Envelope{data=ProductResponse}
// @Failure  400,401 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /products [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), auth.PrincipalID(c), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.Header("Location", "/api/products/"+formatID(res.ID))
	httpx.OK(c, http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := httpx.ParseID(c, "productId")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), auth.PrincipalID(c), id, req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpx.ParseID(c, "productId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.PrincipalID(c), id); err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, gin.H{"deleted": true})
}

// ---------- helpers ----------

func pageFromQuery(c *gin.Context) Page {
	return Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
	}
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }
