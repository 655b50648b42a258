package orders

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/internal/platform/auth"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/validation"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the order endpoints on an authenticated group.
// createMW runs in front of POST /orders only (idempotency).
func RegisterRoutes(r gin.IRoutes, svc *Service, createMW ...gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/orders", append(createMW, h.Create)...)
	r.GET("/orders", h.ListMine)
	r.GET("/orders/:orderId", h.Get)
	r.DELETE("/orders/:orderId", h.Cancel)

	// 自分の商品に入った注文
	r.GET("/users/me/orders/received", h.ListReceived)
}

// ---------- handlers ----------

// Create godoc
// @Summary  Rent a product
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    body body CreateOrderRequest true "order"
// @Param    Idempotency-Key header string false "retry key"
// @Success  200 {object} httpx.Envelope{data=OrderResponse}
// @Failure  400,401,404,409 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /orders [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), auth.PrincipalID(c), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	c.Header("Location", "/api/orders/"+res.OrderID)
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  List my orders (as renter)
// @Tags     orders
// @Produce  json
// @Param    limit query int false "page size" default(50)
// @Param    offset query int false "offset" default(0)
// @Param    order query string false "asc|desc" default(desc)
// @Success  200 {object} httpx.Envelope{data=ListOrdersResult}
// @Failure  401,404 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /orders [get]
func (h *Handler) ListMine(c *gin.Context) {
	res, err := h.svc.ListForRenter(c.Request.Context(), auth.PrincipalID(c), pageFromQuery(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  List orders placed on my products
// @Tags     orders
// @Produce  json
// @Success  200 {object} httpx.Envelope{data=ListOrdersResult}
// @Failure  401,404 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /users/me/orders/received [get]
func (h *Handler) ListReceived(c *gin.Context) {
	res, err := h.svc.ListForOwner(c.Request.Context(), auth.PrincipalID(c), pageFromQuery(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  Get one order
// @Tags     orders
// @Produce  json
// @Param    orderId path string true "order ULID"
// @Success  200 {object} httpx.Envelope{data=OrderResponse}
// @Failure  401,404 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /orders/{orderId} [get]
func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), auth.PrincipalID(c), c.Param("orderId"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  Cancel an order (renter or product owner)
// @Tags     orders
// @Produce  json
// @Param    orderId path string true "order ULID"
// @Success  200 {object} httpx.Envelope{data=OrderResponse}
// @Failure  401,403,404,409 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /orders/{orderId} [delete]
func (h *Handler) Cancel(c *gin.Context) {
	res, err := h.svc.Cancel(c.Request.Context(), auth.PrincipalID(c), c.Param("orderId"))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// ---------- helpers ----------

func pageFromQuery(c *gin.Context) Page {
	return Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}
}
