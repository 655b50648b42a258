package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/internal/platform/auth"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/validation"
)

type Handler struct{ svc *Service }

// pub は認証なし、priv は RequireAuth 済みのグループ
func RegisterRoutes(pub, priv gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	pub.POST("/users", h.Register)

	priv.GET("/users", h.List)
	priv.GET("/users/me", h.Me)
	priv.PUT("/users/me", h.UpdateMe)
	priv.DELETE("/users/me", h.DeleteMe)
	priv.GET("/users/:userId", h.Get)
}

// @Summary  Register
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "profile"
// @Success  201 {object} httpx.Envelope{data=UserResponse}
// @Failure  400,409 {object} httpx.Envelope
// @Router   /users [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	p := Page{
		Limit:  httpx.ParseIntDefault(c.Query("limit"), 50),
		Offset: httpx.ParseIntDefault(c.Query("offset"), 0),
	}
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httpx.ParseID(c, "userId")
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

func (h *Handler) Me(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), auth.PrincipalID(c))
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), auth.PrincipalID(c), req)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, http.StatusOK, res)
}

// @Summary  Delete my account
// @Tags     users
// @Success  200 {object} httpx.Envelope
// @Failure  401,404,409 {object} httpx.Envelope
// @Security BearerAuth
// @Router   /users/me [delete]
func (h *Handler) DeleteMe(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.PrincipalID(c)); err != nil {
		httpx.Fail(c, err)
		return
	}
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	httpx.OK(c, http.StatusOK, gin.H{"deleted": true})
}
