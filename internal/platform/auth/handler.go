package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/validation"
)

type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

type Handler struct {
	svc    *Service
	cookie CookieConfig
}

func RegisterRoutes(r gin.IRoutes, svc *Service, cookie CookieConfig) {
	h := &Handler{svc: svc, cookie: cookie}
	r.POST("/sessions", h.Login)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary  Log in
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} httpx.Envelope{data=Session}
// @Failure  400,401 {object} httpx.Envelope
// @Router   /sessions [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, validation.Message(err))
		return
	}

	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, sess.Token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	httpx.OK(c, http.StatusOK, sess)
}
