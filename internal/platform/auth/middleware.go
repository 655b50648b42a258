package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/logging"
)

const (
	CtxPrincipalKey = "principal_id"
	CookieName      = "token"
)

// RequireAuth: Authorization: Bearer <token>（なければ token cookie）を検証して context に principal を詰める
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			httpx.Abort(c, err)
			return
		}

		id, err := v.Verify(token)
		if err != nil {
			httpx.Abort(c, err)
			return
		}

		c.Set(CtxPrincipalKey, id)
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), zap.Uint64("principal_id", id)))
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", apierr.Unauthenticated("invalid Authorization header")
		}
		tok := strings.TrimSpace(parts[1])
		if tok == "" {
			return "", apierr.Unauthenticated("empty token")
		}
		return tok, nil
	}
	if tok, err := c.Cookie(CookieName); err == nil && tok != "" {
		return tok, nil
	}
	return "", apierr.Unauthenticated("missing bearer token")
}

// PrincipalID returns the id set by RequireAuth, 0 when the route is unauthenticated.
func PrincipalID(c *gin.Context) uint64 {
	return c.GetUint64(CtxPrincipalKey)
}
