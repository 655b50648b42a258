package idempotency

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/logging"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	maxKeyLen = 255
)

// Middleware replays the first response stored for (principal, Idempotency-Key).
// Requests without the header pass through. Store failures fall back to normal processing.
func Middleware(store Store, ttl time.Duration, principal func(*gin.Context) uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxKeyLen {
			httpx.Abort(c, apierr.Invalid(fmt.Sprintf("%s must be at most %d characters", HeaderKey, maxKeyLen)))
			return
		}

		ctx := c.Request.Context()
		log := logging.FromContext(ctx)
		k := fmt.Sprintf("idem:%d:%s", principal(c), key)

		reserved, err := store.Reserve(ctx, k, ttl)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			rec, found, err := store.Get(ctx, k)
			switch {
			case err != nil:
				log.Warn("idempotency lookup failed", zap.Error(err))
				c.Next()
			case !found:
				// 直前に失効した
				c.Next()
			case rec.Pending:
				httpx.Abort(c, apierr.Conflict("a request with this Idempotency-Key is still in progress"))
			default:
				c.Header(HeaderReplayed, "true")
				c.Data(rec.Status, rec.ContentType, rec.Body)
				c.Abort()
			}
			return
		}

		rw := &recorder{ResponseWriter: c.Writer}
		c.Writer = rw

		// 応答後なのでクライアント切断でキャンセルされない ctx を使う
		bg := context.WithoutCancel(ctx)
		defer func() {
			// panic 時も pending を残さない（Recovery が外側で 500 にする）
			if p := recover(); p != nil {
				if err := store.Delete(bg, k); err != nil {
					log.Warn("idempotency release failed", zap.Error(err))
				}
				panic(p)
			}
		}()
		c.Next()

		status := rw.Status()
		if status >= 500 {
			if err := store.Delete(bg, k); err != nil {
				log.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}
		rec := Record{Status: status, ContentType: rw.Header().Get("Content-Type"), Body: rw.body.Bytes()}
		if err := store.Save(bg, k, rec, ttl); err != nil {
			log.Warn("idempotency save failed", zap.Error(err))
		}
	}
}

type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
