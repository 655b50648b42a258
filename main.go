package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"rental-backend/docs"
	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/auth"
	"rental-backend/internal/platform/config"
	"rental-backend/internal/platform/db"
	"rental-backend/internal/platform/httpx"
	"rental-backend/internal/platform/idempotency"
	"rental-backend/internal/platform/logging"
	"rental-backend/internal/platform/memdb"
	"rental-backend/internal/platform/metrics"
	"rental-backend/internal/platform/validation"
	"rental-backend/internal/products"
	"rental-backend/internal/rental/orders"
	"rental-backend/internal/users"
)

// @title                      rental-backend API
// @version                    1.0
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	path := flag.String("config", config.DefaultPath, "path to config.yaml")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log, zap.String("service", "rental-backend"), zap.String("env", cfg.Mode), zap.String("version", cfg.Version))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type healthChecker interface {
	PingContext(ctx context.Context) error
}

type stores struct {
	users    users.Store
	products products.Store
	orders   orders.Store
	health   healthChecker
	close    func() error
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		m := memdb.New()
		return &stores{users: m.Users(), products: m.Products(), orders: m.Orders(), health: m, close: func() error { return nil }}, nil
	}

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to DB", zap.String("dbname", cfg.Database.DBName))
	return &stores{
		users:    users.NewStore(conn),
		products: products.NewStore(conn),
		orders:   orders.NewStore(conn),
		health:   conn,
		close:    conn.Close,
	}, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		// dev のみ（release は Validate で弾く）。再起動でトークンは無効になる
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		logger.Warn("auth.jwt_secret is empty; using a random secret")
	}
	issuer := auth.NewIssuer(secret, cfg.Auth.TokenTTL)
	m := metrics.New()
	validation.Register()

	// 冪等キー（redis がなければ無効）
	var createMW []gin.HandlerFunc
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		createMW = append(createMW, idempotency.Middleware(idempotency.NewRedisStore(rdb), cfg.Redis.IdempotencyTTL, auth.PrincipalID))
		logger.Info("idempotency keys enabled", zap.String("redis", cfg.Redis.Addr))
	}

	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(httpx.RequestContext(logger), httpx.Recovery(), m.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", idempotency.HeaderKey},
			ExposeHeaders:    []string{"Content-Length", "Location", httpx.HeaderRequestID, idempotency.HeaderReplayed},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		docs.SwaggerInfo.Version = cfg.Version
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) {
		if err := st.health.PingContext(c.Request.Context()); err != nil {
			httpx.Fail(c, err)
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// /api
	pub := r.Group("/api")
	priv := r.Group("/api", auth.RequireAuth(issuer))

	userSvc := users.NewService(st.users)
	auth.RegisterRoutes(pub, auth.NewService(userSvc, issuer), auth.CookieConfig{
		TTL:    cfg.Auth.CookieTTL,
		Secure: cfg.TLSEnabled(),
	})
	users.RegisterRoutes(pub, priv, userSvc)
	products.RegisterRoutes(pub, priv, products.NewService(st.products))
	orders.RegisterRoutes(priv, orders.NewService(st.orders, m), createMW...)

	r.NoRoute(func(c *gin.Context) {
		httpx.Fail(c, apierr.NotFound("route not found"))
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			logger.Info("listening", zap.String("addr", "https://"+cfg.Server.Addr))
			err = srv.ListenAndServeTLS(cfg.Server.TLS.Cert, cfg.Server.TLS.Key)
		} else {
			logger.Info("listening", zap.String("addr", "http://"+cfg.Server.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
