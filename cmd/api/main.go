package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"familytree/internal/config"
	"familytree/internal/database"
	"familytree/internal/domain"
	"familytree/internal/middleware"
	"familytree/internal/modules/auth"
	jwtsvc "familytree/internal/pkg/jwt"
	"familytree/internal/pkg/ratelimit"
	"familytree/internal/repository"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTIssuer)
	limiter := ratelimit.New()

	authService := auth.NewService(userRepo, tokenRepo, j, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.RefreshTTL)
	authHandler := auth.NewHandler(authService, j, cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath, cfg.JWTAccessTTL, cfg.RefreshTTL)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.JWTAuth(j))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		authHandler.RegisterPublicRoutes(api,
			middleware.RateLimit(limiter, cfg.LoginRateLimit, cfg.RateLimitWindow),
			middleware.RateLimit(limiter, cfg.RefreshRateLimit, cfg.RateLimitWindow),
		)

		protected := api.Group("/")
		protected.Use(middleware.RequireAuth())
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
