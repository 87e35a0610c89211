// Package api is the HTTP surface of the screening service.
package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/tbrisk/internal/prediction"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// HealthChecker backs the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Predictor runs one screening.
type Predictor interface {
	Predict(ctx context.Context, payload any) (prediction.Result, error)
}

// Options configures NewRouter.
type Options struct {
	Logger       zerolog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64
	// Sentry installs the sentry-go gin middleware. sentry.Init must have
	// been called already.
	Sentry bool
	// Inventory is reported by /readyz.
	Inventory Inventory
}

// Inventory describes the resources loaded at startup.
type Inventory struct {
	Model     string `json:"model"`
	Classes   []int  `json:"classes"`
	Hospitals int    `json:"hospitals"`
}

type handler struct {
	predictor Predictor
	health    HealthChecker
	inventory Inventory
}

// NewRouter builds the gin engine. predictor and health are shared by all
// requests and must be safe for concurrent use.
func NewRouter(predictor Predictor, health HealthChecker, opts Options) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestID(opts.Logger),
		requestLogger(),
		recovery(),
	)
	if opts.Sentry {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic: true,
			Timeout: 2 * time.Second,
		}))
	}
	router.Use(
		limitBodySize(opts.MaxBodyBytes),
		cors.New(corsConfig(opts.CORSOrigins)),
	)

	h := &handler{predictor: predictor, health: health, inventory: opts.Inventory}

	router.GET("/", h.root)
	router.GET("/health", h.healthz)
	router.GET("/readyz", h.readyz)
	router.POST("/predict", h.predict)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Backend running"})
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("readiness probe failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "degraded",
			"inventory": h.inventory,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"inventory": h.inventory,
	})
}
