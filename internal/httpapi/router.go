// Package httpapi exposes game sessions, the dataset and the model over
// HTTP with gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/metrics"
)

// defaultOrigin is allowed when no origins are configured.
const defaultOrigin = "http://localhost:3000"

// Options configures NewRouter.
type Options struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// NewRouter builds the engine: request id, logging, recovery, CORS, health,
// metrics and the /api routes served by h.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(ZapLogger(log.Named("http")))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{defaultOrigin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", SessionHeader, RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)
	router.HEAD("/health", health)
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	h.RegisterRoutes(router)
	return router
}
