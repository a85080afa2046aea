package apihttp

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fmanana/autosense-backend/internal/auth"
	stationhttp "github.com/fmanana/autosense-backend/internal/stations/interfaces/http"
)

// Options wires the router dependencies.
type Options struct {
	Logger      hclog.Logger
	Auth        *auth.Middleware
	Tokens      *TokenHandler
	Stations    *stationhttp.Handler
	CORSOrigins []string
}

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Auth == nil {
		return nil, errors.New("router: nil auth middleware")
	}
	if opts.Tokens == nil {
		return nil, errors.New("router: nil token handler")
	}
	if opts.Stations == nil {
		return nil, errors.New("router: nil stations handler")
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		accessLog(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
			writeError(c, http.StatusInternalServerError, "internal error")
		}),
		cors.New(corsConfig(opts.CORSOrigins)),
		requireToken(opts.Auth),
	)

	engine.GET("/", opts.Tokens.issue)
	engine.GET("/healthz", healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/openapi.yaml", openapiYAML)
	engine.GET("/api-docs", apiDocs)
	opts.Stations.Register(engine)
	engine.NoRoute(notFound)

	return engine, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPut,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
