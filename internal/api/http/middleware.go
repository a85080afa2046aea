package apihttp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/fmanana/autosense-backend/internal/auth"
	"github.com/fmanana/autosense-backend/internal/observability/metrics"
)

const (
	headerRequestID = "X-Request-Id"
	ctxKeyRequestID = "request_id"
)

// RequestIDFromContext returns the request id assigned by the router.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, reqID)
		c.Header(headerRequestID, reqID)
		c.Next()
	}
}

func accessLog(logger hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		route := c.FullPath()
		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, route, status, latency)
		logger.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"latency_ms", float64(latency.Microseconds())/1000.0,
			"request_id", RequestIDFromContext(c),
		)
	}
}

// requireToken runs the auth middleware inside the gin chain so rejected
// requests still pass through logging and metrics.
func requireToken(mw *auth.Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}
