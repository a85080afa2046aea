package apihttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/fmanana/autosense-backend/internal/api/http/openapi"
	"github.com/fmanana/autosense-backend/internal/auth"
)

const apiName = "autoSense Challenge API"

// TokenHandler serves demo tokens on GET /.
type TokenHandler struct {
	tokens  *auth.TokenService
	subject string
	limiter *rate.Limiter
	logger  hclog.Logger
}

// NewTokenHandler constructs a TokenHandler. A nil limiter disables rate
// limiting.
func NewTokenHandler(tokens *auth.TokenService, subject string, limiter *rate.Limiter, logger hclog.Logger) *TokenHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &TokenHandler{tokens: tokens, subject: subject, limiter: limiter, logger: logger}
}

func (h *TokenHandler) issue(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow() {
		writeError(c, http.StatusTooManyRequests, "Too many token requests. Please try again later.")
		return
	}
	token, err := h.tokens.Issue(h.subject)
	if err != nil {
		h.logger.Error("issue token failed", "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": apiName, "jwt": token})
}

func healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func openapiYAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapi.YAML)
}

func apiDocs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
}

func notFound(c *gin.Context) {
	writeError(c, http.StatusNotFound, "The requested URL was not found on this server: "+c.Request.URL.RequestURI())
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": message,
	})
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>AutoSense Challenge API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
