package apihttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/fmanana/autosense-backend/internal/auth"
	stationapp "github.com/fmanana/autosense-backend/internal/stations/application"
	"github.com/fmanana/autosense-backend/internal/stations/infrastructure/memory"
	stationhttp "github.com/fmanana/autosense-backend/internal/stations/interfaces/http"
)

func newTestRouter(t *testing.T, limiter *rate.Limiter) (http.Handler, *auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokenService([]byte("router-secret"), time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc, err := stationapp.NewStationService(memory.NewStore())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	stationsHandler, err := stationhttp.NewHandler(svc, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	router, err := NewRouter(Options{
		Auth:     auth.NewMiddleware(tokens, auth.NewDefaultPolicy(nil, nil), nil),
		Tokens:   NewTokenHandler(tokens, "1234567890", limiter, nil),
		Stations: stationsHandler,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return router, tokens
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRouter_TokenThenProtectedRoute(t *testing.T) {
	router, tokens := newTestRouter(t, nil)

	resp := serve(router, http.MethodGet, "/", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var issued struct {
		Name string `json:"name"`
		JWT  string `json:"jwt"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if issued.Name != "autoSense Challenge API" || issued.JWT == "" {
		t.Fatalf("unexpected token response %+v", issued)
	}
	subject, err := tokens.Verify(issued.JWT)
	if err != nil || subject != "1234567890" {
		t.Fatalf("issued token does not verify: %q %v", subject, err)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	resp = serve(router, http.MethodGet, "/stations", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	resp = serve(router, http.MethodPost, "/stations", issued.JWT,
		`{"id_name":"A1","name":"Station A","latitude":0,"longitude":0,"city":"X","address":"Y","pumps":[{"fuel_type":"DIESEL","price":1.5,"available":true}]}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = serve(router, http.MethodGet, "/stations", issued.JWT, "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"latitude":0`) {
		t.Fatalf("unexpected list response %d %s", resp.Code, resp.Body.String())
	}
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	resp := serve(router, http.MethodGet, "/nowhere?x=1", "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Not Found" || body["message"] != "The requested URL was not found on this server: /nowhere?x=1" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRouter_TokenRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, rate.NewLimiter(rate.Every(time.Hour), 1))
	if resp := serve(router, http.MethodGet, "/", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("expected first token, got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/", "", ""); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	if resp := serve(router, http.MethodGet, "/healthz", "", ""); resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected healthz %d %q", resp.Code, resp.Body.String())
	}
	if resp := serve(router, http.MethodGet, "/metrics", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/api-docs", "", ""); !strings.Contains(resp.Body.String(), "swagger-ui") {
		t.Fatalf("expected docs page")
	}

	resp := serve(router, http.MethodGet, "/openapi.yaml", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected openapi status %d", resp.Code)
	}
	var doc struct {
		OpenAPI string                    `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("parse openapi: %v", err)
	}
	for _, path := range []string{"/", "/stations", "/stations/{id}", "/pumps/{id}"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("openapi document misses %s", path)
		}
	}
	if _, ok := doc.Paths["/stations/{id}"]["delete"]; !ok {
		t.Fatalf("openapi document misses DELETE /stations/{id}")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/stations", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("preflight must not require a token")
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
}
