package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/config"
)

func TestAllowedOrigins(t *testing.T) {
	dev := allowedOrigins(&config.Config{Environment: "development", FrontendURL: "https://ignored.example"})
	if len(dev) != 2 {
		t.Errorf("development origins = %v", dev)
	}

	prod := allowedOrigins(&config.Config{Environment: "production", FrontendURL: "https://arcade.example"})
	if len(prod) != 2 || prod[1] != "https://arcade.example" {
		t.Errorf("production origins = %v", prod)
	}
	if len(productionOrigins) != 1 {
		t.Errorf("allowedOrigins modified the shared list: %v", productionOrigins)
	}
}

func TestWebSocketCORSCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		env    string
		origin string
		want   int
	}{
		{"dev any localhost port", "development", "http://localhost:3000", http.StatusOK},
		{"dev foreign origin", "development", "https://evil.example", http.StatusForbidden},
		{"prod listed origin", "production", "https://claw.playmatatu.com", http.StatusOK},
		{"prod localhost", "production", "http://localhost:5173", http.StatusForbidden},
		{"missing origin", "production", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(WebSocketCORSCheck(&config.Config{Environment: tt.env}))
			r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Upgrade", "websocket")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWebSocketCORSCheckIgnoresPlainRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(&config.Config{Environment: "production"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
