package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/game"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", TokenTTLHours: 1, PINMaxAttempts: 3, PINLockoutMinutes: 1}
}

func protected(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), GetMe())
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	good, _, err := IssueToken(cfg, 12, "ada")
	if err != nil {
		t.Fatal(err)
	}
	other, _, _ := IssueToken(&config.Config{JWTSecret: "another-secret"}, 12, "ada")
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"profile_id": 12, "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	noProfile, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + good, "", http.StatusOK},
		{"query token", "", good, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + other, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"no profile claim", "Bearer " + noProfile, "", http.StatusUnauthorized},
	}
	r := protected(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/me"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK {
				var body struct {
					ID   int    `json:"id"`
					Name string `json:"name"`
				}
				json.Unmarshal(w.Body.Bytes(), &body)
				if body.ID != 12 || body.Name != "ada" {
					t.Errorf("me = %+v", body)
				}
			}
		})
	}
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	profiles := accounts.NewMemoryProfiles()
	r := gin.New()
	r.POST("/register", Register(profiles, cfg))
	r.POST("/login", Login(profiles, nil, cfg))

	if w := postJSON(r, "/register", `{"name":"ada","pin":"4321"}`); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	if w := postJSON(r, "/register", `{"name":"ada","pin":"4321"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d", w.Code)
	}
	if w := postJSON(r, "/register", `{"name":"bob","pin":"12"}`); w.Code != http.StatusBadRequest {
		t.Errorf("short pin status = %d", w.Code)
	}
	if w := postJSON(r, "/register", `{"name":"bob"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing pin status = %d", w.Code)
	}

	w := postJSON(r, "/login", `{"name":"ada","pin":"4321"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Token   string `json:"token"`
		Profile struct {
			ID int `json:"id"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Token == "" || body.Profile.ID != 1 {
		t.Fatalf("login body = %s", w.Body.String())
	}

	if w := postJSON(r, "/login", `{"name":"ada","pin":"0000"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong pin status = %d", w.Code)
	}
	if w := postJSON(r, "/login", `{"name":"nobody","pin":"4321"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown profile status = %d", w.Code)
	}
}

func TestMachineErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{game.ErrMachineNotRunning, http.StatusNotFound},
		{game.ErrUnknownCommand, http.StatusBadRequest},
		{game.ErrNoCoins, http.StatusPaymentRequired},
		{game.ErrClawBusy, http.StatusConflict},
		{game.ErrPaused, http.StatusConflict},
		{game.ErrMachineStopped, http.StatusConflict},
		{http.ErrHandlerTimeout, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := machineErrorStatus(tt.err); got != tt.want {
			t.Errorf("machineErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
