package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/save"
	"github.com/playmatatu/clawmachine/internal/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, *save.FileStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	frames, err := geometry.ProceduralFrameTable(1)
	if err != nil {
		t.Fatal(err)
	}
	store := save.NewFileStore(t.TempDir())
	mgr := game.NewManager(store, nil, game.Options{
		Tuning: game.DefaultTuning(),
		Frames: frames,
		Limits: save.DefaultLimits(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	})

	r := gin.New()
	SetupRoutes(r, Deps{
		Config:   &config.Config{Environment: "development", JWTSecret: "test", TokenTTLHours: 1},
		Profiles: accounts.NewMemoryProfiles(),
		Machines: mgr,
		Hub:      ws.NewHub(),
	})
	return r, store
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlayThroughTheAPI(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/auth/register", "", `{"name":"ada","pin":"2468"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var auth struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &auth)

	if w := do(r, http.MethodPost, "/api/v1/machine/command", auth.Token, `{"command":"drop"}`); w.Code != http.StatusNotFound {
		t.Errorf("command before start: %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/api/v1/machine/start", auth.Token, ""); w.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/machine/start", auth.Token, ""); w.Code != http.StatusOK {
		t.Errorf("second start: %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/v1/machine/command", auth.Token, `{"command":"drop"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("drop: %d %s", w.Code, w.Body.String())
	}
	var cmd struct {
		State game.Snapshot `json:"state"`
	}
	json.Unmarshal(w.Body.Bytes(), &cmd)
	if cmd.State.Coins != 19 || cmd.State.Claw.State != game.ClawDescending {
		t.Errorf("after drop: coins=%d claw=%s", cmd.State.Coins, cmd.State.Claw.State)
	}

	if w := do(r, http.MethodPost, "/api/v1/machine/command", auth.Token, `{"command":"dance"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown command: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/machine/state", auth.Token, ""); w.Code != http.StatusOK {
		t.Errorf("state: %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/v1/prizes", auth.Token, "")
	var prizes struct {
		Won      int `json:"won"`
		Total    int `json:"total"`
		Sections []struct {
			Section string `json:"section"`
		} `json:"sections"`
	}
	json.Unmarshal(w.Body.Bytes(), &prizes)
	if w.Code != http.StatusOK || prizes.Total != 44 || len(prizes.Sections) != 4 {
		t.Errorf("prizes: %d total=%d sections=%d", w.Code, prizes.Total, len(prizes.Sections))
	}
	if w := do(r, http.MethodGet, "/api/v1/prizes/shelf/3", auth.Token, ""); w.Code != http.StatusOK {
		t.Errorf("shelf page 3: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/prizes/shelf/4", auth.Token, ""); w.Code != http.StatusNotFound {
		t.Errorf("shelf page 4: %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/api/v1/machine/stop", auth.Token, ""); w.Code != http.StatusOK {
		t.Fatalf("stop: %d %s", w.Code, w.Body.String())
	}
	st, err := store.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("no save after stop: %v", err)
	}
	if st.Coins != 19 {
		t.Errorf("saved coins = %d, want 19", st.Coins)
	}
}

func TestPrivateRoutesNeedToken(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, path := range []string{"/api/v1/me", "/api/v1/machine/state", "/api/v1/prizes"} {
		if w := do(r, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: %d", path, w.Code)
		}
	}
	if w := do(r, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
}
