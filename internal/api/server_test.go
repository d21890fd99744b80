package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"strategy-core/internal/balance"
	"strategy-core/internal/engine"
	"strategy-core/internal/events"
	"strategy-core/internal/exec"
	"strategy-core/internal/monitor"
	"strategy-core/internal/profile"
	"strategy-core/pkg/db"
)

func newTestAPIServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	bus := events.NewBus()
	bal := balance.NewManager(10000)
	eng := engine.New(profile.Default(), bal, bus, database)
	paper := exec.NewPaper(exec.SimConfig{}, eng)
	metrics := monitor.NewSystemMetrics()

	server := NewServer(
		bus,
		database,
		eng,
		bal,
		paper,
		metrics,
		SystemMeta{
			Profile: "meanrev-baseline",
			Symbols: []string{"BTCUSDT"},
			Version: "test",
		},
		"test-secret",
		"operator-key",
	)

	httpServer := httptest.NewServer(server.Router)

	cleanup := func() {
		httpServer.Close()
		_ = database.Close()
	}
	return httpServer, cleanup
}

func doJSONRequest(t *testing.T, client *http.Client, method, url, token string, payload any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func obtainToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	status := doJSONRequest(t, client, http.MethodPost, baseURL+"/api/auth/token", "", map[string]string{
		"operator": "tester",
		"key":      "operator-key",
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		t.Fatalf("token issue failed status=%d resp=%+v", status, resp)
	}
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	var resp struct {
		Status string `json:"status"`
	}
	status := doJSONRequest(t, ts.Client(), http.MethodGet, ts.URL+"/health", "", nil, &resp)
	if status != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("health status=%d resp=%+v", status, resp)
	}
}

func TestStatusIsPublic(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	var resp struct {
		Profile string `json:"profile"`
		Paused  bool   `json:"paused"`
		Tick    int    `json:"tick"`
	}
	status := doJSONRequest(t, ts.Client(), http.MethodGet, ts.URL+"/api/status", "", nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if resp.Profile != "meanrev-baseline" || resp.Paused || resp.Tick != 0 {
		t.Fatalf("unexpected status payload: %+v", resp)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	var resp struct {
		Code string `json:"code"`
	}
	status := doJSONRequest(t, ts.Client(), http.MethodGet, ts.URL+"/api/positions", "", nil, &resp)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if resp.Code != "MISSING_TOKEN" {
		t.Fatalf("expected MISSING_TOKEN, got %s", resp.Code)
	}

	status = doJSONRequest(t, ts.Client(), http.MethodGet, ts.URL+"/api/positions", "not-a-jwt", nil, &resp)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", status)
	}
}

func TestTokenIssueRejectsWrongKey(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	var resp struct {
		Code string `json:"code"`
	}
	status := doJSONRequest(t, ts.Client(), http.MethodPost, ts.URL+"/api/auth/token", "", map[string]string{
		"operator": "tester",
		"key":      "wrong",
	}, &resp)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if resp.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", resp.Code)
	}
}

func TestPositionsEmptyAfterBoot(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	client := ts.Client()
	token := obtainToken(t, client, ts.URL)

	var resp struct {
		Positions []positionResponse `json:"positions"`
	}
	status := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/positions", token, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(resp.Positions) != 0 {
		t.Fatalf("expected no positions, got %d", len(resp.Positions))
	}
}

func TestPauseAndResumeControl(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	client := ts.Client()
	token := obtainToken(t, client, ts.URL)

	var pauseResp struct {
		Paused bool `json:"paused"`
	}
	status := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/control/pause", token, nil, &pauseResp)
	if status != http.StatusOK || !pauseResp.Paused {
		t.Fatalf("pause failed: status=%d resp=%+v", status, pauseResp)
	}

	var statusResp struct {
		Paused bool `json:"paused"`
	}
	doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/status", "", nil, &statusResp)
	if !statusResp.Paused {
		t.Fatal("status should report paused after control/pause")
	}

	doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/control/resume", token, nil, &pauseResp)
	if pauseResp.Paused {
		t.Fatal("resume should clear the paused flag")
	}

	doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/status", "", nil, &statusResp)
	if statusResp.Paused {
		t.Fatal("status should report running after control/resume")
	}
}

func TestBalanceEndpoint(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	client := ts.Client()
	token := obtainToken(t, client, ts.URL)

	var resp struct {
		Total     float64 `json:"total"`
		Available float64 `json:"available"`
		Reserved  float64 `json:"reserved"`
	}
	status := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/balance", token, nil, &resp)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if resp.Total != 10000 || resp.Available != 10000 || resp.Reserved != 0 {
		t.Fatalf("unexpected balance: %+v", resp)
	}
}
