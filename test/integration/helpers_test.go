package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sandeepkv93/echo-backend/internal/app"
	"github.com/sandeepkv93/echo-backend/internal/config"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type testServer struct {
	baseURL string
	client  *http.Client
	redis   *miniredis.Miniredis
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Env:                "test",
		HTTPAddr:           "127.0.0.1:0",
		DatabaseDriver:     "sqlite",
		DatabaseURL:        filepath.Join(t.TempDir(), "echo.db"),
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		JWTAccessTTL:       3 * time.Hour,
		JWTRefreshTTL:      720 * time.Hour,
		RedisAddr:          mr.Addr(),
		AuthRateLimitRPM:   1000,
		APIRateLimitRPM:    1000,
		CORSAllowedOrigins: []string{"http://localhost"},
		StoragePresignTTL:  5 * time.Minute,
		ShutdownTimeout:    2 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = a.Shutdown(context.Background())
	})
	return &testServer{baseURL: srv.URL, client: srv.Client(), redis: mr}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func (s *testServer) login(t *testing.T, path string, body any) tokenPair {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, path, "", body)
	if resp.StatusCode >= 300 || !env.Success {
		t.Fatalf("%s failed: status=%d", path, resp.StatusCode)
	}
	var pair tokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return pair
}

// postLogin is safe to call from goroutines other than the test's own.
func (s *testServer) postLogin(body any) (tokenPair, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return tokenPair{}, err
	}
	resp, err := s.client.Post(s.baseURL+"/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		return tokenPair{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return tokenPair{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return tokenPair{}, fmt.Errorf("login status %d code %s", resp.StatusCode, errorCode(env))
	}
	var pair tokenPair
	err = json.Unmarshal(env.Data, &pair)
	return pair, err
}

func credentials(deviceID string) map[string]any {
	return map[string]any{
		"email":    "lin@example.com",
		"password": "correct horse",
		"device":   map[string]any{"id": deviceID},
	}
}

func errorCode(env apiEnvelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}
