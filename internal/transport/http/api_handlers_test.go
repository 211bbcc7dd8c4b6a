package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, env *testEnv, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := startTestServer(t, nil)

	resp := doJSON(t, env, "/register", `{"email":"ann@example.com","password":"s3cret","name":"Ann"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var reg RegisterResponse
	decodeBody(t, resp, &reg)
	if reg.Message != "User registered successfully" || reg.Name != "Ann" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	resp = doJSON(t, env, "/register", `{"email":"ann@example.com","password":"other","name":"Annie"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for duplicate, got %d", resp.Code)
	}
	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	if errResp.Error != "User already exists" {
		t.Fatalf("unexpected error: %q", errResp.Error)
	}

	resp = doJSON(t, env, "/register", `{"email":"bob@example.com","password":"s3cret"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing name, got %d", resp.Code)
	}
	decodeBody(t, resp, &errResp)
	if errResp.Error != "Email, password, and name are required" {
		t.Fatalf("unexpected error: %q", errResp.Error)
	}
	longPassword := strings.Repeat("p", 73)
	resp = doJSON(t, env, "/register", `{"email":"bob@example.com","password":"`+longPassword+`","name":"Bob"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for overlong password, got %d: %s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &errResp)
	if errResp.Error != "Password must be at most 72 bytes" {
		t.Fatalf("unexpected error: %q", errResp.Error)
	}
}

func TestLoginProfileLogout(t *testing.T) {
	env := startTestServer(t, nil)

	if resp := doJSON(t, env, "/register", `{"email":"ann@example.com","password":"s3cret","name":"Ann"}`); resp.Code != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.Code)
	}

	resp := doJSON(t, env, "/login", `{"email":"ann@example.com","password":"wrong"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for wrong password, got %d", resp.Code)
	}
	var wrong ErrorResponse
	decodeBody(t, resp, &wrong)

	resp = doJSON(t, env, "/login", `{"email":"nobody@example.com","password":"s3cret"}`)
	var unknown ErrorResponse
	decodeBody(t, resp, &unknown)
	if resp.Code != http.StatusBadRequest || unknown != wrong {
		t.Fatalf("unknown contact distinguishable from wrong password: %d %+v vs %+v", resp.Code, unknown, wrong)
	}

	resp = doJSON(t, env, "/login", `{"email":"ann@example.com","password":"s3cret"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var session SessionResponse
	decodeBody(t, resp, &session)
	if session.Token == "" || session.Name != "Ann" {
		t.Fatalf("unexpected login response: %+v", session)
	}

	resp = doJSON(t, env, "/profile", `{"token":"`+session.Token+`"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var profile SessionResponse
	decodeBody(t, resp, &profile)
	if profile != session {
		t.Fatalf("profile mismatch: %+v vs %+v", profile, session)
	}

	resp = doJSON(t, env, "/logout", `{"token":"`+session.Token+`"}`)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 from logout, got %d", resp.Code)
	}

	resp = doJSON(t, env, "/profile", `{"token":"`+session.Token+`"}`)
	if resp.Code != http.StatusNoContent || resp.Body.Len() != 0 {
		t.Fatalf("expected empty 204 after logout, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestProfileUnknownToken(t *testing.T) {
	env := startTestServer(t, nil)

	resp := doJSON(t, env, "/profile", `{"token":"garbage"}`)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", resp.Body.String())
	}
}

func TestLogoutMalformedBody(t *testing.T) {
	env := startTestServer(t, nil)

	resp := doJSON(t, env, "/logout", `{`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	env := startTestServer(t, nil)

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}

	rec := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rapidchat_connections_active") {
		t.Fatalf("metrics output missing rapidchat collectors")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := startTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
}
