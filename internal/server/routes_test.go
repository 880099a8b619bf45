package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	"spendwise/internal/models"
	"spendwise/internal/repositories/memory"
	"spendwise/internal/services"
)

type discardEmail struct{}

func (discardEmail) SendEmail(to, subject, msg string) error { return nil }

type capturedEmail struct {
	mu   sync.Mutex
	sent []string
}

func (c *capturedEmail) SendEmail(to, subject, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *capturedEmail) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

func newTestServer(t *testing.T) *httptest.Server {
	return newTestServerWithEmail(t, discardEmail{})
}

func newTestServerWithEmail(t *testing.T, email services.EmailService) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Port:            8080,
		DataBackend:     config.BackendMemory,
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
	}
	store := memory.NewStore()
	s := New(cfg, Dependencies{
		Health: memoryHealth{},
		Repos: Repositories{
			Users:      store.Users(),
			Expenses:   store.Expenses(),
			Categories: store.Categories(),
			OTPs:       store.OTPs(),
		},
		Email: email,
	})
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func login(t *testing.T, ts *httptest.Server, username string) models.TokenPair {
	t.Helper()
	resp, _ := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(data, &pair))
	return pair
}

func TestHealthAndIndex(t *testing.T) {
	ts := newTestServer(t)

	resp, body := call(t, ts, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Spendwise API"}`, string(body))

	resp, body = call(t, ts, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"up"`)

	resp, _ = call(t, ts, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistrationAndAvailability(t *testing.T) {
	ts := newTestServer(t)

	resp, body := call(t, ts, http.MethodPost, "/api/auth/check-username", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"exist":false}`, string(body))

	login(t, ts, "alice")

	resp, body = call(t, ts, http.MethodPost, "/api/auth/check-username", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"exist":true}`, string(body))

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpenseEndpoints(t *testing.T) {
	ts := newTestServer(t)
	pair := login(t, ts, "alice")

	for _, e := range []map[string]interface{}{
		{"_id": "a", "amount": 12.5, "category": "Food", "description": "lunch", "date": "2024-01-01T12:00:00"},
		{"_id": "b", "amount": 40, "category": "Transport", "date": "2024-01-02"},
		{"_id": "c", "amount": 7, "category": "Food", "description": "coffee", "date": "2024-01-03"},
	} {
		resp, body := call(t, ts, http.MethodPost, "/api/expenses", pair.AccessToken, e)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := call(t, ts, http.MethodGet, "/api/expenses?category=Food&sort_by=amount&order=asc", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.ExpenseList
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Expenses, 2)
	assert.Equal(t, "c", list.Expenses[0].ID)
	assert.Equal(t, "a", list.Expenses[1].ID)

	resp, body = call(t, ts, http.MethodGet, "/api/expenses?limit=1&page=2", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Expenses, 1)
	assert.Equal(t, "b", list.Expenses[0].ID, "page two of the newest-first listing")

	for _, bad := range []string{"?page=0", "?page=9223372036854775807&limit=100", "?limit=500", "?sort_by=colour", "?order=sideways", "?start_date=soon", "?min_amount=abc"} {
		resp, _ = call(t, ts, http.MethodGet, "/api/expenses"+bad, pair.AccessToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}

	resp, _ = call(t, ts, http.MethodPost, "/api/expenses", pair.AccessToken, map[string]interface{}{"_id": "a", "amount": 1, "category": "Food"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodDelete, "/api/expenses", pair.AccessToken, map[string]string{"_id": "a"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, ts, http.MethodDelete, "/api/expenses", pair.AccessToken, map[string]string{"_id": "a"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "deleting a missing expense is a no-op")

	resp, _ = call(t, ts, http.MethodGet, "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpensesAreIsolatedPerUser(t *testing.T) {
	ts := newTestServer(t)
	alice := login(t, ts, "alice")
	bob := login(t, ts, "bob")

	resp, _ := call(t, ts, http.MethodPost, "/api/expenses", alice.AccessToken, map[string]interface{}{"amount": 3, "category": "Food"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := call(t, ts, http.MethodGet, "/api/expenses", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"expenses":[]}`, string(body))
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	pair := login(t, ts, "alice")

	resp, _ := call(t, ts, http.MethodPost, "/api/categories", pair.AccessToken, map[string]string{"name": "Pets"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := call(t, ts, http.MethodGet, "/api/categories", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.CategoryList
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "Pets", list.Categories[len(list.Categories)-1].Name)

	resp, _ = call(t, ts, http.MethodDelete, "/api/categories", pair.AccessToken, map[string]string{"name": "Pets"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPost, "/api/agent/suggest-category", pair.AccessToken, map[string]interface{}{"description": "vet", "amount": 80})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "no model is configured")
}

func TestRefreshAndLogout(t *testing.T) {
	ts := newTestServer(t)
	pair := login(t, ts, "alice")

	resp, _ := call(t, ts, http.MethodPost, "/api/auth/refresh", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "access tokens cannot refresh")

	resp, body := call(t, ts, http.MethodPost, "/api/auth/refresh", pair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed models.TokenPair
	require.NoError(t, json.Unmarshal(body, &refreshed))
	require.NotEmpty(t, refreshed.AccessToken)

	resp, body = call(t, ts, http.MethodGet, "/api/me", refreshed.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"username":"alice"`)
	assert.NotContains(t, string(body), "password")

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/logout", pair.AccessToken, map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodGet, "/api/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = call(t, ts, http.MethodPost, "/api/auth/refresh", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodGet, "/api/me", refreshed.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "other sessions stay valid")
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func TestPasswordReset(t *testing.T) {
	mail := &capturedEmail{}
	ts := newTestServerWithEmail(t, mail)

	resp, _ := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "old-secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, mail.last())

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	match := otpPattern.FindStringSubmatch(mail.last())
	require.Len(t, match, 2)

	reset := map[string]string{"email": "alice@example.com", "otp": match[1], "new_password": "new-secret"}
	resp, _ = call(t, ts, http.MethodPost, "/api/auth/reset-password", "", reset)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "codes are single use")

	resp, _ = call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "old-secret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "new-secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/expenses", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
