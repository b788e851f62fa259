package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/backend"
	"folio/internal/core"
	"folio/internal/services"
	"folio/internal/sheets/memory"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	store := memory.New(memory.WithClock(func() time.Time { return fixedNow }))
	portfolio := services.NewPortfolio(store,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithCacheTTL(0),
	)
	srv := NewServer(":0", portfolio, &backend.Result{Type: backend.Memory, Store: store}, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createAccount(t *testing.T, srv *Server) string {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/investments/accounts",
		`{"type":"brokerage","platform":"degiro","name":"Main brokerage"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[map[string]any](t, rr)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/api/health"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
	}

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	body := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "ready", body["status"])
}

func TestAccountsCRUD(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/investments/accounts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	accounts := decodeBody[[]core.Account](t, rr)
	require.Len(t, accounts, 1)
	assert.Equal(t, core.Brokerage, accounts[0].Type)
	assert.Equal(t, core.DateOf(fixedNow), accounts[0].OpenedDate)

	rr = do(t, srv, http.MethodPut, "/api/investments/accounts/"+id, `{"notes":"long term"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[core.Account](t, rr)
	assert.Equal(t, "long term", updated.Notes)
	assert.Equal(t, "Main brokerage", updated.Name)

	rr = do(t, srv, http.MethodPut, "/api/investments/accounts/missing", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/investments/accounts/"+id, `{"name":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/investments/accounts/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody[map[string]any](t, rr)["success"])

	rr = do(t, srv, http.MethodDelete, "/api/investments/accounts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateAccountValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing platform", `{"type":"brokerage"}`, http.StatusUnprocessableEntity},
		{"missing type", `{"platform":"degiro"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"type":"brokerage","platform":"degiro","openedDate":"someday"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"type":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/investments/accounts", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody[map[string]any](t, rr)["error"])
		})
	}
}

func TestTransactionAmountsAreCoerced(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/investments/transactions",
		fmt.Sprintf(`{"accountId":%q,"date":"2024-06-01","amount":"1 000,50","recurrence":"mensuel"}`, id))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decodeBody[core.Transaction](t, rr)
	assert.Equal(t, "1000.5", tx.Amount.String())
	assert.Equal(t, core.Deposit, tx.Kind)
	assert.Equal(t, core.Monthly, tx.Recurrence)

	rr = do(t, srv, http.MethodPost, "/api/investments/transactions",
		fmt.Sprintf(`{"accountId":%q,"type":"withdrawal","amount":"abc"}`, id))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx = decodeBody[core.Transaction](t, rr)
	assert.True(t, tx.Amount.IsZero())
	assert.Equal(t, core.Withdrawal, tx.Kind)
	assert.Equal(t, core.DateOf(fixedNow), tx.Date)

	rr = do(t, srv, http.MethodPost, "/api/investments/transactions", `{"amount":10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/investments/transactions",
		fmt.Sprintf(`{"accountId":%q,"amount":-5}`, id))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/investments/transactions?accountId="+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]core.Transaction](t, rr), 2)

	rr = do(t, srv, http.MethodDelete, "/api/investments/transactions/"+tx.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, http.MethodDelete, "/api/investments/transactions/"+tx.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestValuations(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/investments/valuations",
		fmt.Sprintf(`{"accountId":%q,"date":"2024-06-10","value":1200}`, id))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	val := decodeBody[core.Valuation](t, rr)

	rr = do(t, srv, http.MethodPut, "/api/investments/valuations/"+val.ID, `{"value":"1250,75","notes":"june"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[core.Valuation](t, rr)
	assert.Equal(t, "1250.75", updated.Value.String())
	assert.Equal(t, "june", updated.Notes)

	rr = do(t, srv, http.MethodPut, "/api/investments/valuations/missing", `{"value":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteAccountCascades(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv)
	do(t, srv, http.MethodPost, "/api/investments/transactions", fmt.Sprintf(`{"accountId":%q,"amount":100}`, id))
	do(t, srv, http.MethodPost, "/api/investments/valuations", fmt.Sprintf(`{"accountId":%q,"value":110}`, id))

	rr := do(t, srv, http.MethodDelete, "/api/investments/accounts/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/investments/transactions", "")
	assert.Empty(t, decodeBody[[]core.Transaction](t, rr))
	rr = do(t, srv, http.MethodGet, "/api/investments/valuations", "")
	assert.Empty(t, decodeBody[[]core.Valuation](t, rr))
}

func TestConfigAndReset(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/investments/config", `{"key":"monthlyTarget","value":500}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	entry := decodeBody[core.ConfigEntry](t, rr)
	assert.Equal(t, core.ConfigEntry{Key: "monthlyTarget", Value: "500"}, entry)

	rr = do(t, srv, http.MethodPost, "/api/investments/config", `{"key":" ","value":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	createAccount(t, srv)
	rr = do(t, srv, http.MethodPost, "/api/investments/reset", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/investments/accounts", "")
	assert.Empty(t, decodeBody[[]core.Account](t, rr))
	rr = do(t, srv, http.MethodGet, "/api/investments/config", "")
	cfg := decodeBody[map[string]string](t, rr)
	assert.NotContains(t, cfg, "monthlyTarget")
	assert.Equal(t, core.DefaultCurrency, cfg[core.ConfigCurrency])
}

func TestReferenceLists(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/investments/types", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]core.Option](t, rr), len(core.AccountTypes))

	rr = do(t, srv, http.MethodGet, "/api/investments/platforms", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]core.Option](t, rr), len(core.Platforms))
}

func TestStorageInfo(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/investments/storage", "")
	require.Equal(t, http.StatusOK, rr.Code)
	info := decodeBody[backend.Info](t, rr)
	assert.Equal(t, backend.Info{Backend: "memory", Location: "memory", Exists: true}, info)
}

func TestSummaryJSON(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv)
	do(t, srv, http.MethodPost, "/api/investments/transactions",
		fmt.Sprintf(`{"accountId":%q,"date":"2024-06-01","amount":1000}`, id))
	do(t, srv, http.MethodPost, "/api/investments/valuations",
		fmt.Sprintf(`{"accountId":%q,"date":"2024-06-10","value":1200}`, id))

	rr := do(t, srv, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[map[string]any](t, rr)

	assert.Equal(t, 1200.0, body["totalWealth"])
	assert.Equal(t, 1000.0, body["totalInvestedPortfolio"])
	assert.Equal(t, 200.0, body["totalGain"])
	assert.Equal(t, 20.0, body["globalPerformance"])
	assert.Equal(t, 1000.0, body["depositsThisMonth"])

	history, ok := body["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 12)
	last := history[11].(map[string]any)
	assert.Equal(t, "2024-06", last["monthKey"])
	assert.Equal(t, 1200.0, last["value"])

	accounts := body["accounts"].([]any)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Main brokerage", accounts[0].(map[string]any)["name"])
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t)
	pngMagic := []byte("\x89PNG\r\n\x1a\n")

	for _, path := range []string{"/api/dashboard/history.png", "/api/dashboard/allocation.png"} {
		rr := do(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"), path)
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), pngMagic), path)
	}

	id := createAccount(t, srv)
	do(t, srv, http.MethodPost, "/api/investments/valuations",
		fmt.Sprintf(`{"accountId":%q,"date":"2024-05-31","value":800}`, id))
	rr := do(t, srv, http.MethodGet, "/api/dashboard/allocation.png", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), pngMagic))
}

func TestDashboardPage(t *testing.T) {
	srv := newTestServer(t)
	createAccount(t, srv)

	rr := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	page := rr.Body.String()
	assert.Contains(t, page, "Total wealth")
	assert.Contains(t, page, "Main brokerage")
	assert.Contains(t, page, "Brokerage account")
	assert.Contains(t, page, "/api/dashboard/history.png")

	rr = do(t, srv, http.MethodGet, "/static/style.css", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, WithRateLimit(1))

	createAccount(t, srv)
	rr := do(t, srv, http.MethodPost, "/api/investments/accounts", `{"type":"crypto","platform":"binance"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// reads are never limited
	rr = do(t, srv, http.MethodGet, "/api/investments/accounts", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodPatch, "/api/investments/accounts", `{}`).Code)
}
