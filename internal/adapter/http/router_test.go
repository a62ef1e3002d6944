package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/expenseledger/internal/adapter/http/dto"
	"github.com/iho/expenseledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/expenseledger/internal/adapter/http/middleware"
	"github.com/iho/expenseledger/internal/adapter/repository/memory"
	"github.com/iho/expenseledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/expenseledger/internal/adapter/repository/redis"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
	"github.com/iho/expenseledger/internal/usecase"
)

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	store := memory.NewStore(postgres.NewULIDGenerator())
	retrier := postgres.NewRetrierWithConfig(zerolog.Nop(), postgres.RetrierConfig{
		MaxRetries:      10,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})

	wallets := usecase.NewWalletUseCase(store, nil, retrier, nil, zerolog.Nop(), nil, 0)
	txns := usecase.NewTransactionUseCase(store, wallets, nil, retrier, nil, zerolog.Nop(), nil)
	stats := usecase.NewStatsUseCase(store, nil, time.Minute, zerolog.Nop(), nil)
	reconcile := usecase.NewReconciliationUseCase(store, wallets, nil)

	cfg := RouterConfig{
		WalletHandler:      handler.NewWalletHandler(wallets, reconcile),
		TransactionHandler: handler.NewTransactionHandler(txns),
		StatsHandler:       handler.NewStatsHandler(stats),
		HealthHandler:      handler.NewHealthHandler(map[string]handler.Check{"store": store.Ping}),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func do(t *testing.T, router http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/metrics", "").Code)
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	}))

	rec := do(t, router, http.MethodOptions, "/api/v1/wallets/", "",
		"Origin", "https://app.example.com",
		"Access-Control-Request-Method", http.MethodPost)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Routes)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/wallets/",
		"GET /api/v1/wallets/",
		"GET /api/v1/wallets/{id}",
		"PUT /api/v1/wallets/{id}",
		"DELETE /api/v1/wallets/{id}",
		"POST /api/v1/wallets/{id}/purge",
		"GET /api/v1/wallets/{id}/reconcile",
		"GET /api/v1/reconcile",
		"POST /api/v1/transactions/",
		"GET /api/v1/transactions/",
		"PUT /api/v1/transactions/{id}",
		"DELETE /api/v1/transactions/{id}",
		"GET /api/v1/stats",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func TestNewRouter_LedgerFlow(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
	}))

	rec := do(t, router, http.MethodPost, "/api/v1/wallets/", `{"uid":"u1","name":"Cash"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var wallet dto.WalletResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))

	date := time.Now().UTC().Format(time.RFC3339)
	income := `{"uid":"u1","type":"income","amount":"100","walletId":"` + wallet.ID + `","date":"` + date + `"}`
	rec = do(t, router, http.MethodPost, "/api/v1/transactions/", income)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	expense := `{"uid":"u1","type":"expense","amount":"30","walletId":"` + wallet.ID + `","category":"food","date":"` + date + `"}`
	rec = do(t, router, http.MethodPost, "/api/v1/transactions/", expense)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var spent dto.TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spent))

	overdraw := `{"uid":"u1","type":"expense","amount":"150","walletId":"` + wallet.ID + `","category":"rent","date":"` + date + `"}`
	rec = do(t, router, http.MethodPost, "/api/v1/transactions/", overdraw)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	var apiErr dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "insufficient_balance", apiErr.Error)

	rec = do(t, router, http.MethodGet, "/api/v1/wallets/"+wallet.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	assert.True(t, wallet.Amount.Equal(decimal.NewFromInt(70)), "amount %s", wallet.Amount)
	assert.True(t, wallet.TotalExpense.Equal(decimal.NewFromInt(30)))

	rec = do(t, router, http.MethodGet, "/api/v1/transactions/?uid=u1&walletId="+wallet.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.ListTransactionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	rec = do(t, router, http.MethodGet, "/api/v1/stats?uid=u1&period=week", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Len(t, stats.Series, 7)

	rec = do(t, router, http.MethodDelete, "/api/v1/transactions/"+spent.ID+"?walletId="+wallet.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/v1/wallets/"+wallet.ID+"/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsReconciled)
	assert.Equal(t, 1, result.TransactionCount)

	rec = do(t, router, http.MethodDelete, "/api/v1/wallets/"+wallet.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/wallets/"+wallet.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouter_IdempotentReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = redisrepo.NewIdempotencyStore(client)
	}))

	body := `{"uid":"u1","name":"Cash"}`
	first := do(t, router, http.MethodPost, "/api/v1/wallets/", body, apimiddleware.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(t, router, http.MethodPost, "/api/v1/wallets/", body, apimiddleware.IdempotencyKeyHeader, "key-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := do(t, router, http.MethodGet, "/api/v1/wallets/?uid=u1", "")
	var list dto.ListWalletsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total, "replay must not create a second wallet")
}

func TestNewRouter_ReadinessReportsFailedCheck(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.HealthHandler = handler.NewHealthHandler(map[string]handler.Check{
			"redis": func(ctx context.Context) error { return context.DeadlineExceeded },
		})
	}))

	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/ready", "").Code)
}
