package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clobcore/matchcore/internal/market"
	"github.com/clobcore/matchcore/internal/marketpool"
	"github.com/clobcore/matchcore/internal/paramvalidate"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	pool := marketpool.New(nil)
	t.Cleanup(pool.ReleaseAll)

	registry := market.NewRegistry(nil, market.Sizing{
		SlabCapacity:       16,
		EventQueueCapacity: 16,
		CallbackInfoLen:    8,
		FeeBudget:          100,
		EscrowBalance:      1000,
	}, pool, nil, nil)

	return Deps{
		Logger:       zap.NewNop(),
		Registry:     registry,
		Consumer:     nil,
		Validator:    paramvalidate.New(),
		JWTSecret:    "",
		RateLimitRPM: 600,
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := NewRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceOrderRejectsInvalidBody(t *testing.T) {
	r := NewRouter(testDeps(t))

	body, _ := json.Marshal(map[string]interface{}{"side": "sideways"})
	req := httptest.NewRequest(http.MethodPost, "/v1/markets/btc-usd/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderAcceptsValidBody(t *testing.T) {
	r := NewRouter(testDeps(t))

	body, _ := json.Marshal(map[string]interface{}{
		"max_asset_qty":       10,
		"max_quote_qty":       10,
		"side":                "bid",
		"limit_price":         1 << 32,
		"callback_info":       bytes.Repeat([]byte{0}, 8),
		"post_allowed":        true,
		"self_trade_behavior": "decrement_take",
		"match_limit":         10,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/markets/btc-usd/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
