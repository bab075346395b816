package pumpportal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const tokenList = `{
  "success": true,
  "data": [
    {"address": "Mint111", "symbol": "AAA", "name": "Alpha", "decimals": 6,
     "market_cap": 2000000, "holders": 250, "age_hours": 3, "liquidity": 400000,
     "price_usd": 0.0012, "price_change_24h": 12.5, "volume_24h": 900000,
     "created_at": "2025-01-01T00:00:00Z"}
  ],
  "message": null
}`

func TestGetNewTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tokens/new", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tokenList))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	assets, err := c.GetNewTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	a := assets[0]
	assert.Equal(t, "Mint111", a.Address)
	assert.Equal(t, uint8(6), a.Decimals)
	assert.Equal(t, uint64(2_000_000), a.MarketCap)
	assert.Equal(t, uint32(250), a.Holders)
	assert.InDelta(t, 12.5, a.PriceChange24h, 1e-9)
	assert.Equal(t, uint64(900_000), a.Volume24h)
}

func TestGetTrendingTokensNoKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tokens/trending", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success": true, "data": []}`))
	}))
	defer srv.Close()

	assets, err := NewClient(srv.URL, "", 0).GetTrendingTokens(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "data": [], "message": "rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).GetNewTokens(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPI))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestHTTPStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).GetNewTokens(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGetTokenMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tokens/Mint111/metrics", r.URL.Path)
		_, _ = w.Write([]byte(`{"address": "Mint111", "price": 0.5, "volume_5m": 1, "volume_1h": 2,
			"volume_24h": 3, "holders": 4, "market_cap": 5, "liquidity": 6,
			"price_change_5m": 0.1, "price_change_1h": 0.2, "price_change_24h": 0.3}`))
	}))
	defer srv.Close()

	m, err := NewClient(srv.URL, "", time.Second).GetTokenMetrics(context.Background(), "Mint111")
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Price)
	assert.Equal(t, uint64(6), m.Liquidity)
	assert.Equal(t, uint32(4), m.Holders)
}

func TestLatestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tokens/Priced/metrics":
			_, _ = w.Write([]byte(`{"address": "Priced", "price": 0.002}`))
		case "/api/tokens/Zero/metrics":
			_, _ = w.Write([]byte(`{"address": "Zero", "price": 0}`))
		default:
			http.Error(w, "no such token", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	price, ok := c.LatestPrice(context.Background(), "Priced")
	assert.True(t, ok)
	assert.Equal(t, 0.002, price)

	_, ok = c.LatestPrice(context.Background(), "Zero")
	assert.False(t, ok)
	_, ok = c.LatestPrice(context.Background(), "Missing")
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	c := Criteria{MinMarketCap: 1_000_000, MaxMarketCap: 10_000_000, MinHolders: 100, MaxAgeHours: 24}
	assets := []domain.Asset{
		{Address: "ok", MarketCap: 1_000_000, Holders: 100, AgeHours: 24},
		{Address: "small", MarketCap: 999_999, Holders: 500, AgeHours: 1},
		{Address: "big", MarketCap: 10_000_001, Holders: 500, AgeHours: 1},
		{Address: "few", MarketCap: 5_000_000, Holders: 99, AgeHours: 1},
		{Address: "old", MarketCap: 5_000_000, Holders: 500, AgeHours: 25},
		{Address: "ok2", MarketCap: 10_000_000, Holders: 101, AgeHours: 0},
	}
	got := Filter(assets, c)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Address)
	assert.Equal(t, "ok2", got[1].Address)
}
