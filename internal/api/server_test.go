package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"poolsim/internal/metrics"
	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/swap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type resultBody struct {
	Pool           model.PoolSnapshot `json:"pool"`
	Provider       string             `json:"provider"`
	ProviderShares decimal.Decimal    `json:"provider_shares"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := metrics.New()
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(pool.NewEngine(pool.Options{}), Options{Metrics: m, Pool: "A/B"}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createBody() map[string]string {
	return map[string]string{
		"provider":      "admin",
		"amount_a":      "1000",
		"amount_b":      "4800",
		"fee_lp_rate":   "0.002",
		"fee_team_rate": "0.001",
	}
}

func TestPoolLifecycle(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	var snapshot model.PoolSnapshot
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/pool", nil, &snapshot))
	req.False(snapshot.Initialized)

	var created resultBody
	req.Equal(http.StatusOK, do(t, srv, http.MethodPost, "/api/pool", createBody(), &created))
	req.Equal("2190.890230020664453827", created.Pool.TotalShares.String())
	req.Equal("admin", created.Provider)

	var failure errorResponse
	req.Equal(http.StatusConflict, do(t, srv, http.MethodPost, "/api/pool", createBody(), &failure))
	req.Equal("ALREADY_INITIALIZED", failure.Code)

	var quote swap.Quote
	query := url.Values{"direction": {"a->b"}, "amount_in": {"10"}}
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/quote?"+query.Encode(), nil, &quote))
	req.Equal("47.383585651058942344", quote.AmountOut.String())

	var reverse swap.Quote
	query = url.Values{"direction": {"A_TO_B"}, "amount_out": {"47.383585651058942344"}}
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/quote/reverse?"+query.Encode(), nil, &reverse))
	req.True(reverse.AmountIn.Sub(decimal.NewFromInt(10)).Abs().LessThan(decimal.New(1, -15)), "amount in %s", reverse.AmountIn)

	failure = errorResponse{}
	swapBody := map[string]string{"direction": "A_TO_B", "amount_in": "500", "max_slippage": "0.01"}
	req.Equal(http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/swap", swapBody, &failure))
	req.Equal("SLIPPAGE_EXCEEDED", failure.Code)

	var swapped resultBody
	swapBody = map[string]string{"direction": "A_TO_B", "amount_in": "10", "max_slippage": "1"}
	req.Equal(http.StatusOK, do(t, srv, http.MethodPost, "/api/swap", swapBody, &swapped))
	req.Equal("1009.99", swapped.Pool.ReserveA.String())
	req.Equal("0.01", swapped.Pool.ProtocolEarningsA.String())

	var entry model.LedgerEntry
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/providers/admin", nil, &entry))
	req.True(entry.Shares.Equal(created.Pool.TotalShares))

	failure = errorResponse{}
	removeBody := map[string]string{"provider": "nobody", "amount_a": "1", "amount_b": "4.7"}
	req.Equal(http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/liquidity/remove", removeBody, &failure))
	req.Equal("INSUFFICIENT_SHARES", failure.Code)

	var events []model.EventRecordJSON
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/events?since=1", nil, &events))
	req.Len(events, 1)
	req.Equal(model.EventSwap, events[0].Kind)

	var windows []model.PoolWindowMetrics
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/windows?window=24h", nil, &windows))
	req.NotEmpty(windows)
	req.Equal("A/B", windows[len(windows)-1].Pool)
}

func TestPairedAmount(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	var failure errorResponse
	req.Equal(http.StatusConflict, do(t, srv, http.MethodGet, "/api/liquidity/paired?amount_a=10", nil, &failure))
	req.Equal("POOL_NOT_INITIALIZED", failure.Code)

	req.Equal(http.StatusOK, do(t, srv, http.MethodPost, "/api/pool", createBody(), nil))

	var paired pairedResponse
	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/liquidity/paired?amount_a=10", nil, &paired))
	req.Equal("48", paired.AmountB.String())

	req.Equal(http.StatusOK, do(t, srv, http.MethodGet, "/api/liquidity/paired?amount_b=48", nil, &paired))
	req.Equal("10", paired.AmountA.String())
}

func TestBadRequests(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)

	req.Equal(http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/ops", map[string]string{"op": "bogus"}, nil))
	req.Equal(http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/quote?direction=up&amount_in=1", nil, nil))
	req.Equal(http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/events?since=x", nil, nil))
	req.Equal(http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/windows?window=0s", nil, nil))

	failure := errorResponse{}
	body := createBody()
	body["fee_lp_rate"] = "0.7"
	body["fee_team_rate"] = "0.3"
	req.Equal(http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/pool", body, &failure))
	req.Equal("INVALID_FEE_CONFIG", failure.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/pool", createBody(), nil))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(data)
	require.True(t, strings.Contains(text, `poolsim_operations_total{op="create",result="ok"} 1`), text)
	require.True(t, strings.Contains(text, "poolsim_reserve_a 1000"), text)
}
