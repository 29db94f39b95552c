package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

var governor = common.HexToAddress("0xcdc2F106E9694B16FFdBFCE2a2612076Ce44b4FE")

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newRouter(t *testing.T, oracle ibswap.Oracle) http.Handler {
	t.Helper()
	logger := quietLogger()
	verifier := services.NewQuoteVerifier(oracle, logger)
	checks := services.NewCheckService(verifier, cache.NewInMemoryCache(), services.DefaultCheckConfig(), logger)
	return NewRouter(RouterDeps{
		Version:  "test",
		Mode:     "simulated",
		Tokens:   entities.DefaultRegistry(),
		Verifier: verifier,
		Checks:   checks,
		Logger:   logger,
	})
}

func newSimulatedRouter(t *testing.T) http.Handler {
	t.Helper()
	sim := ibswap.NewMainnetSimulation(ibswap.DeployConfig{Governor: governor})
	require.NoError(t, sim.Session(governor).AddSupportedTokens(context.Background(), []common.Address{
		entities.IBUSDT.Address, entities.IBUSDC.Address, entities.IBDAI.Address,
	}))
	return newRouter(t, sim.Session(governor))
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newSimulatedRouter(t), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "simulated", resp.Mode)
}

func TestTokens(t *testing.T) {
	router := newSimulatedRouter(t)

	var list struct {
		Tokens []TokenResponse `json:"tokens"`
	}
	rec := do(t, router, http.MethodGet, "/api/v1/tokens", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Len(t, list.Tokens, 8)

	rec = do(t, router, http.MethodGet, "/api/v1/tokens?wrapped=true", nil)
	decode(t, rec, &list)
	assert.Len(t, list.Tokens, 4)

	var tok TokenResponse
	rec = do(t, router, http.MethodGet, "/api/v1/tokens/ibDAIv2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &tok)
	assert.Equal(t, uint8(8), tok.Decimals)
	assert.Equal(t, entities.DAI.Address.Hex(), tok.Underlying)

	rec = do(t, router, http.MethodGet, "/api/v1/tokens/ibBTC", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEstimate(t *testing.T) {
	router := newSimulatedRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/estimate?tokenIn=ibUSDTv2&tokenOut=ibDAIv2&amountIn=8000000000000&hops=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EstimateResponse
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.HopCount)
	require.Len(t, resp.Routes, 3)
	assert.Equal(t, "1760000000", resp.UnderlyingIn)
	assert.Equal(t, resp.Routes[2], resp.EstimatedOut)
	assert.True(t, strings.HasSuffix(resp.EstimatedFormatted, " DAI"))
}

func TestEstimateRejections(t *testing.T) {
	router := newSimulatedRouter(t)

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"missing params", "tokenIn=ibUSDTv2", http.StatusBadRequest, "missing_params"},
		{"unknown token", "tokenIn=ibBTC&tokenOut=ibDAIv2&amountIn=1", http.StatusBadRequest, "invalid_token_in"},
		{"negative amount", "tokenIn=ibUSDTv2&tokenOut=ibDAIv2&amountIn=-5", http.StatusBadRequest, "invalid_amount"},
		{"same token", "tokenIn=ibUSDTv2&tokenOut=ibUSDTv2&amountIn=1", http.StatusBadRequest, "invalid_pair"},
		{"too many hops", "tokenIn=ibUSDTv2&tokenOut=ibDAIv2&amountIn=8000000000000&hops=3", http.StatusBadRequest, "invalid_route"},
		{"bad hops", "tokenIn=ibUSDTv2&tokenOut=ibDAIv2&amountIn=1&hops=two", http.StatusBadRequest, "invalid_hops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/v1/estimate?"+tt.query, nil)
			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestMinimum(t *testing.T) {
	router := newSimulatedRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/minimum?tokenOut=ibUSDCv2&estimated=2000000", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MinimumResponse
	decode(t, rec, &resp)
	// floor(2000000 * 0.9) USDC at 2.25e14 per wrapped unit
	assert.Equal(t, "8000000000", resp.MinAmountOut)
	assert.Equal(t, "0.1", resp.Tolerance)

	rec = do(t, router, http.MethodGet, "/api/v1/minimum?tokenOut=ibUSDCv2&estimated=2000000&tolerance=1.5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwap(t *testing.T) {
	router := newSimulatedRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/swap", SwapRequest{
		TokenIn:      "ibUSDTv2",
		TokenOut:     entities.IBETH.Address.Hex(),
		AmountIn:     "8000000000000",
		MinAmountOut: "1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SwapResponse
	decode(t, rec, &resp)
	out, ok := new(big.Int).SetString(resp.AmountOut, 10)
	require.True(t, ok)
	assert.Positive(t, out.Sign())
	assert.NotEmpty(t, resp.TxHash)
}

func TestSwapRejections(t *testing.T) {
	tests := []struct {
		name   string
		req    SwapRequest
		status int
		code   string
		reason string
	}{
		{
			name:   "expired",
			req:    SwapRequest{TokenIn: "ibUSDTv2", TokenOut: "ibUSDCv2", AmountIn: "8000000000000", MinAmountOut: "0", Deadline: "1"},
			status: http.StatusConflict,
			code:   "deadline_exceeded",
			reason: entities.ReasonExpired,
		},
		{
			name:   "slippage",
			req:    SwapRequest{TokenIn: "ibUSDTv2", TokenOut: "ibUSDCv2", AmountIn: "8000000000000", MinAmountOut: "1000000000000000"},
			status: http.StatusConflict,
			code:   "slippage_exceeded",
			reason: entities.ReasonInsufficientOutput,
		},
		{
			name:   "bad minimum",
			req:    SwapRequest{TokenIn: "ibUSDTv2", TokenOut: "ibUSDCv2", AmountIn: "8000000000000", MinAmountOut: "lots"},
			status: http.StatusBadRequest,
			code:   "invalid_amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newSimulatedRouter(t), http.MethodPost, "/api/v1/swap", tt.req)
			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.reason, resp.Reason)
		})
	}
}

func TestSwapRejectsUnknownFields(t *testing.T) {
	rec := do(t, newSimulatedRouter(t), http.MethodPost, "/api/v1/swap", map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify(t *testing.T) {
	router := newSimulatedRouter(t)

	tests := []struct {
		req    VerifyRequest
		status int
		within bool
		dev    string
	}{
		{VerifyRequest{Estimated: "1000", Actual: "1004"}, http.StatusOK, true, "0.400000"},
		{VerifyRequest{Estimated: "1000", Actual: "995"}, http.StatusOK, false, "0.500000"},
		{VerifyRequest{Estimated: "1000", Actual: "1009", Threshold: "1"}, http.StatusOK, true, "0.900000"},
		{VerifyRequest{Estimated: "0", Actual: "1"}, http.StatusBadRequest, false, ""},
		{VerifyRequest{Estimated: "1000", Actual: "1", Threshold: "-1"}, http.StatusBadRequest, false, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.req.Estimated, tt.req.Actual), func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/v1/verify", tt.req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var resp VerifyResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.within, resp.WithinTolerance)
			assert.Equal(t, tt.dev, resp.Deviation)
		})
	}
}

func TestChecks(t *testing.T) {
	router := newSimulatedRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/checks", CheckRequest{Suite: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var suite SuiteResponse
	decode(t, rec, &suite)
	assert.True(t, suite.Passed, suite.Errors)
	require.Len(t, suite.Reports, 4)

	rec = do(t, router, http.MethodPost, "/api/v1/checks", CheckRequest{
		TokenIn: "ibUSDCv2", TokenOut: "ibETHv2", AmountIn: "1000000000000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var single entities.CheckReport
	decode(t, rec, &single)
	assert.Equal(t, "ibUSDCv2->ibETHv2", single.Scenario)
	assert.Equal(t, 1, single.HopCount)
	assert.True(t, single.Passed)

	var list struct {
		Reports []*entities.CheckReport `json:"reports"`
	}
	rec = do(t, router, http.MethodGet, "/api/v1/checks?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Reports, 3)
	assert.Equal(t, single.ID, list.Reports[0].ID)

	rec = do(t, router, http.MethodGet, "/api/v1/checks/"+single.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/checks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/checks?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckWithUnsupportedToken(t *testing.T) {
	sim := ibswap.NewMainnetSimulation(ibswap.DeployConfig{Governor: governor})
	router := newRouter(t, sim.Session(governor))

	rec := do(t, router, http.MethodPost, "/api/v1/checks", CheckRequest{
		TokenIn: "ibUSDTv2", TokenOut: "ibUSDCv2", AmountIn: "8000000000000", Hops: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "unsupported_token", resp.Error)
	assert.Equal(t, entities.ReasonUnsupportedToken, resp.Reason)
}

type unavailableOracle struct {
	ibswap.Oracle
}

func (unavailableOracle) WrappedToUnderlying(ctx context.Context, token common.Address, amount *big.Int) (*big.Int, error) {
	return nil, fmt.Errorf("%w: dial tcp: connection refused", entities.ErrOracleUnavailable)
}

func TestEstimateOracleUnavailable(t *testing.T) {
	router := newRouter(t, unavailableOracle{})

	rec := do(t, router, http.MethodGet, "/api/v1/estimate?tokenIn=ibUSDTv2&tokenOut=ibDAIv2&amountIn=1&hops=2", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{entities.NewRevertError(entities.ReasonNotGovernor), http.StatusForbidden, "unauthorized"},
		{entities.NewRevertError(entities.ReasonUnexpectedSender), http.StatusForbidden, "unexpected_sender"},
		{entities.NewRevertError("Ownable: caller is not the owner"), http.StatusUnprocessableEntity, "reverted"},
		{fmt.Errorf("swap: %w", entities.ErrInsufficientBalance), http.StatusConflict, "insufficient_balance"},
		{cache.ErrReportNotFound, http.StatusNotFound, "not_found"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := do(t, newSimulatedRouter(t), http.MethodOptions, "/api/v1/swap", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	tests := []struct {
		name      string
		status    int
		wantLevel logrus.Level
	}{
		{"served", http.StatusCreated, logrus.DebugLevel},
		{"failed", http.StatusBadGateway, logrus.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			}))

			rec := do(t, h, http.MethodGet, "/api/v1/tokens", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, tt.status, entry.Data["status"])
			assert.Equal(t, 2, entry.Data["bytes"])
			assert.Equal(t, "/api/v1/tokens", entry.Data["path"])
		})
	}
}
