package handlers

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
)

// QuoteHandler handles estimate, minimum, swap and verify requests
type QuoteHandler struct {
	verifier *services.QuoteVerifier
	tokens   *entities.TokenRegistry
	defaults services.CheckConfig
}

// NewQuoteHandler creates a new quote handler. defaults supply the tolerance,
// threshold and deadline when a request omits them.
func NewQuoteHandler(verifier *services.QuoteVerifier, tokens *entities.TokenRegistry, defaults services.CheckConfig) *QuoteHandler {
	return &QuoteHandler{
		verifier: verifier,
		tokens:   tokens,
		defaults: defaults,
	}
}

// EstimateResponse represents an estimate response. Estimated amounts are in
// underlying units of tokenOut.
type EstimateResponse struct {
	TokenIn            string   `json:"tokenIn"`
	TokenOut           string   `json:"tokenOut"`
	AmountIn           string   `json:"amountIn"`
	UnderlyingIn       string   `json:"underlyingIn"`
	Routes             []string `json:"routes"`
	HopCount           int      `json:"hopCount"`
	EstimatedOut       string   `json:"estimatedOut"`
	EstimatedFormatted string   `json:"estimatedFormatted,omitempty"`
}

// MinimumResponse represents a minimum acceptable output response
type MinimumResponse struct {
	TokenOut     string `json:"tokenOut"`
	Estimated    string `json:"estimated"`
	Tolerance    string `json:"tolerance"`
	MinAmountOut string `json:"minAmountOut"`
}

// SwapRequest represents a swap request. Amounts are wrapped units.
type SwapRequest struct {
	TokenIn      string `json:"tokenIn"`
	TokenOut     string `json:"tokenOut"`
	AmountIn     string `json:"amountIn"`
	MinAmountOut string `json:"minAmountOut"`
	Deadline     string `json:"deadline,omitempty"`
}

// SwapResponse represents a realized swap
type SwapResponse struct {
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	TxHash    string `json:"txHash,omitempty"`
	GasUsed   uint64 `json:"gasUsed,omitempty"`
}

// VerifyRequest represents a tolerance check request
type VerifyRequest struct {
	Estimated string `json:"estimated"`
	Actual    string `json:"actual"`
	Threshold string `json:"threshold,omitempty"` // percent
}

// VerifyResponse represents a tolerance check result
type VerifyResponse struct {
	WithinTolerance bool   `json:"withinTolerance"`
	Deviation       string `json:"deviation"`
	Threshold       string `json:"threshold"`
}

// GetEstimate handles GET /api/v1/estimate
func (h *QuoteHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("tokenIn") == "" || q.Get("tokenOut") == "" || q.Get("amountIn") == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "tokenIn, tokenOut, and amountIn are required")
		return
	}

	tokenIn, ok := h.tokens.Resolve(q.Get("tokenIn"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token_in", "tokenIn is not a registered token")
		return
	}
	tokenOut, ok := h.tokens.Resolve(q.Get("tokenOut"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token_out", "tokenOut is not a registered token")
		return
	}

	amountIn, ok := parseAmount(q.Get("amountIn"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amountIn must be a non-negative integer")
		return
	}

	hops := 1
	if s := q.Get("hops"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_hops", "hops must be an integer")
			return
		}
		hops = n
	}

	quote, err := h.verifier.EstimateOutput(r.Context(), amountIn, tokenIn, tokenOut, hops)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := EstimateResponse{
		TokenIn:      tokenIn.Address.Hex(),
		TokenOut:     tokenOut.Address.Hex(),
		AmountIn:     quote.AmountIn.String(),
		UnderlyingIn: quote.UnderlyingIn.String(),
		Routes:       make([]string, len(quote.Routes)),
		HopCount:     quote.HopCount,
		EstimatedOut: quote.AmountOut.String(),
	}
	for i, v := range quote.Routes {
		resp.Routes[i] = v.String()
	}
	if underlying, ok := h.tokens.UnderlyingOf(tokenOut.Address); ok {
		resp.EstimatedFormatted = entities.FormatUnits(quote.AmountOut, underlying.Decimals) + " " + underlying.Symbol
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMinimum handles GET /api/v1/minimum
func (h *QuoteHandler) GetMinimum(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokenOut, ok := h.tokens.Resolve(q.Get("tokenOut"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token_out", "tokenOut is not a registered token")
		return
	}
	estimated, ok := parseAmount(q.Get("estimated"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "estimated must be a non-negative integer")
		return
	}

	tolerance := h.defaults.Tolerance
	if s := q.Get("tolerance"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_tolerance", "tolerance must be a decimal fraction")
			return
		}
		tolerance = d
	}

	minimum, err := h.verifier.ComputeMinimumAcceptable(r.Context(), tokenOut, estimated, tolerance)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MinimumResponse{
		TokenOut:     tokenOut.Address.Hex(),
		Estimated:    estimated.String(),
		Tolerance:    tolerance.String(),
		MinAmountOut: minimum.String(),
	})
}

// PostSwap handles POST /api/v1/swap
func (h *QuoteHandler) PostSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	tokenIn, ok := h.tokens.Resolve(req.TokenIn)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token_in", "tokenIn is not a registered token")
		return
	}
	tokenOut, ok := h.tokens.Resolve(req.TokenOut)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_token_out", "tokenOut is not a registered token")
		return
	}
	amountIn, ok := parseAmount(req.AmountIn)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "amountIn must be a non-negative integer")
		return
	}
	minOut, ok := parseAmount(req.MinAmountOut)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "minAmountOut must be a non-negative integer")
		return
	}
	deadline := new(big.Int).Set(h.defaults.Deadline)
	if req.Deadline != "" {
		if deadline, ok = parseAmount(req.Deadline); !ok {
			writeError(w, http.StatusBadRequest, "invalid_deadline", "deadline must be a unix timestamp")
			return
		}
	}

	result, err := h.verifier.ExecuteSwap(r.Context(), entities.SwapRequest{
		TokenIn:      tokenIn.Address,
		TokenOut:     tokenOut.Address,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
		Deadline:     deadline,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := SwapResponse{
		TokenIn:   tokenIn.Address.Hex(),
		TokenOut:  tokenOut.Address.Hex(),
		AmountIn:  amountIn.String(),
		AmountOut: result.AmountOut.String(),
		GasUsed:   result.GasUsed,
	}
	if result.TxHash != (common.Hash{}) {
		resp.TxHash = result.TxHash.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PostVerify handles POST /api/v1/verify
func (h *QuoteHandler) PostVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	estimated, ok := new(big.Int).SetString(req.Estimated, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "estimated must be an integer")
		return
	}
	actual, ok := parseAmount(req.Actual)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_amount", "actual must be a non-negative integer")
		return
	}

	threshold := h.defaults.Threshold
	if req.Threshold != "" {
		d, err := decimal.NewFromString(req.Threshold)
		if err != nil || !d.IsPositive() {
			writeError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be a positive percentage")
			return
		}
		threshold = d
	}

	within, err := services.VerifyWithinTolerance(estimated, actual, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	deviation, _ := services.DeviationPercent(estimated, actual)

	writeJSON(w, http.StatusOK, VerifyResponse{
		WithinTolerance: within,
		Deviation:       deviation.StringFixed(6),
		Threshold:       threshold.String(),
	})
}
