package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/domain/services"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
)

const defaultReportLimit = 20

// CheckHandler runs quote-then-verify checks and serves their reports
type CheckHandler struct {
	checks *services.CheckService
	tokens *entities.TokenRegistry
}

func NewCheckHandler(checks *services.CheckService, tokens *entities.TokenRegistry) *CheckHandler {
	return &CheckHandler{checks: checks, tokens: tokens}
}

// CheckRequest runs either one swap or, with Suite set, the default scenarios
type CheckRequest struct {
	Name     string `json:"name,omitempty"`
	TokenIn  string `json:"tokenIn,omitempty"`
	TokenOut string `json:"tokenOut,omitempty"`
	AmountIn string `json:"amountIn,omitempty"`
	Hops     int    `json:"hops,omitempty"`
	Suite    bool   `json:"suite,omitempty"`
}

// SuiteResponse lists the reports of a suite run. Scenarios that failed to
// run are listed in Errors.
type SuiteResponse struct {
	Reports []*entities.CheckReport `json:"reports"`
	Passed  bool                    `json:"passed"`
	Errors  string                  `json:"errors,omitempty"`
}

// PostCheck handles POST /api/v1/checks
func (h *CheckHandler) PostCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if req.Suite {
		h.runSuite(w, r)
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
	if req.Hops == 0 {
		req.Hops = 1
	}
	if req.Name == "" {
		req.Name = tokenIn.Symbol + "->" + tokenOut.Symbol
	}

	report, err := h.checks.Run(r.Context(), entities.Scenario{
		Name:     req.Name,
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		AmountIn: amountIn,
		HopCount: req.Hops,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *CheckHandler) runSuite(w http.ResponseWriter, r *http.Request) {
	reports, err := h.checks.RunScenarios(r.Context(), entities.DefaultScenarios())
	resp := SuiteResponse{Reports: reports, Passed: err == nil}
	for _, rep := range reports {
		resp.Passed = resp.Passed && rep.Passed
	}
	if err != nil {
		resp.Errors = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListChecks handles GET /api/v1/checks
func (h *CheckHandler) ListChecks(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > cache.MaxRecent {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and "+strconv.Itoa(cache.MaxRecent))
			return
		}
		limit = n
	}

	reports, err := h.checks.RecentReports(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// GetCheck handles GET /api/v1/checks/{id}
func (h *CheckHandler) GetCheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.checks.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
