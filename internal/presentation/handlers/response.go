package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// errorKinds maps domain errors to status codes, first match wins
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{entities.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{entities.ErrUnexpectedSender, http.StatusForbidden, "unexpected_sender"},
	{entities.ErrDeadlineExceeded, http.StatusConflict, "deadline_exceeded"},
	{entities.ErrSlippageExceeded, http.StatusConflict, "slippage_exceeded"},
	{entities.ErrInsufficientBalance, http.StatusConflict, "insufficient_balance"},
	{entities.ErrOracleUnavailable, http.StatusBadGateway, "oracle_unavailable"},
	{cache.ErrReportNotFound, http.StatusNotFound, "not_found"},
	{entities.ErrInvalidPair, http.StatusBadRequest, "invalid_pair"},
	{entities.ErrInvalidEstimate, http.StatusBadRequest, "invalid_estimate"},
	{entities.ErrInvalidRoute, http.StatusBadRequest, "invalid_route"},
	{entities.ErrInvalidTolerance, http.StatusBadRequest, "invalid_tolerance"},
	{entities.ErrNegativeAmount, http.StatusBadRequest, "invalid_amount"},
	{entities.ErrUnsupportedToken, http.StatusBadRequest, "unsupported_token"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// writeDomainError writes err with the status of its kind. Reverts with an
// unrecognised reason are 422.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			status, code = k.status, k.code
			break
		}
	}
	reason, reverted := entities.RevertReason(err)
	if reverted && status == http.StatusInternalServerError {
		status, code = http.StatusUnprocessableEntity, "reverted"
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error(), Reason: reason})
}

// parseAmount parses a non-negative base-10 integer
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
