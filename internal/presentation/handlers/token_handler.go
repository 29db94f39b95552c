package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

// TokenHandler serves the token registry
type TokenHandler struct {
	tokens *entities.TokenRegistry
}

func NewTokenHandler(tokens *entities.TokenRegistry) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type TokenResponse struct {
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Decimals   uint8  `json:"decimals"`
	Underlying string `json:"underlying,omitempty"`
}

func tokenResponse(t entities.Token) TokenResponse {
	resp := TokenResponse{
		Address:  t.Address.Hex(),
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
	}
	if t.IsWrapped() {
		resp.Underlying = t.Underlying.Hex()
	}
	return resp
}

// ListTokens handles GET /api/v1/tokens. ?wrapped=true lists ib tokens only.
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.tokens.GetAll()
	if r.URL.Query().Get("wrapped") == "true" {
		tokens = h.tokens.Wrapped()
	}
	out := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": out})
}

// GetToken handles GET /api/v1/tokens/{token}, by symbol or address
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "token")
	token, ok := h.tokens.Resolve(ref)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_token", "token "+ref+" is not registered")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(token))
}
