package entities

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig represents token configuration from JSON
type TokenConfig struct {
	Address    string `json:"address"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Decimals   uint8  `json:"decimals"`
	Underlying string `json:"underlying,omitempty"`
}

// TokensConfig represents the tokens.json structure
type TokensConfig struct {
	Tokens []TokenConfig `json:"tokens"`
}

// TokenRegistry holds loaded tokens indexed by address and symbol
type TokenRegistry struct {
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
	wrapperOf map[common.Address]common.Address
	all       []Token
}

// NewTokenRegistry creates a new token registry
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		byAddress: make(map[common.Address]Token),
		bySymbol:  make(map[string]Token),
		wrapperOf: make(map[common.Address]common.Address),
		all:       make([]Token, 0),
	}
}

// LoadFromFile loads tokens from a JSON config file
func (r *TokenRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read token config: %w", err)
	}

	var config TokensConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse token config: %w", err)
	}

	for _, tc := range config.Tokens {
		if !common.IsHexAddress(tc.Address) {
			return fmt.Errorf("token %s: invalid address %q", tc.Symbol, tc.Address)
		}
		token := Token{
			Address:  common.HexToAddress(tc.Address),
			Symbol:   tc.Symbol,
			Name:     tc.Name,
			Decimals: tc.Decimals,
		}
		if tc.Underlying != "" {
			if !common.IsHexAddress(tc.Underlying) {
				return fmt.Errorf("token %s: invalid underlying %q", tc.Symbol, tc.Underlying)
			}
			token.Underlying = common.HexToAddress(tc.Underlying)
		}
		r.Register(token)
	}

	return nil
}

// Register adds a token to the registry. Registering an address twice replaces
// the earlier entry.
func (r *TokenRegistry) Register(token Token) {
	if old, ok := r.byAddress[token.Address]; ok {
		delete(r.bySymbol, strings.ToLower(old.Symbol))
		for i := range r.all {
			if r.all[i].Address == token.Address {
				r.all = append(r.all[:i], r.all[i+1:]...)
				break
			}
		}
	}
	r.byAddress[token.Address] = token
	r.bySymbol[strings.ToLower(token.Symbol)] = token
	if token.IsWrapped() {
		r.wrapperOf[token.Underlying] = token.Address
	}
	r.all = append(r.all, token)
}

// GetByAddress returns a token by its address
func (r *TokenRegistry) GetByAddress(addr common.Address) (Token, bool) {
	token, ok := r.byAddress[addr]
	return token, ok
}

// GetBySymbol returns a token by its symbol, case-insensitively
func (r *TokenRegistry) GetBySymbol(symbol string) (Token, bool) {
	token, ok := r.bySymbol[strings.ToLower(symbol)]
	return token, ok
}

// Resolve looks a token up by hex address or symbol
func (r *TokenRegistry) Resolve(ref string) (Token, bool) {
	if common.IsHexAddress(ref) {
		return r.GetByAddress(common.HexToAddress(ref))
	}
	return r.GetBySymbol(ref)
}

// UnderlyingOf returns the underlying token of a wrapped token
func (r *TokenRegistry) UnderlyingOf(wrapped common.Address) (Token, bool) {
	token, ok := r.byAddress[wrapped]
	if !ok || !token.IsWrapped() {
		return Token{}, false
	}
	return r.GetByAddress(token.Underlying)
}

// WrapperOf returns the wrapped token registered for an underlying asset
func (r *TokenRegistry) WrapperOf(underlying common.Address) (Token, bool) {
	addr, ok := r.wrapperOf[underlying]
	if !ok {
		return Token{}, false
	}
	return r.GetByAddress(addr)
}

// Wrapped returns the registered wrapped tokens in registration order
func (r *TokenRegistry) Wrapped() []Token {
	var out []Token
	for _, t := range r.all {
		if t.IsWrapped() {
			out = append(out, t)
		}
	}
	return out
}

// GetAll returns all registered tokens
func (r *TokenRegistry) GetAll() []Token {
	return r.all
}

// Count returns the number of registered tokens
func (r *TokenRegistry) Count() int {
	return len(r.all)
}

// DefaultRegistry returns a registry with hardcoded default tokens
// Use this as fallback if config file is not available
func DefaultRegistry() *TokenRegistry {
	r := NewTokenRegistry()
	for _, t := range []Token{WETH, USDC, USDT, DAI, IBETH, IBUSDT, IBUSDC, IBDAI} {
		r.Register(t)
	}
	return r
}
