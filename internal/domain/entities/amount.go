package entities

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountKind tells whether a quantity is denominated in wrapped or underlying units
type AmountKind string

const (
	KindWrapped    AmountKind = "wrapped"
	KindUnderlying AmountKind = "underlying"
)

// TokenAmount is a non-negative quantity of a token in its smallest unit
type TokenAmount struct {
	Token Token      `json:"token"`
	Kind  AmountKind `json:"kind"`
	Value *big.Int   `json:"value"`
}

// NewTokenAmount builds a TokenAmount, rejecting nil or negative values
func NewTokenAmount(token Token, kind AmountKind, value *big.Int) (TokenAmount, error) {
	if value == nil || value.Sign() < 0 {
		return TokenAmount{}, ErrNegativeAmount
	}
	return TokenAmount{Token: token, Kind: kind, Value: new(big.Int).Set(value)}, nil
}

// String formats the amount in whole units, e.g. "1.5 USDC"
func (a TokenAmount) String() string {
	return FormatUnits(a.Value, a.Token.Decimals) + " " + a.Token.Symbol
}

// FormatUnits renders a raw integer amount with the given number of decimals
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// ParseUnits converts a human amount such as "1.25" into raw units, truncating
// any precision beyond the token decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// TokenPair is an ordered (input, output) pair of tokens
type TokenPair struct {
	In  Token `json:"tokenIn"`
	Out Token `json:"tokenOut"`
}

// Validate rejects pairs whose tokens are identical
func (p TokenPair) Validate() error {
	if p.In.Address == p.Out.Address {
		return ErrInvalidPair
	}
	return nil
}
