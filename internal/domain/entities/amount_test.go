package entities

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenAmountRejectsNegative(t *testing.T) {
	_, err := NewTokenAmount(USDC, KindUnderlying, big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = NewTokenAmount(USDC, KindUnderlying, nil)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	a, err := NewTokenAmount(USDC, KindUnderlying, big.NewInt(1_500_000))
	require.NoError(t, err)
	assert.Equal(t, "1.5 USDC", a.String())
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.5", 6, "500000"},
		{"1.23456789", 6, "1234567"},
		{"80000", 8, "8000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := ParseUnits("-1", 6)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestTokenPairValidate(t *testing.T) {
	assert.ErrorIs(t, TokenPair{In: IBUSDT, Out: IBUSDT}.Validate(), ErrInvalidPair)
	assert.NoError(t, TokenPair{In: IBUSDT, Out: IBDAI}.Validate())
}

func TestRouteAt(t *testing.T) {
	routes := []*big.Int{big.NewInt(100), big.NewInt(50), big.NewInt(49)}

	got, err := RouteAt(routes, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(49), got.Int64())

	for _, hops := range []int{0, 3, -1} {
		_, err := RouteAt(routes, hops)
		assert.ErrorIs(t, err, ErrInvalidRoute, "hops=%d", hops)
	}

	_, err = RouteAt(routes[:2], 2)
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestRevertErrorClassification(t *testing.T) {
	tests := []struct {
		reason string
		want   error
	}{
		{ReasonNotGovernor, ErrUnauthorized},
		{ReasonUnexpectedSender, ErrUnexpectedSender},
		{ReasonExpired, ErrDeadlineExceeded},
		{ReasonInsufficientOutput, ErrSlippageExceeded},
		{ReasonUnsupportedToken, ErrUnsupportedToken},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := fmt.Errorf("swap: %w", NewRevertError(tt.reason))
			assert.ErrorIs(t, err, tt.want)

			reason, ok := RevertReason(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}

	unknown := NewRevertError("something else")
	assert.Nil(t, errors.Unwrap(unknown))
	assert.Equal(t, "execution reverted: something else", unknown.Error())
}

func TestDefaultScenarios(t *testing.T) {
	sc := DefaultScenarios()
	require.Len(t, sc, 4)
	assert.Equal(t, "992637183", sc[0].AmountIn.String())
	assert.Equal(t, "8000000000000", sc[2].AmountIn.String())
	assert.Equal(t, 2, sc[3].HopCount)
}
