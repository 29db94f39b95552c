package cache

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
)

func newReport(id string) *entities.CheckReport {
	return &entities.CheckReport{
		ID:           id,
		Scenario:     "ibUSDTv2->ibETHv2",
		TokenIn:      entities.IBUSDT,
		TokenOut:     entities.IBETH,
		AmountIn:     big.NewInt(8e12),
		HopCount:     1,
		Routes:       []*big.Int{big.NewInt(1_760_000_000), big.NewInt(877_000_000_000_000_000)},
		EstimatedOut: big.NewInt(877_000_000_000_000_000),
		ExpectedOut:  big.NewInt(835_000_000_000_000_000),
		MinAmountOut: big.NewInt(751_000_000_000_000_000),
		RealizedOut:  big.NewInt(835_000_000_000_000_000),
		Deadline:     new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18)),
		Tolerance:    "0.1",
		Threshold:    "0.5",
		Deviation:    "0",
		Passed:       true,
		CreatedAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
}

// exerciseStore runs the same contract against any ReportStore
func exerciseStore(t *testing.T, store ReportStore) {
	ctx := context.Background()
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}

	for _, id := range ids {
		require.NoError(t, store.SaveReport(ctx, newReport(id), time.Minute))
	}

	got, err := store.GetReport(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[1], got.ID)
	assert.Equal(t, entities.IBETH.Address, got.TokenOut.Address)
	assert.Equal(t, 0, got.RealizedOut.Cmp(big.NewInt(835_000_000_000_000_000)))
	assert.True(t, got.Passed)

	recent, err := store.RecentReports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	require.NoError(t, store.DeleteReport(ctx, ids[2]))
	_, err = store.GetReport(ctx, ids[2])
	assert.ErrorIs(t, err, ErrReportNotFound)

	recent, err = store.RecentReports(ctx, 10)
	require.NoError(t, err)
	for _, r := range recent {
		assert.NotEqual(t, ids[2], r.ID)
	}

	_, err = store.GetReport(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestInMemoryReportStore(t *testing.T) {
	exerciseStore(t, NewInMemoryCache())
}

func TestInMemoryReportExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SaveReport(ctx, newReport("short"), time.Second))
	require.NoError(t, c.SaveReport(ctx, newReport("forever"), 0))

	now = now.Add(2 * time.Second)

	_, err := c.GetReport(ctx, "short")
	assert.ErrorIs(t, err, ErrReportNotFound)

	recent, err := c.RecentReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "forever", recent[0].ID)
}

func TestInMemoryRecentIsBounded(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	for i := 0; i < MaxRecent+5; i++ {
		require.NoError(t, c.SaveReport(ctx, newReport(fmt.Sprintf("r%d", i)), 0))
	}

	recent, err := c.RecentReports(ctx, MaxRecent+5)
	require.NoError(t, err)
	assert.Len(t, recent, MaxRecent)
	assert.Equal(t, fmt.Sprintf("r%d", MaxRecent+4), recent[0].ID)
}

func TestInMemoryPairCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	key := PairCacheKey(entities.DEXUniswapV2, entities.USDC.Address.Hex(), entities.WETH.Address.Hex())

	miss, err := c.GetPair(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, miss)

	pair := &entities.Pair{Token0: entities.USDC, Token1: entities.WETH, Reserve0: big.NewInt(10), Reserve1: big.NewInt(20)}
	require.NoError(t, c.SetPair(ctx, key, pair, time.Minute))
	pair.Reserve0.SetInt64(99)

	hit, err := c.GetPair(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), hit.Reserve0.Int64())
}

func TestRedisReportStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	store, err := NewRedisCache(addr, "", 15)
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	defer store.Close()

	exerciseStore(t, store)
}
