package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bimakw/ibswap-verifier/internal/domain/entities"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/cache"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/dex"
	"github.com/bimakw/ibswap-verifier/internal/infrastructure/ibswap"
)

// PairTTL is how long live reserves are reused before being read again
const PairTTL = time.Minute

// SeedPools replaces the simulator's pools with live reserves of the same
// token pairs. Pairs found in pairs are not read again.
func SeedPools(ctx context.Context, sim *ibswap.Simulator, reader dex.PoolReader, pairs cache.PairCache, logger *logrus.Logger) error {
	var missing [][2]entities.Token
	var keys []string
	seeded := 0

	for _, p := range ibswap.MainnetPools() {
		key := cache.PairCacheKey(reader.DEXType(), p.Token0.Address.Hex(), p.Token1.Address.Hex())
		cached, err := pairs.GetPair(ctx, key)
		if err != nil {
			logger.WithError(err).WithField("key", key).Warn("Pair cache read failed")
		}
		if cached != nil {
			sim.SetPool(cached)
			seeded++
			continue
		}
		missing = append(missing, [2]entities.Token{p.Token0, p.Token1})
		keys = append(keys, key)
	}

	if len(missing) > 0 {
		fetched, err := reader.FetchPairs(ctx, missing)
		if err != nil {
			return fmt.Errorf("failed to read %s pools: %w", reader.DEXType(), err)
		}
		for i, p := range fetched {
			sim.SetPool(p)
			if err := pairs.SetPair(ctx, keys[i], p, PairTTL); err != nil {
				logger.WithError(err).WithField("key", keys[i]).Warn("Pair cache write failed")
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"dex":     reader.DEXType(),
		"cached":  seeded,
		"fetched": len(missing),
	}).Info("Seeded simulator pools")
	return nil
}
