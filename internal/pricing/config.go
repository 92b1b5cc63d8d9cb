package pricing

import (
	"fmt"

	"github.com/oddspool/oddspool-backend/pkg/config"
)

// Config is the immutable set of AMM parameters. Monetary values are minor units.
type Config struct {
	BaseLiquidity  int64
	PoolFloor      int64
	HouseEdge      float64
	MinProbability float64
	MaxProbability float64
	MinOdds        float64
	MaxOdds        float64
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseLiquidity:  5_000_000,
		PoolFloor:      100_000,
		HouseEdge:      0.97,
		MinProbability: 0.05,
		MaxProbability: 0.95,
		MinOdds:        1.05,
		MaxOdds:        19.0,
	}
}

// ConfigFrom copies the env-driven pricing section into an engine config.
func ConfigFrom(cfg config.PricingConfig) Config {
	return Config{
		BaseLiquidity:  cfg.BaseLiquidity,
		PoolFloor:      cfg.PoolFloor,
		HouseEdge:      cfg.HouseEdge,
		MinProbability: cfg.MinProbability,
		MaxProbability: cfg.MaxProbability,
		MinOdds:        cfg.MinOdds,
		MaxOdds:        cfg.MaxOdds,
	}
}

func (c Config) validate() error {
	switch {
	case c.BaseLiquidity < 0:
		return fmt.Errorf("base liquidity must be >= 0")
	case c.PoolFloor <= 0:
		return fmt.Errorf("pool floor must be > 0")
	case c.HouseEdge <= 0 || c.HouseEdge > 1:
		return fmt.Errorf("house edge must be in (0, 1]")
	case c.MinProbability <= 0 || c.MaxProbability >= 1 || c.MinProbability > c.MaxProbability:
		return fmt.Errorf("probability bounds must satisfy 0 < min <= max < 1")
	case c.MinOdds < 1 || c.MinOdds > c.MaxOdds:
		return fmt.Errorf("odds bounds must satisfy 1 <= min <= max")
	}
	return nil
}
