package usecase

import (
	"fmt"

	"Screener/internal/pipeline"
	"Screener/internal/services/factors"
	"Screener/pkg/config"
)

// Output column names of the mean-reversion screen.
const (
	OutFactor = "factor"
	OutLongs  = "longs"
	OutShorts = "shorts"
)

// BuildMeanReversion assembles the SMA crossover screen: inside a liquidity
// universe of the top names by average dollar volume, rank assets by
// (fast SMA - slow SMA) / slow SMA and take both tails. Stretched-up names
// are shorts, stretched-down names are longs.
func BuildMeanReversion(cfg *config.Config) (*pipeline.Pipeline, []factors.Definition, error) {
	mr := cfg.Screens.MeanReversion
	if mr.FastWindow >= mr.SlowWindow {
		return nil, nil, fmt.Errorf("mean reversion: fast window %d must be below slow window %d", mr.FastWindow, mr.SlowWindow)
	}
	if mr.LegSize <= 0 || mr.UniverseSize <= 0 {
		return nil, nil, fmt.Errorf("mean reversion: leg size and universe size must be positive")
	}

	fastSMA := factors.SMA("close", mr.FastWindow)
	slowSMA := factors.SMA("close", mr.SlowWindow)
	adv := factors.AvgDollarVolume("close", "volume", mr.LiquidityWin)
	defs := []factors.Definition{fastSMA, slowSMA, adv}

	universe := pipeline.ColumnFactor(adv.Name).RankTop(mr.UniverseSize)

	fast := pipeline.ColumnFactor(fastSMA.Name)
	slow := pipeline.ColumnFactor(slowSMA.Name)
	stretch := fast.Sub(slow).Div(slow).WithMask(universe)

	shorts := stretch.RankTop(mr.LegSize)
	longs := stretch.RankBottom(mr.LegSize)
	screen := longs.Or(shorts)

	p := pipeline.NewPipeline("mean_reversion", screen).
		AddFactor(OutFactor, stretch).
		AddFilter(OutLongs, longs).
		AddFilter(OutShorts, shorts)
	return p, defs, nil
}
