package factors

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Definition computes one derived per-asset value from trailing history of
// one or more raw fields. Definitions are built by the explicit constructors
// below and registered on a DerivedSource; there is no global registry.
type Definition struct {
	Name    string
	Fields  []string
	Window  int
	Compute func(series map[string][]float64) (float64, bool)
}

// SMA is the simple moving average of a field over the trailing window.
func SMA(field string, window int) Definition {
	return Definition{
		Name:   fmt.Sprintf("sma_%d:%s", window, field),
		Fields: []string{field},
		Window: window,
		Compute: func(series map[string][]float64) (float64, bool) {
			s := series[field]
			if len(s) < window {
				return 0, false
			}
			out := talib.Sma(s, window)
			return out[len(out)-1], true
		},
	}
}

// Returns is the fractional change of a field over the trailing window:
// last/first - 1.
func Returns(field string, window int) Definition {
	return Definition{
		Name:   fmt.Sprintf("returns_%d:%s", window, field),
		Fields: []string{field},
		Window: window + 1,
		Compute: func(series map[string][]float64) (float64, bool) {
			s := series[field]
			if len(s) < window+1 || s[len(s)-1-window] == 0 {
				return 0, false
			}
			return s[len(s)-1]/s[len(s)-1-window] - 1, true
		},
	}
}

// ZScore standardizes the latest value of a field against its trailing
// window mean and standard deviation.
func ZScore(field string, window int) Definition {
	return Definition{
		Name:   fmt.Sprintf("zscore_%d:%s", window, field),
		Fields: []string{field},
		Window: window,
		Compute: func(series map[string][]float64) (float64, bool) {
			s := series[field]
			if len(s) < window {
				return 0, false
			}
			w := s[len(s)-window:]
			mean, std := stat.MeanStdDev(w, nil)
			if std == 0 || math.IsNaN(std) {
				return 0, false
			}
			return (w[len(w)-1] - mean) / std, true
		},
	}
}

// AvgDollarVolume averages price*volume over the trailing window. The usual
// liquidity mask ranks on this.
func AvgDollarVolume(priceField, volumeField string, window int) Definition {
	return Definition{
		Name:   fmt.Sprintf("adv_%d:%s:%s", window, priceField, volumeField),
		Fields: []string{priceField, volumeField},
		Window: window,
		Compute: func(series map[string][]float64) (float64, bool) {
			p, v := series[priceField], series[volumeField]
			if len(p) < window || len(v) < window {
				return 0, false
			}
			sum := 0.0
			for i := 0; i < window; i++ {
				sum += p[len(p)-1-i] * v[len(v)-1-i]
			}
			return sum / float64(window), true
		},
	}
}
