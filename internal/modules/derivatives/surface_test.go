package derivatives

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var surfaceAsOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// syntheticChain builds call contracts priced under a flat volatility,
// with a one-cent spread either side of fair value
func syntheticChain(t *testing.T, spot, vol, rate float64, strikes []float64, maturityDays []int) []ChainContract {
	t.Helper()
	pricer := NewPricer(zerolog.Nop())

	var chain []ChainContract
	for _, days := range maturityDays {
		expiration := surfaceAsOf.AddDate(0, 0, days).Format("2006-01-02")
		for _, strike := range strikes {
			priced, err := pricer.BlackScholes(OptionSpec{
				Spot:          spot,
				Strike:        strike,
				MaturityYears: float64(days) / 365.0,
				RiskFreeRate:  rate,
				Volatility:    vol,
				Type:          Call,
			})
			require.NoError(t, err)

			chain = append(chain, ChainContract{
				Strike:     strike,
				Expiration: expiration,
				Bid:        priced.Price - 0.01,
				Ask:        priced.Price + 0.01,
				LastPrice:  priced.Price,
				Volume:     100,
				Type:       Call,
			})
		}
	}
	return chain
}

func surfaceParams(spot, rate float64) SurfaceParams {
	return SurfaceParams{
		Spot:         spot,
		RiskFreeRate: rate,
		OptionType:   Call,
		AsOf:         surfaceAsOf,
	}
}

func TestSurfaceBuilder_RecoversFlatVolatility(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	strikes := []float64{90, 95, 100, 105, 110}
	chain := syntheticChain(t, 100, 0.25, 0.05, strikes, []int{90, 180, 365})

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	assert.Len(t, surface.Points, len(strikes)*3)
	assert.False(t, surface.UsingHistoricalData)
	for _, pt := range surface.Points {
		assert.InDelta(t, 0.25, pt.ImpliedVolatility, 0.01,
			"flat-vol chain must come back flat")
	}

	assert.InDelta(t, 0.25, surface.Metadata.AvgIV, 0.01)
	assert.InDelta(t, 90, surface.Metadata.MinStrike, 1e-9)
	assert.InDelta(t, 110, surface.Metadata.MaxStrike, 1e-9)
	assert.Equal(t, len(strikes)*3, surface.Metadata.DataPoints)
}

func TestSurfaceBuilder_GridShapeAndCoverage(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{90, 95, 100, 105, 110}, []int{90, 180, 365})

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	grid := surface.Grid
	require.Len(t, grid.Maturities, gridMaturityCount)
	require.Len(t, grid.Strikes, gridStrikeCount)
	require.Len(t, grid.IV, gridMaturityCount)

	// Every maturity shares the same strike coverage here, so the whole
	// grid sits inside the data hull and no cell is null
	for _, row := range grid.IV {
		require.Len(t, row, gridStrikeCount)
		for _, cell := range row {
			require.NotNil(t, cell)
			assert.InDelta(t, 0.25, *cell, 0.02)
		}
	}

	assert.InDelta(t, 90, grid.Strikes[0], 1e-9)
	assert.InDelta(t, 110, grid.Strikes[gridStrikeCount-1], 1e-9)
}

func TestSurfaceBuilder_NullsOutsideDataCoverage(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())

	// Short maturity covers a narrow strike range, long maturity a wide
	// one: grid corners beyond the short smile must stay null
	short := syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90})
	long := syntheticChain(t, 100, 0.25, 0.05, []float64{80, 90, 100, 110, 120}, []int{365})
	chain := append(short, long...)

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	grid := surface.Grid
	// Shortest maturity row: strikes near 80 are outside the 95-105
	// smile fitted there
	assert.Nil(t, grid.IV[0][0], "corner outside the short-dated smile must not be extrapolated")
	// Longest maturity row has full coverage
	assert.NotNil(t, grid.IV[gridMaturityCount-1][0])
	assert.NotNil(t, grid.IV[gridMaturityCount-1][gridStrikeCount-1])
}

func TestSurfaceBuilder_MoneynessFilter(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90})
	chain = append(chain, ChainContract{
		Strike: 50, Expiration: "2025-08-31", Bid: 49, Ask: 51, Volume: 10, Type: Call,
	})

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	assert.Len(t, surface.Points, 3)
	require.NotEmpty(t, surface.Skipped)
	assert.Contains(t, surface.Skipped[0].Reason, "moneyness")
}

func TestSurfaceBuilder_LastPriceFallback(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90, 180})
	for i := range chain {
		chain[i].Bid = 0
		chain[i].Ask = 0
	}

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	assert.True(t, surface.UsingHistoricalData)
	assert.NotEmpty(t, surface.Points)
	for _, pt := range surface.Points {
		// Synthetic +-5% band keeps mid at lastPrice, so the recovered
		// vol stays close to the generating one
		assert.InDelta(t, 0.25, pt.ImpliedVolatility, 0.02)
	}
}

func TestSurfaceBuilder_SkipReasons(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	expiration := surfaceAsOf.AddDate(0, 0, 90).Format("2006-01-02")
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90})

	chain = append(chain,
		// Crossed quote
		ChainContract{Strike: 100, Expiration: expiration, Bid: 5.0, Ask: 4.0, Volume: 10, Type: Call},
		// Below intrinsic beyond tolerance: intrinsic is 20
		ChainContract{Strike: 80, Expiration: expiration, Bid: 17.0, Ask: 17.2, Volume: 10, Type: Call},
	)

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)
	assert.Len(t, surface.Points, 3)

	reasons := make([]string, 0, len(surface.Skipped))
	for _, s := range surface.Skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Contains(t, reasons, "crossed bid/ask quote")
	assert.Contains(t, reasons, "market price below intrinsic value")
}

func TestSurfaceBuilder_VolumeAndSpreadFilters(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90})
	chain[0].Volume = 1 // below the floor

	params := surfaceParams(100, 0.05)
	params.MinVolume = 10

	surface, err := builder.Build(chain, params)
	require.NoError(t, err)
	assert.Len(t, surface.Points, 2)

	// Blow out one spread past the default 20% cap
	chain = syntheticChain(t, 100, 0.25, 0.05, []float64{95, 100, 105}, []int{90})
	chain[1].Bid = chain[1].LastPrice * 0.5
	chain[1].Ask = chain[1].LastPrice * 1.5

	surface, err = builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)
	assert.Len(t, surface.Points, 2)
}

func TestSurfaceBuilder_EmptyChain(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())

	_, err := builder.Build(nil, surfaceParams(100, 0.05))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSurfaceBuilder_ATMTermStructure(t *testing.T) {
	builder := NewSurfaceBuilder(zerolog.Nop())
	chain := syntheticChain(t, 100, 0.25, 0.05, []float64{90, 98, 100, 104, 110}, []int{30, 90, 180, 365})

	surface, err := builder.Build(chain, surfaceParams(100, 0.05))
	require.NoError(t, err)

	curve := builder.ATMTermStructure(surface)
	require.Len(t, curve, 4)

	for i, pt := range curve {
		assert.InDelta(t, 100, pt.Strike, 1e-9, "nearest strike to spot is 100")
		if i > 0 {
			assert.Greater(t, pt.TimeToMaturity, curve[i-1].TimeToMaturity,
				"term structure sorted by maturity")
		}
	}
}
