package derivatives

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/interp"
)

// Chain filtering and grid constants
const (
	// Strikes outside 70%-130% of spot produce unreliable quotes that
	// frequently violate the no-arbitrage bounds the solver needs
	minMoneynessRatio = 0.7
	maxMoneynessRatio = 1.3

	// Bid-ask bounce can push a quote slightly below intrinsic; only
	// skip when it is below this fraction of intrinsic value
	intrinsicTolerance = 0.95

	// The synthetic band applied around lastPrice when the market is
	// closed and no live quotes exist
	historicalBandPct = 0.05

	defaultMaxSpreadPct = 0.20
	minContractPrice    = 0.01

	// Solver settings relaxed for chain-scale throughput
	surfaceIVTolerance   = 0.001
	surfaceMaxIterations = 50

	// Accepted IV range for surface points
	minSurfaceIV = 0.01
	maxSurfaceIV = 3.0

	gridStrikeCount   = 30
	gridMaturityCount = 20
)

// ChainContract is one raw options-chain row from the market-data layer
type ChainContract struct {
	Strike     float64    `json:"strike"`
	Expiration string     `json:"expiration"` // YYYY-MM-DD
	Bid        float64    `json:"bid"`
	Ask        float64    `json:"ask"`
	LastPrice  float64    `json:"last_price"`
	Volume     int64      `json:"volume"`
	Type       OptionType `json:"option_type"`
}

// SurfaceParams configures chain filtering and IV extraction
type SurfaceParams struct {
	Spot         float64    `json:"spot"`
	RiskFreeRate float64    `json:"risk_free_rate"`
	OptionType   OptionType `json:"option_type"`
	// MinVolume filters illiquid contracts; 0 keeps everything, which
	// maximizes coverage on thin names
	MinVolume int64 `json:"min_volume"`
	// MaxSpreadPct drops quotes whose spread exceeds this fraction of
	// mid (default 0.20)
	MaxSpreadPct float64 `json:"max_spread_pct"`
	// AsOf anchors time-to-maturity; zero means now
	AsOf time.Time `json:"-"`
}

// SurfacePoint is one successfully solved (strike, maturity, IV) sample
type SurfacePoint struct {
	Strike            float64 `json:"strike"`
	Expiration        string  `json:"expiration"`
	TimeToMaturity    float64 `json:"time_to_maturity"`
	Moneyness         float64 `json:"moneyness"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	MarketPrice       float64 `json:"market_price"`
	Volume            int64   `json:"volume"`
	Iterations        int     `json:"iterations"`
}

// SkippedContract records why a chain row was excluded. Skips are
// normal operation on noisy market data, not failures.
type SkippedContract struct {
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"`
	Reason     string  `json:"reason"`
}

// SurfaceGrid is the rectangular interpolation over the raw points.
// Cells outside the strike/maturity coverage of the data are nil,
// never extrapolated, and serialize as JSON nulls.
type SurfaceGrid struct {
	Strikes    []float64    `json:"strikes"`
	Maturities []float64    `json:"maturities"`
	IV         [][]*float64 `json:"implied_volatilities"`
}

// SurfaceMetadata summarizes the raw point set
type SurfaceMetadata struct {
	MinStrike   float64 `json:"min_strike"`
	MaxStrike   float64 `json:"max_strike"`
	MinMaturity float64 `json:"min_maturity"`
	MaxMaturity float64 `json:"max_maturity"`
	MinIV       float64 `json:"min_iv"`
	MaxIV       float64 `json:"max_iv"`
	AvgIV       float64 `json:"avg_iv"`
	DataPoints  int     `json:"data_points"`
}

// VolSurface is the assembled implied-volatility surface
type VolSurface struct {
	Spot                float64           `json:"spot"`
	RiskFreeRate        float64           `json:"risk_free_rate"`
	OptionType          OptionType        `json:"option_type"`
	UsingHistoricalData bool              `json:"using_historical_data"`
	Points              []SurfacePoint    `json:"raw_points"`
	Skipped             []SkippedContract `json:"skipped"`
	Grid                SurfaceGrid       `json:"surface_grid"`
	Metadata            SurfaceMetadata   `json:"metadata"`
}

// ATMPoint is one maturity's at-the-money volatility
type ATMPoint struct {
	Expiration        string  `json:"expiration"`
	TimeToMaturity    float64 `json:"time_to_maturity"`
	Strike            float64 `json:"strike"`
	ImpliedVolatility float64 `json:"implied_volatility"`
}

// SurfaceBuilder assembles volatility surfaces from raw options chains
type SurfaceBuilder struct {
	solver *IVSolver
	log    zerolog.Logger
}

// NewSurfaceBuilder creates a surface builder with a solver tuned for
// chain-scale throughput
func NewSurfaceBuilder(log zerolog.Logger) *SurfaceBuilder {
	solver := NewIVSolver(log)
	solver.Tolerance = surfaceIVTolerance
	solver.MaxIterations = surfaceMaxIterations
	return &SurfaceBuilder{
		solver: solver,
		log:    log.With().Str("component", "surface_builder").Logger(),
	}
}

// Build filters the chain, extracts IV per surviving contract and
// interpolates the scattered points onto a rectangular grid
func (b *SurfaceBuilder) Build(chain []ChainContract, params SurfaceParams) (*VolSurface, error) {
	if params.Spot <= 0 {
		return nil, fmt.Errorf("%w: spot price must be positive", ErrInvalidParameter)
	}
	if params.OptionType == "" {
		params.OptionType = Call
	}
	if params.OptionType != Call && params.OptionType != Put {
		return nil, fmt.Errorf("%w: option type must be %q or %q", ErrInvalidParameter, Call, Put)
	}
	if params.MaxSpreadPct <= 0 {
		params.MaxSpreadPct = defaultMaxSpreadPct
	}
	asOf := params.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	candidates, skipped := filterByMoneyness(chain, params)

	quoted, unquoted := partitionByQuotes(candidates)
	usingHistorical := false
	if len(quoted) == 0 {
		// Market closed: fall back to last-traded prices with a
		// synthetic bid-ask band
		quoted, skipped = lastPriceFallback(unquoted, skipped)
		usingHistorical = true
		if len(quoted) == 0 {
			return nil, fmt.Errorf("%w: no contracts with live quotes or last-traded prices", ErrInvalidParameter)
		}
		b.log.Warn().Int("contracts", len(quoted)).
			Msg("No live quotes, falling back to last-traded prices")
	} else {
		for _, c := range unquoted {
			skipped = append(skipped, SkippedContract{
				Strike: c.Strike, Expiration: c.Expiration, Reason: "no valid bid/ask quote",
			})
		}
	}

	points, skipped := b.extractIVs(quoted, params, asOf, usingHistorical, skipped)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no contracts produced a usable implied volatility", ErrInvalidParameter)
	}

	b.log.Info().
		Int("points", len(points)).
		Int("skipped", len(skipped)).
		Bool("historical", usingHistorical).
		Msg("Volatility surface extracted")

	return &VolSurface{
		Spot:                params.Spot,
		RiskFreeRate:        params.RiskFreeRate,
		OptionType:          params.OptionType,
		UsingHistoricalData: usingHistorical,
		Points:              points,
		Skipped:             skipped,
		Grid:                buildGrid(points),
		Metadata:            summarize(points),
	}, nil
}

// ATMTermStructure picks, for each expiration, the point nearest the
// spot price, producing a 1-D volatility curve across maturities
func (b *SurfaceBuilder) ATMTermStructure(surface *VolSurface) []ATMPoint {
	nearest := make(map[string]SurfacePoint)
	for _, pt := range surface.Points {
		cur, ok := nearest[pt.Expiration]
		if !ok || math.Abs(pt.Strike-surface.Spot) < math.Abs(cur.Strike-surface.Spot) {
			nearest[pt.Expiration] = pt
		}
	}

	curve := make([]ATMPoint, 0, len(nearest))
	for exp, pt := range nearest {
		curve = append(curve, ATMPoint{
			Expiration:        exp,
			TimeToMaturity:    pt.TimeToMaturity,
			Strike:            pt.Strike,
			ImpliedVolatility: pt.ImpliedVolatility,
		})
	}
	sort.Slice(curve, func(i, j int) bool { return curve[i].TimeToMaturity < curve[j].TimeToMaturity })
	return curve
}

// filterByMoneyness keeps contracts of the requested type with strikes
// inside the reliable moneyness band
func filterByMoneyness(chain []ChainContract, params SurfaceParams) ([]ChainContract, []SkippedContract) {
	var kept []ChainContract
	var skipped []SkippedContract
	for _, c := range chain {
		if c.Type != "" && c.Type != params.OptionType {
			continue
		}
		ratio := c.Strike / params.Spot
		if ratio < minMoneynessRatio || ratio > maxMoneynessRatio {
			skipped = append(skipped, SkippedContract{
				Strike: c.Strike, Expiration: c.Expiration,
				Reason: "moneyness outside 70%-130% of spot",
			})
			continue
		}
		kept = append(kept, c)
	}
	return kept, skipped
}

// partitionByQuotes splits contracts into those with a live two-sided
// market and the rest
func partitionByQuotes(chain []ChainContract) (quoted, unquoted []ChainContract) {
	for _, c := range chain {
		if c.Bid > 0 && c.Ask > 0 {
			quoted = append(quoted, c)
		} else {
			unquoted = append(unquoted, c)
		}
	}
	return quoted, unquoted
}

// lastPriceFallback substitutes last-traded prices with a synthetic
// +-5% band for contracts that have them
func lastPriceFallback(chain []ChainContract, skipped []SkippedContract) ([]ChainContract, []SkippedContract) {
	var kept []ChainContract
	for _, c := range chain {
		if c.LastPrice <= 0 {
			skipped = append(skipped, SkippedContract{
				Strike: c.Strike, Expiration: c.Expiration,
				Reason: "no quote and no last-traded price",
			})
			continue
		}
		c.Bid = c.LastPrice * (1 - historicalBandPct)
		c.Ask = c.LastPrice * (1 + historicalBandPct)
		kept = append(kept, c)
	}
	return kept, skipped
}

// extractIVs runs the per-contract filters and the IV solver
func (b *SurfaceBuilder) extractIVs(
	chain []ChainContract,
	params SurfaceParams,
	asOf time.Time,
	usingHistorical bool,
	skipped []SkippedContract,
) ([]SurfacePoint, []SkippedContract) {
	var points []SurfacePoint

	for _, c := range chain {
		skip := func(reason string) {
			skipped = append(skipped, SkippedContract{
				Strike: c.Strike, Expiration: c.Expiration, Reason: reason,
			})
		}

		if c.Ask < c.Bid {
			skip("crossed bid/ask quote")
			continue
		}
		mid := (c.Bid + c.Ask) / 2
		if mid < minContractPrice {
			skip("mid price below $0.01")
			continue
		}
		if params.MinVolume > 0 && c.Volume < params.MinVolume {
			skip(fmt.Sprintf("volume below %d", params.MinVolume))
			continue
		}
		if !usingHistorical {
			if spread := (c.Ask - c.Bid) / mid; spread > params.MaxSpreadPct {
				skip(fmt.Sprintf("bid/ask spread %.0f%% too wide", spread*100))
				continue
			}
		}

		ttm, err := timeToMaturity(c.Expiration, asOf)
		if err != nil {
			skip("unparseable expiration date")
			continue
		}

		intrinsic := payoff(params.OptionType, params.Spot, c.Strike)
		if mid < intrinsic*intrinsicTolerance {
			skip("market price below intrinsic value")
			continue
		}

		result, err := b.solver.Solve(mid, OptionSpec{
			Spot:          params.Spot,
			Strike:        c.Strike,
			MaturityYears: ttm,
			RiskFreeRate:  params.RiskFreeRate,
			Type:          params.OptionType,
		})
		if err != nil {
			skip(err.Error())
			continue
		}
		if !result.Converged {
			skip("implied volatility solver did not converge")
			continue
		}
		if result.ImpliedVolatility < minSurfaceIV || result.ImpliedVolatility > maxSurfaceIV {
			skip(fmt.Sprintf("implied volatility %.2f outside [%.2f, %.2f]",
				result.ImpliedVolatility, minSurfaceIV, maxSurfaceIV))
			continue
		}

		points = append(points, SurfacePoint{
			Strike:            c.Strike,
			Expiration:        c.Expiration,
			TimeToMaturity:    ttm,
			Moneyness:         math.Log(c.Strike / params.Spot),
			ImpliedVolatility: result.ImpliedVolatility,
			MarketPrice:       mid,
			Volume:            c.Volume,
			Iterations:        result.NumIterations,
		})
	}

	return points, skipped
}

// timeToMaturity converts an expiration date into years, floored at one day
func timeToMaturity(expiration string, asOf time.Time) (float64, error) {
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return 0, err
	}
	days := exp.Sub(asOf).Hours() / 24
	years := days / 365.0
	if years < 1.0/365.0 {
		years = 1.0 / 365.0
	}
	return years, nil
}

// smile interpolates implied volatility across strikes at a single maturity
type smile struct {
	minStrike, maxStrike float64
	predict              func(strike float64) float64
}

// buildGrid interpolates the scattered points onto a rectangular
// (strike x maturity) grid. Each data maturity gets a smile fitted
// across its strikes (cubic when enough points exist); grid maturities
// are then interpolated linearly between the two bracketing smiles.
// Cells a bracketing smile cannot cover stay nil.
func buildGrid(points []SurfacePoint) SurfaceGrid {
	maturities := groupByMaturity(points)
	matKeys := make([]float64, 0, len(maturities))
	smiles := make(map[float64]smile, len(maturities))
	for ttm, pts := range maturities {
		matKeys = append(matKeys, ttm)
		smiles[ttm] = fitSmile(pts)
	}
	sort.Float64s(matKeys)

	minStrike, maxStrike := strikeRange(points)
	strikeAxis := linspace(minStrike, maxStrike, gridStrikeCount)
	maturityAxis := linspace(matKeys[0], matKeys[len(matKeys)-1], gridMaturityCount)

	iv := make([][]*float64, len(maturityAxis))
	for mi, t := range maturityAxis {
		row := make([]*float64, len(strikeAxis))
		lo, hi := bracket(matKeys, t)
		for si, k := range strikeAxis {
			row[si] = interpolateCell(smiles, lo, hi, t, k)
		}
		iv[mi] = row
	}

	return SurfaceGrid{Strikes: strikeAxis, Maturities: maturityAxis, IV: iv}
}

// interpolateCell evaluates the bracketing smiles at a strike and
// blends them linearly in maturity; nil when either smile has no data
// coverage at that strike
func interpolateCell(smiles map[float64]smile, lo, hi, t, k float64) *float64 {
	low := smiles[lo]
	if k < low.minStrike || k > low.maxStrike {
		return nil
	}
	vLow := low.predict(k)
	if lo == hi {
		return &vLow
	}

	high := smiles[hi]
	if k < high.minStrike || k > high.maxStrike {
		return nil
	}
	vHigh := high.predict(k)

	w := (t - lo) / (hi - lo)
	v := vLow*(1-w) + vHigh*w
	return &v
}

// fitSmile fits an IV-by-strike predictor for one maturity. Duplicate
// strikes are averaged so the abscissae are strictly increasing.
func fitSmile(pts []SurfacePoint) smile {
	byStrike := make(map[float64][]float64)
	for _, p := range pts {
		byStrike[p.Strike] = append(byStrike[p.Strike], p.ImpliedVolatility)
	}

	strikes := make([]float64, 0, len(byStrike))
	for k := range byStrike {
		strikes = append(strikes, k)
	}
	sort.Float64s(strikes)

	ivs := make([]float64, len(strikes))
	for i, k := range strikes {
		sum := 0.0
		for _, v := range byStrike[k] {
			sum += v
		}
		ivs[i] = sum / float64(len(byStrike[k]))
	}

	s := smile{minStrike: strikes[0], maxStrike: strikes[len(strikes)-1]}
	switch {
	case len(strikes) >= 3:
		var cubic interp.NaturalCubic
		if err := cubic.Fit(strikes, ivs); err == nil {
			s.predict = cubic.Predict
			return s
		}
		fallthrough
	case len(strikes) == 2:
		var linear interp.PiecewiseLinear
		if err := linear.Fit(strikes, ivs); err == nil {
			s.predict = linear.Predict
			return s
		}
		fallthrough
	default:
		v := ivs[0]
		s.predict = func(float64) float64 { return v }
	}
	return s
}

// groupByMaturity buckets points by their time to maturity
func groupByMaturity(points []SurfacePoint) map[float64][]SurfacePoint {
	groups := make(map[float64][]SurfacePoint)
	for _, p := range points {
		groups[p.TimeToMaturity] = append(groups[p.TimeToMaturity], p)
	}
	return groups
}

// bracket finds the data maturities surrounding t
func bracket(sorted []float64, t float64) (float64, float64) {
	lo := sorted[0]
	hi := sorted[len(sorted)-1]
	for _, m := range sorted {
		if m <= t {
			lo = m
		}
		if m >= t {
			hi = m
			break
		}
	}
	return lo, hi
}

// strikeRange returns the min and max strike across all points
func strikeRange(points []SurfacePoint) (float64, float64) {
	min, max := points[0].Strike, points[0].Strike
	for _, p := range points[1:] {
		if p.Strike < min {
			min = p.Strike
		}
		if p.Strike > max {
			max = p.Strike
		}
	}
	return min, max
}

// linspace generates n evenly spaced values over [lo, hi]
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 || lo == hi {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// summarize computes the metadata block over the raw points
func summarize(points []SurfacePoint) SurfaceMetadata {
	meta := SurfaceMetadata{
		MinStrike:   points[0].Strike,
		MaxStrike:   points[0].Strike,
		MinMaturity: points[0].TimeToMaturity,
		MaxMaturity: points[0].TimeToMaturity,
		MinIV:       points[0].ImpliedVolatility,
		MaxIV:       points[0].ImpliedVolatility,
		DataPoints:  len(points),
	}
	sum := 0.0
	for _, p := range points {
		sum += p.ImpliedVolatility
		meta.MinStrike = math.Min(meta.MinStrike, p.Strike)
		meta.MaxStrike = math.Max(meta.MaxStrike, p.Strike)
		meta.MinMaturity = math.Min(meta.MinMaturity, p.TimeToMaturity)
		meta.MaxMaturity = math.Max(meta.MaxMaturity, p.TimeToMaturity)
		meta.MinIV = math.Min(meta.MinIV, p.ImpliedVolatility)
		meta.MaxIV = math.Max(meta.MaxIV, p.ImpliedVolatility)
	}
	meta.AvgIV = sum / float64(len(points))
	return meta
}
