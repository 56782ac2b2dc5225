package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdash/quantdash/internal/modules/derivatives"
)

func testRouter() chi.Router {
	h := NewHandler(0.05, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router chi.Router, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the {data, metadata} envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Data     json.RawMessage `json:"data"`
		Metadata struct {
			Timestamp string `json:"timestamp"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Metadata.Timestamp)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

const atmCallBody = `{
	"spot": 100,
	"strike": 100,
	"maturity_years": 1,
	"risk_free_rate": 0.05,
	"volatility": 0.2,
	"option_type": "call"
}`

func TestHandleBlackScholes(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/price/blackscholes", atmCallBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Price  float64 `json:"price"`
		Greeks struct {
			Delta float64 `json:"delta"`
		} `json:"greeks"`
	}
	decodeData(t, rec, &result)

	// Textbook ATM call value for these inputs
	assert.InDelta(t, 10.45, result.Price, 0.01)
	assert.InDelta(t, 0.637, result.Greeks.Delta, 0.01)
}

func TestHandleBlackScholes_InvalidInput(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/price/blackscholes", `{
		"spot": -100, "strike": 100, "maturity_years": 1,
		"risk_free_rate": 0.05, "volatility": 0.2, "option_type": "call"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBlackScholes_MalformedBody(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/price/blackscholes", `{"spot": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBinomial_AmericanPut(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/price/binomial", `{
		"spot": 100, "strike": 110, "maturity_years": 1,
		"risk_free_rate": 0.05, "volatility": 0.2, "option_type": "put",
		"steps": 200, "exercise_style": "american"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Price float64 `json:"price"`
	}
	decodeData(t, rec, &result)

	// American put carries an early-exercise premium over European
	assert.Greater(t, result.Price, 10.0)
}

func TestHandleBinomial_DefaultsToEuropean(t *testing.T) {
	router := testRouter()

	body := strings.Replace(atmCallBody, `"option_type": "call"`, `"option_type": "call", "steps": 500`, 1)
	rec := postJSON(t, router, "/derivatives/price/binomial", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Price float64 `json:"price"`
	}
	decodeData(t, rec, &result)
	assert.InDelta(t, 10.45, result.Price, 0.05)
}

func TestHandleTrinomial_RejectsBadSteps(t *testing.T) {
	router := testRouter()

	body := strings.Replace(atmCallBody, `"option_type": "call"`, `"option_type": "call", "steps": -5`, 1)
	rec := postJSON(t, router, "/derivatives/price/trinomial", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompare(t *testing.T) {
	router := testRouter()

	body := strings.Replace(atmCallBody, `"option_type": "call"`, `"option_type": "call", "steps": 200`, 1)
	rec := postJSON(t, router, "/derivatives/price/compare", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		BlackScholes struct {
			Price float64 `json:"price"`
		} `json:"black_scholes"`
		Binomial struct {
			Price float64 `json:"price"`
		} `json:"binomial"`
		Trinomial struct {
			Price float64 `json:"price"`
		} `json:"trinomial"`
		Differences map[string]float64 `json:"differences"`
	}
	decodeData(t, rec, &result)

	assert.InDelta(t, 10.45, result.BlackScholes.Price, 0.01)
	assert.InDelta(t, result.BlackScholes.Price, result.Binomial.Price, 0.1)
	assert.InDelta(t, result.BlackScholes.Price, result.Trinomial.Price, 0.1)
	assert.NotEmpty(t, result.Differences)
}

func TestHandleImpliedVol_WithValidation(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/implied-vol", `{
		"spot": 100, "strike": 100, "maturity_years": 1,
		"risk_free_rate": 0.05, "option_type": "call",
		"market_price": 10.4506, "validate": true
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		ImpliedVolatility float64 `json:"implied_volatility"`
		Converged         bool    `json:"converged"`
		Validation        *struct {
			IsValid bool `json:"is_valid"`
		} `json:"validation"`
	}
	decodeData(t, rec, &result)

	assert.True(t, result.Converged)
	assert.InDelta(t, 0.20, result.ImpliedVolatility, 0.001)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.IsValid)
}

func TestHandleImpliedVol_RejectsNonPositivePrice(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/implied-vol", `{
		"spot": 100, "strike": 100, "maturity_years": 1,
		"risk_free_rate": 0.05, "option_type": "call",
		"market_price": 0
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSurface(t *testing.T) {
	router := testRouter()

	// Synthetic chain priced at a flat 25% volatility, maturities
	// anchored to now since the surface defaults its valuation date
	pricer := derivatives.NewPricer(zerolog.Nop())
	var chain []derivatives.ChainContract
	for _, days := range []int{90, 180, 365} {
		expiration := time.Now().AddDate(0, 0, days).Format("2006-01-02")
		for _, strike := range []float64{90, 95, 100, 105, 110} {
			result, err := pricer.BlackScholes(derivatives.OptionSpec{
				Spot:          100,
				Strike:        strike,
				MaturityYears: float64(days) / 365.0,
				RiskFreeRate:  0.05,
				Volatility:    0.25,
				Type:          derivatives.Call,
			})
			require.NoError(t, err)

			chain = append(chain, derivatives.ChainContract{
				Strike:     strike,
				Expiration: expiration,
				Bid:        result.Price - 0.01,
				Ask:        result.Price + 0.01,
				LastPrice:  result.Price,
				Volume:     100,
				Type:       derivatives.Call,
			})
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"spot":  100,
		"chain": chain,
	})
	require.NoError(t, err)

	rec := postJSON(t, router, "/derivatives/surface", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Spot                float64 `json:"spot"`
		RiskFreeRate        float64 `json:"risk_free_rate"`
		UsingHistoricalData bool    `json:"using_historical_data"`
		Points              []struct {
			ImpliedVolatility float64 `json:"implied_volatility"`
		} `json:"raw_points"`
		ATMTermStructure []struct {
			TimeToMaturity    float64 `json:"time_to_maturity"`
			ImpliedVolatility float64 `json:"implied_volatility"`
		} `json:"atm_term_structure"`
	}
	decodeData(t, rec, &result)

	assert.Equal(t, 100.0, result.Spot)
	// Omitted risk-free rate falls back to the handler default
	assert.Equal(t, 0.05, result.RiskFreeRate)
	assert.False(t, result.UsingHistoricalData)
	assert.Len(t, result.Points, 15)
	for _, pt := range result.Points {
		assert.InDelta(t, 0.25, pt.ImpliedVolatility, 0.01)
	}
	require.Len(t, result.ATMTermStructure, 3)
	assert.Less(t, result.ATMTermStructure[0].TimeToMaturity, result.ATMTermStructure[2].TimeToMaturity)
}

func TestHandleSurface_EmptyChain(t *testing.T) {
	router := testRouter()

	rec := postJSON(t, router, "/derivatives/surface", `{"spot": 100, "chain": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
