package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

const fredSource = "Federal Reserve Economic Data (FRED)"

// fredSeries is the fixed set of FRED series tracked for CRE analysis.
var fredSeries = []struct {
	ID   string
	Name string
}{
	{"FEDFUNDS", "Federal Funds Rate"},
	{"GS10", "10-Year Treasury Rate"},
	{"GS5", "5-Year Treasury Rate"},
	{"MORTGAGE30US", "30-Year Fixed Mortgage Rate"},
	{"UNRATE", "National Unemployment Rate"},
	{"CPIAUCSL", "Consumer Price Index"},
	{"HOUST", "Housing Starts"},
	{"PERMIT", "Building Permits"},
	{"CSUSHPISA", "Case-Shiller Home Price Index"},
	{"RHORUSQ156N", "Homeownership Rate"},
	{"GDPC1", "Real GDP"},
	{"PAYEMS", "Total Nonfarm Payrolls"},
}

type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// EconomicIndicators returns the latest observation for each tracked
// FRED series, keyed by series id. Failed series are logged and
// skipped; the mapping may be partial or empty.
func (p *Provider) EconomicIndicators(ctx context.Context) map[string]Indicator {
	const cacheKey = "fred_indicators"
	if data, ok := p.cached(cacheKey); ok {
		return data.(map[string]Indicator)
	}

	indicators := make(map[string]Indicator)
	for _, series := range fredSeries {
		if err := p.fredLimiter.Wait(ctx); err != nil {
			break
		}
		ind, err := p.fetchFREDSeries(ctx, series.ID, series.Name)
		if err != nil {
			log.Warn().Err(err).Str("series", series.ID).Msg("skipping FRED series")
			continue
		}
		indicators[series.ID] = ind
	}

	p.store(cacheKey, indicators)
	return indicators
}

func (p *Provider) fetchFREDSeries(ctx context.Context, id, name string) (Indicator, error) {
	params := url.Values{
		"series_id":  {id},
		"api_key":    {p.fredKey},
		"file_type":  {"json"},
		"limit":      {"1"},
		"sort_order": {"desc"},
	}
	reqURL := fmt.Sprintf("%s/fred/series/observations?%s", p.fredBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Indicator{}, err
	}

	resp, err := p.fredClient.Do(req)
	if err != nil {
		return Indicator{}, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Indicator{}, fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	var body fredObservationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Indicator{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(body.Observations) == 0 {
		return Indicator{}, fmt.Errorf("no observations for %s", id)
	}

	latest := body.Observations[0]
	// FRED uses "." for missing data points.
	if latest.Value == "." {
		return Indicator{}, fmt.Errorf("missing value for %s", id)
	}
	value, err := strconv.ParseFloat(latest.Value, 64)
	if err != nil {
		return Indicator{}, fmt.Errorf("malformed value for %s: %w", id, err)
	}

	return Indicator{
		Name:   name,
		Value:  value,
		Date:   latest.Date,
		Source: fredSource,
	}, nil
}
