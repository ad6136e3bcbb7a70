package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

const blsSource = "U.S. Bureau of Labor Statistics"

// blsSeries covers metro unemployment plus national employment series.
var blsSeries = []struct {
	ID   string
	Name string
}{
	{"LAUMT171698000000003", "Chicago-Naperville-Elgin Unemployment Rate"},
	{"LAUMT273346000000003", "Minneapolis-St. Paul Unemployment Rate"},
	{"LAUMT251446000000003", "Boston-Cambridge-Newton Unemployment Rate"},
	{"LAUMT123310000000003", "Miami-Fort Lauderdale Unemployment Rate"},
	{"CES0000000001", "Total Nonfarm Employment"},
	{"CES2000000001", "Construction Employment"},
	{"CES5553000001", "Real Estate Employment"},
}

type blsRequest struct {
	SeriesID  []string `json:"seriesid"`
	StartYear string   `json:"startyear"`
	EndYear   string   `json:"endyear"`
	Catalog   bool     `json:"catalog"`
}

type blsResponse struct {
	Status  string `json:"status"`
	Results struct {
		Series []struct {
			Data []struct {
				Year   string `json:"year"`
				Period string `json:"period"`
				Value  string `json:"value"`
			} `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// EmploymentData returns the latest value for each tracked BLS series,
// keyed by series id. Failed series are logged and skipped.
func (p *Provider) EmploymentData(ctx context.Context) map[string]Indicator {
	const cacheKey = "bls_employment"
	if data, ok := p.cached(cacheKey); ok {
		return data.(map[string]Indicator)
	}

	employment := make(map[string]Indicator)
	for _, series := range blsSeries {
		if err := p.blsLimiter.Wait(ctx); err != nil {
			break
		}
		ind, err := p.fetchBLSSeries(ctx, series.ID, series.Name)
		if err != nil {
			log.Warn().Err(err).Str("series", series.ID).Msg("skipping BLS series")
			continue
		}
		employment[series.ID] = ind
	}

	p.store(cacheKey, employment)
	return employment
}

func (p *Provider) fetchBLSSeries(ctx context.Context, id, name string) (Indicator, error) {
	year := p.now().Year()
	payload, err := json.Marshal(blsRequest{
		SeriesID:  []string{id},
		StartYear: strconv.Itoa(year - 1),
		EndYear:   strconv.Itoa(year),
	})
	if err != nil {
		return Indicator{}, err
	}

	reqURL := p.blsBaseURL + "/publicAPI/v2/timeseries/data/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return Indicator{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.blsClient.Do(req)
	if err != nil {
		return Indicator{}, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Indicator{}, fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	var body blsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Indicator{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if body.Status != "REQUEST_SUCCEEDED" || len(body.Results.Series) == 0 || len(body.Results.Series[0].Data) == 0 {
		return Indicator{}, fmt.Errorf("no data for %s", id)
	}

	latest := body.Results.Series[0].Data[0]
	value, err := strconv.ParseFloat(latest.Value, 64)
	if err != nil {
		return Indicator{}, fmt.Errorf("malformed value for %s: %w", id, err)
	}

	// BLS periods look like "M07"; normalize to YYYY-MM.
	period := latest.Period
	if len(period) > 1 {
		period = period[1:]
	}
	if len(period) == 1 {
		period = "0" + period
	}

	return Indicator{
		Name:   name,
		Value:  value,
		Date:   fmt.Sprintf("%s-%s", latest.Year, period),
		Source: blsSource,
	}, nil
}
