package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const censusSource = "U.S. Census Bureau, ACS 2022 5-Year Estimates"

// censusMetros maps CBSA codes to the metros tracked for content.
var censusMetros = []struct {
	Code string
	Name string
}{
	{"16980", "Chicago-Naperville-Elgin, IL-IN-WI"},
	{"33460", "Minneapolis-St. Paul-Bloomington, MN-WI"},
	{"14460", "Boston-Cambridge-Newton, MA-NH"},
	{"33100", "Miami-Fort Lauderdale-West Palm Beach, FL"},
	{"19100", "Dallas-Fort Worth-Arlington, TX"},
	{"26420", "Houston-The Woodlands-Sugar Land, TX"},
	{"40140", "Riverside-San Bernardino-Ontario, CA"},
}

// ACS variable codes relevant to multifamily analysis.
var censusVariables = []struct {
	Code string
	Name string
}{
	{"B25001_001E", "Total Housing Units"},
	{"B25003_002E", "Owner Occupied Units"},
	{"B25003_003E", "Renter Occupied Units"},
	{"B25064_001E", "Median Gross Rent"},
	{"B19013_001E", "Median Household Income"},
	{"B25077_001E", "Median Home Value"},
	{"B25024_006E", "Buildings 5-9 Units"},
	{"B25024_007E", "Buildings 10-19 Units"},
	{"B25024_008E", "Buildings 20-49 Units"},
	{"B25024_009E", "Buildings 50+ Units"},
}

// MetroDemographics returns ACS housing and income indicators for each
// tracked metro, keyed by CBSA code. Failed metros are logged and
// skipped.
func (p *Provider) MetroDemographics(ctx context.Context) map[string]MetroData {
	const cacheKey = "census_demographics"
	if data, ok := p.cached(cacheKey); ok {
		return data.(map[string]MetroData)
	}

	demographics := make(map[string]MetroData)
	for _, metro := range censusMetros {
		if err := p.censusLimiter.Wait(ctx); err != nil {
			break
		}
		metroData, err := p.fetchMetro(ctx, metro.Code)
		if err != nil {
			log.Warn().Err(err).Str("metro", metro.Name).Msg("skipping census metro")
			continue
		}
		if len(metroData) > 0 {
			demographics[metro.Code] = MetroData{MetroName: metro.Name, Data: metroData}
		}
	}

	p.store(cacheKey, demographics)
	return demographics
}

func (p *Provider) fetchMetro(ctx context.Context, code string) (map[string]Indicator, error) {
	varCodes := make([]string, len(censusVariables))
	for i, v := range censusVariables {
		varCodes[i] = v.Code
	}

	params := url.Values{
		"get": {strings.Join(varCodes, ",")},
		"for": {"metropolitan statistical area/micropolitan statistical area:" + code},
	}
	reqURL := fmt.Sprintf("%s/data/2022/acs/acs5?%s", p.censusBaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.censusClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch census data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch census data: status %d", resp.StatusCode)
	}

	// The Census API returns a header row followed by one value row.
	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode census data: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("census response has no data row")
	}

	values := rows[1]
	metroData := make(map[string]Indicator)
	for i, v := range censusVariables {
		if i >= len(values) {
			break
		}
		raw := values[i]
		if raw == "" || raw == "-" {
			continue
		}
		num, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// Malformed numeric fields are dropped, not defaulted.
			continue
		}
		metroData[v.Code] = Indicator{
			Name:   v.Name,
			Value:  num,
			Source: censusSource,
		}
	}
	return metroData, nil
}
