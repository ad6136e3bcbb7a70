package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Metric is a formatted view of one indicator, ready to interpolate
// into content prompts.
type Metric struct {
	Value     float64 `json:"value"`
	Date      string  `json:"date,omitempty"`
	Formatted string  `json:"formatted"`
}

// RegionalMarket is the per-metro view used for regional highlights.
type RegionalMarket struct {
	FullName         string  `json:"full_name"`
	ShortName        string  `json:"short_name"`
	MedianRent       *Metric `json:"median_rent,omitempty"`
	MedianIncome     *Metric `json:"median_income,omitempty"`
	MultifamilyShare *Metric `json:"multifamily_share,omitempty"`
}

// Insights is the merged, content-oriented view over all three
// upstream snapshots.
type Insights struct {
	EconomicContext map[string]Metric         `json:"economic_context"`
	RegionalMarkets map[string]RegionalMarket `json:"regional_markets"`
	KeyMetrics      map[string]Metric         `json:"key_metrics"`
	DataSources     []string                  `json:"data_sources"`
}

// Insights fetches (or serves from cache) all three snapshots and
// reshapes them for content generation.
func (p *Provider) Insights(ctx context.Context) Insights {
	fred := p.EconomicIndicators(ctx)
	demographics := p.MetroDemographics(ctx)
	employment := p.EmploymentData(ctx)

	insights := Insights{
		EconomicContext: make(map[string]Metric),
		RegionalMarkets: make(map[string]RegionalMarket),
		KeyMetrics:      make(map[string]Metric),
	}
	sources := make(map[string]struct{})

	econ := []struct {
		seriesID string
		key      string
		format   func(Indicator) string
	}{
		{"FEDFUNDS", "fed_funds_rate", percentFormatted},
		{"GS10", "treasury_10y", percentFormatted},
		{"MORTGAGE30US", "mortgage_rate", percentFormatted},
		{"HOUST", "housing_starts", func(ind Indicator) string {
			return fmt.Sprintf("%sK units (as of %s)", commaInt(int64(ind.Value)), ind.Date)
		}},
	}
	for _, e := range econ {
		ind, ok := fred[e.seriesID]
		if !ok {
			continue
		}
		insights.EconomicContext[e.key] = Metric{
			Value:     ind.Value,
			Date:      ind.Date,
			Formatted: e.format(ind),
		}
		sources["Federal Reserve Economic Data (FRED)"] = struct{}{}
	}

	for code, metro := range demographics {
		market := RegionalMarket{
			FullName:  metro.MetroName,
			ShortName: strings.SplitN(metro.MetroName, ",", 2)[0],
		}
		if rent, ok := metro.Data["B25064_001E"]; ok {
			market.MedianRent = &Metric{
				Value:     rent.Value,
				Formatted: fmt.Sprintf("$%s/month", commaInt(int64(rent.Value))),
			}
		}
		if income, ok := metro.Data["B19013_001E"]; ok {
			market.MedianIncome = &Metric{
				Value:     income.Value,
				Formatted: "$" + commaInt(int64(income.Value)),
			}
		}
		if share, ok := multifamilyShare(metro.Data); ok {
			market.MultifamilyShare = &Metric{
				Value:     share,
				Formatted: fmt.Sprintf("%.1f%% multifamily", share),
			}
		}
		insights.RegionalMarkets[code] = market
		sources["U.S. Census Bureau"] = struct{}{}
	}

	for _, ind := range employment {
		if !strings.Contains(ind.Name, "Unemployment Rate") {
			continue
		}
		metroKey := strings.ToLower(strings.TrimSuffix(ind.Name, " Unemployment Rate"))
		insights.KeyMetrics[metroKey+"_unemployment"] = Metric{
			Value:     ind.Value,
			Date:      ind.Date,
			Formatted: fmt.Sprintf("%v%% unemployment (as of %s)", ind.Value, ind.Date),
		}
		sources["U.S. Bureau of Labor Statistics"] = struct{}{}
	}

	for source := range sources {
		insights.DataSources = append(insights.DataSources, source)
	}
	sort.Strings(insights.DataSources)
	return insights
}

// multifamilyShare computes the 5+ unit share of total housing stock.
func multifamilyShare(data map[string]Indicator) (float64, bool) {
	total, ok := data["B25001_001E"]
	if !ok || total.Value <= 0 {
		return 0, false
	}
	var multifamily float64
	for _, code := range []string{"B25024_006E", "B25024_007E", "B25024_008E", "B25024_009E"} {
		if ind, ok := data[code]; ok {
			multifamily += ind.Value
		}
	}
	return multifamily / total.Value * 100, true
}

// ContentSummary renders a markdown digest of the current data for
// embedding in content prompts.
func (p *Provider) ContentSummary(ctx context.Context) string {
	insights := p.Insights(ctx)

	var parts []string

	if len(insights.EconomicContext) > 0 {
		parts = append(parts, "**Current Economic Environment:**")
		for _, line := range []struct{ key, label string }{
			{"fed_funds_rate", "Federal Funds Rate"},
			{"treasury_10y", "10-Year Treasury"},
			{"mortgage_rate", "30-Year Mortgage Rate"},
			{"housing_starts", "Housing Starts"},
		} {
			if m, ok := insights.EconomicContext[line.key]; ok {
				parts = append(parts, fmt.Sprintf("• %s: %s", line.label, m.Formatted))
			}
		}
	}

	// Iterate in the fixed metro order so the digest is deterministic.
	var highlighted int
	for _, metro := range censusMetros {
		if highlighted >= 3 {
			break
		}
		market, ok := insights.RegionalMarkets[metro.Code]
		if !ok {
			continue
		}
		if highlighted == 0 {
			parts = append(parts, "\n**Regional Market Highlights:**")
		}
		var details []string
		if market.MedianRent != nil {
			details = append(details, "Median rent "+market.MedianRent.Formatted)
		}
		if market.MultifamilyShare != nil {
			details = append(details, market.MultifamilyShare.Formatted)
		}
		if len(details) > 0 {
			parts = append(parts, fmt.Sprintf("• %s: %s", market.ShortName, strings.Join(details, ", ")))
			highlighted++
		}
	}

	if len(insights.DataSources) > 0 {
		parts = append(parts, "\n**Sources:** "+strings.Join(insights.DataSources, ", "))
	}

	return strings.Join(parts, "\n")
}

func percentFormatted(ind Indicator) string {
	return fmt.Sprintf("%v%% (as of %s)", ind.Value, ind.Date)
}

// commaInt renders n with thousands separators.
func commaInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	var out []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	return sign + string(out)
}
