package agent

import (
	"testing"

	"crefeed/internal/marketdata"

	"github.com/stretchr/testify/assert"
)

func TestTopicInsightsAttribution(t *testing.T) {
	a := newTestAgent(nil)

	// Without data the attribution falls back to industry research.
	got := a.topicInsights("Capital flows and liquidity trends", marketdata.Insights{})
	assert.Contains(t, got, "(Sources: Industry Research)")

	// With data, at most the first two sources are cited.
	insights := marketdata.Insights{
		DataSources: []string{
			"Federal Reserve Economic Data (FRED)",
			"U.S. Bureau of Labor Statistics",
			"U.S. Census Bureau",
		},
	}
	got = a.topicInsights("Capital flows and liquidity trends", insights)
	assert.Contains(t, got, "(Sources: Federal Reserve Economic Data (FRED), U.S. Bureau of Labor Statistics)")
	assert.NotContains(t, got, "Census")
}

func TestTopicInsightsUsesLiveData(t *testing.T) {
	a := newTestAgent(nil)
	insights := marketdata.Insights{
		RegionalMarkets: map[string]marketdata.RegionalMarket{
			"16980": {MedianRent: &marketdata.Metric{Formatted: "$1,350/month"}},
			"33460": {MedianRent: &marketdata.Metric{Formatted: "$1,250/month"}},
		},
		DataSources: []string{"U.S. Census Bureau"},
	}

	got := a.topicInsights("Midwest multifamily market surge", insights)
	assert.Contains(t, got, "Chicago median rent $1,350/month")
	assert.Contains(t, got, "Minneapolis $1,250/month")
	assert.Contains(t, got, "(Sources: U.S. Census Bureau)")
}

func TestTopicInsightsMissingMetroFallsBack(t *testing.T) {
	a := newTestAgent(nil)
	// Only one of the two Midwest metros is present.
	insights := marketdata.Insights{
		RegionalMarkets: map[string]marketdata.RegionalMarket{
			"16980": {MedianRent: &marketdata.Metric{Formatted: "$1,350/month"}},
		},
	}

	got := a.topicInsights("Midwest multifamily market surge", insights)
	assert.Contains(t, got, "construction discipline")
	assert.NotContains(t, got, "$1,350/month")
}

func TestTopicInsightsUnknownTopic(t *testing.T) {
	a := newTestAgent(nil)
	got := a.topicInsights("Technology in CRE", marketdata.Insights{})
	assert.Contains(t, got, "Market dynamics reflect")
}

func TestMarketContext(t *testing.T) {
	got := marketContext(marketdata.Insights{})
	assert.Contains(t, got, "ongoing interest rate dynamics")

	insights := marketdata.Insights{
		EconomicContext: map[string]marketdata.Metric{
			"fed_funds_rate": {Value: 5.33, Date: "2025-06-01"},
			"mortgage_rate":  {Value: 6.85, Date: "2025-06-26"},
		},
	}
	got = marketContext(insights)
	assert.Contains(t, got, "Federal Funds Rate at 5.33%")
	assert.Contains(t, got, "30-Year Mortgage Rate at 6.85%")
	assert.Contains(t, got, "(Federal Reserve, 2025-06-01)")
}

func TestMetricOr(t *testing.T) {
	assert.Equal(t, "N/A", metricOr(nil, "N/A"))
	assert.Equal(t, "$1/month", metricOr(&marketdata.Metric{Formatted: "$1/month"}, "N/A"))
}
