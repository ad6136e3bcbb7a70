package agent

import (
	"fmt"
	"strings"

	"crefeed/internal/marketdata"
)

// CBSA codes for the metros the insight helpers reference.
const (
	metroChicago     = "16980"
	metroMinneapolis = "33460"
	metroBoston      = "14460"
	metroMiami       = "33100"
	metroDallas      = "19100"
	metroHouston     = "26420"
)

// topicInsights produces the key-points line for a topic, built from
// live data where available and attributed to its sources.
func (a *Agent) topicInsights(topic string, insights marketdata.Insights) string {
	var insight string
	switch topic {
	case "Midwest multifamily market surge":
		insight = midwestInsight(insights)
	case "Gateway market renaissance":
		insight = gatewayInsight(insights)
	case "Sun Belt oversupply challenges":
		insight = sunBeltInsight(insights)
	case "Interest rate impact on CRE":
		insight = interestRateInsight(insights)
	case "Capital flows and liquidity trends":
		insight = capitalFlowInsight()
	default:
		insight = "Market dynamics reflect ongoing regional performance variations and interest rate impacts."
	}

	sources := insights.DataSources
	if len(sources) == 0 {
		return insight + " (Sources: Industry Research)"
	}
	if len(sources) > 2 {
		sources = sources[:2]
	}
	return fmt.Sprintf("%s (Sources: %s)", insight, strings.Join(sources, ", "))
}

func midwestInsight(insights marketdata.Insights) string {
	chicago, okChicago := insights.RegionalMarkets[metroChicago]
	minneapolis, okMinneapolis := insights.RegionalMarkets[metroMinneapolis]
	if !okChicago || !okMinneapolis {
		return "Midwest markets demonstrating construction discipline and balanced fundamentals"
	}
	return fmt.Sprintf("Midwest markets showing resilience: Chicago median rent %s, Minneapolis %s, construction discipline from previous cycles creating supply-demand balance",
		metricOr(chicago.MedianRent, "N/A"), metricOr(minneapolis.MedianRent, "N/A"))
}

func gatewayInsight(insights marketdata.Insights) string {
	boston, okBoston := insights.RegionalMarkets[metroBoston]
	miami, okMiami := insights.RegionalMarkets[metroMiami]
	if !okBoston || !okMiami {
		return "Gateway markets attracting institutional capital with proven demand fundamentals"
	}
	return fmt.Sprintf("Gateway markets remain tight: Boston median rent %s, Miami %s, institutional capital gravitating toward established markets with proven demand",
		metricOr(boston.MedianRent, "N/A"), metricOr(miami.MedianRent, "N/A"))
}

func sunBeltInsight(insights marketdata.Insights) string {
	dallas, okDallas := insights.RegionalMarkets[metroDallas]
	houston, okHouston := insights.RegionalMarkets[metroHouston]
	if !okDallas || !okHouston {
		return "Sun Belt markets navigating supply pipeline challenges and development headwinds"
	}
	return fmt.Sprintf("Sun Belt facing supply pressures: Dallas multifamily share %s, Houston %s, development pipeline creating headwinds for near-term performance",
		metricOr(dallas.MultifamilyShare, "N/A"), metricOr(houston.MultifamilyShare, "N/A"))
}

func interestRateInsight(insights marketdata.Insights) string {
	fedFunds, ok := insights.EconomicContext["fed_funds_rate"]
	if !ok {
		return "Interest rate environment driving selective capital deployment and strategic repositioning"
	}
	return fmt.Sprintf("Interest rates at %v%% reshaping investment strategies, capital markets adapting to higher cost of capital environment, selective deployment replacing broad-based acquisition strategies",
		fedFunds.Value)
}

func capitalFlowInsight() string {
	return "Capital flows increasingly selective, institutional investors focusing on markets with proven fundamentals, large-scale transactions requiring compelling risk-adjusted returns in current rate environment"
}

// marketContext renders the current-environment sentence for prompts.
func marketContext(insights marketdata.Insights) string {
	fedFunds, okFed := insights.EconomicContext["fed_funds_rate"]
	mortgage, okMortgage := insights.EconomicContext["mortgage_rate"]
	if !okFed || !okMortgage {
		return "Current market environment reflects ongoing interest rate dynamics and regional performance variations across multifamily markets."
	}
	return fmt.Sprintf("Current Market Environment: Federal Funds Rate at %v%% (Federal Reserve, %s), 30-Year Mortgage Rate at %v%% (Federal Reserve, %s). Interest rate environment continues to shape multifamily investment decisions and capital allocation strategies.",
		fedFunds.Value, fedFunds.Date, mortgage.Value, mortgage.Date)
}

func metricOr(m *marketdata.Metric, fallback string) string {
	if m == nil {
		return fallback
	}
	return m.Formatted
}
