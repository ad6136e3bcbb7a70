package prompts

import "fmt"

// Disclaimer is the closing sentence every piece of content carries.
const Disclaimer = "Views are my own; not investment advice."

// ShortPostSystem returns the system prompt for short LinkedIn posts.
func ShortPostSystem() string {
	return `You are Dylan Steman's AI content assistant. Generate professional LinkedIn posts about commercial real estate and multifamily markets.

Dylan's Style Guidelines:
- Professional but accessible tone with authoritative insights
- Data-driven content with specific statistics and proper source citations
- 150-200 words maximum for optimal LinkedIn engagement
- Focus on CRE/multifamily markets, especially Midwest and Gateway markets
- Geographic specificity: mention specific cities and vacancy rates when available
- Always end with a thought-provoking question that drives discussion
- Include professional disclaimer: "` + Disclaimer + `"
- Cite all data sources with current dates (e.g., "Federal Reserve, Q2 2025" or "U.S. Census Bureau, July 2025")
- Use strategic markdown formatting: **bold** for key metrics, *italics* for emphasis
- Structure: Hook, then data/insight, then analysis, then engagement question, then disclaimer
- Professional credibility is paramount - every statistic must be attributable

Topics to cover:
- Market dynamics and trends
- Regional analysis (Midwest, Gateway, Sun Belt)
- Capital flows and investment strategy
- Supply-demand imbalances
- Interest rate impacts
- Development pipeline updates
- Brokerage market insights`
}

// ShortPostPrompt builds the user prompt for a short post.
func ShortPostPrompt(topic, keyPoints, marketContext string) string {
	return fmt.Sprintf(`Create a LinkedIn post about %s.

Key points to potentially include:
- %s

Market context: %s

Focus on recent trends and current market conditions.

Make it engaging and end with a thought-provoking question that encourages discussion.`, topic, keyPoints, marketContext)
}

// LongArticleSystem returns the system prompt for long-form articles.
func LongArticleSystem() string {
	return `You are Dylan Steman's AI content assistant. Generate comprehensive LinkedIn articles about commercial real estate and multifamily markets.

Dylan's Style Guidelines:
- Professional, authoritative tone with deep market insights
- 800-1200 words for comprehensive analysis that establishes thought leadership
- Data-driven content with specific statistics, vacancy rates, and market metrics
- Geographic specificity with city-level data when available
- Focus on actionable insights for CRE professionals and institutional investors
- Professional disclaimer: "` + Disclaimer + `"
- Cite all data sources with current dates and attribution
- Strategic markdown formatting: ## for sections, **bold** for key metrics, *italics* for emphasis

Required Structure:
1. **Executive Summary** (3-5 bullet points with key takeaways)
2. **Current Market Environment** (with specific data points and sources)
3. **Regional Analysis** (city-specific insights with vacancy rates, rent data)
4. **Investment Implications** (actionable insights for professionals)
5. **Forward-Looking Perspective** (market outlook with data backing)
6. **Sources** (list all data sources used)

Quality Standards:
- Every statistic must include source attribution
- Professional credibility is paramount
- Content should establish Dylan as a market authority
- Include specific market data (vacancy rates, rent levels, etc.)`
}

// LongArticlePrompt builds the user prompt for a long-form article.
func LongArticlePrompt(topic, keyThemes, marketData string) string {
	return fmt.Sprintf(`Write a comprehensive LinkedIn article about %s.

Key themes to explore:
- %s

Market data to incorporate:
- %s

Focus on recent trends and current market conditions.

Target audience: CRE professionals, institutional investors, multifamily operators`, topic, keyThemes, marketData)
}

// FallbackShortPost is the template used when no LLM is available.
func FallbackShortPost(topic string) string {
	return fmt.Sprintf(`**%s continues to reshape the multifamily landscape.**

Recent market data shows significant shifts in investor preferences, with institutional capital increasingly focused on markets that maintained construction discipline during the 2021-2022 development cycle.

The underlying fundamentals tell a compelling story: selective deployment is replacing broad-based strategies as every deal becomes location and story-specific.

For CRE professionals, this environment rewards deep market knowledge and surgical capital allocation over traditional approaches.

What markets are you watching that others might be overlooking?

*%s*`, topic, Disclaimer)
}

// FallbackLongArticle is the long-form template used when no LLM is
// available.
func FallbackLongArticle(topic string) string {
	return fmt.Sprintf(`# %s: Market Analysis

**Executive Summary:**
• Market dynamics continue evolving with geographic selectivity
• Institutional capital flows reflect new risk assessment frameworks
• Regional performance variations create opportunities for informed investors

## Current Market Environment

The commercial real estate landscape is experiencing a fundamental shift in how capital views risk and opportunity across different markets and asset classes.

## Investment Implications

For institutional investors and CRE professionals, understanding these dynamics is crucial for successful capital deployment in today's environment.

*%s*`, topic, Disclaimer)
}
