package marketdata

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Indicator is a single observed value from an upstream statistics API.
type Indicator struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Date   string  `json:"date,omitempty"`
	Source string  `json:"source"`
}

// MetroData groups Census indicators for one metropolitan area.
type MetroData struct {
	MetroName string               `json:"metro_name"`
	Data      map[string]Indicator `json:"data"`
}

const cacheTTL = time.Hour

type cacheEntry struct {
	data      any
	fetchedAt time.Time
}

// Provider fetches economic, demographic and employment statistics from
// FRED, the Census Bureau and the BLS. Results are cached in memory for
// an hour per request type. Individual series failures are skipped so a
// call always returns whatever subset of the data could be fetched.
type Provider struct {
	fredKey string

	fredBaseURL   string
	censusBaseURL string
	blsBaseURL    string

	fredClient   *http.Client
	censusClient *http.Client
	blsClient    *http.Client

	// Courtesy throttles per upstream, not a correctness requirement.
	fredLimiter   *rate.Limiter
	censusLimiter *rate.Limiter
	blsLimiter    *rate.Limiter

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewProvider builds a Provider. fredKey may be empty; FRED requests
// will then fail per-series and the economic snapshot comes back empty.
func NewProvider(fredKey string) *Provider {
	return &Provider{
		fredKey:       fredKey,
		fredBaseURL:   "https://api.stlouisfed.org",
		censusBaseURL: "https://api.census.gov",
		blsBaseURL:    "https://api.bls.gov",
		fredClient:    &http.Client{Timeout: 10 * time.Second},
		censusClient:  &http.Client{Timeout: 15 * time.Second},
		blsClient:     &http.Client{Timeout: 15 * time.Second},
		fredLimiter:   rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		censusLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		blsLimiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		cache:         make(map[string]cacheEntry),
		now:           time.Now,
	}
}

// cached returns the cache entry for key when it is younger than the
// TTL. Entries older than the TTL are never served without a refresh
// attempt first.
func (p *Provider) cached(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[key]
	if !ok || p.now().Sub(entry.fetchedAt) >= cacheTTL {
		return nil, false
	}
	return entry.data, true
}

func (p *Provider) store(key string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = cacheEntry{data: data, fetchedAt: p.now()}
}
