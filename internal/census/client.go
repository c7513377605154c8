// Package census downloads TIGER/Line shapefiles and American Community
// Survey tables from the US Census Bureau, caching both on disk.
package census

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// Census Bureau endpoints.
const (
	DefaultTigerURL = "https://www2.census.gov/geo/tiger"
	DefaultAPIURL   = "https://api.census.gov/data"
)

// Options configures a Client.
type Options struct {
	// CacheDir holds extracted shapefiles and raw API responses.
	CacheDir string
	APIKey   string
	// Refresh ignores cached downloads.
	Refresh bool

	TigerURL string
	APIURL   string
	Timeout  time.Duration
}

// Client fetches Census data. Requests are made once; there is no retry.
type Client struct {
	http     *resty.Client
	tigerURL string
	apiURL   string
	cacheDir string
	apiKey   string
	refresh  bool
}

// NewClient returns a client for opts, filling in the public endpoints.
func NewClient(opts Options) *Client {
	if opts.TigerURL == "" {
		opts.TigerURL = DefaultTigerURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	client := resty.New()
	client.SetHeader("user-agent", "civicmap")
	client.SetTimeout(opts.Timeout)

	return &Client{
		http:     client,
		tigerURL: opts.TigerURL,
		apiURL:   opts.APIURL,
		cacheDir: opts.CacheDir,
		apiKey:   opts.APIKey,
		refresh:  opts.Refresh,
	}
}
