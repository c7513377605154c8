package census

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"civicmap/internal/types"

	"go.uber.org/zap"
)

// ACSRequest selects American Community Survey variables for a geography.
type ACSRequest struct {
	// Dataset is the API dataset path, e.g. "acs/acs5".
	Dataset string
	Year    int
	// Get lists the variables, e.g. "NAME", "B19013_001E".
	Get []string
	// For is the geography clause, e.g. "tract:*".
	For string
	// In narrows For, e.g. "state:08", "county:001".
	In []string
	// Headers keeps only these response columns; empty keeps all.
	Headers []string
}

func (r ACSRequest) validate() error {
	switch {
	case r.Dataset == "":
		return fmt.Errorf("%w: no dataset given", types.ErrUsage)
	case r.Year <= 0:
		return fmt.Errorf("%w: invalid year %d", types.ErrUsage, r.Year)
	case len(r.Get) == 0:
		return fmt.Errorf("%w: no variables to get", types.ErrUsage)
	case r.For == "":
		return fmt.Errorf("%w: no geography given for the query", types.ErrUsage)
	}
	return nil
}

func (r ACSRequest) query(key string) url.Values {
	q := url.Values{}
	q.Set("get", strings.Join(r.Get, ","))
	q.Set("for", r.For)
	for _, in := range r.In {
		q.Add("in", in)
	}
	if key != "" {
		q.Set("key", key)
	}
	return q
}

// cacheFile names the cached response. The key never contributes to it.
func (c *Client) cacheFile(r ACSRequest) string {
	sum := sha256.Sum256([]byte(r.query("").Encode()))
	name := fmt.Sprintf("%d_%s_%s.json", r.Year, strings.ReplaceAll(r.Dataset, "/", "_"), hex.EncodeToString(sum[:8]))
	return filepath.Join(c.cacheDir, "acs", name)
}

// GetACS queries the Census data API and returns the table as a Dataset.
// Every value is the string the API returned; the first response row names
// the columns. Raw responses are cached unless the client refreshes.
func (c *Client) GetACS(ctx context.Context, r ACSRequest) (*types.Dataset, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	cached := ""
	if c.cacheDir != "" {
		cached = c.cacheFile(r)
		if !c.refresh {
			if body, err := os.ReadFile(cached); err == nil {
				zap.L().Debug("using cached census response", zap.String("file", cached))
				return types.FromJSON(bytes.NewReader(body), r.Headers)
			}
		}
	}

	endpoint := fmt.Sprintf("%s/%d/%s", strings.TrimRight(c.apiURL, "/"), r.Year, strings.Trim(r.Dataset, "/"))
	zap.L().Info("querying census api", zap.String("url", endpoint), zap.Strings("get", r.Get), zap.String("for", r.For))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(r.query(c.apiKey)).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	if res.StatusCode() == http.StatusNoContent {
		return nil, fmt.Errorf("%w: census api returned no rows for %s", types.ErrLookup, r.For)
	}
	if res.IsError() {
		return nil, fmt.Errorf("bad request. status code: %d url: %s: %s",
			res.StatusCode(), endpoint, strings.TrimSpace(string(res.Body())))
	}

	body := res.Body()
	data, err := types.FromJSON(bytes.NewReader(body), r.Headers)
	if err != nil {
		return nil, err
	}

	if cached != "" {
		if err := os.MkdirAll(filepath.Dir(cached), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(cached, body, 0644); err != nil {
			return nil, fmt.Errorf("cache census response: %w", err)
		}
	}
	return data, nil
}
