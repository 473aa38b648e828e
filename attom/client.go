// Package attom talks to the ATTOM property API: radius address search and
// property detail, normalized through extractor chains.
package attom

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"vantera/config"
	"vantera/extract"
)

const (
	DefaultBaseURL  = "https://api.gateway.attomdata.com/propertyapi/v1.0.0"
	DefaultPageSize = 50

	maxResponseBody = 8 << 20
)

type Client struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
}

func NewClient(cfg config.ATTOMConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Client{
		client:   httpClient,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// SearchByRadius pages through /property/address around (lat, lng) until limit
// candidates are collected or the provider returns a short page.
func (c *Client) SearchByRadius(ctx context.Context, lat, lng, radius float64, limit int) ([]Candidate, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if limit <= 0 {
		return nil, nil
	}

	pageSize := c.pageSize
	if limit < pageSize {
		pageSize = limit
	}

	var out []Candidate
	for page := 1; len(out) < limit; page++ {
		q := url.Values{}
		q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
		q.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))
		q.Set("pagesize", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))

		rec, err := c.get(ctx, "/property/address", q)
		if err != nil {
			return nil, err
		}

		props := extract.Objects(rec, "property")
		for _, p := range props {
			out = append(out, ParseCandidate(p))
		}

		log.Printf("ATTOM: address page %d returned %d properties", page, len(props))
		if len(props) < pageSize {
			break
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Detail looks up one property. A nil Detail with nil error means the provider
// had no record for the address.
func (c *Client) Detail(ctx context.Context, address1, address2 string) (*Detail, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("address1", address1)
	q.Set("address2", address2)

	rec, err := c.get(ctx, "/property/detail", q)
	if err != nil {
		return nil, err
	}

	props := extract.Objects(rec, "property")
	if len(props) == 0 {
		return nil, nil
	}
	d := ParseDetail(props[0])
	return &d, nil
}

// get returns the decoded body, or an empty record for the empty-result quirk.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (extract.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attom %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read attom %s: %w", endpoint, err)
	}

	if isEmptyResult(body) {
		return extract.Record{}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Reason:     reason(resp),
			Body:       truncateBody(body),
		}
	}

	rec, err := extract.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode attom %s: %w", endpoint, err)
	}
	return rec, nil
}

func reason(resp *http.Response) string {
	r := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if r == "" {
		r = http.StatusText(resp.StatusCode)
	}
	return r
}
