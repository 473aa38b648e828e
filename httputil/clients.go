package httputil

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Clients struct {
	ATTOM *http.Client // property data API
	Apify *http.Client // actor runs and datasets, slower
}

// NewClients builds the outbound clients. A non-empty proxyURL routes both
// through that proxy.
func NewClients(proxyURL string) (*Clients, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &Clients{
		ATTOM: &http.Client{Timeout: 30 * time.Second, Transport: transport},
		Apify: &http.Client{Timeout: 60 * time.Second, Transport: transport},
	}, nil
}
