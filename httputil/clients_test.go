package httputil

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClients(t *testing.T) {
	c, err := NewClients("")
	if err != nil {
		t.Fatalf("NewClients failed: %v", err)
	}
	if c.ATTOM.Timeout != 30*time.Second || c.Apify.Timeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: %v %v", c.ATTOM.Timeout, c.Apify.Timeout)
	}
}

func TestNewClients_Proxy(t *testing.T) {
	c, err := NewClients("http://proxy.internal:3128")
	if err != nil {
		t.Fatalf("NewClients failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://api.gateway.attomdata.com/", nil)
	proxy, err := c.ATTOM.Transport.(*http.Transport).Proxy(req)
	if err != nil || proxy == nil || proxy.Host != "proxy.internal:3128" {
		t.Fatalf("expected proxy to be applied, got %v (%v)", proxy, err)
	}

	if _, err := NewClients("://bad"); err == nil {
		t.Fatal("expected parse error for malformed proxy url")
	}
}
