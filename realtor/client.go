// Package realtor runs the Realtor.com scraper actor on Apify and normalizes
// its dataset items into listings.
package realtor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vantera/config"
)

const (
	DefaultBaseURL  = "https://api.apify.com/v2"
	DefaultActor    = "epctex~realtor-scraper"
	pollTimeout     = 15 * time.Minute
	defaultPollWait = 10 * time.Second
)

type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("realtor: %s is not configured", e.Key)
}

var ErrMissingToken = &ConfigError{Key: "APIFY_TOKEN"}

type Client struct {
	client    *http.Client
	baseURL   string
	token     string
	actor     string
	pollDelay time.Duration
}

func NewClient(cfg config.ApifyConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	actor := cfg.RealtorActor
	if actor == "" {
		actor = DefaultActor
	}
	pollDelay := cfg.PollDelay
	if pollDelay <= 0 {
		pollDelay = defaultPollWait
	}
	return &Client{
		client:    httpClient,
		baseURL:   baseURL,
		token:     cfg.Token,
		actor:     actor,
		pollDelay: pollDelay,
	}
}

// Search runs the actor for a free-text location and returns parsed listings.
// Items that cannot be parsed are logged and dropped.
func (c *Client) Search(ctx context.Context, location string, limit int) ([]Listing, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	runID, err := c.startRun(ctx, location, limit)
	if err != nil {
		return nil, fmt.Errorf("start apify run: %w", err)
	}
	log.Printf("Apify: run started %s (actor: %s, location: %s)", runID, c.actor, location)

	datasetID, err := c.waitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("apify run failed: %w", err)
	}

	items, err := c.fetchDataset(ctx, datasetID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	listings := make([]Listing, 0, len(items))
	for _, item := range items {
		l, err := ParseItem(item)
		if err != nil {
			log.Printf("Apify: failed to parse item: %v", err)
			continue
		}
		listings = append(listings, l)
	}
	log.Printf("Apify: fetched %d items, %d parsed", len(items), len(listings))
	return listings, nil
}

func (c *Client) startRun(ctx context.Context, location string, limit int) (string, error) {
	input := map[string]any{
		"search":   location,
		"mode":     "BUY",
		"maxItems": limit,
		"proxy": map[string]any{
			"useApifyProxy": true,
		},
	}
	body, _ := json.Marshal(input)

	req, err := c.newRequest(ctx, "POST", "/acts/"+url.PathEscape(c.actor)+"/runs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.ID, nil
}

func (c *Client) waitForRun(ctx context.Context, runID string) (string, error) {
	deadline := time.Now().Add(pollTimeout)

	for time.Now().Before(deadline) {
		status, datasetID, err := c.runStatus(ctx, runID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("Apify: poll %s failed: %v", runID, err)
		}

		switch status {
		case "SUCCEEDED":
			return datasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("run %s: %s", runID, status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollDelay):
		}
	}

	return "", fmt.Errorf("timeout waiting for run %s", runID)
}

func (c *Client) runStatus(ctx context.Context, runID string) (string, string, error) {
	req, err := c.newRequest(ctx, "GET", "/actor-runs/"+url.PathEscape(runID), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Status           string `json:"status"`
			DefaultDatasetID string `json:"defaultDatasetId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}
	return result.Data.Status, result.Data.DefaultDatasetID, nil
}

func (c *Client) fetchDataset(ctx context.Context, datasetID string, limit int) ([]json.RawMessage, error) {
	path := "/datasets/" + url.PathEscape(datasetID) + "/items?format=json&clean=true"
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}
