package spendwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a spendwatch server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadTransactions uploads a batch of transaction records.
func (c *Client) UploadTransactions(ctx context.Context, records []Record) (*UploadResult, error) {
	var out UploadResult
	err := c.do(ctx, http.MethodPost, "/api/transactions/upload",
		map[string]any{"records": records}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze triggers an analysis run over all unscored transactions.
func (c *Client) Analyze(ctx context.Context) (*AnalysisResult, error) {
	var out AnalysisResult
	if err := c.do(ctx, http.MethodPost, "/api/analyze", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAnomalies returns one page of anomaly results, lowest score first.
func (c *Client) ListAnomalies(ctx context.Context, opts ListOptions) (*AnomalyPage, error) {
	q := url.Values{}
	if opts.Risk != "" {
		q.Set("risk", opts.Risk)
	}
	if opts.Location != "" {
		q.Set("location", opts.Location)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}

	path := "/api/anomalies"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out AnomalyPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnomaly returns the anomaly result for a transaction.
func (c *Client) GetAnomaly(ctx context.Context, transactionID int64) (*Anomaly, error) {
	var out Anomaly
	path := "/api/anomalies/" + strconv.FormatInt(transactionID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Overview returns the dashboard summary.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RiskDistribution returns result counts per risk level.
func (c *Client) RiskDistribution(ctx context.Context) ([]RiskCount, error) {
	var out struct {
		Distribution []RiskCount `json:"distribution"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/risk-distribution", nil, &out); err != nil {
		return nil, err
	}
	return out.Distribution, nil
}

// TopVendors returns vendors ranked by flagged-transaction count.
func (c *Client) TopVendors(ctx context.Context, limit int) ([]VendorSummary, error) {
	path := "/api/dashboard/top-vendors"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out struct {
		Vendors []VendorSummary `json:"vendors"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Vendors, nil
}

// Heatmap returns one of the grouped heatmap views: "location",
// "department", or "time". risk optionally restricts to a single level.
func (c *Client) Heatmap(ctx context.Context, view, risk string) ([]HeatCell, error) {
	switch view {
	case "location", "department", "time":
	default:
		return nil, fmt.Errorf("unknown heatmap view %q", view)
	}

	path := "/api/heatmap/" + view
	if risk != "" {
		path += "?risk=" + url.QueryEscape(risk)
	}

	var out struct {
		Cells []HeatCell `json:"cells"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Cells, nil
}

// do performs one API request, decoding either the success payload or the
// API error envelope.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("http %d", resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
