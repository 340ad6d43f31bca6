// Package remote is a thin typed client for the hosted table-REST store
// (Supabase PostgREST). Tables are addressed by name; filters are equality
// only, which is all the sync engine needs.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for baseURL (the project URL, without /rest/v1).
// The timeout bounds every call so a sync cycle cannot block indefinitely.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether the client has an endpoint configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(method, rawURL string, body any, prefer string, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, rawURL, bodyReader)
	if err != nil {
		return fmt.Errorf("remote request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote HTTP %d: %s", resp.StatusCode, string(data))
	}
	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("remote decode: %w", err)
		}
	}
	return nil
}

func filterQuery(filters map[string]string) url.Values {
	q := url.Values{}
	for col, val := range filters {
		q.Set(col, "eq."+val)
	}
	return q
}

// Select fetches rows. columns, filters, order and limit may all be zero-valued.
func (c *Client) Select(table string, columns []string, filters map[string]string, order string, limit int) ([]map[string]any, error) {
	q := filterQuery(filters)
	if len(columns) > 0 {
		sel := columns[0]
		for _, col := range columns[1:] {
			sel += "," + col
		}
		q.Set("select", sel)
	}
	if order != "" {
		q.Set("order", order)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []map[string]any
	if err := c.do(http.MethodGet, c.tableURL(table, q), nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert appends rows without conflict handling.
func (c *Client) Insert(table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	return c.do(http.MethodPost, c.tableURL(table, nil), rows, "return=minimal", nil)
}

// Upsert inserts or updates rows keyed by the table's primary key column.
// Idempotent: repeating the same rows converges to the same remote state.
func (c *Client) Upsert(table, pkColumn string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("on_conflict", pkColumn)
	return c.do(http.MethodPost, c.tableURL(table, q), rows,
		"resolution=merge-duplicates,return=minimal", nil)
}

// Update patches every row matching the equality filters.
func (c *Client) Update(table string, filters map[string]string, row map[string]any) error {
	return c.do(http.MethodPatch, c.tableURL(table, filterQuery(filters)), row, "return=minimal", nil)
}

// Delete removes every row matching the equality filters.
func (c *Client) Delete(table string, filters map[string]string) error {
	return c.do(http.MethodDelete, c.tableURL(table, filterQuery(filters)), nil, "return=minimal", nil)
}
