// Package client talks to a pongboard server over its JSON API. It is the
// remote Source used by dashctl.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lutefd/pongboard/internal/auth"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/domain/stats"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request carrying the session credential, if any, and decodes
// the JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, credential string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionName, Value: credential})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type LoginResult struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
	House    string `json:"house"`
}

// Login signs in a test account, creating it on first use. An empty house
// lets the server assign one.
func (c *Client) Login(ctx context.Context, intraID, house string) (LoginResult, error) {
	path := "/v1/login/" + url.PathEscape(intraID)
	if house != "" {
		path += "?house=" + url.QueryEscape(house)
	}
	var out LoginResult
	err := c.do(ctx, http.MethodPost, path, "", nil, &out)
	return out, err
}

func (c *Client) FetchChartData(ctx context.Context, credential string) (stats.ChartData, error) {
	var out stats.ChartData
	err := c.do(ctx, http.MethodGet, "/v1/chart", credential, nil, &out)
	return out, err
}

func (c *Client) FetchMatchLog(ctx context.Context, credential string) ([]matches.Record, error) {
	var out []matches.Record
	err := c.do(ctx, http.MethodGet, "/v1/games/me", credential, nil, &out)
	return out, err
}

// FetchHistory returns every game of the signed-in player, past the
// dashboard's match log cap.
func (c *Client) FetchHistory(ctx context.Context, credential string) ([]matches.Record, error) {
	var out []matches.Record
	err := c.do(ctx, http.MethodGet, "/v1/games/me?all=1", credential, nil, &out)
	return out, err
}

// RecordGame submits a finished match. Resubmitting a stored game id is
// not an error.
func (c *Client) RecordGame(ctx context.Context, credential string, sub matches.Submission) (matches.Record, error) {
	var out matches.Record
	err := c.do(ctx, http.MethodPost, "/v1/games", credential, sub, &out)
	return out, err
}
