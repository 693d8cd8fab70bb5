// Package client talks to the chat replay HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/chat-replay/archive"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat replay api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client is a chat replay API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client for baseURL with a 30s request timeout.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// ArchiveInfo is archive metadata plus the resolved start position.
type ArchiveInfo struct {
	Archive     archive.Archive `json:"archive"`
	StartOffset float64         `json:"start_offset"`
}

// LocateResult is the first line at or after a playback position.
type LocateResult struct {
	Offset float64          `json:"offset"`
	Target int64            `json:"target"`
	Index  int              `json:"index"`
	Total  int              `json:"total"`
	Line   *archive.Message `json:"line,omitempty"`
}

// List returns recent archives, optionally for one channel.
func (c *Client) List(ctx context.Context, channel string, limit int) ([]archive.Archive, error) {
	q := url.Values{}
	if channel != "" {
		q.Set("channel", channel)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []archive.Archive
	err := c.get(ctx, "/archives", q, &out)
	return out, err
}

// Archive returns metadata for id; t is an optional start position ("1h2m3s").
func (c *Client) Archive(ctx context.Context, id, t string) (ArchiveInfo, error) {
	q := url.Values{}
	if t != "" {
		q.Set("t", t)
	}
	var out ArchiveInfo
	err := c.get(ctx, "/archives/"+url.PathEscape(id), q, &out)
	return out, err
}

// Transcript returns the archive's chat, including the text of deleted lines;
// callers decide whether to show it.
func (c *Client) Transcript(ctx context.Context, id string) (*archive.Transcript, error) {
	var out archive.Transcript
	if err := c.get(ctx, "/archives/"+url.PathEscape(id)+"/chat", url.Values{"deleted": {"1"}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Locate asks the server for the line at playback position t.
func (c *Client) Locate(ctx context.Context, id, t string) (LocateResult, error) {
	var out LocateResult
	err := c.get(ctx, "/archives/"+url.PathEscape(id)+"/chat/locate", url.Values{"t": {t}}, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
