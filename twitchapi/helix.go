// Package twitchapi contains minimal helpers to interact with the Twitch Helix
// API for archive metadata lookup, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/chat-replay/archive"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// HelixClient provides the methods needed to import archives.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	BaseURL        string
	HTTPClient     *http.Client
}

// Video is the subset of Helix video metadata used for archives.
type Video struct {
	ID        string
	UserLogin string
	Title     string
	CreatedAt time.Time
	Duration  time.Duration
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return DefaultBaseURL
}

// GetVideo looks up one video by id. Unknown ids return archive.ErrNotFound.
func (hc *HelixClient) GetVideo(ctx context.Context, id string) (Video, error) {
	if id == "" {
		return Video{}, fmt.Errorf("video id empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return Video{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL()+"/videos", nil)
	if err != nil {
		return Video{}, err
	}
	q := req.URL.Query()
	q.Set("id", id)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return Video{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNotFound {
		return Video{}, fmt.Errorf("video %s: %w", id, archive.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Video{}, fmt.Errorf("helix videos request failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var body struct {
		Data []struct {
			ID        string `json:"id"`
			UserLogin string `json:"user_login"`
			Title     string `json:"title"`
			CreatedAt string `json:"created_at"`
			Duration  string `json:"duration"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Video{}, err
	}
	if len(body.Data) == 0 {
		return Video{}, fmt.Errorf("video %s: %w", id, archive.ErrNotFound)
	}
	d := body.Data[0]
	created, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return Video{}, fmt.Errorf("video %s created_at: %w", id, err)
	}
	length, err := ParseDuration(d.Duration)
	if err != nil {
		return Video{}, fmt.Errorf("video %s duration: %w", id, err)
	}
	return Video{ID: d.ID, UserLogin: d.UserLogin, Title: d.Title, CreatedAt: created.UTC(), Duration: length}, nil
}

// Archive implements archive.VideoSource: the broadcast starts at the video's
// creation time and lasts its duration.
func (hc *HelixClient) Archive(ctx context.Context, videoID string) (archive.Archive, error) {
	v, err := hc.GetVideo(ctx, videoID)
	if err != nil {
		return archive.Archive{}, err
	}
	return archive.Archive{
		ID:      v.ID,
		Channel: strings.ToLower(v.UserLogin),
		Title:   v.Title,
		Start:   v.CreatedAt,
		Length:  v.Duration,
	}, nil
}

// ParseDuration parses Helix durations such as "3h8m33s", "12m5s" or "45s".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d.Truncate(time.Second), nil
}
