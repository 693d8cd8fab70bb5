package server

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/onnwee/chat-replay/archive"
)

// parseFloat64Query extracts a float64 parameter from query string with a default value.
func parseFloat64Query(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// parseIntQuery extracts an int parameter from query string with a default value.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parseOffsetQuery reads a playback position in seconds. Plain numbers may be
// fractional; "1h2m3s" and "1:02:03" forms are accepted as well. A missing
// parameter is position zero. NaN and infinities are rejected.
func parseOffsetQuery(r *http.Request, key string) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid offset %q", v)
		}
		if f >= 0 {
			return f, nil
		}
	}
	d, err := archive.ParseOffset(v)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

// wantDeleted reports whether the caller asked for the text of deleted lines.
func wantDeleted(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))
	return v
}

// getEnvInt returns an integer environment variable value or default if not set or invalid.
func getEnvInt(key string, defaultVal int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return defaultVal
}
