package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix and OAuth responses.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	tokenRequests atomic.Int32
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// HelixURL is the base URL to hand to a Helix client.
func (m *MockTwitchServer) HelixURL() string { return m.URL + "/helix" }

// TokenURL is the OAuth token endpoint of the mock.
func (m *MockTwitchServer) TokenURL() string { return m.URL + "/oauth2/token" }

// TokenRequests reports how many tokens have been issued.
func (m *MockTwitchServer) TokenRequests() int { return int(m.tokenRequests.Load()) }

// MockVideosResponse adds a handler for /helix/videos returning videos as the data array.
func (m *MockTwitchServer) MockVideosResponse(videos []map[string]string) {
	m.Handlers["/helix/videos"] = func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		data := make([]map[string]string, 0, len(videos))
		for _, v := range videos {
			if id == "" || v["id"] == id {
				data = append(data, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck // test mock response
	}
}

// MockOAuthTokenResponse adds a handler for the OAuth token endpoint.
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		m.tokenRequests.Add(1)
		response := map[string]any{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}
