package server

import (
	"encoding/json"
	"encoding/xml"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/chat-replay/archive"
)

const maxBodyBytes = 1 << 20

// HandleArchivesList lists archives, newest first.
// Params: channel (optional), limit (default 100).
func (h *Handlers) HandleArchivesList(w http.ResponseWriter, r *http.Request) {
	channel := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("channel")))
	limit := parseIntQuery(r, "limit", 100)
	list, err := h.archives.List(r.Context(), channel, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// HandleArchivesFeed renders a channel's archives as RSS 2.0, newest first.
// Params: channel (required), limit (default 100).
func (h *Handlers) HandleArchivesFeed(w http.ResponseWriter, r *http.Request) {
	channel := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("channel")))
	if channel == "" {
		http.Error(w, "channel required", http.StatusBadRequest)
		return
	}
	list, err := h.archives.List(r.Context(), channel, parseIntQuery(r, "limit", 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	base := requestBase(r)
	feed := rssFeed{Version: "2.0", Channel: rssChannel{
		Title:       channel + " chat replays",
		Link:        base + "/archives?channel=" + channel,
		Description: "Past broadcasts of " + channel + " with chat replay.",
		Items:       make([]rssItem, 0, len(list)),
	}}
	for _, a := range list {
		link := base + "/archives/" + a.ID
		title := a.Title
		if title == "" {
			title = a.ID
		}
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       title,
			Link:        link,
			GUID:        link,
			PubDate:     a.Start.UTC().Format(time.RFC1123Z),
			Description: "Length " + archive.FormatOffset(int64(a.Length.Seconds())),
		})
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		slog.Warn("failed to encode feed", slog.Any("err", err))
	}
}

// requestBase is the scheme and host the request arrived on.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

type archiveResponse struct {
	Archive archive.Archive `json:"archive"`
	// StartOffset is the requested starting position (?t=) in seconds.
	StartOffset float64 `json:"start_offset"`
}

// HandleArchive returns archive metadata and the resolved ?t= start position.
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	offset, err := parseOffsetQuery(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := h.archives.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveResponse{Archive: a, StartOffset: offset})
}

// HandleAdminRegister stores archive metadata posted as JSON.
func (h *Handlers) HandleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var a archive.Archive
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&a); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	a.Channel = strings.ToLower(strings.TrimSpace(a.Channel))
	if err := h.archives.Register(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleAdminImport registers an archive from Twitch video metadata.
// Body: {"video_id": "..."}.
func (h *Handlers) HandleAdminImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.VideoID) == "" {
		http.Error(w, "video_id required", http.StatusBadRequest)
		return
	}
	a, err := h.archives.Import(r.Context(), strings.TrimSpace(body.VideoID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
