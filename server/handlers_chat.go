package server

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/telemetry"
)

// HandleChatJSON returns the archive's full transcript. Deleted lines are
// blanked unless ?deleted=1.
func (h *Handlers) HandleChatJSON(w http.ResponseWriter, r *http.Request) {
	t, err := h.archives.Transcript(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !wantDeleted(r) {
		t = t.Redacted()
	}
	writeJSON(w, http.StatusOK, t)
}

type locateResponse struct {
	Offset float64          `json:"offset"`
	Target int64            `json:"target"`
	Index  int              `json:"index"`
	Total  int              `json:"total"`
	Line   *archive.Message `json:"line,omitempty"`
}

// HandleChatLocate reports the first line at or after playback position ?t=.
// An index equal to total means playback is past the last line.
func (h *Handlers) HandleChatLocate(w http.ResponseWriter, r *http.Request) {
	offset, err := parseOffsetQuery(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, err := h.archives.Transcript(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	i := t.Locate(offset)
	resp := locateResponse{
		Offset: offset,
		Target: locateTarget(offset, t.Start),
		Index:  i,
		Total:  len(t.Lines),
	}
	if i < len(t.Lines) {
		line := t.Lines[i]
		if !wantDeleted(r) {
			line = line.Redacted()
		}
		resp.Line = &line
	}
	writeJSON(w, http.StatusOK, resp)
}

// locateTarget is the unix second searched for, saturating at the int64 range.
func locateTarget(offset float64, start int64) int64 {
	c := math.Ceil(offset)
	if c+float64(start) >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(c) + start
}

type streamEvent struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	archive.Message
}

// HandleChatSSE replays the transcript using Server-Sent Events at a given
// playback speed, starting from position ?from= (seconds).
func (h *Handlers) HandleChatSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	from, err := parseOffsetQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	speed := parseFloat64Query(r, "speed", 1.0)
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 1.0
	}
	ctx := r.Context()
	t, err := h.archives.Transcript(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The server-wide write timeout would cut long replays short.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("could not clear write deadline", slog.Any("err", err))
	}
	closeStream := telemetry.StreamOpened()
	defer closeStream()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	prev := float64(t.Start) + from
	showDeleted := wantDeleted(r)
	enc := json.NewEncoder(w)
	for i := t.Locate(from); i < len(t.Lines); i++ {
		m := t.Lines[i]
		if !showDeleted {
			m = m.Redacted()
		}
		ts := float64(m.Timestamp())
		// sleep for the delta scaled by speed
		if ts > prev {
			delay := time.Duration(((ts - prev) / speed) * float64(time.Second))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
			return
		}
		_ = enc.Encode(streamEvent{Index: i, Offset: m.Timestamp() - t.Start, Message: m})
		if _, err := w.Write([]byte("\n")); err != nil {
			slog.Warn("failed to write SSE newline", slog.Any("err", err))
			return
		}
		flusher.Flush()
		prev = ts
	}
	if _, err := w.Write([]byte("event: end\ndata: {}\n\n")); err == nil {
		flusher.Flush()
	}
}
