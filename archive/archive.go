// Package archive assembles chat transcripts for recorded broadcasts.
//
// An Archive is a past broadcast of a channel with a start time and length.
// Its transcript is the channel's chat from BeforeBuffer ahead of the start
// to AfterBuffer past the end, ordered by time, with timestamps in unix
// seconds so they share an origin with the transcript's Start offset.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/chat-replay/chatsync"
)

const (
	// DefaultBeforeBuffer is how much chat ahead of the broadcast start is included.
	DefaultBeforeBuffer = 15 * time.Minute
	// DefaultAfterBuffer is how much chat past the broadcast end is included.
	DefaultAfterBuffer = 15 * time.Minute
)

var (
	// ErrNotFound is returned when an archive does not exist.
	ErrNotFound = errors.New("archive not found")
	// ErrInvalid wraps validation failures of archive metadata.
	ErrInvalid = errors.New("invalid archive")
	// ErrNoVideoSource is returned by Import when no metadata source is configured.
	ErrNoVideoSource = errors.New("no video source configured")
)

// Archive is a recorded broadcast.
type Archive struct {
	ID      string
	Channel string
	Title   string
	Start   time.Time
	Length  time.Duration
}

// End is when the broadcast finished.
func (a Archive) End() time.Time { return a.Start.Add(a.Length) }

// Validate checks the fields required to register an archive.
func (a Archive) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: id required", ErrInvalid)
	case a.Channel == "":
		return fmt.Errorf("%w %s: channel required", ErrInvalid, a.ID)
	case a.Start.IsZero():
		return fmt.Errorf("%w %s: start time required", ErrInvalid, a.ID)
	case a.Length < 0:
		return fmt.Errorf("%w %s: negative length %s", ErrInvalid, a.ID, a.Length)
	}
	return nil
}

type archiveJSON struct {
	ID            string    `json:"id"`
	Channel       string    `json:"channel"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	LengthSeconds int64     `json:"length_seconds"`
}

// MarshalJSON encodes the length in whole seconds.
func (a Archive) MarshalJSON() ([]byte, error) {
	return json.Marshal(archiveJSON{
		ID:            a.ID,
		Channel:       a.Channel,
		Title:         a.Title,
		Start:         a.Start.UTC(),
		LengthSeconds: int64(a.Length / time.Second),
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Archive) UnmarshalJSON(b []byte) error {
	var v archiveJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = Archive{
		ID:      v.ID,
		Channel: v.Channel,
		Title:   v.Title,
		Start:   v.Start,
		Length:  time.Duration(v.LengthSeconds) * time.Second,
	}
	return nil
}

// Message is one recorded chat line.
type Message struct {
	ID          int64     `json:"id"`
	Channel     string    `json:"channel,omitempty"`
	MsgID       string    `json:"msg_id,omitempty"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Color       string    `json:"color,omitempty"`
	Text        string    `json:"message"`
	Time        time.Time `json:"time"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Timestamp is the message time in unix seconds.
func (m Message) Timestamp() int64 { return m.Time.Unix() }

// Name is the display name when set, else the login.
func (m Message) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// Transcript is an archive with the chat recorded around it.
type Transcript struct {
	Archive Archive `json:"archive"`
	// Start is the broadcast start in unix seconds; playback position zero.
	Start int64     `json:"start"`
	Lines []Message `json:"lines"`
}

// NewTranscript builds a transcript. Deleted lines keep their text and slot;
// use Redacted before showing it to viewers that did not ask for it.
func NewTranscript(a Archive, msgs []Message) *Transcript {
	lines := make([]Message, len(msgs))
	copy(lines, msgs)
	return &Transcript{Archive: a, Start: a.Start.Unix(), Lines: lines}
}

// Redacted returns a copy with the text of deleted lines removed.
func (t *Transcript) Redacted() *Transcript {
	out := &Transcript{Archive: t.Archive, Start: t.Start, Lines: make([]Message, len(t.Lines))}
	for i, m := range t.Lines {
		out.Lines[i] = m.Redacted()
	}
	return out
}

// Redacted blanks the text of a deleted message.
func (m Message) Redacted() Message {
	if m.Deleted {
		m.Text = ""
	}
	return m
}

// Index returns the transcript's timestamp index; elements are line positions.
func (t *Transcript) Index() []chatsync.Line[int] {
	pos := make([]int, len(t.Lines))
	for i := range pos {
		pos[i] = i
	}
	return chatsync.BuildIndex(pos, func(i int) int64 { return t.Lines[i].Timestamp() })
}

// Locate returns the first line at or after the playback offset, or
// len(t.Lines) when playback is past the last line.
func (t *Transcript) Locate(offset float64) int {
	return chatsync.SearchTime(len(t.Lines), func(i int) int64 { return t.Lines[i].Timestamp() }, offset+float64(t.Start))
}
