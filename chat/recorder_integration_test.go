package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/db"
	"github.com/onnwee/chat-replay/testutil"
)

// Records into Postgres and checks that purges hide the right lines.
func TestRecorderPostgres(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := db.NewStore(database)
	ctx := context.Background()

	suffix := time.Now().UnixNano()
	channel := fmt.Sprintf("itest%d", suffix)
	rec := NewRecorder(Config{Channel: channel}, store)

	base := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	msgs := []archive.Message{
		{MsgID: fmt.Sprintf("a-%d", suffix), Username: "troll", Text: "old", Time: base},
		{MsgID: fmt.Sprintf("b-%d", suffix), Username: "troll", Text: "recent", Time: base.Add(8 * time.Minute)},
		{MsgID: fmt.Sprintf("c-%d", suffix), Username: "viewer", Text: "hello", Time: base.Add(9 * time.Minute)},
		{MsgID: fmt.Sprintf("d-%d", suffix), Username: "viewer", Text: "oops", Time: base.Add(9*time.Minute + time.Second)},
	}
	for _, m := range msgs {
		m.Channel = channel
		rec.Record(ctx, m)
	}
	// duplicate msg ids are ignored
	dup := msgs[0]
	dup.Channel = channel
	rec.Record(ctx, dup)

	rec.ClearUser(ctx, "Troll", base.Add(10*time.Minute))
	rec.ClearMessage(ctx, msgs[3].MsgID)

	got, err := store.ChatBetween(ctx, channel, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ChatBetween: %v", err)
	}
	if len(got) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(got), len(msgs))
	}
	wantDeleted := []bool{false, true, false, true}
	for i, m := range got {
		if m.Deleted != wantDeleted[i] {
			t.Errorf("message %d (%q) deleted = %v, want %v", i, m.Text, m.Deleted, wantDeleted[i])
		}
	}
}
