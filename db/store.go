package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/chat-replay/archive"
)

// Store implements archive.Store and the chat recorder's store on Postgres.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// UpsertArchive inserts or updates archive metadata.
func (s *Store) UpsertArchive(ctx context.Context, a archive.Archive) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO archives (id, channel, title, start_at, length_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			channel=EXCLUDED.channel,
			title=EXCLUDED.title,
			start_at=EXCLUDED.start_at,
			length_seconds=EXCLUDED.length_seconds,
			updated_at=NOW()`,
		a.ID, a.Channel, a.Title, a.Start.UTC(), int64(a.Length/time.Second))
	return err
}

// GetArchive returns archive.ErrNotFound when id is unknown.
func (s *Store) GetArchive(ctx context.Context, id string) (archive.Archive, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, channel, title, start_at, length_seconds FROM archives WHERE id=$1`, id)
	a, err := scanArchive(row)
	if errors.Is(err, sql.ErrNoRows) {
		return archive.Archive{}, archive.ErrNotFound
	}
	if err != nil {
		return archive.Archive{}, fmt.Errorf("get archive %s: %w", id, err)
	}
	return a, nil
}

// ListArchives returns archives newest first; an empty channel lists all channels.
func (s *Store) ListArchives(ctx context.Context, channel string, limit int) ([]archive.Archive, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, channel, title, start_at, length_seconds FROM archives
		WHERE ($1 = '' OR channel = $1)
		ORDER BY start_at DESC, id ASC LIMIT $2`, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]archive.Archive, 0)
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArchive(r scanner) (archive.Archive, error) {
	var a archive.Archive
	var lengthSeconds int64
	if err := r.Scan(&a.ID, &a.Channel, &a.Title, &a.Start, &lengthSeconds); err != nil {
		return archive.Archive{}, err
	}
	a.Start = a.Start.UTC()
	a.Length = time.Duration(lengthSeconds) * time.Second
	return a, nil
}

// InsertChatMessage persists one chat line. Messages with an already-stored
// msg_id are ignored.
func (s *Store) InsertChatMessage(ctx context.Context, m archive.Message) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chat_messages (channel, msg_id, username, display_name, color, message, abs_timestamp)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`,
		m.Channel, m.MsgID, m.Username, m.DisplayName, m.Color, m.Text, m.Time.UTC())
	return err
}

// ChatBetween returns a channel's chat in [from, to], ordered by time then insertion.
func (s *Store) ChatBetween(ctx context.Context, channel string, from, to time.Time) ([]archive.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, channel, COALESCE(msg_id, ''), username, display_name, color, message, abs_timestamp, deleted
		FROM chat_messages
		WHERE channel=$1 AND abs_timestamp BETWEEN $2 AND $3
		ORDER BY abs_timestamp ASC, id ASC`, channel, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query chat: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]archive.Message, 0)
	for rows.Next() {
		var m archive.Message
		if err := rows.Scan(&m.ID, &m.Channel, &m.MsgID, &m.Username, &m.DisplayName, &m.Color, &m.Text, &m.Time, &m.Deleted); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		m.Time = m.Time.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkUserDeleted hides a user's messages in channel sent at or after since.
func (s *Store) MarkUserDeleted(ctx context.Context, channel, username string, since time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET deleted=TRUE
		WHERE channel=$1 AND username=$2 AND abs_timestamp >= $3 AND NOT deleted`,
		channel, username, since.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark user %s deleted: %w", username, err)
	}
	return res.RowsAffected()
}

// MarkMessageDeleted hides a single message by its Twitch message id.
func (s *Store) MarkMessageDeleted(ctx context.Context, msgID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET deleted=TRUE WHERE msg_id=$1 AND NOT deleted`, msgID)
	if err != nil {
		return 0, fmt.Errorf("mark message %s deleted: %w", msgID, err)
	}
	return res.RowsAffected()
}
