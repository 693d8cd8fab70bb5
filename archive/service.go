package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/chat-replay/telemetry"
)

// Store persists archives and recorded chat.
type Store interface {
	GetArchive(ctx context.Context, id string) (Archive, error)
	ListArchives(ctx context.Context, channel string, limit int) ([]Archive, error)
	UpsertArchive(ctx context.Context, a Archive) error
	ChatBetween(ctx context.Context, channel string, from, to time.Time) ([]Message, error)
}

// Cache holds assembled transcripts. A miss returns (nil, false, nil).
type Cache interface {
	GetTranscript(ctx context.Context, id string) (*Transcript, bool, error)
	SetTranscript(ctx context.Context, t *Transcript) error
	Invalidate(ctx context.Context, id string) error
}

// VideoSource looks up broadcast metadata by video id.
type VideoSource interface {
	Archive(ctx context.Context, videoID string) (Archive, error)
}

// Service loads archives and their transcripts.
type Service struct {
	store  Store
	cache  Cache
	videos VideoSource
	before time.Duration
	after  time.Duration
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables transcript caching.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithVideoSource enables Import.
func WithVideoSource(v VideoSource) Option { return func(s *Service) { s.videos = v } }

// WithBuffers overrides how much chat around the broadcast is included.
func WithBuffers(before, after time.Duration) Option {
	return func(s *Service) {
		if before >= 0 {
			s.before = before
		}
		if after >= 0 {
			s.after = after
		}
	}
}

// NewService returns a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		before: DefaultBeforeBuffer,
		after:  DefaultAfterBuffer,
		logger: slog.Default().With(slog.String("component", "archive")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns archive metadata.
func (s *Service) Get(ctx context.Context, id string) (Archive, error) {
	return s.store.GetArchive(ctx, id)
}

// List returns the most recent archives, optionally for one channel.
func (s *Service) List(ctx context.Context, channel string, limit int) ([]Archive, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListArchives(ctx, channel, limit)
}

// Transcript returns the archive with its surrounding chat.
func (s *Service) Transcript(ctx context.Context, id string) (*Transcript, error) {
	if s.cache != nil {
		t, ok, err := s.cache.GetTranscript(ctx, id)
		switch {
		case err != nil:
			s.logger.Warn("transcript cache read failed", slog.String("archive_id", id), slog.Any("err", err))
		case ok:
			telemetry.CacheHit()
			return t, nil
		default:
			telemetry.CacheMiss()
		}
	}

	a, err := s.store.GetArchive(ctx, id)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	telemetry.TimeFunc(telemetry.TranscriptLoadDuration, func() {
		msgs, err = s.store.ChatBetween(ctx, a.Channel, a.Start.Add(-s.before), a.End().Add(s.after))
	})
	if err != nil {
		return nil, fmt.Errorf("load chat for archive %s: %w", id, err)
	}
	t := NewTranscript(a, msgs)

	if s.cache != nil {
		if err := s.cache.SetTranscript(ctx, t); err != nil {
			s.logger.Warn("transcript cache write failed", slog.String("archive_id", id), slog.Any("err", err))
		}
	}
	return t, nil
}

// Register stores archive metadata and drops any cached transcript.
func (s *Service) Register(ctx context.Context, a Archive) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertArchive(ctx, a); err != nil {
		return fmt.Errorf("store archive %s: %w", a.ID, err)
	}
	s.invalidate(ctx, a.ID)
	s.logger.Info("archive registered", slog.String("archive_id", a.ID), slog.String("channel", a.Channel), slog.Time("start", a.Start))
	return nil
}

// Import fetches broadcast metadata from the video source and registers it.
func (s *Service) Import(ctx context.Context, videoID string) (Archive, error) {
	if s.videos == nil {
		return Archive{}, fmt.Errorf("import %s: %w", videoID, ErrNoVideoSource)
	}
	a, err := s.videos.Archive(ctx, videoID)
	if err != nil {
		return Archive{}, fmt.Errorf("import %s: %w", videoID, err)
	}
	if err := s.Register(ctx, a); err != nil {
		return Archive{}, err
	}
	return a, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("transcript cache invalidate failed", slog.String("archive_id", id), slog.Any("err", err))
	}
}
