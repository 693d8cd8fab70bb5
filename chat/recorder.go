package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/telemetry"
)

// PurgePeriod is how far back a CLEARCHAT for a user hides messages.
const PurgePeriod = 5 * time.Minute

const queueSize = 1024

// drainTimeout bounds how long queued events may take to flush on shutdown.
const drainTimeout = 5 * time.Second

// Store persists chat lines and moderation actions.
type Store interface {
	InsertChatMessage(ctx context.Context, m archive.Message) error
	MarkUserDeleted(ctx context.Context, channel, username string, since time.Time) (int64, error)
	MarkMessageDeleted(ctx context.Context, msgID string) (int64, error)
}

// Config selects the channel and the optional bot login.
type Config struct {
	Channel  string
	Username string
	OAuth    string
}

// Recorder writes one channel's chat to a Store. IRC callbacks only enqueue
// work; a single worker applies it in arrival order so a purge always sees
// the messages it purges.
type Recorder struct {
	cfg    Config
	store  Store
	now    func() time.Time
	queue  chan func(context.Context)
	logger *slog.Logger
}

// NewRecorder returns a recorder for cfg.Channel.
func NewRecorder(cfg Config, store Store) *Recorder {
	cfg.Channel = strings.ToLower(strings.TrimPrefix(cfg.Channel, "#"))
	return &Recorder{
		cfg:    cfg,
		store:  store,
		now:    time.Now,
		queue:  make(chan func(context.Context), queueSize),
		logger: slog.Default().With(slog.String("component", "chat_recorder"), slog.String("channel", cfg.Channel)),
	}
}

// Run connects to Twitch IRC and records until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	if r.cfg.Channel == "" {
		return errors.New("chat recorder: channel not set")
	}
	var client *twitch.Client
	if r.cfg.Username != "" && r.cfg.OAuth != "" {
		client = twitch.NewClient(r.cfg.Username, r.cfg.OAuth)
	} else {
		r.logger.Info("twitch bot creds not set; joining chat anonymously")
		client = twitch.NewAnonymousClient()
	}

	client.OnConnect(func() { r.logger.Info("connected to twitch chat") })
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		m, ok := messageFromPrivmsg(msg, r.now())
		if !ok {
			return
		}
		r.enqueue(func(ctx context.Context) { r.Record(ctx, m) })
	})
	client.OnClearChatMessage(func(msg twitch.ClearChatMessage) {
		if msg.TargetUsername == "" {
			// A full-channel clear hides nothing from the archive.
			return
		}
		at := msg.Time
		if at.IsZero() {
			at = r.now()
		}
		r.enqueue(func(ctx context.Context) { r.ClearUser(ctx, msg.TargetUsername, at) })
	})
	client.OnClearMessage(func(msg twitch.ClearMessage) {
		r.enqueue(func(ctx context.Context) { r.ClearMessage(ctx, msg.TargetMsgID) })
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		r.work(runCtx)
	}()

	go func() {
		<-runCtx.Done()
		if err := client.Disconnect(); err != nil {
			r.logger.Debug("twitch chat disconnect", slog.Any("err", err))
		}
	}()

	client.Join(r.cfg.Channel)
	err := client.Connect()
	cancel()
	<-workerDone
	if err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
		r.logger.Error("twitch chat connect error", slog.Any("err", err))
		return err
	}
	return nil
}

func (r *Recorder) enqueue(job func(context.Context)) {
	select {
	case r.queue <- job:
	default:
		r.logger.Warn("chat queue full; dropping event")
	}
}

func (r *Recorder) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drain(ctx, nil)
			return
		case job := <-r.queue:
			if ctx.Err() != nil {
				r.drain(ctx, job)
				return
			}
			job(ctx)
		}
	}
}

// drain applies first and the events still queued at shutdown under a fresh
// deadline.
func (r *Recorder) drain(parent context.Context, first func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()
	if first != nil {
		first(ctx)
	}
	for ctx.Err() == nil {
		select {
		case job := <-r.queue:
			job(ctx)
		default:
			return
		}
	}
	if n := len(r.queue); n > 0 {
		r.logger.Warn("chat queue not drained before shutdown", slog.Int("dropped", n))
	}
}

// Record persists one message.
func (r *Recorder) Record(ctx context.Context, m archive.Message) {
	if err := r.store.InsertChatMessage(ctx, m); err != nil {
		r.logger.Error("failed to insert chat message", slog.Any("err", err))
		return
	}
	telemetry.RecordChatMessage()
}

// ClearUser hides username's messages sent within PurgePeriod before at.
func (r *Recorder) ClearUser(ctx context.Context, username string, at time.Time) {
	n, err := r.store.MarkUserDeleted(ctx, r.cfg.Channel, strings.ToLower(username), at.Add(-PurgePeriod))
	if err != nil {
		r.logger.Error("failed to clear user chat", slog.String("user", username), slog.Any("err", err))
		return
	}
	telemetry.RecordDeleted(n)
	r.logger.Debug("cleared user chat", slog.String("user", username), slog.Int64("messages", n))
}

// ClearMessage hides one message by its Twitch message id.
func (r *Recorder) ClearMessage(ctx context.Context, msgID string) {
	if msgID == "" {
		return
	}
	n, err := r.store.MarkMessageDeleted(ctx, msgID)
	if err != nil {
		r.logger.Error("failed to clear chat message", slog.String("msg_id", msgID), slog.Any("err", err))
		return
	}
	telemetry.RecordDeleted(n)
}

// messageFromPrivmsg converts an IRC message, reporting false for lines that
// are not logged.
func messageFromPrivmsg(msg twitch.PrivateMessage, now time.Time) (archive.Message, bool) {
	text := msg.Message
	if msg.Action {
		text = "/me " + text
	}
	if !loggable(text) {
		return archive.Message{}, false
	}
	at := msg.Time
	if at.IsZero() {
		at = now
	}
	return archive.Message{
		Channel:     strings.ToLower(msg.Channel),
		MsgID:       msg.ID,
		Username:    strings.ToLower(msg.User.Name),
		DisplayName: msg.User.DisplayName,
		Color:       msg.User.Color,
		Text:        text,
		Time:        at.UTC(),
	}, true
}

// loggable rejects blank lines and chat commands such as ".timeout", keeping
// "/me" actions.
func loggable(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if text[0] == '.' || text[0] == '/' {
		return len(text) >= 4 && strings.EqualFold(text[1:4], "me ")
	}
	return true
}
