// Package chat contains the Twitch chat recorder.
//
// The Recorder connects to Twitch IRC for one channel and persists every
// loggable message into the chat_messages table with its absolute timestamp.
// Archives are windows over that continuous log, so recording never needs to
// know which broadcast a message belongs to.
//
// Moderation is mirrored into the log: CLEARCHAT for a user hides that user's
// messages from the preceding five minutes, CLEARMSG hides a single message.
//
// Credentials: with TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN (chat:read
// scope) the recorder logs in as the bot; without them it joins anonymously,
// which is sufficient for reading chat.
package chat
