package convo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aivistech/infrabot/internal/assistant"
	"github.com/aivistech/infrabot/internal/store"
)

// Controller drives the per-chat conversation state machine: Inactive and
// Active. Activation creates or reuses the chat's thread handle;
// deactivation keeps the handle for later reuse. The assistant ends a
// conversation itself by including the termination marker in a reply.
//
// Callers serialize per chat, and every transition is persisted before the
// reply goes out, so two near-simultaneous messages cannot both activate
// and mint divergent thread handles.
type Controller struct {
	sessions *store.SessionStore
	client   assistant.Client
	marker   string
}

func NewController(sessions *store.SessionStore, client assistant.Client, terminationMarker string) *Controller {
	if terminationMarker == "" {
		terminationMarker = "#fimdepapo"
	}
	return &Controller{
		sessions: sessions,
		client:   client,
		marker:   strings.ToLower(terminationMarker),
	}
}

// Active reports whether the chat is in conversation mode.
func (c *Controller) Active(chatID int64) bool {
	return c.sessions.Get(chatID).Active
}

// Activate switches the chat to Active. The existing thread handle is
// reused when present; otherwise a new one is created first and the
// transition persisted with it.
func (c *Controller) Activate(ctx context.Context, chatID int64) error {
	sess := c.sessions.Get(chatID)

	threadID := sess.ThreadID
	if threadID == "" {
		created, err := c.client.CreateThread(ctx)
		if err != nil {
			return err
		}
		threadID = created
		slog.Info("Conversation thread created", "chat", chatID, "thread", threadID)
	}

	return c.sessions.Update(chatID, func(s *store.ChatSession) error {
		s.Active = true
		s.ThreadID = threadID
		return nil
	})
}

// Deactivate is the manual override, available at any time.
func (c *Controller) Deactivate(chatID int64) error {
	return c.sessions.Update(chatID, func(s *store.ChatSession) error {
		s.Active = false
		return nil
	})
}

// Reset drops the thread handle entirely; the next activation starts a
// fresh conversation.
func (c *Controller) Reset(chatID int64) error {
	return c.sessions.Reset(chatID)
}

// Converse forwards a dialogue turn and returns the reply. When the reply
// carries the termination marker the session is deactivated before the
// reply is handed back; ended reports that transition to the caller.
func (c *Controller) Converse(ctx context.Context, chatID int64, text string) (reply string, ended bool, err error) {
	reply, err = c.PostOnThread(ctx, chatID, text)
	if err != nil {
		return "", false, err
	}

	if strings.Contains(strings.ToLower(reply), c.marker) {
		if err := c.Deactivate(chatID); err != nil {
			return "", false, err
		}
		slog.Info("Conversation ended by assistant", "chat", chatID)
		return reply, true, nil
	}

	return reply, false, nil
}

// PostOnThread posts a turn on the chat's thread without touching the mode
// flag. The thread is created on first use. Report formatting goes through
// here so scheduled and on-demand reports share the chat's history.
func (c *Controller) PostOnThread(ctx context.Context, chatID int64, text string) (string, error) {
	sess := c.sessions.Get(chatID)

	threadID := sess.ThreadID
	if threadID == "" {
		created, err := c.client.CreateThread(ctx)
		if err != nil {
			return "", err
		}
		threadID = created
		if err := c.sessions.Update(chatID, func(s *store.ChatSession) error {
			s.ThreadID = threadID
			return nil
		}); err != nil {
			return "", err
		}
	}

	return c.client.PostTurn(ctx, threadID, text)
}
