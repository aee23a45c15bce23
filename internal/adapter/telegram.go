package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aivistech/infrabot/internal/bot"
	"github.com/aivistech/infrabot/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAdapter long-polls the Telegram bot API and normalizes updates
// into bot events. A message counts as an activation trigger when it
// @-mentions the bot or matches the configured keyword pattern.
type TelegramAdapter struct {
	token         string
	updateTimeout int
	keyword       *regexp.Regexp
	eventHandler  EventHandler
	api           *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string, updateTimeout int, keywordPattern string, eventHandler EventHandler) (*TelegramAdapter, error) {
	if updateTimeout <= 0 {
		updateTimeout = 60
	}

	var keyword *regexp.Regexp
	if keywordPattern != "" {
		compiled, err := regexp.Compile("(?i)" + keywordPattern)
		if err != nil {
			return nil, fmt.Errorf("compile keyword pattern %q: %w", keywordPattern, err)
		}
		keyword = compiled
	}

	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		keyword:       keyword,
		eventHandler:  eventHandler,
	}, nil
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	var err error
	t.api, err = tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.Wrap(err, "failed to init telegram bot")
	}

	slog.Info("Telegram adapter started", "user", t.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := t.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.api != nil {
		t.api.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	evt := bot.NewEvent("telegram", msg.Chat.ID, msg.From.ID, msg.Text)
	evt.UserName = msg.From.UserName
	evt.FullName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	evt.Mention = t.isMention(msg)

	if t.eventHandler != nil {
		if err := t.eventHandler(ctx, evt); err != nil {
			slog.Error("Failed to handle Telegram event", "error", err, "chat", msg.Chat.ID)
		}
	}
}

func (t *TelegramAdapter) isMention(msg *tgbotapi.Message) bool {
	handle := "@" + t.api.Self.UserName
	for _, entity := range msg.Entities {
		if entity.Type != "mention" {
			continue
		}
		start := entity.Offset
		end := entity.Offset + entity.Length
		runes := []rune(msg.Text)
		if start >= 0 && end <= len(runes) && string(runes[start:end]) == handle {
			return true
		}
	}
	if t.keyword != nil && t.keyword.MatchString(msg.Text) {
		return true
	}
	return false
}

// Send delivers reply text as Markdown, matching the bot's report style.
func (t *TelegramAdapter) Send(ctx context.Context, chatID int64, content string) error {
	msg := tgbotapi.NewMessage(chatID, content)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		// Markdown from the assistant is occasionally unbalanced; retry plain.
		msg.ParseMode = ""
		if _, plainErr := t.api.Send(msg); plainErr != nil {
			return errors.Wrap(plainErr, "failed to send telegram message")
		}
	}

	slog.Debug("Telegram message sent", "chat", chatID)
	return nil
}
