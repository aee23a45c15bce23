package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aivistech/infrabot/internal/errors"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI Assistants threads API: create thread,
// post message, start a run, poll it, read the newest assistant message.
type OpenAIClient struct {
	client       *openai.Client
	assistantID  string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

type OpenAIConfig struct {
	APIKey       string
	AssistantID  string
	BaseURL      string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientCfg),
		assistantID:  cfg.AssistantID,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", errors.AssistantUnavailable("create thread: " + err.Error())
	}
	slog.Debug("Assistant thread created", "thread", thread.ID)
	return thread.ID, nil
}

func (c *OpenAIClient) PostTurn(ctx context.Context, threadID, text string) (string, error) {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return "", errors.AssistantUnavailable("post message: " + err.Error())
	}

	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: c.assistantID})
	if err != nil {
		return "", errors.AssistantUnavailable("start run: " + err.Error())
	}

	if err := c.waitForRun(ctx, threadID, run.ID); err != nil {
		return "", err
	}

	return c.latestAssistantMessage(ctx, threadID)
}

func (c *OpenAIClient) waitForRun(ctx context.Context, threadID, runID string) error {
	deadline := time.Now().Add(c.pollTimeout)
	for {
		run, err := c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return errors.AssistantUnavailable("poll run: " + err.Error())
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, openai.RunStatusIncomplete:
			return errors.AssistantUnavailable("run ended with status " + string(run.Status))
		}

		if time.Now().After(deadline) {
			return errors.AssistantUnavailable("run did not complete within " + c.pollTimeout.String())
		}

		select {
		case <-ctx.Done():
			return errors.AssistantUnavailable("poll cancelled: " + ctx.Err().Error())
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *OpenAIClient) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 5
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", errors.AssistantUnavailable("list messages: " + err.Error())
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		var blocks []string
		for _, content := range msg.Content {
			if content.Type == "text" && content.Text != nil {
				blocks = append(blocks, content.Text.Value)
			}
		}
		if len(blocks) > 0 {
			return strings.Join(blocks, "\n"), nil
		}
	}

	return "", errors.AssistantUnavailable("run completed but produced no assistant message")
}
