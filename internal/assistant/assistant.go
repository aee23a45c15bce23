package assistant

import "context"

// Client is the assistant-dialogue collaborator. Thread handles are opaque
// strings owned by the upstream service; the bot only stores and replays
// them. Failures surface as AssistantUnavailable and are not retried.
type Client interface {
	// CreateThread obtains a fresh conversation thread handle.
	CreateThread(ctx context.Context) (string, error)

	// PostTurn posts a user turn on the thread and returns the assistant's
	// reply text.
	PostTurn(ctx context.Context, threadID, text string) (string, error)
}
