package bot

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the normalized inbound message from a transport adapter. The
// adapter has already resolved the principal; Mention marks an activation
// trigger (@-mention or keyword match).
type Event struct {
	ID        string
	Source    string
	ChatID    int64
	UserID    int64
	UserName  string
	FullName  string
	Mention   bool
	Text      string
	CreatedAt time.Time
}

// NewEvent builds an event with a fresh ULID.
func NewEvent(source string, chatID, userID int64, text string) *Event {
	return &Event{
		ID:        ulid.Make().String(),
		Source:    source,
		ChatID:    chatID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}
}
