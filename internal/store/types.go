package store

import (
	"strconv"
	"time"
)

// ServerRecord is a named remote host target registered within a chat.
type ServerRecord struct {
	Name  string `json:"name"`
	Host  string `json:"host"`
	Port  int    `json:"port"`
	User  string `json:"user"`
	Label string `json:"label,omitempty"`
}

// ServerPatch carries a partial edit. Nil fields are left unchanged.
type ServerPatch struct {
	Host  *string
	Port  *int
	User  *string
	Label *string
}

// ChatServers holds a chat's registered servers in insertion order plus the
// name of the selected one. Selected is empty when no server is selected.
type ChatServers struct {
	Servers  []ServerRecord `json:"servers"`
	Selected string         `json:"selected,omitempty"`
}

// ConfigState is the whole config.json document: the authorization sets and
// every chat's server map.
type ConfigState struct {
	AuthorizedUsers  []int64                 `json:"authorized_users"`
	AuthorizedGroups []int64                 `json:"authorized_groups"`
	Chats            map[string]*ChatServers `json:"chats"`
}

// ChatSession is one chat's conversational state. The thread handle is
// opaque, owned by the assistant service, and survives deactivation so a
// re-activated chat picks up its old conversation.
type ChatSession struct {
	Active     bool      `json:"active"`
	ThreadID   string    `json:"thread_id,omitempty"`
	LastActive time.Time `json:"last_active"`
}

// SessionState is the whole sessions.json document.
type SessionState struct {
	Chats map[string]*ChatSession `json:"chats"`
}

// ChatKey converts a chat id into the string key used in the JSON documents.
func ChatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func newConfigState() *ConfigState {
	return &ConfigState{Chats: make(map[string]*ChatServers)}
}

func newSessionState() *SessionState {
	return &SessionState{Chats: make(map[string]*ChatSession)}
}

func (c *ConfigState) clone() *ConfigState {
	out := &ConfigState{
		AuthorizedUsers:  append([]int64(nil), c.AuthorizedUsers...),
		AuthorizedGroups: append([]int64(nil), c.AuthorizedGroups...),
		Chats:            make(map[string]*ChatServers, len(c.Chats)),
	}
	for key, chat := range c.Chats {
		out.Chats[key] = &ChatServers{
			Servers:  append([]ServerRecord(nil), chat.Servers...),
			Selected: chat.Selected,
		}
	}
	return out
}

func (s *SessionState) clone() *SessionState {
	out := &SessionState{Chats: make(map[string]*ChatSession, len(s.Chats))}
	for key, sess := range s.Chats {
		copied := *sess
		out.Chats[key] = &copied
	}
	return out
}
