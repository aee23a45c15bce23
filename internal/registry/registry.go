package registry

import (
	"fmt"

	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/store"
)

// Registry implements the per-chat server CRUD over the config store. All
// selection transitions funnel through here so no other code path can
// desynchronize the selected marker.
type Registry struct {
	store *store.ConfigStore
}

func New(cfg *store.ConfigStore) *Registry {
	return &Registry{store: cfg}
}

// Register inserts a new server record. The chat's first server becomes
// the selected one.
func (r *Registry) Register(chatID int64, rec store.ServerRecord) error {
	return r.store.Update(func(state *store.ConfigState) error {
		chat := chatServers(state, chatID)
		for _, existing := range chat.Servers {
			if existing.Name == rec.Name {
				return errors.DuplicateName(fmt.Sprintf("server %q already registered", rec.Name))
			}
		}
		chat.Servers = append(chat.Servers, rec)
		if len(chat.Servers) == 1 {
			chat.Selected = rec.Name
		}
		return nil
	})
}

// List returns the chat's servers in insertion order plus the selected name
// (empty when none is selected).
func (r *Registry) List(chatID int64) ([]store.ServerRecord, string) {
	var servers []store.ServerRecord
	var selected string
	r.store.View(func(state *store.ConfigState) {
		if chat, ok := state.Chats[store.ChatKey(chatID)]; ok {
			servers = append(servers, chat.Servers...)
			selected = chat.Selected
		}
	})
	return servers, selected
}

// Select atomically moves the chat's selection to the named server.
func (r *Registry) Select(chatID int64, name string) error {
	return r.store.Update(func(state *store.ConfigState) error {
		chat := chatServers(state, chatID)
		for _, rec := range chat.Servers {
			if rec.Name == name {
				chat.Selected = name
				return nil
			}
		}
		return errors.NotFound(fmt.Sprintf("server %q is not registered", name))
	})
}

// Selected returns the chat's selected server record, or NoServerSelected.
func (r *Registry) Selected(chatID int64) (store.ServerRecord, error) {
	var rec store.ServerRecord
	found := false
	r.store.View(func(state *store.ConfigState) {
		chat, ok := state.Chats[store.ChatKey(chatID)]
		if !ok || chat.Selected == "" {
			return
		}
		for _, candidate := range chat.Servers {
			if candidate.Name == chat.Selected {
				rec = candidate
				found = true
				return
			}
		}
	})
	if !found {
		return store.ServerRecord{}, errors.NoServerSelected("this chat has no selected server")
	}
	return rec, nil
}

// Edit merges the non-nil patch fields into the named record.
func (r *Registry) Edit(chatID int64, name string, patch store.ServerPatch) error {
	return r.store.Update(func(state *store.ConfigState) error {
		chat := chatServers(state, chatID)
		for i := range chat.Servers {
			if chat.Servers[i].Name != name {
				continue
			}
			if patch.Host != nil {
				chat.Servers[i].Host = *patch.Host
			}
			if patch.Port != nil {
				chat.Servers[i].Port = *patch.Port
			}
			if patch.User != nil {
				chat.Servers[i].User = *patch.User
			}
			if patch.Label != nil {
				chat.Servers[i].Label = *patch.Label
			}
			return nil
		}
		return errors.NotFound(fmt.Sprintf("server %q is not registered", name))
	})
}

// Delete removes the named record. Deleting the selected server clears the
// selection; the next report fails with NoServerSelected until the user
// selects again.
func (r *Registry) Delete(chatID int64, name string) error {
	return r.store.Update(func(state *store.ConfigState) error {
		chat := chatServers(state, chatID)
		for i, rec := range chat.Servers {
			if rec.Name != name {
				continue
			}
			chat.Servers = append(chat.Servers[:i], chat.Servers[i+1:]...)
			if chat.Selected == name {
				chat.Selected = ""
			}
			return nil
		}
		return errors.NotFound(fmt.Sprintf("server %q is not registered", name))
	})
}

// Info returns the named record, or every record in the chat when name is
// empty.
func (r *Registry) Info(chatID int64, name string) ([]store.ServerRecord, error) {
	servers, _ := r.List(chatID)
	if name == "" {
		return servers, nil
	}
	for _, rec := range servers {
		if rec.Name == name {
			return []store.ServerRecord{rec}, nil
		}
	}
	return nil, errors.NotFound(fmt.Sprintf("server %q is not registered", name))
}

func chatServers(state *store.ConfigState, chatID int64) *store.ChatServers {
	key := store.ChatKey(chatID)
	chat, ok := state.Chats[key]
	if !ok {
		chat = &store.ChatServers{}
		state.Chats[key] = chat
	}
	return chat
}
