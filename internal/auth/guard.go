package auth

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/store"
)

// Guard gates every stateful operation. A user passes if they are in the
// authorized-user set or if the chat they act from is in the
// authorized-group set. The admin identity is fixed at process start and is
// never stored in the sets.
type Guard struct {
	store *store.ConfigStore
	admin int64
}

func NewGuard(cfg *store.ConfigStore, adminUserID int64) *Guard {
	return &Guard{store: cfg, admin: adminUserID}
}

// IsAuthorized reports whether the user may act. chatID is the chat the
// message arrived in; group authorization covers every member acting within
// that chat.
func (g *Guard) IsAuthorized(userID, chatID int64) bool {
	if userID == g.admin {
		return true
	}

	authorized := false
	g.store.View(func(state *store.ConfigState) {
		if slices.Contains(state.AuthorizedUsers, userID) {
			authorized = true
			return
		}
		if slices.Contains(state.AuthorizedGroups, chatID) {
			authorized = true
		}
	})
	return authorized
}

// IsAdmin reports whether the user is the configured admin.
func (g *Guard) IsAdmin(userID int64) bool {
	return userID == g.admin
}

// Grant adds a principal to the authorization sets. Negative ids are group
// chats, positive ids are users (Telegram convention). Only the admin may
// grant; failure has no side effects.
func (g *Guard) Grant(actorID, principalID int64) error {
	if !g.IsAdmin(actorID) {
		return errors.PermissionDenied(fmt.Sprintf("user %d may not grant access", actorID))
	}

	err := g.store.Update(func(state *store.ConfigState) error {
		if principalID < 0 {
			if !slices.Contains(state.AuthorizedGroups, principalID) {
				state.AuthorizedGroups = append(state.AuthorizedGroups, principalID)
			}
		} else {
			if !slices.Contains(state.AuthorizedUsers, principalID) {
				state.AuthorizedUsers = append(state.AuthorizedUsers, principalID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Access granted", "principal", principalID, "by", actorID)
	return nil
}

// Revoke removes a principal from the authorization sets.
func (g *Guard) Revoke(actorID, principalID int64) error {
	if !g.IsAdmin(actorID) {
		return errors.PermissionDenied(fmt.Sprintf("user %d may not revoke access", actorID))
	}

	err := g.store.Update(func(state *store.ConfigState) error {
		if principalID < 0 {
			idx := slices.Index(state.AuthorizedGroups, principalID)
			if idx < 0 {
				return errors.NotFound(fmt.Sprintf("group %d is not authorized", principalID))
			}
			state.AuthorizedGroups = slices.Delete(state.AuthorizedGroups, idx, idx+1)
		} else {
			idx := slices.Index(state.AuthorizedUsers, principalID)
			if idx < 0 {
				return errors.NotFound(fmt.Sprintf("user %d is not authorized", principalID))
			}
			state.AuthorizedUsers = slices.Delete(state.AuthorizedUsers, idx, idx+1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Access revoked", "principal", principalID, "by", actorID)
	return nil
}
