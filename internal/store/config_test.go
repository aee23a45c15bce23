package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aivistech/infrabot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_UpdatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenConfigStore(dir)
	require.NoError(t, err)

	err = s.Update(func(state *ConfigState) error {
		state.AuthorizedUsers = append(state.AuthorizedUsers, 42)
		state.Chats[ChatKey(-100)] = &ChatServers{
			Servers:  []ServerRecord{{Name: "web1", Host: "10.0.0.5", Port: 22, User: "deploy"}},
			Selected: "web1",
		}
		return nil
	})
	require.NoError(t, err)

	reopened, err := OpenConfigStore(dir)
	require.NoError(t, err)

	reopened.View(func(state *ConfigState) {
		assert.Equal(t, []int64{42}, state.AuthorizedUsers)
		chat := state.Chats[ChatKey(-100)]
		require.NotNil(t, chat)
		assert.Equal(t, "web1", chat.Selected)
		require.Len(t, chat.Servers, 1)
		assert.Equal(t, "10.0.0.5", chat.Servers[0].Host)
	})
}

func TestConfigStore_UpdateErrorLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Update(func(state *ConfigState) error {
		state.AuthorizedUsers = append(state.AuthorizedUsers, 1)
		return nil
	}))

	err = s.Update(func(state *ConfigState) error {
		state.AuthorizedUsers = append(state.AuthorizedUsers, 2)
		return fmt.Errorf("validation failed")
	})
	require.Error(t, err)

	s.View(func(state *ConfigState) {
		assert.Equal(t, []int64{1}, state.AuthorizedUsers)
	})
}

func TestConfigStore_WriteFailureDiscardsMutation(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Update(func(state *ConfigState) error {
		state.AuthorizedUsers = append(state.AuthorizedUsers, 7)
		return nil
	}))

	// Removing the state dir makes the next snapshot write fail.
	require.NoError(t, os.RemoveAll(dir))

	err = s.Update(func(state *ConfigState) error {
		state.AuthorizedUsers = append(state.AuthorizedUsers, 8)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrStorage))

	s.View(func(state *ConfigState) {
		assert.Equal(t, []int64{7}, state.AuthorizedUsers)
	})
}

func TestConfigStore_ViewSeesCommittedSnapshot(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenConfigStore(dir)
	require.NoError(t, err)

	s.View(func(state *ConfigState) {
		assert.Empty(t, state.AuthorizedUsers)
		assert.Empty(t, state.Chats)
	})

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	assert.True(t, os.IsNotExist(err), "no snapshot should exist before the first update, got %q", data)
}
