package registry

import (
	"testing"

	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID int64 = -100

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg, err := store.OpenConfigStore(t.TempDir())
	require.NoError(t, err)
	return New(cfg)
}

func web1() store.ServerRecord {
	return store.ServerRecord{Name: "web1", Host: "10.0.0.5", Port: 22, User: "deploy", Label: "production web"}
}

func db1() store.ServerRecord {
	return store.ServerRecord{Name: "db1", Host: "10.0.0.6", Port: 22, User: "deploy"}
}

func TestRegistry_FirstServerBecomesSelected(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(chatID, web1()))
	require.NoError(t, reg.Register(chatID, db1()))

	servers, selected := reg.List(chatID)
	require.Len(t, servers, 2)
	assert.Equal(t, "web1", selected)
	assert.Equal(t, "web1", servers[0].Name)
	assert.Equal(t, "db1", servers[1].Name)
}

func TestRegistry_DuplicateNameLeavesRecordUnchanged(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))

	dup := web1()
	dup.Host = "10.9.9.9"
	err := reg.Register(chatID, dup)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrDuplicateName))

	servers, _ := reg.List(chatID)
	require.Len(t, servers, 1)
	assert.Equal(t, "10.0.0.5", servers[0].Host)
}

func TestRegistry_SelectUnknownServerIsNotFound(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))

	err := reg.Select(chatID, "db1")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNotFound))

	_, selected := reg.List(chatID)
	assert.Equal(t, "web1", selected)
}

func TestRegistry_SelectedReturnsTheRecord(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))
	require.NoError(t, reg.Register(chatID, db1()))
	require.NoError(t, reg.Select(chatID, "db1"))

	rec, err := reg.Selected(chatID)
	require.NoError(t, err)
	assert.Equal(t, "db1", rec.Name)
	assert.Equal(t, "10.0.0.6", rec.Host)
}

func TestRegistry_SelectedWithoutServersIsNoServerSelected(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Selected(chatID)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNoServerSelected))
}

func TestRegistry_EditMergesOnlyPatchedFields(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))

	host := "10.0.0.7"
	port := 2222
	require.NoError(t, reg.Edit(chatID, "web1", store.ServerPatch{Host: &host, Port: &port}))

	servers, _ := reg.List(chatID)
	require.Len(t, servers, 1)
	assert.Equal(t, "10.0.0.7", servers[0].Host)
	assert.Equal(t, 2222, servers[0].Port)
	assert.Equal(t, "deploy", servers[0].User)
	assert.Equal(t, "production web", servers[0].Label)
}

func TestRegistry_EditUnknownServerIsNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	host := "10.0.0.7"
	err := reg.Edit(chatID, "ghost", store.ServerPatch{Host: &host})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNotFound))
}

func TestRegistry_DeleteSelectedClearsSelection(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))
	require.NoError(t, reg.Register(chatID, db1()))

	require.NoError(t, reg.Delete(chatID, "web1"))

	servers, selected := reg.List(chatID)
	require.Len(t, servers, 1)
	assert.Equal(t, "db1", servers[0].Name)
	assert.Empty(t, selected)

	_, err := reg.Selected(chatID)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNoServerSelected))
}

func TestRegistry_DeleteUnselectedKeepsSelection(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))
	require.NoError(t, reg.Register(chatID, db1()))

	require.NoError(t, reg.Delete(chatID, "db1"))

	_, selected := reg.List(chatID)
	assert.Equal(t, "web1", selected)
}

func TestRegistry_InfoByNameAndAll(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))
	require.NoError(t, reg.Register(chatID, db1()))

	all, err := reg.Info(chatID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := reg.Info(chatID, "db1")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "db1", one[0].Name)

	_, err = reg.Info(chatID, "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNotFound))
}

func TestRegistry_ChatsAreIsolated(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Register(chatID, web1()))

	otherChat := int64(-200)
	servers, selected := reg.List(otherChat)
	assert.Empty(t, servers)
	assert.Empty(t, selected)

	_, err := reg.Selected(otherChat)
	assert.True(t, errors.IsCategory(err, errors.ErrNoServerSelected))
}
