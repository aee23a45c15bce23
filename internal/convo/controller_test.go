package convo

import (
	"context"
	"fmt"
	"testing"

	"github.com/aivistech/infrabot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	threads   int
	replies   []string
	turns     []string
	createErr error
	postErr   error
}

func (c *stubClient) CreateThread(ctx context.Context) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.threads++
	return fmt.Sprintf("thread_%d", c.threads), nil
}

func (c *stubClient) PostTurn(ctx context.Context, threadID, text string) (string, error) {
	if c.postErr != nil {
		return "", c.postErr
	}
	c.turns = append(c.turns, text)
	if len(c.replies) == 0 {
		return "ok", nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func newTestController(t *testing.T, client *stubClient) *Controller {
	t.Helper()
	sessions, err := store.OpenSessionStore(t.TempDir())
	require.NoError(t, err)
	return NewController(sessions, client, "#fimdepapo")
}

func TestController_ActivateCreatesThreadOnce(t *testing.T) {
	client := &stubClient{}
	c := newTestController(t, client)

	require.NoError(t, c.Activate(context.Background(), 10))
	assert.True(t, c.Active(10))
	assert.Equal(t, 1, client.threads)

	// Toggling off and on reuses the thread.
	require.NoError(t, c.Deactivate(10))
	assert.False(t, c.Active(10))
	require.NoError(t, c.Activate(context.Background(), 10))
	assert.Equal(t, 1, client.threads)
}

func TestController_ActivateFailureStaysInactive(t *testing.T) {
	client := &stubClient{createErr: fmt.Errorf("upstream down")}
	c := newTestController(t, client)

	err := c.Activate(context.Background(), 10)
	require.Error(t, err)
	assert.False(t, c.Active(10))
}

func TestController_ResetForcesFreshThread(t *testing.T) {
	client := &stubClient{}
	c := newTestController(t, client)

	require.NoError(t, c.Activate(context.Background(), 10))
	require.NoError(t, c.Reset(10))
	assert.False(t, c.Active(10))

	require.NoError(t, c.Activate(context.Background(), 10))
	assert.Equal(t, 2, client.threads)
}

func TestController_ConverseReturnsReply(t *testing.T) {
	client := &stubClient{replies: []string{"the disk looks fine"}}
	c := newTestController(t, client)
	require.NoError(t, c.Activate(context.Background(), 10))

	reply, ended, err := c.Converse(context.Background(), 10, "how is the disk?")
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, "the disk looks fine", reply)
	assert.True(t, c.Active(10))
}

func TestController_MarkerEndsConversation(t *testing.T) {
	client := &stubClient{replies: []string{"Glad I could help! #FimDePapo"}}
	c := newTestController(t, client)
	require.NoError(t, c.Activate(context.Background(), 10))

	reply, ended, err := c.Converse(context.Background(), 10, "thanks, bye")
	require.NoError(t, err)
	assert.True(t, ended, "marker match is case-insensitive")
	assert.Contains(t, reply, "Glad I could help")
	assert.False(t, c.Active(10))
}

func TestController_PostOnThreadCreatesThreadLazily(t *testing.T) {
	client := &stubClient{}
	c := newTestController(t, client)

	_, err := c.PostOnThread(context.Background(), 10, "format this report")
	require.NoError(t, err)
	assert.Equal(t, 1, client.threads)
	assert.False(t, c.Active(10), "posting never flips conversation mode")

	// Activation afterwards reuses the same thread.
	require.NoError(t, c.Activate(context.Background(), 10))
	assert.Equal(t, 1, client.threads)
}

func TestController_ChatsHaveIndependentState(t *testing.T) {
	client := &stubClient{}
	c := newTestController(t, client)

	require.NoError(t, c.Activate(context.Background(), 10))
	assert.False(t, c.Active(20))

	require.NoError(t, c.Activate(context.Background(), 20))
	assert.Equal(t, 2, client.threads)
}
