package adapter

import (
	"context"
	"testing"

	"github.com/aivistech/infrabot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOutput struct {
	name    string
	chatID  int64
	content string
	sends   int
}

func (s *stubOutput) Name() string { return s.name }

func (s *stubOutput) Send(ctx context.Context, chatID int64, content string) error {
	s.chatID = chatID
	s.content = content
	s.sends++
	return nil
}

func TestMux_RoutesBySource(t *testing.T) {
	mux := NewMux()
	telegram := &stubOutput{name: "telegram"}
	mux.Register(telegram)

	err := mux.Send(context.Background(), "telegram", -100, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, telegram.sends)
	assert.Equal(t, int64(-100), telegram.chatID)
	assert.Equal(t, "hello", telegram.content)
}

func TestMux_UnknownSourceIsNotFound(t *testing.T) {
	mux := NewMux()

	err := mux.Send(context.Background(), "carrier-pigeon", -100, "hello")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrNotFound))
}
