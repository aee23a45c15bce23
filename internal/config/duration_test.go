package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("90s", "30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = DurationOrDefault("", "30s")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = DurationOrDefault("  2m  ", "30s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	_, err = DurationOrDefault("ninety", "30s")
	assert.Error(t, err)

	_, err = DurationOrDefault("", "")
	assert.Error(t, err)
}
