package messenger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/messenger/app/messenger"
	"github.com/dmitrymomot/messenger/core/config"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg messenger.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, messenger.DefaultConfig(), cfg)
	assert.False(t, cfg.PublishEvents, "lifecycle events are opt-in")
}
