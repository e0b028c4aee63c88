package chatserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2000, cfg.Port)
	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.Equal(t, ":2000", cfg.Addr())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("port out of range", func(t *testing.T) {
		assert.Error(t, Config{Port: 70000}.Validate())
		assert.Error(t, Config{Port: -1}.Validate())
	})

	t.Run("negative write timeout", func(t *testing.T) {
		assert.Error(t, Config{Port: 2000, WriteTimeout: -time.Second}.Validate())
	})

	t.Run("ephemeral port", func(t *testing.T) {
		cfg := Config{Host: "127.0.0.1"}
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, "127.0.0.1:0", cfg.Addr())
	})
}
