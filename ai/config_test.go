package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithHost("https://api.openai.com"),
		WithToken("sk-test"),
		WithEmbeddingModel("text-embedding-3-large"),
		WithChatModel("gpt-4o"),
		WithEmbeddingDimension(3072),
	)

	assert.Equal(t, "https://api.openai.com", cfg.Host)
	assert.Equal(t, "sk-test", cfg.Token)
	assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o", cfg.ChatModel)
	assert.Equal(t, 3072, cfg.EmbeddingDimension)
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"adds v1 suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"strips trailing slash first", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"leaves v1 alone", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"empty host untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	t.Run("missing fields", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
		}{
			{"host", func(c *Config) { c.Host = "" }},
			{"token", func(c *Config) { c.Token = "" }},
			{"embedding model", func(c *Config) { c.EmbeddingModel = "" }},
			{"chat model", func(c *Config) { c.ChatModel = "" }},
			{"dimension", func(c *Config) { c.EmbeddingDimension = 0 }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := DefaultConfig()
				tt.mutate(cfg)
				assert.Error(t, cfg.Validate())
			})
		}
	})
}
