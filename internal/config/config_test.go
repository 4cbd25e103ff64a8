package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gm-key")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "pharmastore.db", cfg.DBDSN)
	assert.NotEmpty(t, cfg.JWTSecret, "random secret expected when JWT_SECRET is unset")
	assert.Equal(t, "gemini", cfg.AIProvider)
}

func TestLoadExplicitProviderWins(t *testing.T) {
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, "openai", cfg.AIProvider)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t, "redis://***@localhost:6379/0", maskURL("redis://user:pw@localhost:6379/0"))
	assert.Equal(t, "redis://localhost:6379", maskURL("redis://localhost:6379"))
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("x"))
}
