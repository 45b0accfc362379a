package cfg

import (
	"testing"
	"time"

	"pastebin/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"VARIANT", "DATABASE_PATH", "PORT", "RECENT_LIMIT", "PASSWORD_HASHING"} {
		t.Setenv(k, "")
	}
	c, err := Load()
	require.NoError(t, err)
	require.NoError(t, Validate(c))

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, domain.VariantSimple, c.Variant)
	assert.Equal(t, "pastes_simple.db", c.DatabasePath)
	assert.Equal(t, domain.MaxRecent, c.RecentLimit)
	assert.False(t, c.PasswordHashing)
	assert.Equal(t, 5*time.Second, c.DBQueryTimeout)
}

func TestLoadAdvancedVariantUsesOwnDatabase(t *testing.T) {
	t.Setenv("VARIANT", "Advanced")
	t.Setenv("DATABASE_PATH", "")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.VariantAdvanced, c.Variant)
	assert.Equal(t, "pastes_advanced.db", c.DatabasePath)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("VARIANT", "")
	t.Setenv("DATABASE_PATH", "")
	base := func(t *testing.T) *Cfg {
		c, err := Load()
		require.NoError(t, err)
		return c
	}
	tests := []struct {
		name   string
		mutate func(c *Cfg)
	}{
		{"bad port", func(c *Cfg) { c.Port = "http" }},
		{"unknown variant", func(c *Cfg) { c.Variant = "deluxe" }},
		{"empty db path", func(c *Cfg) { c.DatabasePath = "" }},
		{"recent limit above ten", func(c *Cfg) { c.RecentLimit = 11 }},
		{"recent limit zero", func(c *Cfg) { c.RecentLimit = 0 }},
		{"redis scheme", func(c *Cfg) { c.RedisURL = "http://localhost:6379" }},
		{"bad proxy", func(c *Cfg) { c.TrustedProxies = []string{"10.0.0.0/99"} }},
		{"production without metrics auth", func(c *Cfg) { c.Environment = "production" }},
		{"weak argon2", func(c *Cfg) { c.PasswordHashing = true; c.Argon2.Memory = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base(t)
			tt.mutate(c)
			assert.Error(t, Validate(c))
		})
	}
}

func TestSecretRedacts(t *testing.T) {
	s := NewSecret("hunter2")
	assert.Equal(t, "***REDACTED***", s.String())
	assert.Equal(t, "hunter2", s.Value())
	s.Wipe()
	assert.NotEqual(t, "hunter2", s.Value())
}
