package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

// setRequired sets the three mandatory variables; t.Setenv restores them.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CLIENT_ORIGIN", "http://localhost:3000")
}

func TestParse_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.BlacklistTTL)
	assert.Equal(t, 10*time.Second, cfg.DBConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.DBOperationTimeout)
	assert.Equal(t, 200, cfg.WordsPerMinute)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadSize)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UseRedisBlacklist())
	assert.Equal(t, ":8080", cfg.ServerAddr())
}

func TestParse_MissingRequired(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "JWT_SECRET", "CLIENT_ORIGIN"} {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			require.NoError(t, os.Unsetenv(missing))

			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestParse_BlacklistOutlivesTokens(t *testing.T) {
	tests := []struct {
		name      string
		tokenTTL  string
		blackTTL  string
		wantError bool
	}{
		{"equal", "24h", "24h", false},
		{"longer blacklist", "1h", "24h", false},
		{"shorter blacklist", "24h", "1h", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("TOKEN_TTL", tt.tokenTTL)
			t.Setenv("BLACKLIST_TTL", tt.blackTTL)

			_, err := Parse()
			if tt.wantError {
				assert.ErrorContains(t, err, "BLACKLIST_TTL")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParse_ShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Parse()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestParse_WeakSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", knownWeakSecrets[0])

	_, err := Parse()
	assert.ErrorContains(t, err, "placeholder")
}

func TestParse_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "70000")

	_, err := Parse()
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{ClientOrigin: " http://a.test , ,http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), in)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("CLIENT_ORIGIN"))
	t.Cleanup(func() { _ = os.Unsetenv("CLIENT_ORIGIN") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLIENT_ORIGIN=http://from-file.test\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://from-file.test"}, cfg.AllowedOrigins())
}
