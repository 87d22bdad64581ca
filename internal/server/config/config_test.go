package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacthub/contacthub/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Empty(t, cfg.SecretKey, "no default signing key: it must be provided explicitly")
}

func TestValidate_MissingSecretKey(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfig))

	cfg.SecretKey = "k"
	require.NoError(t, cfg.Validate())
}

func TestValidate_BadLockoutThreshold(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.LoginMaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfig))
}

func TestParseJson_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{
		"endpoint_addr_http": ":9090",
		"secret_key": "json-secret",
		"access_token_validity_duration": "120s",
		"login_max_attempts": 3
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"server", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "json-secret", cfg.SecretKey)
	assert.Equal(t, 120*time.Second, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 3, cfg.LoginMaxAttempts)
	// untouched fields keep their defaults
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenValidityDuration)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("CONTACTHUB_SECRET_KEY", "env-secret")
	t.Setenv("CONTACTHUB_SMTP_PORT", "2525")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"server", "-a", ":7070", "-t", "300", "-s", "flag-secret"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, 300*time.Second, cfg.AccessTokenValidityDuration)
	assert.Equal(t, "flag-secret", cfg.SecretKey)
}
