package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "server:\n  port: 19000\n"))
	require.NoError(t, err)

	assert.Equal(t, 19000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Console.Concurrent)
	assert.Equal(t, "telnet", cfg.Console.DefaultProtocol)
	assert.Equal(t, 5*time.Minute, cfg.Console.TaskTimeout)
	assert.Equal(t, "local", cfg.Backup.StorageBackend)
	assert.Equal(t, "0.0.0.0:19000", cfg.GetServerAddr())
	assert.Same(t, cfg, Get())
}

func TestLoadDeviceDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, `
console:
  device_defaults:
    VyOS:
      timeout: 2s
      max_timeouts: 4
      extraction: fixed
      leading_trim: 5
    default:
      charset: gb18030
`))
	require.NoError(t, err)

	o := cfg.Console.OverridesFor("vyos")
	assert.Equal(t, 2*time.Second, o.Timeout)
	assert.Equal(t, 4, o.MaxTimeouts)
	assert.Equal(t, "fixed", o.Extraction)
	require.NotNil(t, o.LeadingTrim)
	assert.Equal(t, 5, *o.LeadingTrim)
	assert.Nil(t, o.TrailingTrim)

	assert.Equal(t, "gb18030", cfg.Console.OverridesFor("nxos").Charset, "未配置的平台回退到 default")
}

func TestLoadConcurrencyProfile(t *testing.T) {
	cfg, err := Load(writeFile(t, "console:\n  concurrency_profile: concurrency-m\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Console.Concurrent)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONSOLEPILOT_CONSOLE_DEFAULT_PROTOCOL", "ssh")
	t.Setenv("MINIO_TEST_SECRET", "s3cr3t")

	cfg, err := Load(writeFile(t, "storage:\n  minio:\n    secret_key: ${MINIO_TEST_SECRET}\n"))
	require.NoError(t, err)
	assert.Equal(t, "ssh", cfg.Console.DefaultProtocol)
	assert.Equal(t, "s3cr3t", cfg.Storage.Minio.SecretKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"protocol":   "console:\n  default_protocol: serial\n",
		"backend":    "backup:\n  storage_backend: ftp\n",
		"extraction": "console:\n  device_defaults:\n    vyos:\n      extraction: guess\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultWithoutFile(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.Console.Concurrent)
	assert.Equal(t, 10*time.Second, cfg.Console.ConnectTimeout)
	assert.NoError(t, cfg.Validate())
}
