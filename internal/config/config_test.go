package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Equal(t, uint32(8192), cfg.Repository.BlobCapacity)
	assert.Equal(t, 64, cfg.Repository.MaxRecords)
	assert.Equal(t, uint32(128), cfg.Repository.TransferChunkSize)
	assert.Equal(t, 8, cfg.Manager.MaxTermini)
	assert.Equal(t, 256, cfg.Manager.ReassemblyCapacity)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)

	require.NoError(t, Validate(cfg))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
repository:
  blob_capacity: 16384
manager:
  max_termini: 4
  termini:
    - eid: 29
      terminus_handle: 1
      tid: 1
    - eid: 42
      terminus_handle: 2
      tid: 2
shutdown_timeout: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level) // normalized
	assert.Equal(t, uint32(16384), cfg.Repository.BlobCapacity)
	assert.Equal(t, 64, cfg.Repository.MaxRecords) // default kept
	assert.Equal(t, 4, cfg.Manager.MaxTermini)
	require.Len(t, cfg.Manager.Termini, 2)
	assert.Equal(t, uint8(29), cfg.Manager.Termini[0].EID)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidLevelRejected(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: verbose
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_DuplicateTerminusEIDs(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Manager.Termini = []TerminusConfig{
		{EID: 29}, {EID: 29},
	}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate terminus eid")
}

func TestValidate_TooManyTermini(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Manager.MaxTermini = 1
	cfg.Manager.Termini = []TerminusConfig{
		{EID: 1}, {EID: 2},
	}

	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_ProvisioningSourcesExclusive(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Provisioning.ImagePath = "/var/lib/pdrhub/image.bin"
	cfg.Provisioning.S3.Enabled = true
	cfg.Provisioning.S3.Bucket = "images"
	cfg.Provisioning.S3.Key = "pdr.bin"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidate_WatchRequiresImagePath(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Provisioning.Watch = true

	err := Validate(cfg)
	require.Error(t, err)
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Repository.BlobCapacity = 4096

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), loaded.Repository.BlobCapacity)
}
