package persistcore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigRequiresDSN(t *testing.T) {
	_, err := NewConfig(WithPoolSize(5))
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}

func TestNewConfigAppliesOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithDSN("sqlite", "file::memory:"),
		WithPoolSize(10),
		WithDataHorizonPeriod("30d"),
		WithCrypt("pw", "salt"),
	)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DriverName)
	require.Equal(t, "file::memory:", cfg.DataSourceName)
	require.Equal(t, 10, cfg.PoolSize)
	require.Equal(t, "pw", cfg.CryptPassword)
	require.Equal(t, "salt", cfg.CryptSalt)
	require.False(t, cfg.DataHorizonPeriod.IsZero())
}

func TestWithDSNRejectsEmptyValues(t *testing.T) {
	_, err := NewConfig(WithDSN("", "dsn"))
	require.Error(t, err)

	_, err = NewConfig(WithDSN("sqlite", ""))
	require.Error(t, err)
}

func TestWithDataHorizonPeriodRejectsInvalidGrammar(t *testing.T) {
	_, err := NewConfig(WithDSN("sqlite", "dsn"), WithDataHorizonPeriod("not-a-period"))
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}

func TestFromYAMLLoadsRecognizedProperties(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
driver: sqlite
dataSourceName: file::memory:
poolSize: 4
dataHorizonPeriod: 1M
cryptPassword: hunter2
cryptSalt: pepper
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := FromYAML(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DriverName)
	require.Equal(t, "file::memory:", cfg.DataSourceName)
	require.Equal(t, 4, cfg.PoolSize)
	require.Equal(t, "hunter2", cfg.CryptPassword)
	require.Equal(t, "pepper", cfg.CryptSalt)
	require.False(t, cfg.DataHorizonPeriod.IsZero())
}

func TestFromYAMLMissingFileIsConfigurationError(t *testing.T) {
	_, err := FromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, IsConfigurationError(err))
}
