package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "data/buybox.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Matching.PropertiesPerMarket)
	assert.Equal(t, 0.6, cfg.Matching.FitWeight)
	assert.Equal(t, 28, cfg.Convergence.StabilityDays)
	assert.Equal(t, int64(0), cfg.Convergence.Seed)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9090"
  read_timeout: 5s
logging:
  level: debug
matching:
  properties_per_market: 5
  novelty_boost: 10
convergence:
  seed: 11
`), 0o600))

	t.Setenv("PROPERTIES_PER_MARKET", "7")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 7, cfg.Matching.PropertiesPerMarket, "env wins over file")
	assert.Equal(t, 10.0, cfg.Matching.NoveltyBoost)
	assert.Equal(t, 0.4, cfg.Matching.DiversityWeight, "unset keys keep defaults")
	assert.Equal(t, int64(11), cfg.Convergence.Seed)
}

func TestLoad_DiscoversConfigPathEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "elsewhere.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/x.db\n"), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
}

func TestLoad_Invalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv(ConfigPathEnvVar, "")

	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("PROPERTIES_PER_MARKET", "0")
	_, err = Load("")
	assert.Error(t, err)
}

func TestScoringConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Matching.PropertiesPerMarket = 6

	t.Run("no weights file", func(t *testing.T) {
		c := *cfg
		c.WeightsPath = ""
		got, err := c.ScoringConfig()
		require.NoError(t, err)
		assert.Equal(t, c.Matching, got)
	})

	t.Run("weights file overrides scoring only", func(t *testing.T) {
		path := filepath.Join(dir, "weights.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"fit_weight":0.8,"diversity_weight":0.2,"properties_per_market":1}`), 0o600))
		c := *cfg
		c.WeightsPath = path
		got, err := c.ScoringConfig()
		require.NoError(t, err)
		assert.Equal(t, 0.8, got.FitWeight)
		assert.Equal(t, 6, got.PropertiesPerMarket)
	})

	t.Run("weights file keeps layered scoring values it omits", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"bonuses":{"equity":15}}`), 0o600))
		c := *cfg
		c.Matching.Bonuses.Assumable = 3
		c.Matching.Penalties.Units = 30
		c.WeightsPath = path
		got, err := c.ScoringConfig()
		require.NoError(t, err)
		assert.Equal(t, 15.0, got.Bonuses.Equity)
		assert.Equal(t, 3.0, got.Bonuses.Assumable)
		assert.Equal(t, 30.0, got.Penalties.Units)
	})

	t.Run("missing weights file falls back", func(t *testing.T) {
		c := *cfg
		c.WeightsPath = filepath.Join(dir, "missing.json")
		got, err := c.ScoringConfig()
		assert.Error(t, err)
		assert.Equal(t, c.Matching, got)
	})
}
