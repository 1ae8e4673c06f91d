package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 30*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, 5*time.Minute, cfg.DefaultSpan())
	assert.Equal(t, 100*time.Millisecond, cfg.AudioBuffer())
	assert.EqualValues(t, 512<<20, cfg.MaxProbeDownload())
}

func TestSampleMatchesDefault(t *testing.T) {
	var fromSample Config
	require.NoError(t, toml.Unmarshal([]byte(Sample()), &fromSample))
	assert.Equal(t, Default(), fromSample)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotEmpty(t, path)
	assert.Equal(t, DefaultBaseURL, cfg.Source.BaseURL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
[source]
base_url = "https://assets.example.org/audio/"
item_id = "74465213"

[player]
progress_interval = "250ms"
initial_volume = 0.5

[logging]
level = "DEBUG"
`)
	t.Setenv("ARCHIVEPLAYER_ITEM_ID", "99990001")
	t.Setenv("ARCHIVEPLAYER_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	assert.Equal(t, "https://assets.example.org/audio/", cfg.Source.BaseURL)
	assert.Equal(t, "99990001", cfg.Source.ItemID, "environment wins over the file")
	assert.Equal(t, 250*time.Millisecond, cfg.ProgressInterval())
	assert.InDelta(t, 0.5, cfg.Player.InitialVolume, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 44100, cfg.Player.SampleRate, "unset keys keep defaults")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[source]\nbase_ulr = \"x\"\n")
	_, _, _, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadRejectsBadEnvVolume(t *testing.T) {
	t.Setenv("ARCHIVEPLAYER_INITIAL_VOLUME", "loud")
	_, _, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorContains(t, err, "INITIAL_VOLUME")
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Source.BaseURL = "not a url"
	cfg.Player.ProgressInterval = "soon"
	cfg.Player.InitialVolume = 1.5
	cfg.Server.Addr = "nowhere"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"source.base_url":          "must be a valid URL",
		"player.progress_interval": `must be a positive duration like 500ms or 30s, got "soon"`,
		"player.initial_volume":    "must not exceed 1",
		"server.addr":              "must be host:port",
		"logging.format":           "must be one of auto, text, json",
	}, verr.Fields)
	assert.Contains(t, err.Error(), "invalid config: logging.format")
}

func TestRequireItem(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireItem())
	cfg.Source.ItemID = "74465213"
	assert.NoError(t, cfg.RequireItem())
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, CreateSample(path))

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, Default().Server, cfg.Server)
}
