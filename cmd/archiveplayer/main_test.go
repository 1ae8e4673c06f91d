package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "disks": [
    {"disk": "1", "file": "disk1.mp3", "cue": {"TITLE": "Field Recordings", "PERFORMER": "Various", "tracks": [
      {"TITLE": "Waulking Song", "INDEX": "00:00:00"},
      {"TITLE": "Puirt a Beul", "INDEX": "03:10:00"}
    ]}}
  ]
}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersionSkipsConfig(t *testing.T) {
	path := writeTestConfig(t, "not = [valid toml")
	out, err := runCLI(t, "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Archive Player")
}

func TestConfigSample(t *testing.T) {
	out, err := runCLI(t, "config", "sample")
	require.NoError(t, err)
	assert.Contains(t, out, "[source]")
	assert.Contains(t, out, "base_url")
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration")
	assert.FileExists(t, target)

	_, err = runCLI(t, "config", "init", "--path", target)
	assert.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "config", "init", "--path", target, "--overwrite")
	assert.NoError(t, err)

	out, err = runCLI(t, "--config", target, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config path: "+target)
	assert.Contains(t, out, "Configuration valid")
}

func TestConfigValidateReportsErrors(t *testing.T) {
	path := writeTestConfig(t, "[logging]\nformat = \"xml\"\n")
	_, err := runCLI(t, "--config", path, "config", "validate")
	assert.ErrorContains(t, err, "logging.format")
}

func TestLogLevelFlagIsValidated(t *testing.T) {
	path := writeTestConfig(t, "")
	_, err := runCLI(t, "--config", path, "--log-level", "chatty", "config", "validate")
	assert.ErrorContains(t, err, "logging.level")
}

func TestInspectRequiresItem(t *testing.T) {
	t.Setenv("ARCHIVEPLAYER_ITEM_ID", "")
	path := writeTestConfig(t, "")
	_, err := runCLI(t, "--config", path, "inspect")
	assert.ErrorContains(t, err, "no item id")
}

func TestInspectPrintsCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/74465213/metadata.json" {
			_, _ = w.Write([]byte(testManifest))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	path := writeTestConfig(t, "[source]\nbase_url = \""+srv.URL+"/\"\n\n[logging]\nlevel = \"error\"\n")
	out, err := runCLI(t, "--config", path, "--item", "74465213", "inspect", "--durations")
	require.NoError(t, err)

	assert.Contains(t, out, "Item:      74465213")
	assert.Contains(t, out, "Album:     Field Recordings")
	assert.Contains(t, out, "Waulking Song")
	assert.Contains(t, out, "Puirt a Beul")
	assert.Contains(t, out, "3:10", "first track ends where the second starts")
	assert.Contains(t, out, "--:--", "the last track stays unknown when the audio cannot be probed")
}

func TestProbeNeedsURL(t *testing.T) {
	path := writeTestConfig(t, "")
	_, err := runCLI(t, "--config", path, "probe")
	assert.Error(t, err)
}
