package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Timeout  int    `json:"timeout_seconds"`
	Nested   struct {
		Matcher string `json:"matcher"`
		Dedupe  bool   `json:"dedupe"`
	} `json:"nested"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("conf", "arcinfo.local.json5"), LocalPath(filepath.Join("conf", "arcinfo.json5")))
	require.Equal(t, "arcinfo.local.json5", LocalPath("arcinfo.json5"))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "arcinfo.json5")

	writeFile(t, name, `{
		// comments and trailing commas are allowed
		base_url: "https://jd.arcinfo.ch",
		username: "reader",
		timeout_seconds: 30,
		nested: { matcher: "regex" },
	}`)
	writeFile(t, LocalPath(name), `{ username: "override", nested: { matcher: "selector" } }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://jd.arcinfo.ch", cfg.BaseUrl)
	require.Equal(t, "override", cfg.Username)
	require.Equal(t, 30, cfg.Timeout)
	require.Equal(t, "selector", cfg.Nested.Matcher)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "arcinfo.json5")
	writeFile(t, LocalPath(name), `{ username: "local" }`)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Username)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "arcinfo.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "arcinfo.json5")
	writeFile(t, name, `{ username: `)

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestReadOrDefault(t *testing.T) {
	defaults := testConfig{BaseUrl: "https://jd.arcinfo.ch", Timeout: 0}

	cfg, err := ReadOrDefault(filepath.Join(t.TempDir(), "missing.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	dir := t.TempDir()
	name := filepath.Join(dir, "arcinfo.json5")
	writeFile(t, name, `{ username: "reader", timeout_seconds: 10 }`)

	cfg, err = ReadOrDefault(name, defaults)
	require.NoError(t, err)
	require.Equal(t, "https://jd.arcinfo.ch", cfg.BaseUrl)
	require.Equal(t, "reader", cfg.Username)
	require.Equal(t, 10, cfg.Timeout)
}
