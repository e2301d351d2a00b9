package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	DownloadsDir string            `json:"downloads_dir"`
	Port         int               `json:"port"`
	Counties     map[string]string `json:"counties"`
}

func write(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "config.local.json5"), LocalPath(filepath.Join("a", "config.json5")))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.True(t, os.IsNotExist(err))

	write(t, path, `{
		// comments and trailing commas are fine
		downloads_dir: "downloads",
		port: 8080,
		counties: {Morris: "9", Essex: "2"},
	}`)
	write(t, LocalPath(path), `{port: 9090, counties: {Essex: "20"}}`)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		DownloadsDir: "downloads",
		Port:         9090,
		Counties:     map[string]string{"Morris": "9", "Essex": "20"},
	}, cfg)
}

func TestReadConfigWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	defaults := testConfig{DownloadsDir: "downloads", Port: 8444}

	cfg, err := ReadConfigWithDefaults(path, defaults)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, defaults, cfg)

	write(t, path, `{port: 1}`)
	cfg, err = ReadConfigWithDefaults(path, defaults)
	require.NoError(t, err)
	require.Equal(t, "downloads", cfg.DownloadsDir)
	require.Equal(t, 1, cfg.Port)

	write(t, path, `{port: `)
	_, err = ReadConfigWithDefaults(path, defaults)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestReadRecursively(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	write(t, filepath.Join(dir, "settings.json5"), `{port: 7}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	cfg, err := ReadRecursively[testConfig]("settings.json5")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Port)
}
