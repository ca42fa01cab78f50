package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	ApiKey  string `json:"api_key"`
	BaseUrl string `json:"base_url"`
	Timeout string `json:"timeout"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "scrappey.json5"), []byte(`{
		// shared defaults
		api_key: "shared",
		base_url: "https://publisher.scrappey.com/api/v1",
	}`), 0600)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(filepath.Join(dir, "scrappey.local.json5"), []byte(`{api_key: "mine", timeout: "30s"}`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "scrappey.json5"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, testConfig{
		ApiKey:  "mine",
		BaseUrl: "https://publisher.scrappey.com/api/v1",
		Timeout: "30s",
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nothing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.local.json5"), localPath(filepath.Join("a", "b.json5")))
	require.Equal(t, "noext.local", localPath("noext"))
}
