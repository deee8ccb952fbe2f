package cli

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landrop/internal/modes"
	"landrop/pkg/config"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "landrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func startServer(t *testing.T) (*modes.App, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Upload.Dir = filepath.Join(t.TempDir(), "inbox")
	app, err := modes.NewApp(&cfg, platform.NewMockPlatform(), logger.NewWithConfig(logger.Config{Output: &bytes.Buffer{}}))
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		app.Broadcaster.Close()
		srv.Close()
	})
	return app, srv.URL
}

func TestConfigCmd_PrintsEffectiveConfig(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\nlogging:\n  level: ERROR\n")

	out, err := run(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# source: "+path)
	assert.Contains(t, out, "port: 9090")
	assert.Contains(t, out, "maxFileSize: 4294967296")
}

func TestConfigCmd_Init(t *testing.T) {
	cfgPath := writeConfig(t, "logging:\n  level: ERROR\n")
	target := filepath.Join(t.TempDir(), "generated.yaml")

	_, err := run(t, "config", "--config", cfgPath, "--init", target)
	require.NoError(t, err)

	loaded, err := config.LoadFromFile(target)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, loaded.Server.Port)
}

func TestRoot_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	_, err := run(t, "config", "--config", path)
	assert.Error(t, err)
}

func TestClientCommands(t *testing.T) {
	app, url := startServer(t)
	cfgPath := writeConfig(t, "logging:\n  level: ERROR\n")

	out, err := run(t, "info", "--config", cfgPath, "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "Directory: "+app.Registry.Get())

	target := filepath.Join(t.TempDir(), "moved")
	out, err = run(t, "set-dir", target, "--config", cfgPath, "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, target)
	assert.Equal(t, target, app.Registry.Get())

	src := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(src, []byte("doc"), 0644))
	out, err = run(t, "send", src, "--config", cfgPath, "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "sent 1 file(s)")
	assert.FileExists(t, filepath.Join(target, "doc.txt"))

	_, err = run(t, "set-dir", "", "--config", cfgPath, "--server", url)
	assert.Error(t, err)
}

func TestSendCmd_RequiresFiles(t *testing.T) {
	cfgPath := writeConfig(t, "logging:\n  level: ERROR\n")

	_, err := run(t, "send", "--config", cfgPath)
	assert.Error(t, err)
}
