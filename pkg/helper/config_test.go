package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func sameFile(t *testing.T, want, got string) {
	t.Helper()
	w, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	g, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, w, g)
}

func TestGetCfgPathAbsolute(t *testing.T) {
	assert.Panics(t, func() { GetCfgPath("") })
	assert.Equal(t, "/srv/cat/catctl.yaml", GetCfgPath("/srv/cat/catctl.yaml"))
}

func TestGetCfgPathSearchOrder(t *testing.T) {
	work := t.TempDir()
	envDir := t.TempDir()
	chdir(t, work)
	t.Setenv(ConfigDirEnv, envDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	const name = "catctl.yaml"
	require.NoError(t, os.WriteFile(filepath.Join(envDir, name), []byte("x"), 0o644))
	sameFile(t, filepath.Join(envDir, name), GetCfgPath(name))

	require.NoError(t, os.MkdirAll("configs", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("configs", name), []byte("x"), 0o644))
	sameFile(t, filepath.Join(work, "configs", name), GetCfgPath(name))

	require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	sameFile(t, filepath.Join(work, name), GetCfgPath(name))
}

func TestGetCfgPathUserConfigDir(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(ConfigDirEnv, "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	dir, err := os.UserConfigDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "catclient"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catclient", "mock-cat.yaml"), []byte("x"), 0o644))

	sameFile(t, filepath.Join(dir, "catclient", "mock-cat.yaml"), GetCfgPath("mock-cat.yaml"))
}

func TestGetCfgPathFallback(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(ConfigDirEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.Equal(t, filepath.Join("/etc/catclient", "nope.yaml"), GetCfgPath("nope.yaml"))
}
