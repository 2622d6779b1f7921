package helper

import (
	"os"
	"path/filepath"
)

// ConfigDirEnv names a directory searched before the per-user config dir.
const ConfigDirEnv = "CATCLIENT_CONFIG_DIR"

const systemConfigDir = "/etc/catclient"

// GetCfgPath returns the path to the configuration file.
//
// Absolute names are returned as they are. Relative names are looked up in
// ./, ./configs, $CATCLIENT_CONFIG_DIR, the user config dir
// (~/.config/catclient on linux) and /etc/catclient, first hit wins.
// When nothing exists the /etc/catclient path is returned so the caller's
// read error names it.
func GetCfgPath(filename string) string {
	if filename == "" {
		panic("filename cannot be empty")
	}

	if filepath.IsAbs(filename) {
		return filename
	}

	for _, dir := range configDirs() {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
	}

	return filepath.Join(systemConfigDir, filename)
}

func configDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil && wd != "" {
		dirs = append(dirs, wd, filepath.Join(wd, "configs"))
	}
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		dirs = append(dirs, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "catclient"))
	}
	return append(dirs, systemConfigDir)
}
