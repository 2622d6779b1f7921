package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultPIDFile = "mock-cat.pid"

// GetPIDPath resolves where the PID file goes. Absolute paths are kept,
// relative ones are placed under the working directory when it exists,
// and everything else ends up in the temp dir.
func GetPIDPath(filename string) string {
	if filename == "" {
		filename = defaultPIDFile
	}
	if filepath.IsAbs(filename) {
		return filename
	}
	if p := pidUnderCwd(filename); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), filepath.Base(filename))
}

func pidUnderCwd(filename string) string {
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return ""
	}
	abs, err := filepath.Abs(filepath.Join(cwd, filename))
	if err != nil {
		return ""
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return ""
	}
	return abs
}

// WritePID stores the current process id at path and returns a func that
// removes the file again.
func WritePID(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file %s: %w", path, err)
	}
	return func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}, nil
}

// ReadPID returns the process id stored at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
