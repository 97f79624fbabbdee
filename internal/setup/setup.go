package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tuyastrip/internal/config"
)

// PermissionError reports that the credentials file could not be
// written for lack of filesystem permission, distinct from other I/O
// failures so callers can print an elevation hint.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied writing %s", e.Path)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// TargetPath returns where setup writes credentials: the system-wide
// path when requested, the per-user file otherwise.
func TargetPath(systemWide bool) (string, error) {
	if systemWide {
		return config.SystemPath, nil
	}
	return config.UserPath()
}

// Apply writes the credentials to path. Permission failures come back
// as *PermissionError; the write is atomic, so a failure leaves no
// partial file behind.
func Apply(creds *config.Credentials, path string) error {
	if err := config.Write(path, creds); err != nil {
		return classifyWriteError(path, err)
	}
	return nil
}

func classifyWriteError(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return &PermissionError{Path: path, Err: err}
	}
	return err
}

// ElevationHint returns the remediation steps to print when the
// system-wide write is denied: rerun under sudo, with a symlink so the
// elevated shell can find the executable.
func ElevationHint() []string {
	exe, err := os.Executable()
	if err != nil {
		exe = "tuya-strip"
	}
	name := filepath.Base(exe)
	link := filepath.Join("/usr/local/bin", name)

	return []string{
		"Retry with elevated privileges:",
		fmt.Sprintf("  sudo ln -sf %s %s", exe, link),
		fmt.Sprintf("  sudo %s setup --system-wide", name),
	}
}
