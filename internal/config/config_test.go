package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeFS maps paths to file contents; anything else does not exist.
type fakeFS map[string]string

func (f fakeFS) readFile(name string) ([]byte, error) {
	if content, ok := f[name]; ok {
		return []byte(content), nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadFirstExistingFileWins(t *testing.T) {
	files := fakeFS{
		".env":            "TUYA_DEVICE_ID=from-cwd\nTUYA_DEVICE_IP=10.0.0.1\nTUYA_LOCAL_KEY=cwdkey\n",
		"/home/u/.tuya-strip": "TUYA_DEVICE_ID=from-home\nTUYA_DEVICE_IP=10.0.0.2\nTUYA_LOCAL_KEY=homekey\n",
	}
	env := map[string]string{
		"TUYA_DEVICE_ID": "from-env",
	}

	loader := &Loader{
		Paths:    []string{".env", "/home/u/.tuya-strip", "/etc/tuya-strip"},
		ReadFile: files.readFile,
		Getenv:   fakeEnv(env),
	}

	creds, source, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if source != ".env" {
		t.Errorf("source = %q, want .env", source)
	}

	// Highest-priority file beats both the lower-priority file and the env.
	if creds.DeviceID != "from-cwd" {
		t.Errorf("DeviceID = %q, want from-cwd", creds.DeviceID)
	}
	if creds.LocalKey != "cwdkey" {
		t.Errorf("LocalKey = %q, want cwdkey", creds.LocalKey)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	files := fakeFS{
		"/etc/tuya-strip": "TUYA_DEVICE_ID=sysid\nTUYA_DEVICE_IP=10.0.0.3\nTUYA_LOCAL_KEY=syskey\nTUYA_VERSION=3.1\n",
	}

	loader := &Loader{
		Paths:    []string{".env", "/home/u/.tuya-strip", "/etc/tuya-strip"},
		ReadFile: files.readFile,
		Getenv:   fakeEnv(nil),
	}

	creds, source, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if source != "/etc/tuya-strip" {
		t.Errorf("source = %q, want /etc/tuya-strip", source)
	}
	if creds.DeviceID != "sysid" {
		t.Errorf("DeviceID = %q, want sysid", creds.DeviceID)
	}
	if creds.Version != 3.1 {
		t.Errorf("Version = %v, want 3.1", creds.Version)
	}
}

func TestLoadEnvironmentFallback(t *testing.T) {
	env := map[string]string{
		"TUYA_DEVICE_ID": "envid",
		"TUYA_DEVICE_IP": "192.168.1.40",
		"TUYA_LOCAL_KEY": "envkey",
	}

	loader := &Loader{
		Paths:    []string{".env"},
		ReadFile: fakeFS{}.readFile,
		Getenv:   fakeEnv(env),
	}

	creds, source, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if source != "" {
		t.Errorf("source = %q, want empty for environment-only load", source)
	}
	if creds.DeviceID != "envid" {
		t.Errorf("DeviceID = %q, want envid", creds.DeviceID)
	}
	if creds.Version != DefaultVersion {
		t.Errorf("Version = %v, want default %v", creds.Version, DefaultVersion)
	}
}

func TestLoadEnvironmentFillsOmittedKeys(t *testing.T) {
	// File defines only the device id; env supplies the rest.
	files := fakeFS{
		".env": "TUYA_DEVICE_ID=fileid\n",
	}
	env := map[string]string{
		"TUYA_DEVICE_IP": "192.168.1.40",
		"TUYA_LOCAL_KEY": "envkey",
	}

	loader := &Loader{
		Paths:    []string{".env"},
		ReadFile: files.readFile,
		Getenv:   fakeEnv(env),
	}

	creds, _, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if creds.DeviceID != "fileid" {
		t.Errorf("DeviceID = %q, want fileid", creds.DeviceID)
	}
	if creds.DeviceIP != "192.168.1.40" {
		t.Errorf("DeviceIP = %q, want 192.168.1.40", creds.DeviceIP)
	}
	if creds.LocalKey != "envkey" {
		t.Errorf("LocalKey = %q, want envkey", creds.LocalKey)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	files := fakeFS{
		".env": "TUYA_VERSION=latest\n",
	}

	loader := &Loader{
		Paths:    []string{".env"},
		ReadFile: files.readFile,
		Getenv:   fakeEnv(nil),
	}

	if _, _, err := loader.Load(); err == nil {
		t.Error("Load() should fail for a non-numeric TUYA_VERSION")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
		missing string
	}{
		{
			name:  "complete",
			creds: Credentials{DeviceID: "id", DeviceIP: "ip", LocalKey: "key", Version: 3.3},
		},
		{
			name:    "empty local key",
			creds:   Credentials{DeviceID: "id", DeviceIP: "ip", Version: 3.3},
			wantErr: true,
			missing: KeyLocalKey,
		},
		{
			name:    "all missing",
			creds:   Credentials{Version: 3.3},
			wantErr: true,
			missing: KeyDeviceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("Validate() error = %v, should name %s", err, tt.missing)
			}
		})
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	creds := &Credentials{
		DeviceID: "bf1234567890",
		DeviceIP: "192.168.1.40",
		LocalKey: "0123456789abcdef",
		Version:  3.3,
	}

	if err := Write(path, creds); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	loader := &Loader{Paths: []string{path}, Getenv: fakeEnv(nil)}
	loaded, source, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if source != path {
		t.Errorf("source = %q, want %q", source, path)
	}
	if *loaded != *creds {
		t.Errorf("round trip = %+v, want %+v", loaded, creds)
	}
}

func TestWriteLeavesNoPartialFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing-dir", "credentials")
	creds := &Credentials{DeviceID: "id", DeviceIP: "ip", LocalKey: "key", Version: 3.3}

	if err := Write(target, creds); err == nil {
		t.Fatal("Write() should fail when the target directory does not exist")
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target file should not exist after failed write, stat err = %v", err)
	}
	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not linger after failed write, stat err = %v", err)
	}
}

func TestFormatVersion(t *testing.T) {
	if got := FormatVersion(3.3); got != "3.3" {
		t.Errorf("FormatVersion(3.3) = %q, want 3.3", got)
	}
	if got := FormatVersion(3.0); got != "3.0" {
		t.Errorf("FormatVersion(3.0) = %q, want 3.0", got)
	}
}
