package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Configuration file keys. The same names act as environment variable
// fallbacks when no credentials file defines them.
const (
	KeyDeviceID = "TUYA_DEVICE_ID"
	KeyDeviceIP = "TUYA_DEVICE_IP"
	KeyLocalKey = "TUYA_LOCAL_KEY"
	KeyVersion  = "TUYA_VERSION"
)

// DefaultVersion is the Tuya local protocol version assumed when
// TUYA_VERSION is unset or blank.
const DefaultVersion = 3.3

// SystemPath is the system-wide credentials file location, written by
// "setup --system-wide" and searched last.
const SystemPath = "/etc/tuya-strip"

// Credentials holds everything needed to talk to one device.
type Credentials struct {
	DeviceID string
	DeviceIP string
	LocalKey string
	Version  float64
}

// Validate checks that all required fields are present.
// The protocol version always has a default, so it is never "missing".
func (c *Credentials) Validate() error {
	var missing []string
	if c.DeviceID == "" {
		missing = append(missing, KeyDeviceID)
	}
	if c.DeviceIP == "" {
		missing = append(missing, KeyDeviceIP)
	}
	if c.LocalKey == "" {
		missing = append(missing, KeyLocalKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// UserPath returns the user-scoped credentials file location
// ($HOME/.tuya-strip), written by "setup" and searched second.
func UserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tuya-strip"), nil
}

// SearchPaths returns the candidate credentials file paths in priority
// order: current directory, user home, system-wide.
func SearchPaths() []string {
	paths := []string{".env"}
	if userPath, err := UserPath(); err == nil {
		paths = append(paths, userPath)
	}
	return append(paths, SystemPath)
}

// Loader resolves credentials from an ordered list of candidate files,
// falling back to environment variables for keys no file defines.
// The file and environment accessors are injectable so the search logic
// is testable without filesystem fixtures.
type Loader struct {
	// Paths are candidate credential files in priority order.
	// Defaults to SearchPaths() when nil.
	Paths []string

	// ReadFile reads a candidate file. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)

	// Getenv reads an environment variable. Defaults to os.Getenv.
	Getenv func(key string) string
}

// Load finds the first existing file in Paths, parses its key=value
// pairs, and builds a Credentials record. Keys the file does not define
// fall back to environment variables; if no file exists at all, the
// environment is the only source. The second return value is the path
// of the file that was used, or "" for environment-only loads.
//
// Presence is the only validation performed here; callers must check
// Validate before using the result.
func (l *Loader) Load() (*Credentials, string, error) {
	paths := l.Paths
	if paths == nil {
		paths = SearchPaths()
	}
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	values := map[string]string{}
	source := ""
	for _, path := range paths {
		data, err := readFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("reading credentials file %s: %w", path, err)
		}
		values, err = godotenv.UnmarshalBytes(data)
		if err != nil {
			return nil, "", fmt.Errorf("parsing credentials file %s: %w", path, err)
		}
		source = path
		break
	}

	// File values win; the environment fills whatever the file omits.
	lookup := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		return getenv(key)
	}

	creds := &Credentials{
		DeviceID: lookup(KeyDeviceID),
		DeviceIP: lookup(KeyDeviceIP),
		LocalKey: lookup(KeyLocalKey),
		Version:  DefaultVersion,
	}

	if raw := lookup(KeyVersion); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid %s value %q: %w", KeyVersion, raw, err)
		}
		creds.Version = v
	}

	return creds, source, nil
}

// Load resolves credentials using the default search paths, real
// filesystem, and real environment.
func Load() (*Credentials, string, error) {
	loader := &Loader{}
	return loader.Load()
}
