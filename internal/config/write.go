package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Serialize renders credentials as the key=value file format the loader
// reads back, with a short header comment.
func Serialize(creds *Credentials) []byte {
	var b strings.Builder
	b.WriteString("# Tuya device configuration\n")
	b.WriteString(KeyDeviceID + "=" + creds.DeviceID + "\n")
	b.WriteString(KeyDeviceIP + "=" + creds.DeviceIP + "\n")
	b.WriteString(KeyLocalKey + "=" + creds.LocalKey + "\n")
	b.WriteString(KeyVersion + "=" + FormatVersion(creds.Version) + "\n")
	return []byte(b.String())
}

// FormatVersion renders a protocol version the way the config file and
// device expect it ("3.3", not "3.30" or "3").
func FormatVersion(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Write saves credentials to path. The write goes through a temporary
// file and an atomic rename so a failure never leaves a partially
// written credentials file behind. The file is created user-only (0600)
// since it carries the device's secret key.
func Write(path string, creds *Credentials) error {
	data := Serialize(creds)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing credentials file: %w", err)
	}

	return nil
}
