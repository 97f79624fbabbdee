// Package config loads and saves tuya-strip device credentials.
//
// Credentials live in a plain key=value file (dotenv format) found by
// searching an ordered list of locations: ./.env in the current
// directory, $HOME/.tuya-strip, then /etc/tuya-strip. The first file
// that exists wins; environment variables of the same names fill any
// keys the chosen file omits, and serve as the only source when no
// file exists.
//
// Keys:
//
//	TUYA_DEVICE_ID   device id
//	TUYA_DEVICE_IP   device LAN address
//	TUYA_LOCAL_KEY   shared secret provisioned per device
//	TUYA_VERSION     local protocol version (defaults to 3.3)
//
// Loading performs no validation beyond presence; callers check
// Credentials.Validate and refuse to proceed when a required field is
// empty.
package config
