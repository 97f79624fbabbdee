// Package tuya implements the Tuya local control protocol used by
// wifi power strips on the LAN: AES-ECB payload encryption, the 55AA
// frame format with CRC32 checksums, and a small client for issuing
// status and control commands over TCP.
package tuya
