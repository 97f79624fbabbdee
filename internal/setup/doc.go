// Package setup implements the interactive credential setup flow: a
// terminal form for entering device credentials and the logic for
// writing them to the user or system-wide configuration file.
package setup
