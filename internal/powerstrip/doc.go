// Package powerstrip models a 3-outlet Tuya power strip on top of the
// raw device client: plug switching, status extraction from the dps
// payload, and surfacing of device-reported errors.
package powerstrip
