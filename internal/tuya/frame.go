package tuya

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Tuya LAN command types (subset used by this client).
// Reference: tuya-iotos-embeded-sdk lan_protocol.h
const (
	// CmdControl issues a dps write (switch a plug on/off)
	CmdControl uint32 = 0x07
	// CmdStatus is the device's asynchronous state report
	CmdStatus uint32 = 0x08
	// CmdHeartBeat is the keepalive ping
	CmdHeartBeat uint32 = 0x09
	// CmdDpQuery requests the current data point set
	CmdDpQuery uint32 = 0x0a
	// CmdDpQueryNew is the newer dps query used by some firmwares
	CmdDpQueryNew uint32 = 0x10
	// CmdUpdateDps requests a refresh of volatile dps (energy readings)
	CmdUpdateDps uint32 = 0x12
)

// The v3.1-v3.3 packet format:
//
//	000055aa SSSSSSSS MMMMMMMM LLLLLLLL [RRRRRRRR] DD..DD CC..CC 0000aa55
//
// prefix, 32-bit sequence, 32-bit command, 32-bit length (counting
// everything after the header through the suffix), a 32-bit return code
// on device-originated packets only, encrypted payload data, CRC-32
// checksum over header+payload, suffix.
const (
	framePrefix uint32 = 0x000055aa
	frameSuffix uint32 = 0x0000aa55

	frameHeaderSize  = 16
	frameTrailerSize = 8 // crc32 + suffix

	// Packets are limited to a single TCP frame in practice
	maxPayloadSize = 0xffff
)

var (
	ErrBadPrefix   = errors.New("bad frame prefix")
	ErrBadSuffix   = errors.New("bad frame suffix")
	ErrBadChecksum = errors.New("frame checksum mismatch")
)

// Frame is one message frame with the envelope fields parsed out.
// RetCode is only meaningful on frames read from the device.
type Frame struct {
	Seq     uint32
	Cmd     uint32
	RetCode uint32
	Payload []byte
}

// EncodeFrame serializes a client frame. The payload must already be
// sealed (encrypted and version-prefixed) for the target protocol
// version.
func EncodeFrame(f *Frame) ([]byte, error) {
	if len(f.Payload) > maxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d > %d", len(f.Payload), maxPayloadSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, frameHeaderSize+len(f.Payload)+frameTrailerSize))
	_ = binary.Write(buf, binary.BigEndian, framePrefix)
	_ = binary.Write(buf, binary.BigEndian, f.Seq)
	_ = binary.Write(buf, binary.BigEndian, f.Cmd)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(f.Payload)+frameTrailerSize))
	buf.Write(f.Payload)

	crc := crc32.ChecksumIEEE(buf.Bytes())
	_ = binary.Write(buf, binary.BigEndian, crc)
	_ = binary.Write(buf, binary.BigEndian, frameSuffix)

	return buf.Bytes(), nil
}

// DecodeFrame reads and validates one device frame from r. The leading
// return code, when present, is split off into Frame.RetCode.
func DecodeFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}

	if binary.BigEndian.Uint32(header[0:4]) != framePrefix {
		return nil, ErrBadPrefix
	}

	f := &Frame{
		Seq: binary.BigEndian.Uint32(header[4:8]),
		Cmd: binary.BigEndian.Uint32(header[8:12]),
	}

	length := binary.BigEndian.Uint32(header[12:16])
	if length < frameTrailerSize || length > maxPayloadSize+frameTrailerSize {
		return nil, fmt.Errorf("invalid frame length %d", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}

	payload := body[:len(body)-frameTrailerSize]
	gotCRC := binary.BigEndian.Uint32(body[len(body)-8 : len(body)-4])
	if binary.BigEndian.Uint32(body[len(body)-4:]) != frameSuffix {
		return nil, ErrBadSuffix
	}

	wantCRC := crc32.ChecksumIEEE(header)
	wantCRC = crc32.Update(wantCRC, crc32.IEEETable, payload)
	if gotCRC != wantCRC {
		return nil, ErrBadChecksum
	}

	// Device frames carry a 32-bit return code ahead of the data. The
	// high bytes of real return codes are always zero, which is how we
	// tell them apart from payloads that start with data.
	if len(payload) >= 4 {
		if rc := binary.BigEndian.Uint32(payload[:4]); rc&0xFFFFFF00 == 0 {
			f.RetCode = rc
			payload = payload[4:]
		}
	}

	f.Payload = payload
	return f, nil
}
