package tuya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tuyastrip/internal/logging"
)

// Version is the Tuya local protocol version, which selects the wire
// framing. Only the 3.3 family (3.2/3.3) is implemented: 3.1 uses an
// unencrypted MD5-signed format and 3.4+ negotiates a session key,
// neither of which the supported power strips speak.
type Version string

const (
	Version32 Version = "3.2"
	Version33 Version = "3.3"
)

// DefaultPort is the TCP port Tuya devices listen on for local control
const DefaultPort = 6668

// DefaultTimeout bounds each connection attempt and round trip
const DefaultTimeout = 10 * time.Second

// versionHeaderSize is the version prefix on sealed payloads:
// 3 version bytes plus a 12-byte reserved block.
const versionHeaderSize = 15

// Response is the decoded device reply. A non-empty Error field is a
// device-side failure, distinct from transport errors: the frame
// arrived intact but the device rejected or failed the request.
type Response struct {
	DevID   string         `json:"devId"`
	Dps     map[string]any `json:"dps"`
	Error   string         `json:"Error"`
	ErrCode string         `json:"Err"`
}

// Dialer opens the TCP connection to the device. Injectable for tests.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Device is a client for one Tuya device reachable on the local
// network. It is not safe for concurrent use; the CLI issues exactly
// one request at a time.
type Device struct {
	id      string
	address string
	key     []byte
	version Version
	timeout time.Duration
	seq     uint32
	dial    Dialer
	log     *zap.Logger
}

// Option configures a Device
type Option func(*Device)

// WithTimeout sets the connection and round-trip timeout
func WithTimeout(d time.Duration) Option {
	return func(dev *Device) { dev.timeout = d }
}

// WithDialer replaces the TCP dialer (used by tests)
func WithDialer(dial Dialer) Option {
	return func(dev *Device) { dev.dial = dial }
}

// WithLogger sets the logger for frame and connection events
func WithLogger(l *zap.Logger) Option {
	return func(dev *Device) { dev.log = l }
}

// NewDevice creates a client for the device with the given id, address,
// and local key. The address may omit the port, in which case the
// standard Tuya local port is used. The protocol version defaults to
// 3.3; call SetVersion to change it.
func NewDevice(id, address, localKey string, opts ...Option) *Device {
	if !strings.Contains(address, ":") {
		address = net.JoinHostPort(address, strconv.Itoa(DefaultPort))
	}

	d := &Device{
		id:      id,
		address: address,
		key:     []byte(localKey),
		version: Version33,
		timeout: DefaultTimeout,
		log:     logging.GetLogger(),
	}
	d.dial = (&net.Dialer{}).DialContext

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Address returns the device's dial address including port
func (d *Device) Address() string {
	return d.address
}

// SetVersion selects the protocol version used for framing.
// Returns an error for versions this client does not implement.
func (d *Device) SetVersion(v float64) error {
	switch v {
	case 3.2:
		d.version = Version32
	case 3.3:
		d.version = Version33
	default:
		return fmt.Errorf("unsupported protocol version %.1f (supported: 3.2, 3.3)", v)
	}
	return nil
}

// Status queries the device's current data point set
func (d *Device) Status(ctx context.Context) (*Response, error) {
	payload, err := json.Marshal(map[string]any{
		"gwId":  d.id,
		"devId": d.id,
		"uid":   d.id,
		"t":     strconv.FormatInt(time.Now().Unix(), 10),
	})
	if err != nil {
		return nil, fmt.Errorf("building status payload: %w", err)
	}
	return d.roundTrip(ctx, CmdDpQuery, payload)
}

// SetStatus switches one plug on or off. Plug numbers map directly to
// the device's switch dps indexes.
func (d *Device) SetStatus(ctx context.Context, on bool, plug int) (*Response, error) {
	if plug < 1 {
		return nil, fmt.Errorf("invalid plug index %d", plug)
	}
	payload, err := json.Marshal(map[string]any{
		"devId": d.id,
		"gwId":  d.id,
		"uid":   d.id,
		"t":     strconv.FormatInt(time.Now().Unix(), 10),
		"dps": map[string]bool{
			strconv.Itoa(plug): on,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("building control payload: %w", err)
	}
	return d.roundTrip(ctx, CmdControl, payload)
}

// roundTrip opens a connection, sends one sealed command frame, and
// waits for the device's answer. Every call uses a fresh connection;
// the supported strips drop idle sessions quickly enough that keeping
// one open buys nothing for a one-shot CLI.
func (d *Device) roundTrip(ctx context.Context, cmd uint32, clear []byte) (*Response, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	conn, err := d.dial(ctx, "tcp", d.address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", d.address, err)
	}
	defer conn.Close()
	logging.LogConnection(d.address, "connected")

	if d.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.timeout))
	}

	sealed, err := d.sealPayload(cmd, clear)
	if err != nil {
		return nil, err
	}

	d.seq++
	frame := &Frame{Seq: d.seq, Cmd: cmd, Payload: sealed}
	wire, err := EncodeFrame(frame)
	if err != nil {
		return nil, err
	}

	logging.LogFrame("send", frame.Seq, frame.Cmd, frame.Payload)
	if _, err := conn.Write(wire); err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}

	// Devices may push async status reports or heartbeats on the same
	// connection; skip frames until the answer to our command arrives.
	for {
		reply, err := DecodeFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		logging.LogFrame("recv", reply.Seq, reply.Cmd, reply.Payload)

		if reply.Cmd == cmd || (cmd == CmdDpQuery && reply.Cmd == CmdStatus) {
			return d.openResponse(reply)
		}

		d.log.Debug("Skipping unrelated frame",
			zap.Uint32("cmd", reply.Cmd),
			zap.Uint32("want", cmd),
		)
	}
}

// noVersionHeaderCmds are commands whose sealed payload omits the
// protocol version prefix.
var noVersionHeaderCmds = map[uint32]bool{
	CmdDpQuery:    true,
	CmdDpQueryNew: true,
	CmdUpdateDps:  true,
	CmdHeartBeat:  true,
}

// sealPayload encrypts the cleartext payload and, for commands that
// require it, prepends the protocol version header.
func (d *Device) sealPayload(cmd uint32, clear []byte) ([]byte, error) {
	sealed, err := encryptECB(d.key, clear)
	if err != nil {
		return nil, err
	}
	if noVersionHeaderCmds[cmd] {
		return sealed, nil
	}

	header := make([]byte, versionHeaderSize)
	copy(header, d.version)
	return append(header, sealed...), nil
}

// openResponse decrypts and decodes a device frame into a Response.
// Device-reported failures (non-zero return code, error payloads) come
// back as a Response with the Error field set rather than a Go error,
// mirroring the embedded error indicator in the device's own replies.
func (d *Device) openResponse(f *Frame) (*Response, error) {
	payload := f.Payload

	if f.RetCode != 0 {
		// Rejections carry a plaintext reason, when they carry anything.
		msg := strings.TrimSpace(string(payload))
		if msg == "" {
			msg = "device rejected the request"
		}
		return &Response{Error: msg, ErrCode: strconv.FormatUint(uint64(f.RetCode), 10)}, nil
	}

	// Some firmwares prefix the response with the version header too.
	if len(payload) >= versionHeaderSize && bytes.HasPrefix(payload, []byte(d.version)) {
		payload = payload[versionHeaderSize:]
	}

	if len(payload) == 0 {
		return &Response{}, nil
	}

	clear, err := decryptECB(d.key, payload)
	if err != nil {
		return nil, fmt.Errorf("decrypting response (check the local key): %w", err)
	}

	var resp Response
	if err := json.Unmarshal(clear, &resp); err != nil {
		// Non-JSON replies are the device's error strings, e.g.
		// "json obj data unvalid" for a malformed request.
		return &Response{
			Error:   strings.TrimSpace(string(clear)),
			ErrCode: "900",
		}, nil
	}
	return &resp, nil
}
