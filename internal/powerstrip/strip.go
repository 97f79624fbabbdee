package powerstrip

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tuyastrip/internal/device"
	"tuyastrip/internal/tuya"
)

// PlugCount is the number of switchable outlets on the strip
const PlugCount = 3

// Energy telemetry dps indexes. The strip reports current in
// milliamps on dps 18, power in watts on 19, and voltage in volts
// on 20, alongside the switch booleans on dps 1 through 3.
const (
	dpsCurrent = "18"
	dpsPower   = "19"
	dpsVoltage = "20"
)

// Client is the device operations the strip needs. *tuya.Device
// satisfies it; tests substitute a fake.
type Client interface {
	Status(ctx context.Context) (*tuya.Response, error)
	SetStatus(ctx context.Context, on bool, plug int) (*tuya.Response, error)
}

// Strip is a 3-outlet Tuya power strip
type Strip struct {
	dev Client
}

// New wraps a device client as a power strip
func New(dev Client) *Strip {
	return &Strip{dev: dev}
}

// ValidatePlug checks that n names one of the strip's outlets
func ValidatePlug(n int) error {
	if n < 1 || n > PlugCount {
		return fmt.Errorf("invalid plug number %d (must be 1-%d)", n, PlugCount)
	}
	return nil
}

// Energy holds the strip's telemetry readings. Values are the raw dps
// numbers as reported; a nil value means the device omitted the
// reading.
type Energy struct {
	Voltage any // volts, dps 20
	Current any // milliamps, dps 18
	Power   any // watts, dps 19
}

// Status is the strip's state as extracted from a dps query
type Status struct {
	Switches map[string]bool
	Energy   Energy
}

// Status queries the strip and extracts switch states and energy
// telemetry from the dps payload.
func (s *Strip) Status(ctx context.Context) (*Status, error) {
	resp, err := s.dev.Status(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	st := &Status{Switches: make(map[string]bool)}
	for i := 1; i <= PlugCount; i++ {
		key := strconv.Itoa(i)
		if on, ok := resp.Dps[key].(bool); ok {
			st.Switches[key] = on
		}
	}
	st.Energy = Energy{
		Voltage: resp.Dps[dpsVoltage],
		Current: resp.Dps[dpsCurrent],
		Power:   resp.Dps[dpsPower],
	}
	return st, nil
}

// SetPlug switches one outlet on or off
func (s *Strip) SetPlug(ctx context.Context, plug int, on bool) error {
	if err := ValidatePlug(plug); err != nil {
		return err
	}
	resp, err := s.dev.SetStatus(ctx, on, plug)
	if err != nil {
		return err
	}
	return checkResponse(resp)
}

// checkResponse surfaces a device-reported failure embedded in an
// otherwise successful response.
func checkResponse(resp *tuya.Response) error {
	if resp.Error == "" {
		return nil
	}
	code := resp.ErrCode
	if code == "" {
		code = "Unknown"
	}
	return device.NewDeviceError(resp.Error, code)
}

// Format renders the status as two labeled lines, switches sorted by
// plug number.
func (st *Status) Format() string {
	keys := make([]string, 0, len(st.Switches))
	for k := range st.Switches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Switches:")
	for _, k := range keys {
		state := "off"
		if st.Switches[k] {
			state = "on"
		}
		fmt.Fprintf(&b, "  plug %s: %s", k, state)
	}
	fmt.Fprintf(&b, "\nEnergy:  voltage %s V  current %s mA  power %s W",
		formatReading(st.Energy.Voltage),
		formatReading(st.Energy.Current),
		formatReading(st.Energy.Power),
	)
	return b.String()
}

func formatReading(v any) string {
	if v == nil {
		return "-"
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
