// Package pzem004t drives a PZEM-004T v3 energy monitor over a half-duplex
// serial link: request/response exchanges with CRC16/MODBUS framing and
// timeout-bounded byte assembly.
package pzem004t

import (
	"io"

	"go.uber.org/zap"
)

const (
	// AddressMin and AddressMax bound the assignable slave addresses.
	AddressMin = 0x01
	AddressMax = 0xF7
	// AddressUniversal addresses the single slave on the link regardless
	// of its configured address.
	AddressUniversal = 0xF8
)

const (
	cmdReadMeasurements = 0x04
	cmdReadParam        = 0x03
	cmdWriteParam       = 0x06
	cmdResetEnergy      = 0x42

	paramAlarmThreshold = 0x0001
	paramAddress        = 0x0002

	measurementRegCount = 10

	respLenMeasurements = 25
	respLenReadParam    = 7
	respLenWriteParam   = 8
	respLenResetEnergy  = 4
)

// Measurement is one snapshot of the sensor's input registers. A read
// either overwrites the whole record or leaves it untouched.
type Measurement struct {
	Voltage     float64 // V
	Current     float64 // A
	Power       float64 // W
	Energy      float64 // kWh
	Frequency   float64 // Hz
	PowerFactor float64
	Alarm       bool // active power exceeded the alarm threshold
}

type Meter interface {
	Open() error
	Close() error
	Address() uint8
	ReadMeasurements(m *Measurement, wait Wait) error
	GetAlarmThreshold(wait Wait) (uint16, error)
	SetAlarmThreshold(watts uint16, wait Wait) error
	GetAddress(wait Wait) (uint8, error)
	SetAddress(address uint8, wait Wait) error
	ResetEnergy(wait Wait) error
}

// Device is the handle for one sensor. It exclusively owns its channel;
// concurrent use requires external serialization.
type Device struct {
	channel    DuplexByteChannel
	address    uint8
	instrument []Instrument
}

// ValidateAddress reports whether address is assignable or universal.
func ValidateAddress(address uint8) error {
	if address == AddressUniversal || (address >= AddressMin && address <= AddressMax) {
		return nil
	}
	return ErrIllegalAddress
}

// CreateDevice builds a handle over channel for the sensor at address.
// The address is validated before any I/O is possible. A non-nil logger
// adds a debug timing instrument next to the optional caller one.
func CreateDevice(channel DuplexByteChannel, address uint8, logger *zap.Logger, instrumentation *Instrument) (*Device, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	// instrumentation
	var inst []Instrument
	if logger != nil {
		inst = append(inst, *traceLoggerInstrument(logger.With(zap.String("target", "pzem004t"), zap.Uint8("address", address))))
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &Device{
		channel:    channel,
		address:    address,
		instrument: inst,
	}, nil
}

type opener interface {
	Open() error
}

// Open readies the underlying channel when it supports deferred opening.
func (d *Device) Open() error {
	if o, ok := d.channel.(opener); ok {
		return o.Open()
	}
	return nil
}

// Close releases the underlying channel when it supports closing.
func (d *Device) Close() error {
	if c, ok := d.channel.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Address returns the address the handle currently targets.
func (d *Device) Address() uint8 {
	return d.address
}

// ReadMeasurements queries the ten input registers and fills m. On any
// error m is left untouched.
func (d *Device) ReadMeasurements(m *Measurement, wait Wait) error {
	defer recordTimer("ReadMeasurements", d.instrument)()
	req := buildRequest(d.address, cmdReadMeasurements, []byte{0x00, 0x00, 0x00, measurementRegCount})
	resp, err := d.communicate(req, respLenMeasurements, wait)
	if err != nil {
		return err
	}
	*m = decodeMeasurement(resp)
	return nil
}

// GetAlarmThreshold reads the power alarm threshold in watts.
func (d *Device) GetAlarmThreshold(wait Wait) (uint16, error) {
	defer recordTimer("GetAlarmThreshold", d.instrument)()
	resp, err := d.readParam(paramAlarmThreshold, wait)
	if err != nil {
		return 0, err
	}
	return decodeU16(resp, 3), nil
}

// SetAlarmThreshold sets the power alarm threshold in watts (1 LSB = 1 W).
func (d *Device) SetAlarmThreshold(watts uint16, wait Wait) error {
	defer recordTimer("SetAlarmThreshold", d.instrument)()
	return d.writeParam(paramAlarmThreshold, watts, wait)
}

// GetAddress reads the address stored in the sensor itself, which may
// differ from the handle's target when talking over AddressUniversal.
func (d *Device) GetAddress(wait Wait) (uint8, error) {
	defer recordTimer("GetAddress", d.instrument)()
	resp, err := d.readParam(paramAddress, wait)
	if err != nil {
		return 0, err
	}
	return uint8(decodeU16(resp, 3)), nil
}

// SetAddress assigns a new slave address. The handle adopts it only after
// the sensor confirms the write; on any failure the handle keeps targeting
// the previous address.
func (d *Device) SetAddress(address uint8, wait Wait) error {
	defer recordTimer("SetAddress", d.instrument)()
	if address == AddressUniversal {
		return ErrIllegalAddress
	}
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if err := d.writeParam(paramAddress, uint16(address), wait); err != nil {
		return err
	}
	d.address = address
	return nil
}

// ResetEnergy zeroes the cumulative energy counter.
func (d *Device) ResetEnergy(wait Wait) error {
	defer recordTimer("ResetEnergy", d.instrument)()
	req := buildRequest(d.address, cmdResetEnergy, nil)
	_, err := d.communicate(req, respLenResetEnergy, wait)
	return err
}

func (d *Device) readParam(param uint16, wait Wait) ([]byte, error) {
	req := buildRequest(d.address, cmdReadParam, []byte{byte(param >> 8), byte(param), 0x00, 0x01})
	return d.communicate(req, respLenReadParam, wait)
}

func (d *Device) writeParam(param uint16, value uint16, wait Wait) error {
	req := buildRequest(d.address, cmdWriteParam, []byte{byte(param >> 8), byte(param), byte(value >> 8), byte(value)})
	_, err := d.communicate(req, respLenWriteParam, wait)
	return err
}

// communicate runs one exchange: drain stale input, send the request,
// collect exactly respLen bytes within the wait bound, then validate the
// echoed header and the checksum.
func (d *Device) communicate(req []byte, respLen int, wait Wait) ([]byte, error) {
	if err := drain(d.channel); err != nil {
		return nil, err
	}
	if err := writeBlocking(d.channel, req); err != nil {
		return nil, err
	}
	if err := d.channel.Flush(); err != nil {
		return nil, WriteError{Err: err}
	}

	resp := make([]byte, respLen)
	n, err := readBlocking(d.channel, wait, resp)
	if err != nil {
		return nil, err
	}
	if n < respLen {
		return nil, ErrTimedOut
	}

	if resp[0] != req[0] || resp[1] != req[1] {
		return nil, ErrEchoMismatch
	}
	// a 4-byte response carries no payload, so its crc must equal the
	// request's byte for byte
	if len(req) == 4 && respLen == 4 {
		if resp[2] != req[2] || resp[3] != req[3] {
			return nil, ErrCRCMismatch
		}
		return resp, nil
	}
	if !checkCRC(resp) {
		return nil, ErrCRCMismatch
	}
	return resp, nil
}
