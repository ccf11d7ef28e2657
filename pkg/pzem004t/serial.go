package pzem004t

import (
	"errors"
	"time"

	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

var errPortNotOpen = errors.New("pzem004t: serial port not open")

// serialPollTimeout is how long one byte probe may block on the port.
// Short enough that wait bounds stay responsive between bytes.
const serialPollTimeout = 20 * time.Millisecond

// SerialChannel adapts a serial port to the byte channel contract. Reads
// poll the port with a short timeout so a bounded wait gets checked
// between bytes instead of hanging on the port.
type SerialChannel struct {
	config serial.Config
	port   serial.Port
	rbuf   [1]byte
	wbuf   [1]byte
}

// NewSerialChannel prepares a channel over the port at address, a device
// path such as /dev/ttyUSB0. The port is 8N1 at baudRate and opens on the
// first Open call.
func NewSerialChannel(address string, baudRate int, pollTimeout time.Duration) *SerialChannel {
	return &SerialChannel{
		config: serial.Config{
			Address:  address,
			BaudRate: baudRate,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  pollTimeout,
		},
	}
}

// Open opens the underlying port. Opening an already open channel is a
// no-op.
func (c *SerialChannel) Open() error {
	if c.port != nil {
		return nil
	}
	port, err := serial.Open(&c.config)
	if err != nil {
		return err
	}
	c.port = port
	return nil
}

// Close closes the underlying port if open.
func (c *SerialChannel) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

func (c *SerialChannel) TryReadByte() (byte, bool, error) {
	if c.port == nil {
		return 0, false, errPortNotOpen
	}
	n, err := c.port.Read(c.rbuf[:])
	if n == 1 {
		return c.rbuf[0], true, nil
	}
	if err == nil || errors.Is(err, serial.ErrTimeout) {
		return 0, false, nil
	}
	return 0, false, err
}

func (c *SerialChannel) TryWriteByte(b byte) (bool, error) {
	if c.port == nil {
		return false, errPortNotOpen
	}
	c.wbuf[0] = b
	n, err := c.port.Write(c.wbuf[:])
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Flush is a no-op. The port writes through, there is no buffered output
// to push.
func (c *SerialChannel) Flush() error {
	return nil
}

// CreateSerialDevice builds a meter handle over a serial port. The port
// itself opens on the handle's Open.
func CreateSerialDevice(port string, baudRate int, address uint8, logger *zap.Logger, instrumentation *Instrument) (Meter, error) {
	channel := NewSerialChannel(port, baudRate, serialPollTimeout)
	return CreateDevice(channel, address, logger, instrumentation)
}
