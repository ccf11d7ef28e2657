package pzem004t

import "errors"

var (
	// ErrTimedOut is returned when a response is shorter than expected
	// within the caller-supplied wait bound.
	ErrTimedOut = errors.New("pzem004t: response timed out")
	// ErrCRCMismatch is returned when a response fails checksum validation.
	ErrCRCMismatch = errors.New("pzem004t: response crc mismatch")
	// ErrEchoMismatch is returned when a response does not echo the
	// address and function code of its request.
	ErrEchoMismatch = errors.New("pzem004t: response does not echo request header")
	// ErrIllegalAddress is returned for device addresses outside
	// [AddressMin, AddressMax] and distinct from AddressUniversal.
	ErrIllegalAddress = errors.New("pzem004t: device address out of range")
)

// WriteError wraps the transport's native error on a failed write.
type WriteError struct {
	Err error
}

func (e WriteError) Error() string {
	return "pzem004t: transport write: " + e.Err.Error()
}

func (e WriteError) Unwrap() error {
	return e.Err
}

// ReadError wraps the transport's native error on a failed read.
type ReadError struct {
	Err error
}

func (e ReadError) Error() string {
	return "pzem004t: transport read: " + e.Err.Error()
}

func (e ReadError) Unwrap() error {
	return e.Err
}
