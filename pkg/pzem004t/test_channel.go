package pzem004t

import (
	"bytes"
	"time"
)

// TestChannel is an in-memory channel scripted with request/response
// exchanges. Writes accumulate until Flush, which matches the accumulated
// request against the scripted exchanges and queues the paired response
// for reading.
type TestChannel struct {
	// WriteErr, ReadErr and FlushErr surface as hard errors on the next
	// corresponding call when set.
	WriteErr error
	ReadErr  error
	FlushErr error

	// Written logs every byte accepted by TryWriteByte.
	Written []byte

	exchanges []testExchange
	request   []byte
	pending   []byte
}

type testExchange struct {
	request  []byte
	response []byte
	used     bool
}

func CreateTestChannel() *TestChannel {
	return &TestChannel{}
}

// Script registers one exchange. Each registration is consumed at most
// once, so the same request may be scripted twice with different
// responses.
func (c *TestChannel) Script(request, response []byte) {
	c.exchanges = append(c.exchanges, testExchange{request: request, response: response})
}

// StuffInput makes b readable immediately, ahead of any scripted
// response. Lets a test plant stale bytes on the line.
func (c *TestChannel) StuffInput(b []byte) {
	c.pending = append(c.pending, b...)
}

func (c *TestChannel) TryReadByte() (byte, bool, error) {
	if c.ReadErr != nil {
		return 0, false, c.ReadErr
	}
	if len(c.pending) == 0 {
		return 0, false, nil
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, true, nil
}

func (c *TestChannel) TryWriteByte(b byte) (bool, error) {
	if c.WriteErr != nil {
		return false, c.WriteErr
	}
	c.Written = append(c.Written, b)
	c.request = append(c.request, b)
	return true, nil
}

func (c *TestChannel) Flush() error {
	if c.FlushErr != nil {
		return c.FlushErr
	}
	request := c.request
	c.request = nil
	for i := range c.exchanges {
		e := &c.exchanges[i]
		if !e.used && bytes.Equal(e.request, request) {
			e.used = true
			c.pending = append(c.pending, e.response...)
			return nil
		}
	}
	return nil
}

// ManualCountdown expires after a fixed number of Expired checks instead
// of wall time, so waits stay deterministic under test.
type ManualCountdown struct {
	// Remaining is how many checks survive before expiry.
	Remaining int
}

func (c *ManualCountdown) Start(time.Duration) {}

func (c *ManualCountdown) Expired() bool {
	if c.Remaining <= 0 {
		return true
	}
	c.Remaining--
	return false
}
