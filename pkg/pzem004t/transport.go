package pzem004t

import "time"

// DuplexByteChannel is the byte-oriented half-duplex transport the driver
// talks through. Both primitives are non-blocking: they either complete,
// report would-block (ok == false), or fail with the transport's native
// error.
type DuplexByteChannel interface {
	// TryReadByte returns the next pending input byte, or ok == false when
	// no byte is available yet.
	TryReadByte() (b byte, ok bool, err error)
	// TryWriteByte offers one byte to the channel, returning ok == false
	// when the channel cannot accept it yet.
	TryWriteByte(b byte) (ok bool, err error)
	// Flush blocks until every written byte has left the transmitter.
	Flush() error
}

// Countdown is a polled timer: started once with a duration, it reports
// expiry through Expired without blocking.
type Countdown interface {
	Start(d time.Duration)
	Expired() bool
}

// Wait bounds a single read of a response. The zero value (or NoBound)
// waits indefinitely.
type Wait struct {
	countdown Countdown
	duration  time.Duration
}

// NoBound waits for a response indefinitely.
func NoBound() Wait {
	return Wait{}
}

// BoundedBy bounds the wait by d using a wall-clock countdown.
func BoundedBy(d time.Duration) Wait {
	return Wait{countdown: &clockCountdown{}, duration: d}
}

// BoundedWith bounds the wait by d using a caller-supplied countdown.
func BoundedWith(c Countdown, d time.Duration) Wait {
	return Wait{countdown: c, duration: d}
}

type clockCountdown struct {
	deadline time.Time
}

func (c *clockCountdown) Start(d time.Duration) {
	c.deadline = time.Now().Add(d)
}

func (c *clockCountdown) Expired() bool {
	return !time.Now().Before(c.deadline)
}

// writeBlocking writes every byte of data in order, retrying each byte on
// would-block until the channel accepts it.
func writeBlocking(ch DuplexByteChannel, data []byte) error {
	for _, b := range data {
		for {
			ok, err := ch.TryWriteByte(b)
			if err != nil {
				return WriteError{Err: err}
			}
			if ok {
				break
			}
		}
	}
	return nil
}

// readBlocking fills buf and returns the number of bytes read. Bounded
// waits check the countdown before every byte attempt, so a byte trickle
// cannot stretch the wait past one countdown period; the short count on
// expiry is the timeout signal, not an error.
func readBlocking(ch DuplexByteChannel, wait Wait, buf []byte) (int, error) {
	if wait.countdown != nil {
		wait.countdown.Start(wait.duration)
	}
	n := 0
	for n < len(buf) {
		if wait.countdown != nil && wait.countdown.Expired() {
			return n, nil
		}
		b, ok, err := ch.TryReadByte()
		if err != nil {
			return n, ReadError{Err: err}
		}
		if !ok {
			continue
		}
		buf[n] = b
		n++
	}
	return n, nil
}

// drain discards pending input until the channel reports would-block.
func drain(ch DuplexByteChannel) error {
	for {
		_, ok, err := ch.TryReadByte()
		if err != nil {
			return ReadError{Err: err}
		}
		if !ok {
			return nil
		}
	}
}
