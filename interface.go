package epd1in54v3

import (
	"bytes"
	"errors"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// ErrBusyTimeout is returned by bus operations when Opts.BusyTimeout is set
// and the panel does not release the busy line in time.
var ErrBusyTimeout = errors.New("epd1in54v3: timeout waiting for busy line")

// maxTxSize caps a single SPI transaction. Linux spidev rejects transfers
// above 4096 bytes with its default buffer size.
const maxTxSize = 4096

// transport owns the data/command, reset and busy lines plus the SPI byte
// exchange. It frames transmissions and synchronizes on the busy line, and
// knows nothing about what any opcode means.
//
// Bus faults are propagated to the caller unchanged; no operation retries.
type transport struct {
	c    conn.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	pollInterval time.Duration
	timeout      time.Duration // zero waits forever
}

// reset drives the reset line low for hold, releases it, then waits recovery
// before returning. The panel firmware restarts; RAM window and counter
// state is undefined afterwards.
func (t *transport) reset(hold, recovery time.Duration) error {
	if err := t.rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(hold)
	if err := t.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(recovery)
	return nil
}

// sendCommand transmits a single opcode byte in command framing.
func (t *transport) sendCommand(cmd byte) error {
	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	return t.c.Tx([]byte{cmd}, nil)
}

// sendCommandWithData transmits the opcode in command framing followed by
// the payload in data framing. The controller requires the two framings as
// distinct transmissions; the payload must not be folded into the command
// transfer.
func (t *transport) sendCommandWithData(cmd byte, data []byte) error {
	if err := t.sendCommand(cmd); err != nil {
		return err
	}
	return t.sendData(data)
}

// sendData transmits payload bytes in data framing, split into transfers of
// at most maxTxSize.
func (t *transport) sendData(data []byte) error {
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxTxSize {
			n = maxTxSize
		}
		if err := t.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// sendRepeatedByte transmits value count times in data framing without
// materializing the full run. A zero count is a no-op.
func (t *transport) sendRepeatedByte(value byte, count uint) error {
	if count == 0 {
		return nil
	}
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}
	n := count
	if n > maxTxSize {
		n = maxTxSize
	}
	buf := bytes.Repeat([]byte{value}, int(n))
	for count > 0 {
		n := uint(len(buf))
		if n > count {
			n = count
		}
		if err := t.c.Tx(buf[:n], nil); err != nil {
			return err
		}
		count -= n
	}
	return nil
}

// waitUntilIdle blocks until the busy line reports ready, polling every
// pollInterval. busyLow selects the line's polarity: when true the panel
// holds the line low while working. Without a timeout a stuck line blocks
// forever.
func (t *transport) waitUntilIdle(busyLow bool) error {
	busyLevel := gpio.High
	if busyLow {
		busyLevel = gpio.Low
	}
	var deadline time.Time
	if t.timeout > 0 {
		deadline = time.Now().Add(t.timeout)
	}
	for t.busy.Read() == busyLevel {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrBusyTimeout
		}
		time.Sleep(t.pollInterval)
	}
	return nil
}
