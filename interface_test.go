package epd1in54v3

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newTestTransport(busyLevel gpio.Level) (*transport, *conntest.Record) {
	rec := &conntest.Record{}
	return &transport{
		c:            rec,
		dc:           &gpiotest.Pin{N: "DC"},
		rst:          &gpiotest.Pin{N: "RST"},
		busy:         &gpiotest.Pin{N: "BUSY", L: busyLevel},
		pollInterval: time.Microsecond,
	}, rec
}

func TestSendCommand(t *testing.T) {
	tr, rec := newTestTransport(gpio.High)
	if err := tr.sendCommand(displayRefresh); err != nil {
		t.Fatal(err)
	}
	if len(rec.Ops) != 1 || !bytes.Equal(rec.Ops[0].W, []byte{0x12}) {
		t.Errorf("ops = %v, want single [0x12] write", rec.Ops)
	}
	if tr.dc.(*gpiotest.Pin).Read() != gpio.Low {
		t.Error("dc must be left in command framing after sendCommand")
	}
}

func TestSendCommandWithDataFraming(t *testing.T) {
	tr, rec := newTestTransport(gpio.High)
	if err := tr.sendCommandWithData(resolutionSetting, []byte{0xC8, 0x00, 0xC8}); err != nil {
		t.Fatal(err)
	}
	// The opcode and the payload must be two distinct transmissions; the
	// controller latches the framing per transfer.
	if len(rec.Ops) != 2 {
		t.Fatalf("got %d transactions, want 2 (command, then payload)", len(rec.Ops))
	}
	if !bytes.Equal(rec.Ops[0].W, []byte{0x61}) {
		t.Errorf("command transaction = %#v", rec.Ops[0].W)
	}
	if !bytes.Equal(rec.Ops[1].W, []byte{0xC8, 0x00, 0xC8}) {
		t.Errorf("payload transaction = %#v", rec.Ops[1].W)
	}
	if tr.dc.(*gpiotest.Pin).Read() != gpio.High {
		t.Error("dc must be left in data framing after payload")
	}
}

func TestSendDataChunks(t *testing.T) {
	tr, rec := newTestTransport(gpio.High)
	data := make([]byte, frameLen)
	for i := range data {
		data[i] = byte(i)
	}
	if err := tr.sendData(data); err != nil {
		t.Fatal(err)
	}
	if len(rec.Ops) != 2 {
		t.Fatalf("got %d transactions, want 2", len(rec.Ops))
	}
	if len(rec.Ops[0].W) != maxTxSize || len(rec.Ops[1].W) != frameLen-maxTxSize {
		t.Errorf("chunk sizes = %d, %d", len(rec.Ops[0].W), len(rec.Ops[1].W))
	}
	var got []byte
	got = append(got, rec.Ops[0].W...)
	got = append(got, rec.Ops[1].W...)
	if !bytes.Equal(got, data) {
		t.Error("chunked payload does not reassemble to the input")
	}
}

func TestSendRepeatedByte(t *testing.T) {
	tests := []struct {
		name       string
		value      byte
		count      uint
		wantChunks []int
	}{
		{"zero count is a no-op", 0xFF, 0, nil},
		{"small run", 0xAA, 3, []int{3}},
		{"exact chunk", 0x00, maxTxSize, []int{maxTxSize}},
		{"full frame", 0xFF, frameLen, []int{maxTxSize, frameLen - maxTxSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, rec := newTestTransport(gpio.High)
			if err := tr.sendRepeatedByte(tt.value, tt.count); err != nil {
				t.Fatal(err)
			}
			if len(rec.Ops) != len(tt.wantChunks) {
				t.Fatalf("got %d transactions, want %d", len(rec.Ops), len(tt.wantChunks))
			}
			for i, op := range rec.Ops {
				if len(op.W) != tt.wantChunks[i] {
					t.Errorf("chunk %d size = %d, want %d", i, len(op.W), tt.wantChunks[i])
				}
				for _, b := range op.W {
					if b != tt.value {
						t.Fatalf("chunk %d contains 0x%02X, want 0x%02X", i, b, tt.value)
					}
				}
			}
		})
	}
}

func TestWaitUntilIdleReady(t *testing.T) {
	// Busy is active low on this panel: a high line means ready.
	tr, _ := newTestTransport(gpio.High)
	if err := tr.waitUntilIdle(true); err != nil {
		t.Fatal(err)
	}
}

func TestWaitUntilIdleTimeout(t *testing.T) {
	tr, _ := newTestTransport(gpio.Low)
	tr.timeout = 2 * time.Millisecond
	if err := tr.waitUntilIdle(true); !errors.Is(err, ErrBusyTimeout) {
		t.Errorf("err = %v, want ErrBusyTimeout", err)
	}
}

func TestWaitUntilIdlePolarity(t *testing.T) {
	// With an active-high busy line the same high level means busy.
	tr, _ := newTestTransport(gpio.High)
	tr.timeout = 2 * time.Millisecond
	if err := tr.waitUntilIdle(false); !errors.Is(err, ErrBusyTimeout) {
		t.Errorf("err = %v, want ErrBusyTimeout", err)
	}

	tr, _ = newTestTransport(gpio.Low)
	if err := tr.waitUntilIdle(false); err != nil {
		t.Fatal(err)
	}
}

func TestReset(t *testing.T) {
	tr, rec := newTestTransport(gpio.High)
	if err := tr.reset(time.Millisecond, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if tr.rst.(*gpiotest.Pin).Read() != gpio.High {
		t.Error("rst must be released after reset")
	}
	if len(rec.Ops) != 0 {
		t.Errorf("reset emitted %d bus transactions, want none", len(rec.Ops))
	}
}
