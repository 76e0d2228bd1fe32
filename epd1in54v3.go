package epd1in54v3

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel geometry. The GDEW0154M09 exists in a single size.
const (
	width  = 200
	height = 200
)

// frameLen is the packed size of a full frame, one bit per pixel, row major,
// MSB first.
const frameLen = width / 8 * height

// Fixed protocol timings. The tuning values come from the vendor sample
// code; the discharge settle was found empirically and is not in the
// datasheet.
const (
	resetHold       = 10 * time.Millisecond
	resetRecovery   = 10 * time.Millisecond
	powerOnSettle   = 100 * time.Millisecond
	refreshSettle   = 10 * time.Millisecond // datasheet floor is 200µs
	dischargeSettle = 1000 * time.Millisecond
)

// The panel holds the busy line low while it is working.
const isBusyLow = true

// ErrDeepSleep is returned by display operations after Sleep or Halt; call
// Wake to re-initialize the panel first.
var ErrDeepSleep = errors.New("epd1in54v3: panel is in deep sleep, call Wake")

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	BackgroundColor:  White,
	Frequency:        4 * physic.MegaHertz,
	BusyPollInterval: time.Millisecond,
}

// Opts is the configuration for the panel.
type Opts struct {
	// BackgroundColor is the assumed content of the previous frame. The
	// driver does not track what was displayed before; update operations
	// flood the controller's old-data plane with this color instead.
	BackgroundColor Color

	// Frequency is the SPI clock. Defaults to 4MHz, the speed used by the
	// vendor HAT configuration.
	Frequency physic.Frequency

	// BusyPollInterval is the sleep between busy line reads. Defaults to
	// 1ms.
	BusyPollInterval time.Duration

	// BusyTimeout bounds every busy line wait; expiry surfaces as
	// ErrBusyTimeout. Zero keeps the panel's reference behavior of
	// blocking until it reports ready.
	BusyTimeout time.Duration
}

// Dev is the device handle for the panel.
type Dev struct {
	t     transport
	color Color

	// next is lazy initialized on first Draw. Write and UpdateFrame skip it.
	next *image1bit.VerticalLSB

	sleeping bool
}

// NewSPI creates a panel device connected via SPI and runs the power-on
// initialization sequence.
//
// The SPI port is configured for Mode0, 8-bit transfers. dc and rst must be
// output-capable pins; busy is the panel's status output. opts can be nil
// to use DefaultOpts.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	freq := opts.Frequency
	if freq == 0 {
		freq = DefaultOpts.Frequency
	}
	poll := opts.BusyPollInterval
	if poll == 0 {
		poll = DefaultOpts.BusyPollInterval
	}

	if err := dc.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("epd1in54v3: failed to configure dc pin: %w", err)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd1in54v3: failed to configure busy pin: %w", err)
	}
	c, err := p.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	d := &Dev{
		t: transport{
			c:            c,
			dc:           dc,
			rst:          rst,
			busy:         busy,
			pollInterval: poll,
			timeout:      opts.BusyTimeout,
		},
		color: opts.BackgroundColor,
	}
	if err := d.Init(); err != nil {
		return nil, fmt.Errorf("epd1in54v3: init failed: %w", err)
	}
	return d, nil
}

// Init resets the panel and runs the power-on sequence. NewSPI calls it
// once; call it again (or Wake) after Sleep.
func (d *Dev) Init() error {
	if err := d.t.reset(resetHold, resetRecovery); err != nil {
		return err
	}

	if err := d.t.sendCommandWithData(panelSetting, []byte{0xDF, 0x0E}); err != nil {
		return err
	}

	// Opaque calibration constants from the vendor sample. Values and
	// order are load bearing.
	tuning := []struct{ cmd, value byte }{
		{internalTuning4D, 0x55},
		{internalTuningAA, 0x0F},
		{internalTuningE9, 0x02},
		{internalTuningB6, 0x11},
		{internalTuningF3, 0x0A},
	}
	for _, s := range tuning {
		if err := d.t.sendCommandWithData(s.cmd, []byte{s.value}); err != nil {
			return err
		}
	}

	if err := d.t.sendCommandWithData(resolutionSetting, []byte{0xC8, 0x00, 0xC8}); err != nil {
		return err
	}
	if err := d.t.sendCommandWithData(tconSetting, []byte{0x00}); err != nil {
		return err
	}
	if err := d.t.sendCommandWithData(vcomAndDataIntervalSetting, []byte{0x97}); err != nil {
		return err
	}
	if err := d.t.sendCommandWithData(internalTuningE3, []byte{0x00}); err != nil {
		return err
	}

	if err := d.t.sendCommand(powerOn); err != nil {
		return err
	}
	time.Sleep(powerOnSettle)
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	d.sleeping = false
	return nil
}

// SetBackgroundColor sets the color assumed for the previous frame by
// subsequent update operations. No bus activity.
func (d *Dev) SetBackgroundColor(c Color) {
	d.color = c
}

// BackgroundColor returns the current background color.
func (d *Dev) BackgroundColor() Color {
	return d.color
}

// Width returns the panel width in pixels.
func (d *Dev) Width() int {
	return width
}

// Height returns the panel height in pixels.
func (d *Dev) Height() int {
	return height
}

// UpdateFrame streams a full frame into the controller RAM without
// refreshing the screen. buffer must be exactly 5000 bytes: 200x200 pixels,
// one bit each, row major, MSB first. Call DisplayFrame to make the frame
// visible.
func (d *Dev) UpdateFrame(buffer []byte) error {
	if d.sleeping {
		return ErrDeepSleep
	}
	if len(buffer) != frameLen {
		return fmt.Errorf("epd1in54v3: invalid buffer size %d, want %d", len(buffer), frameLen)
	}
	if err := d.useFullFrame(); err != nil {
		return err
	}
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}

	// Old-data plane: the driver does not track the previous frame, so it
	// substitutes a uniform background flood as the assumed prior state.
	if err := d.t.sendCommand(dataStartTransmission1); err != nil {
		return err
	}
	if err := d.t.sendRepeatedByte(d.color.byteValue(), frameLen); err != nil {
		return err
	}

	// New-data plane.
	return d.t.sendCommandWithData(dataStartTransmission2, buffer)
}

// UpdatePartialFrame streams buffer into the rectangular RAM region
// [x, x+w) x [y, y+h) without refreshing the screen. buffer must hold
// ceil(w/8)*h bytes. The controller addresses X in byte units, so x and w
// are effectively truncated to 8-pixel granularity.
func (d *Dev) UpdatePartialFrame(buffer []byte, x, y, w, h int) error {
	if d.sleeping {
		return ErrDeepSleep
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > width || y+h > height {
		return fmt.Errorf("epd1in54v3: region (%d,%d)+%dx%d outside %dx%d panel", x, y, w, h, width, height)
	}
	if n := (w + 7) / 8 * h; len(buffer) != n {
		return fmt.Errorf("epd1in54v3: invalid buffer size %d for %dx%d region, want %d", len(buffer), w, h, n)
	}

	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	if err := d.setRAMArea(x, y, x+w, y+h); err != nil {
		return err
	}
	if err := d.setRAMCounter(x, y); err != nil {
		return err
	}

	if err := d.t.sendCommand(dataStartTransmission1); err != nil {
		return err
	}
	if err := d.t.sendRepeatedByte(d.color.byteValue(), uint(w/8*h)); err != nil {
		return err
	}
	return d.t.sendCommandWithData(dataStartTransmission2, buffer)
}

// DisplayFrame refreshes the screen from the controller RAM. The panel
// flickers during a full refresh; that is how it clears ghosting.
func (d *Dev) DisplayFrame() error {
	if d.sleeping {
		return ErrDeepSleep
	}
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	if err := d.t.sendCommand(displayRefresh); err != nil {
		return err
	}
	time.Sleep(refreshSettle)
	return d.t.waitUntilIdle(isBusyLow)
}

// UpdateAndDisplayFrame is UpdateFrame followed by DisplayFrame.
func (d *Dev) UpdateAndDisplayFrame(buffer []byte) error {
	if err := d.UpdateFrame(buffer); err != nil {
		return err
	}
	return d.DisplayFrame()
}

// ClearFrame clears the screen following the vendor clean procedure: 0x00
// into the old-data plane, the background color into the new-data plane,
// then a refresh. The vendor sample is ambiguous about whether the two
// flood values should be swapped; this keeps its order verbatim.
func (d *Dev) ClearFrame() error {
	if d.sleeping {
		return ErrDeepSleep
	}
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	if err := d.useFullFrame(); err != nil {
		return err
	}

	if err := d.t.sendCommand(dataStartTransmission1); err != nil {
		return err
	}
	if err := d.t.sendRepeatedByte(0x00, frameLen); err != nil {
		return err
	}
	if err := d.t.sendCommand(dataStartTransmission2); err != nil {
		return err
	}
	if err := d.t.sendRepeatedByte(d.color.byteValue(), frameLen); err != nil {
		return err
	}
	return d.DisplayFrame()
}

// SetLUT is a no-op: this panel revision only uses the waveform tables in
// its controller firmware. It is kept so the driver presents the same
// surface as panel variants that accept LUT downloads.
func (d *Dev) SetLUT(lut []byte) error {
	return nil
}

// Sleep powers the panel down and puts the controller into deep sleep.
// Leaving the panel powered without entering sleep damages it over time.
// Only Wake (or Init) is valid afterwards.
func (d *Dev) Sleep() error {
	if err := d.t.sendCommand(powerOff); err != nil {
		return err
	}
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	time.Sleep(dischargeSettle)
	if err := d.t.sendCommandWithData(deepSleep, []byte{deepSleepCheck}); err != nil {
		return err
	}
	d.sleeping = true
	return nil
}

// Wake brings the panel out of deep sleep by re-running the full
// initialization sequence.
func (d *Dev) Wake() error {
	return d.Init()
}

// Write sends a full frame in the panel's packed format and refreshes the
// screen. pixels must be exactly 5000 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != frameLen {
		return 0, errors.New("epd1in54v3: invalid buffer size")
	}
	if err := d.UpdateAndDisplayFrame(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// ColorModel implements display.Drawer. Bit On is white.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, width, height)
}

// Draw implements display.Drawer. It rasterizes src into an internal 1-bit
// buffer, repacks it to the panel's row-major MSB-first layout and performs
// a full update and refresh.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	if d.sleeping {
		return ErrDeepSleep
	}
	dstRect = dstRect.Intersect(d.Bounds())
	if dstRect.Empty() {
		return nil
	}

	if d.next == nil {
		d.next = image1bit.NewVerticalLSB(d.Bounds())
		bg := image1bit.On
		if d.color == Black {
			bg = image1bit.Off
		}
		draw.Draw(d.next, d.next.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	}
	draw.Draw(d.next, dstRect, src, sp, draw.Src)

	buf := make([]byte, frameLen)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if d.next.BitAt(x, y) == image1bit.On {
				buf[y*(width/8)+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return d.UpdateAndDisplayFrame(buf)
}

// Halt implements conn.Resource. It puts the panel into deep sleep.
func (d *Dev) Halt() error {
	return d.Sleep()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("epd1in54v3.Dev{%dx%d}", width, height)
}

// useFullFrame selects the whole panel as the addressable window and moves
// the write counter back to the origin.
func (d *Dev) useFullFrame() error {
	if err := d.setRAMArea(0, 0, width-1, height-1); err != nil {
		return err
	}
	return d.setRAMCounter(0, 0)
}

// setRAMArea programs the addressable window. X coordinates are sent in
// byte units (the low 3 bits are discarded); Y is pixel granular, sent as a
// little-endian 9-bit pair. The start/end ordering is a caller contract:
// violating it panics before anything reaches the bus.
//
// The controller ignores addressing commands while busy, so the window is
// only programmed once the panel reports ready.
func (d *Dev) setRAMArea(startX, startY, endX, endY int) error {
	if startX >= endX || startY >= endY {
		panic(fmt.Sprintf("epd1in54v3: invalid RAM window (%d,%d)-(%d,%d)", startX, startY, endX, endY))
	}
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	if err := d.t.sendCommandWithData(setRAMXAddressStartEndPosition, []byte{
		byte(startX >> 3),
		byte(endX >> 3),
	}); err != nil {
		return err
	}
	return d.t.sendCommandWithData(setRAMYAddressStartEndPosition, []byte{
		byte(startY),
		byte(startY >> 8),
		byte(endY),
		byte(endY >> 8),
	})
}

// setRAMCounter moves the RAM write counter to (x, y), with the same
// byte/pixel granularity rules as setRAMArea.
func (d *Dev) setRAMCounter(x, y int) error {
	if err := d.t.waitUntilIdle(isBusyLow); err != nil {
		return err
	}
	if err := d.t.sendCommandWithData(setRAMXAddressCounter, []byte{byte(x >> 3)}); err != nil {
		return err
	}
	return d.t.sendCommandWithData(setRAMYAddressCounter, []byte{byte(y), byte(y >> 8)})
}

var _ display.Drawer = &Dev{}
var _ conn.Resource = &Dev{}
