// Package epd1in54v3 controls the Waveshare 1.54" v3 e-paper display via SPI.
//
// The panel is a 200x200 monochrome GDEW0154M09 module driven by a JD79653
// controller. The controller keeps two frame planes in RAM (the previous and
// the next frame) and computes the refresh waveform from their difference
// using lookup tables baked into its firmware.
//
// # Display Characteristics
//
//   - 200x200 pixels, 1 bit per pixel (black/white)
//   - Full refresh only; the panel flickers while refreshing, which is what
//     clears ghosting from the previous image
//   - Partial RAM updates with 8-pixel horizontal granularity
//   - Deep sleep mode; the panel must be re-initialized after waking
//
// # Hardware Connection
//
// Connect the panel to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK)
//	DIN         → SPI Data (MOSI)
//	CS          → SPI Chip Select
//	DC          → GPIO (any available pin)
//	RST         → GPIO (any available pin)
//	BUSY        → GPIO (any available pin)
//
// # Basic Usage
//
//	package main
//
//	import (
//		"github.com/green-s/epd1in54v3"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//
//		// Control pins
//		dc := gpioreg.ByName("GPIO25")
//		rst := gpioreg.ByName("GPIO17")
//		busy := gpioreg.ByName("GPIO24")
//
//		// Create device; this resets and initializes the panel
//		dev, _ := epd1in54v3.NewSPI(spiBus, dc, rst, busy, nil)
//
//		// Display a frame: 5000 bytes, 1 bit per pixel, MSB first
//		frame := make([]byte, 5000)
//		for i := range frame {
//			frame[i] = 0xFF // all white
//		}
//		dev.UpdateAndDisplayFrame(frame)
//
//		// Always sleep the panel when done; leaving it powered
//		// damages it over time
//		dev.Sleep()
//	}
//
// # Update Protocol
//
// Every update streams two planes into controller RAM: the assumed previous
// frame ("old data") and the next frame ("new data"). This driver does not
// track what was displayed before, so it floods the old-data plane with the
// configured background color. Set the background color to match what is
// actually on screen for best refresh quality.
//
// UpdateFrame and UpdatePartialFrame only fill RAM; nothing becomes visible
// until DisplayFrame triggers a refresh. UpdateAndDisplayFrame combines the
// two. The Draw and Write methods (the display.Drawer and raw full-frame
// paths) update and refresh in one call.
//
// # Sleep and Wake
//
// Sleep powers the panel off and enters deep sleep. Afterwards every display
// operation returns ErrDeepSleep until Wake re-runs the initialization
// sequence. Wake is equivalent to Init on a freshly constructed device.
//
// # Busy Line
//
// The panel holds its BUSY line low while it is working. All operations
// block on it; by default they block indefinitely, matching the vendor
// reference drivers. Set Opts.BusyTimeout to bound the wait, in which case a
// stuck panel surfaces as ErrBusyTimeout instead of a hang.
//
// # Datasheet
//
// https://www.good-display.com/product/210.html
//
// # Compatibility with periph.io
//
// The driver implements the display.Drawer and conn.Resource interfaces
// from periph.io and can be used with any tool expecting either.
package epd1in54v3
