package epd1in54v3

import "testing"

func TestColorByteValue(t *testing.T) {
	if got := White.byteValue(); got != 0xFF {
		t.Errorf("White.byteValue() = 0x%02X, want 0xFF", got)
	}
	if got := Black.byteValue(); got != 0x00 {
		t.Errorf("Black.byteValue() = 0x%02X, want 0x00", got)
	}
}

func TestColorZeroValue(t *testing.T) {
	// The zero value must be the panel's default background.
	var c Color
	if c != White {
		t.Errorf("zero Color = %v, want White", c)
	}
}

func TestColorString(t *testing.T) {
	if White.String() != "White" || Black.String() != "Black" {
		t.Error("Color.String() mismatch")
	}
}
