package epd1in54v3

// Color is a pixel color on the monochrome panel.
//
// The zero value is White, the panel's default background.
type Color int

// Possible pixel colors.
const (
	White Color = iota
	Black
)

// byteValue returns the byte used to flood a RAM region with the color,
// eight pixels per byte.
func (c Color) byteValue() byte {
	if c == Black {
		return 0x00
	}
	return 0xFF
}

func (c Color) String() string {
	if c == Black {
		return "Black"
	}
	return "White"
}
