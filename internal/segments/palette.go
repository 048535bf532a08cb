package segments

// Color is a "#rrggbb" hex color
type Color string

// Palette is the fixed set of segment overlay colors
var Palette = [8]Color{
	"#e6194b",
	"#3cb44b",
	"#4363d8",
	"#f58231",
	"#911eb4",
	"#42d4f4",
	"#f032e6",
	"#bfef45",
}

// ColorFor maps a segment index onto the palette. Colors follow the index,
// so a segment may change color after a removal renumbers the list.
func ColorFor(index int) Color {
	n := len(Palette)
	return Palette[((index%n)+n)%n]
}

// Hex returns the color without the leading '#'
func (c Color) Hex() string {
	if len(c) > 0 && c[0] == '#' {
		return string(c[1:])
	}
	return string(c)
}
