package chipvm

const (
	ScreenWidth  = 64
	ScreenHeight = 32

	// PackedScreenSize is the size of the screen with 8 cells per byte
	PackedScreenSize = ScreenWidth * ScreenHeight / 8
)

// Screen is the monochrome display, one cell per pixel in row-major order.
// Cells only hold 0 or 1.
type Screen [ScreenWidth * ScreenHeight]byte

func (s *Screen) Clear() {
	*s = Screen{}
}

// Pixel returns the cell at x, y. Coordinates wrap around the screen.
func (s Screen) Pixel(x, y int) byte {
	return s[cellIndex(x, y)]
}

func cellIndex(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}

	return y*ScreenWidth + x
}

// DrawSprite XORs the sprite rows onto the screen at x, y.
// Rows are drawn MSB first and every cell wraps around the edges independently.
// Returns whether a lit pixel was switched off.
func (s *Screen) DrawSprite(x, y byte, rows []byte) bool {
	originX := int(x) % ScreenWidth
	originY := int(y) % ScreenHeight

	collision := false
	for row, sprite := range rows {
		for bit := 0; bit < 8; bit++ {
			pixel := (sprite >> (7 - bit)) & 0b1
			if pixel == 0 {
				continue
			}

			t := cellIndex(originX+bit, originY+row)
			if s[t] == 1 {
				collision = true
			}
			s[t] ^= pixel
		}
	}

	return collision
}

// Packed returns the screen with 8 cells per byte, MSB first
func (s Screen) Packed() []byte {
	buf := make([]byte, PackedScreenSize)
	for i, c := range s {
		buf[i/8] |= c << (7 - i%8)
	}

	return buf
}

// Unpack expands a packed screen into cells
func Unpack(packed []byte) Screen {
	s := Screen{}
	for i := range s {
		if i/8 >= len(packed) {
			break
		}
		s[i] = (packed[i/8] >> (7 - i%8)) & 0b1
	}

	return s
}
