package protocol

// Image rows travel two pixels per byte, low nibble first. Levels above 15
// cannot be expressed and are cut to their low nibble.

// PackedLen returns the number of bytes needed for width pixels
func PackedLen(width int) int {
	return (width + 1) / 2
}

// PackLevels appends the nibble-packed form of levels to dst
func PackLevels(dst []byte, levels []uint8) []byte {
	for i := 0; i < len(levels); i += 2 {
		b := levels[i] & 0x0F
		if i+1 < len(levels) {
			b |= (levels[i+1] & 0x0F) << 4
		}
		dst = append(dst, b)
	}
	return dst
}

// UnpackLevels fills levels from packed data. Pixels beyond the end of data
// are set to zero. It returns the number of pixels taken from data.
func UnpackLevels(levels []uint8, data []byte) int {
	n := 0
	for i := range levels {
		if i/2 >= len(data) {
			levels[i] = 0
			continue
		}
		b := data[i/2]
		if i%2 == 0 {
			levels[i] = b & 0x0F
		} else {
			levels[i] = b >> 4
		}
		n++
	}
	return n
}
