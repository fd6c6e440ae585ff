package tray

import "encoding/binary"

const iconSize = 16

// icon draws a 16x16 32-bit ICO: a red tomato with a green stem.
func icon() []byte {
	pixels := make([]byte, iconSize*iconSize*4)
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			// rows are stored bottom-up
			idx := ((iconSize-1-y)*iconSize + x) * 4
			var b, g, r, a byte
			cx, cy := float64(x)-7.5, float64(y)-8.5
			switch {
			case cx*cx+cy*cy < 42:
				b, g, r, a = 0x3C, 0x4C, 0xE7, 0xFF
				if cx*cx+(cy+3)*(cy+3) < 3 {
					b, g, r = 0x71, 0x8F, 0xF1
				}
			case y <= 2 && x >= 6 && x <= 9:
				b, g, r, a = 0x60, 0xAE, 0x27, 0xFF
			}
			pixels[idx], pixels[idx+1], pixels[idx+2], pixels[idx+3] = b, g, r, a
		}
	}
	// AND mask, all opaque, rows padded to 4 bytes
	mask := make([]byte, iconSize*4)

	const headerLen, entryLen, bmpLen = 6, 16, 40
	imageLen := bmpLen + len(pixels) + len(mask)
	out := make([]byte, headerLen+entryLen+bmpLen, headerLen+entryLen+imageLen)
	le := binary.LittleEndian

	le.PutUint16(out[2:], 1) // type: icon
	le.PutUint16(out[4:], 1) // one image

	e := out[headerLen:]
	e[0], e[1] = iconSize, iconSize
	le.PutUint16(e[4:], 1)  // planes
	le.PutUint16(e[6:], 32) // bits per pixel
	le.PutUint32(e[8:], uint32(imageLen))
	le.PutUint32(e[12:], headerLen+entryLen)

	h := out[headerLen+entryLen:]
	le.PutUint32(h[0:], bmpLen)
	le.PutUint32(h[4:], iconSize)
	le.PutUint32(h[8:], iconSize*2) // XOR plus AND mask
	le.PutUint16(h[12:], 1)
	le.PutUint16(h[14:], 32)

	out = append(out, pixels...)
	return append(out, mask...)
}
