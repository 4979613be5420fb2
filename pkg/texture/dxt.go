package texture

import "encoding/binary"

// rgb は8ビット/チャネルの色です
type rgb struct {
	r, g, b byte
}

// DecodeDXT3 は DXT3 ブロック圧縮データを BGRA に展開します。
// 各4×4ブロックは 8バイトのアルファ + 8バイトのカラーで構成されます。
func DecodeDXT3(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	var colors [4]rgb
	var alpha [16]byte
	blocksX := (width + 3) / 4

	for y := 0; y < height; y += 4 {
		for x := 0; x < width; x += 4 {
			off := ((y/4)*blocksX + x/4) * 16
			if off+16 > len(raw) {
				return out
			}
			expandAlphaDXT3(&alpha, raw[off:off+8])
			expandColorTable(&colors, binary.LittleEndian.Uint16(raw[off+8:]), binary.LittleEndian.Uint16(raw[off+10:]))
			writeBlock(out, width, height, x, y, &colors, raw[off+12:off+16], &alpha)
		}
	}
	return out
}

// DecodeDXT5 は DXT5 ブロック圧縮データを BGRA に展開します。
// アルファは2つの端点と48ビットのインデックスで表されます。
func DecodeDXT5(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	var colors [4]rgb
	var table [8]byte
	var alpha [16]byte
	blocksX := (width + 3) / 4

	for y := 0; y < height; y += 4 {
		for x := 0; x < width; x += 4 {
			off := ((y/4)*blocksX + x/4) * 16
			if off+16 > len(raw) {
				return out
			}
			alphaTableDXT5(&table, raw[off], raw[off+1])
			alphaIndicesDXT5(&alpha, raw[off+2:off+8])
			for i := range alpha {
				alpha[i] = table[alpha[i]]
			}
			expandColorTable(&colors, binary.LittleEndian.Uint16(raw[off+8:]), binary.LittleEndian.Uint16(raw[off+10:]))
			writeBlock(out, width, height, x, y, &colors, raw[off+12:off+16], &alpha)
		}
	}
	return out
}

// writeBlock は4×4ブロックの各テクセルを書き込みます。
// インデックスは1行1バイト、1テクセル2ビット（下位ビットから）です。
func writeBlock(out []byte, width, height, x, y int, colors *[4]rgb, indices []byte, alpha *[16]byte) {
	for j := 0; j < 4; j++ {
		py := y + j
		if py >= height {
			return
		}
		row := indices[j]
		for i := 0; i < 4; i++ {
			px := x + i
			if px >= width {
				break
			}
			c := colors[(row>>(2*i))&0x03]
			p := (py*width + px) * 4
			out[p] = c.b
			out[p+1] = c.g
			out[p+2] = c.r
			out[p+3] = alpha[j*4+i]
		}
	}
}

// rgb565 は16ビットの RGB565 値を8ビット/チャネルに展開します
func rgb565(v uint16) rgb {
	r := byte((v >> 11) & 0x1F)
	g := byte((v >> 5) & 0x3F)
	b := byte(v & 0x1F)
	return rgb{
		r: r<<3 | r>>2,
		g: g<<2 | g>>4,
		b: b<<3 | b>>2,
	}
}

// expandColorTable は2つの端点から4色のカラーテーブルを作成します
func expandColorTable(colors *[4]rgb, c0, c1 uint16) {
	a := rgb565(c0)
	b := rgb565(c1)
	colors[0] = a
	colors[1] = b
	if c0 > c1 {
		colors[2] = rgb{
			r: byte((2*int(a.r) + int(b.r) + 1) / 3),
			g: byte((2*int(a.g) + int(b.g) + 1) / 3),
			b: byte((2*int(a.b) + int(b.b) + 1) / 3),
		}
		colors[3] = rgb{
			r: byte((int(a.r) + 2*int(b.r) + 1) / 3),
			g: byte((int(a.g) + 2*int(b.g) + 1) / 3),
			b: byte((int(a.b) + 2*int(b.b) + 1) / 3),
		}
		return
	}
	colors[2] = rgb{
		r: byte((int(a.r) + int(b.r)) / 2),
		g: byte((int(a.g) + int(b.g)) / 2),
		b: byte((int(a.b) + int(b.b)) / 2),
	}
	colors[3] = rgb{}
}

// expandAlphaDXT3 は64ビットのアルファ（1テクセル4ビット、下位ニブルが先）を展開します
func expandAlphaDXT3(alpha *[16]byte, raw []byte) {
	for i := 0; i < 8; i++ {
		lo := raw[i] & 0x0F
		hi := raw[i] >> 4
		alpha[i*2] = lo | lo<<4
		alpha[i*2+1] = hi | hi<<4
	}
}

// alphaTableDXT5 は DXT5 のアルファ補間テーブルを作成します
func alphaTableDXT5(table *[8]byte, a0, a1 byte) {
	table[0] = a0
	table[1] = a1
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			table[i] = byte(((8-i)*int(a0) + (i-1)*int(a1) + 3) / 7)
		}
		return
	}
	for i := 2; i < 6; i++ {
		table[i] = byte(((6-i)*int(a0) + (i-1)*int(a1) + 2) / 5)
	}
	table[6] = 0
	table[7] = 255
}

// alphaIndicesDXT5 は48ビットのアルファインデックスを展開します。
// 3バイトずつ24ビットを8つの3ビット値として読みます。
func alphaIndicesDXT5(indices *[16]byte, raw []byte) {
	for i := 0; i < 16; i += 8 {
		base := (i / 8) * 3
		flags := uint32(raw[base]) | uint32(raw[base+1])<<8 | uint32(raw[base+2])<<16
		for j := 0; j < 8; j++ {
			indices[i+j] = byte((flags >> (3 * j)) & 0x07)
		}
	}
}
