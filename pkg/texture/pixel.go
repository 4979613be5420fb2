package texture

import "encoding/binary"

// DecodeBGRA4444 は1チャネル4ビットのデータを8ビットに展開します。
// 各ニブルは複製されて1バイトになります（0xA → 0xAA）。
func DecodeBGRA4444(raw []byte, width, height int) []byte {
	n := width * height * 2
	if len(raw) < n {
		n = len(raw)
	}
	out := make([]byte, width*height*4)
	for i := 0; i < n; i++ {
		lo := raw[i] & 0x0F
		hi := raw[i] & 0xF0
		out[i*2] = lo | lo<<4
		out[i*2+1] = hi | hi>>4
	}
	return out
}

// ExpandTiled565 は16×16ピクセルごとに1サンプルを持つデータを RGB565 の全ピクセルに展開します
func ExpandTiled565(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*2)
	tilesX := width / 16
	tilesY := height / 16
	stride := width * 2

	for ty := 0; ty < tilesY; ty++ {
		line := ty * 16 * stride
		dst := line
		for tx := 0; tx < tilesX; tx++ {
			idx := (tx + ty*tilesX) * 2
			if idx+1 >= len(raw) {
				return out
			}
			b0, b1 := raw[idx], raw[idx+1]
			for k := 0; k < 16; k++ {
				out[dst] = b0
				out[dst+1] = b1
				dst += 2
			}
		}
		// 1行目を残りの15行に複製する
		for k := 1; k < 16; k++ {
			copy(out[line+k*stride:line+(k+1)*stride], out[line:line+stride])
		}
	}
	return out
}

// RGB565ToBGRA は16ビット RGB565 のピクセルを不透明な BGRA に変換します
func RGB565ToBGRA(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	for i := 0; i < width*height && i*2+1 < len(raw); i++ {
		c := rgb565(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i*4] = c.b
		out[i*4+1] = c.g
		out[i*4+2] = c.r
		out[i*4+3] = 0xFF
	}
	return out
}

// ARGB1555ToBGRA は16ビット ARGB1555 のピクセルを BGRA に変換します。
// アルファビットが1なら不透明、0なら透明です。
func ARGB1555ToBGRA(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	for i := 0; i < width*height && i*2+1 < len(raw); i++ {
		v := binary.LittleEndian.Uint16(raw[i*2:])
		r := byte((v >> 10) & 0x1F)
		g := byte((v >> 5) & 0x1F)
		b := byte(v & 0x1F)
		out[i*4] = b<<3 | b>>2
		out[i*4+1] = g<<3 | g>>2
		out[i*4+2] = r<<3 | r>>2
		if v&0x8000 != 0 {
			out[i*4+3] = 0xFF
		}
	}
	return out
}
