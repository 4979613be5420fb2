package texture

import (
	"bytes"
	"errors"
	"testing"
)

// bgra はテスト用のピクセル値
type bgra [4]byte

func pixelAt(pix []byte, width, x, y int) bgra {
	p := (y*width + x) * 4
	return bgra{pix[p], pix[p+1], pix[p+2], pix[p+3]}
}

// colorBlock は c0=赤 (0xF800)、c1=青 (0x001F)、各行のインデックスが 0,1,2,3 のカラー部分
var colorBlock = []byte{
	0x00, 0xF8, // c0
	0x1F, 0x00, // c1
	0xE4, 0xE4, 0xE4, 0xE4, // 0b11_10_01_00
}

// 4色モードの期待値 (B, G, R)
var wantColors = [4][3]byte{
	{0, 0, 255},
	{255, 0, 0},
	{85, 0, 170},
	{170, 0, 85},
}

func TestDecodeDXT3_Block(t *testing.T) {
	block := append(bytes.Repeat([]byte{0xF0}, 8), colorBlock...)
	pix := DecodeDXT3(block, 4, 4)
	if len(pix) != 64 {
		t.Fatalf("len = %d, want 64", len(pix))
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			var a byte
			if x%2 == 1 {
				a = 0xFF
			}
			c := wantColors[x]
			want := bgra{c[0], c[1], c[2], a}
			if got := pixelAt(pix, 4, x, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDecodeDXT5_Block(t *testing.T) {
	// a0=255, a1=0 の7段階補間、テクセル t のインデックスは t%8
	alpha := []byte{255, 0, 0x88, 0xC6, 0xFA, 0x88, 0xC6, 0xFA}
	block := append(append([]byte{}, alpha...), colorBlock...)
	pix := DecodeDXT5(block, 4, 4)

	wantAlpha := []byte{255, 0, 219, 182, 146, 109, 73, 36}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := wantColors[x]
			want := bgra{c[0], c[1], c[2], wantAlpha[(y*4+x)%8]}
			if got := pixelAt(pix, 4, x, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestAlphaTableDXT5(t *testing.T) {
	tests := []struct {
		name   string
		a0, a1 byte
		want   [8]byte
	}{
		{
			name: "7段階補間",
			a0:   255, a1: 0,
			want: [8]byte{255, 0, 219, 182, 146, 109, 73, 36},
		},
		{
			name: "5段階補間と0/255",
			a0:   0, a1: 255,
			want: [8]byte{0, 255, 51, 102, 153, 204, 0, 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var table [8]byte
			alphaTableDXT5(&table, tt.a0, tt.a1)
			if table != tt.want {
				t.Errorf("alphaTableDXT5(%d, %d) = %v, want %v", tt.a0, tt.a1, table, tt.want)
			}
		})
	}
}

func TestExpandColorTable_ThreeColor(t *testing.T) {
	// c0 <= c1 の場合は中間色と黒
	var colors [4]rgb
	expandColorTable(&colors, 0x001F, 0xF800)
	want := [4]rgb{
		{r: 0, g: 0, b: 255},
		{r: 255, g: 0, b: 0},
		{r: 127, g: 0, b: 127},
		{},
	}
	if colors != want {
		t.Errorf("expandColorTable = %v, want %v", colors, want)
	}
}

func TestDecodeDXT_ShortData(t *testing.T) {
	// データが不足していてもパニックせず、残りは0になる
	pix := DecodeDXT5(make([]byte, 16), 8, 8)
	if len(pix) != 8*8*4 {
		t.Fatalf("len = %d, want %d", len(pix), 8*8*4)
	}
	if !bytes.Equal(pix[4*4*4*2:], make([]byte, len(pix)-4*4*4*2)) {
		t.Error("不足部分が0ではない")
	}
}

func TestDecodeBGRA4444(t *testing.T) {
	raw := []byte{0x21, 0x43}
	got := DecodeBGRA4444(raw, 1, 1)
	want := []byte{0x11, 0x22, 0x33, 0x44}
	if !bytes.Equal(got, want) {
		t.Errorf("DecodeBGRA4444 = % X, want % X", got, want)
	}
}

func TestExpandTiled565(t *testing.T) {
	raw := []byte{0x34, 0x12, 0x78, 0x56}
	out := ExpandTiled565(raw, 32, 16)
	if len(out) != 32*16*2 {
		t.Fatalf("len = %d, want %d", len(out), 32*16*2)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			p := (y*32 + x) * 2
			want := raw[0:2]
			if x >= 16 {
				want = raw[2:4]
			}
			if out[p] != want[0] || out[p+1] != want[1] {
				t.Fatalf("(%d,%d) = % X, want % X", x, y, out[p:p+2], want)
			}
		}
	}
}

func TestSixteenBitToBGRA(t *testing.T) {
	tests := []struct {
		name string
		fn   func([]byte, int, int) []byte
		raw  []byte
		want []byte
	}{
		{name: "RGB565 白", fn: RGB565ToBGRA, raw: []byte{0xFF, 0xFF}, want: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "RGB565 赤", fn: RGB565ToBGRA, raw: []byte{0x00, 0xF8}, want: []byte{0x00, 0x00, 0xFF, 0xFF}},
		{name: "ARGB1555 不透明な緑", fn: ARGB1555ToBGRA, raw: []byte{0xE0, 0x83}, want: []byte{0x00, 0xFF, 0x00, 0xFF}},
		{name: "ARGB1555 透明な青", fn: ARGB1555ToBGRA, raw: []byte{0x1F, 0x00}, want: []byte{0xFF, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.raw, 1, 1)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got % X, want % X", got, tt.want)
			}
		})
	}
}

func TestInflatedSize(t *testing.T) {
	tests := []struct {
		format Format
		want   int
	}{
		{FormatBGRA4444, 32 * 32 * 2},
		{FormatBGRA8888, 32 * 32 * 4},
		{FormatDXT3Gray, 32 * 32 * 4},
		{FormatARGB1555, 32 * 32 * 2},
		{FormatRGB565, 32 * 32 * 2},
		{FormatRGB565x16, 32 * 32 / 128},
		{FormatDXT3, 32 * 32 * 4},
		{FormatDXT5, 32 * 32},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			got, err := InflatedSize(tt.format, 32, 32)
			if err != nil {
				t.Fatalf("InflatedSize error = %v", err)
			}
			if got != tt.want {
				t.Errorf("InflatedSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecode_Unsupported(t *testing.T) {
	if _, err := InflatedSize(9999, 4, 4); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("InflatedSize(9999) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Decode(9999, nil, 4, 4); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Decode(9999) error = %v, want ErrUnsupportedFormat", err)
	}
	if Format(9999).Supported() {
		t.Error("Supported() = true for 9999")
	}
}

func TestDecode_BGRA8888(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := Decode(FormatBGRA8888, raw, 2, 1)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decode = %v, want %v", got, raw)
	}
}
