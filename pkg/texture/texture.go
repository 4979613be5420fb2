// Package texture はWZキャンバスのピクセル形式を32ビットBGRAに展開するデコーダを提供します。
//
// 対応する形式コード:
//   - 1: BGRA4444
//   - 2: BGRA8888
//   - 3, 1026: DXT3
//   - 257: ARGB1555
//   - 513: RGB565
//   - 517: RGB565 (16×16 タイル)
//   - 2050: DXT5
package texture

import (
	"errors"
	"fmt"
)

// Format はキャンバスのピクセル形式コードです（format_a + format_b）
type Format int

const (
	FormatBGRA4444  Format = 1
	FormatBGRA8888  Format = 2
	FormatDXT3Gray  Format = 3
	FormatARGB1555  Format = 257
	FormatRGB565    Format = 513
	FormatRGB565x16 Format = 517
	FormatDXT3      Format = 1026
	FormatDXT5      Format = 2050
)

// ErrUnsupportedFormat は未対応のピクセル形式の場合のエラー
var ErrUnsupportedFormat = errors.New("未対応のピクセル形式です")

// String は形式名を返します
func (f Format) String() string {
	switch f {
	case FormatBGRA4444:
		return "BGRA4444"
	case FormatBGRA8888:
		return "BGRA8888"
	case FormatDXT3Gray:
		return "DXT3(3)"
	case FormatARGB1555:
		return "ARGB1555"
	case FormatRGB565:
		return "RGB565"
	case FormatRGB565x16:
		return "RGB565x16"
	case FormatDXT3:
		return "DXT3"
	case FormatDXT5:
		return "DXT5"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Supported は形式コードに対応するデコーダがあるかどうかを返します
func (f Format) Supported() bool {
	_, err := InflatedSize(f, 1, 1)
	return err == nil
}

// InflatedSize は形式と寸法から zlib 展開後のバイト数を返します
func InflatedSize(f Format, width, height int) (int, error) {
	switch f {
	case FormatBGRA4444, FormatARGB1555, FormatRGB565:
		return width * height * 2, nil
	case FormatBGRA8888, FormatDXT3Gray, FormatDXT3:
		return width * height * 4, nil
	case FormatRGB565x16:
		return width * height / 128, nil
	case FormatDXT5:
		return width * height, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
}

// Decode は展開済みデータを幅×高さ×4バイトの BGRA ピクセル列に変換します
func Decode(f Format, raw []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("不正な寸法です: %dx%d", width, height)
	}

	switch f {
	case FormatBGRA4444:
		return DecodeBGRA4444(raw, width, height), nil
	case FormatBGRA8888:
		out := make([]byte, width*height*4)
		copy(out, raw)
		return out, nil
	case FormatDXT3Gray, FormatDXT3:
		return DecodeDXT3(raw, width, height), nil
	case FormatARGB1555:
		return ARGB1555ToBGRA(raw, width, height), nil
	case FormatRGB565:
		return RGB565ToBGRA(raw, width, height), nil
	case FormatRGB565x16:
		return RGB565ToBGRA(ExpandTiled565(raw, width, height), width, height), nil
	case FormatDXT5:
		return DecodeDXT5(raw, width, height), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
}
