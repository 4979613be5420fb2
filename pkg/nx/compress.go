package nx

import (
	"github.com/pierrec/lz4/v4"
)

// Compressor はビットマップのピクセル列を圧縮します。
// 空の結果はビットマップなし（長さ0のエントリ）として扱われます。
// 複数のゴルーチンから同時に呼ばれます。
type Compressor interface {
	Compress(src []byte) []byte
}

// CompressorFunc は関数を Compressor として扱います
type CompressorFunc func(src []byte) []byte

// Compress は f(src) を返します
func (f CompressorFunc) Compress(src []byte) []byte {
	return f(src)
}

// DefaultLevel は LZ4Compressor の既定の圧縮レベルです
const DefaultLevel = lz4.Level9

// LZ4Compressor は LZ4 HC のブロック形式で圧縮します
type LZ4Compressor struct {
	Level lz4.CompressionLevel // 0 の場合は DefaultLevel
}

// Compress は src を LZ4 ブロックに圧縮します。
// 圧縮に失敗した場合は nil を返します。
func (c LZ4Compressor) Compress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	level := c.Level
	if level == 0 {
		level = DefaultLevel
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlockHC(src, dst, level, nil, nil)
	if err != nil || n == 0 {
		return nil
	}
	return dst[:n]
}
