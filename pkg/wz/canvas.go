package wz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
	"github.com/shiroemons/go-wz2nx/pkg/texture"
)

const (
	// maxCanvasSide はキャンバスの幅・高さの上限です（NX では uint16 で格納されます）
	maxCanvasSide = 0xFFFF
	// maxCanvasPixels は展開するキャンバスの画素数の上限です
	maxCanvasPixels = 1 << 26
)

// Canvas はキャンバスの画像データです。
// ピクセルは最初に Pixels が呼ばれたときに展開され、Discard まで保持されます。
type Canvas struct {
	Width  int
	Height int
	Format texture.Format

	src    *Reader // nil の場合は data を使用
	offset int64   // 長さフィールドの位置
	data   []byte
	key    *crypto.Keystream
	logger Logger

	mu     sync.Mutex
	loaded bool
	pixels []byte
	err    error
}

// NewCanvas は圧縮済みデータを直接保持するキャンバスを作成します
func NewCanvas(width, height int, format texture.Format, compressed []byte, key *crypto.Keystream) *Canvas {
	if key == nil {
		key = crypto.NewKeystream([4]byte{})
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Format: format,
		data:   compressed,
		key:    key,
	}
}

// Compressed はアーカイブ内の圧縮データを読み込みます
func (c *Canvas) Compressed() ([]byte, error) {
	if c.src == nil {
		return c.data, nil
	}
	var out []byte
	err := c.src.readBlockAt(c.offset, func(r *Reader) error {
		l, err := r.ReadInt32()
		if err != nil {
			return err
		}
		n := int(l) - 1
		if n <= 0 {
			return fmt.Errorf("%w: %d (offset 0x%X)", ErrPayloadLength, n, c.offset)
		}
		if err := r.Skip(1); err != nil {
			return err
		}
		out, err = r.ReadBytes(n)
		return err
	})
	return out, err
}

// Pixels は幅×高さ×4バイトの BGRA ピクセル列を返します。
// 未対応の形式は警告を出力し ErrUnsupportedFormat を返します。
func (c *Canvas) Pixels() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.pixels, c.err
	}
	c.pixels, c.err = c.decode()
	c.loaded = true
	return c.pixels, c.err
}

// decode は圧縮データを読み込み、展開してピクセルに変換します
func (c *Canvas) decode() ([]byte, error) {
	if err := checkCanvasSize(c.Width, c.Height); err != nil {
		return nil, err
	}
	size, err := texture.InflatedSize(c.Format, c.Width, c.Height)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("警告: 未対応のピクセル形式です: %d (%dx%d)\n", int(c.Format), c.Width, c.Height)
		}
		return nil, err
	}
	raw, err := c.Compressed()
	if err != nil {
		return nil, err
	}
	inflated, err := inflate(raw, size, c.key)
	if err != nil {
		return nil, err
	}
	return texture.Decode(c.Format, inflated, c.Width, c.Height)
}

// checkCanvasSize は展開前に寸法を確認します。
// 誤った IV や壊れたデータでは巨大な寸法が読み込まれることがあります。
func checkCanvasSize(width, height int) error {
	if width <= 0 || height <= 0 || width > maxCanvasSide || height > maxCanvasSide ||
		int64(width)*int64(height) > maxCanvasPixels {
		return fmt.Errorf("%w: canvas size %dx%d", ErrPayloadLength, width, height)
	}
	return nil
}

// Discard はキャッシュしたピクセルを破棄します
func (c *Canvas) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.pixels = nil
	c.err = nil
}

// isZlibHeader は先頭2バイトが既知の zlib ヘッダーかどうかを返します
func isZlibHeader(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}
	switch binary.LittleEndian.Uint16(raw) {
	case 0x9C78, 0xDA78, 0x0178, 0x5E78:
		return true
	}
	return false
}

// decryptBlocks は [int32 長さ][データ] のブロック列を鍵ストリームで復号して連結します。
// 鍵ストリームの位置はブロックごとに先頭から数えます。
func decryptBlocks(raw []byte, key *crypto.Keystream) []byte {
	out := make([]byte, 0, len(raw))
	for pos := 0; pos+4 <= len(raw); {
		n := int(int32(binary.LittleEndian.Uint32(raw[pos:])))
		pos += 4
		if n < 0 {
			break
		}
		if pos+n > len(raw) {
			n = len(raw) - pos
		}
		start := len(out)
		out = append(out, raw[pos:pos+n]...)
		key.XOR(out[start:])
		pos += n
	}
	return out
}

// inflate は zlib データを size バイトに展開します。
// zlib ヘッダーがない場合はブロック暗号化された形式として復号してから展開します。
// 展開結果が size に満たない場合、残りは0のままです。
func inflate(raw []byte, size int, key *crypto.Keystream) ([]byte, error) {
	stream := raw
	if !isZlibHeader(raw) {
		stream = decryptBlocks(raw, key)
	}
	if len(stream) < 2 {
		return nil, fmt.Errorf("%w: 圧縮データが短すぎます (%d バイト)", ErrPayloadLength, len(stream))
	}

	out := make([]byte, size)
	fr := flate.NewReader(bytes.NewReader(stream[2:]))
	defer fr.Close()

	if _, err := io.ReadFull(fr, out); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("画像データの展開に失敗しました: %w", err)
	}
	return out, nil
}
