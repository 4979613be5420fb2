package wz

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// utf16LE はワイド文字列の復号に使用するエンコーディング（BOMは通常の文字として扱う）
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Reader は Source 上のカーソルと鍵ストリームを使ってWZのプリミティブ値を読み込みます。
// カーソルは共有されるため、シークと読み込みの組は lock/unlock で保護します。
type Reader struct {
	mu     sync.Mutex
	src    Source
	pos    int64
	key    *crypto.Keystream
	fstart uint32
	hash   uint32
	buf    [8]byte
}

// NewReader は新しいReaderを作成します
func NewReader(src Source, key *crypto.Keystream) *Reader {
	if key == nil {
		key = crypto.NewKeystream([4]byte{})
	}
	return &Reader{src: src, key: key}
}

// Keystream は鍵ストリームを返します
func (r *Reader) Keystream() *crypto.Keystream {
	return r.key
}

// SetHeader はオフセット復号に使用するデータ開始位置とバージョンハッシュを設定します
func (r *Reader) SetHeader(fstart, hash uint32) {
	r.fstart = fstart
	r.hash = hash
}

// Len はデータ長を返します
func (r *Reader) Len() int64 {
	return int64(r.src.Len())
}

// Pos は現在のカーソル位置を返します
func (r *Reader) Pos() int64 {
	return r.pos
}

// Seek はカーソルを pos に移動します
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.Len() {
		return fmt.Errorf("%w: seek 0x%X (size 0x%X)", ErrOutOfRange, pos, r.Len())
	}
	r.pos = pos
	return nil
}

// Skip はカーソルを n バイト進めます
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.pos + n)
}

// remaining は残りバイト数を返します
func (r *Reader) remaining() int64 {
	return r.Len() - r.pos
}

// lock はカーソルの排他を取得します
func (r *Reader) lock() {
	r.mu.Lock()
}

// unlock はカーソルの排他を解放します
func (r *Reader) unlock() {
	r.mu.Unlock()
}

// readInto は p の長さ分を読み込みカーソルを進めます
func (r *Reader) readInto(p []byte) error {
	if int64(len(p)) > r.remaining() {
		return fmt.Errorf("%w: read %d bytes at 0x%X", ErrOutOfRange, len(p), r.pos)
	}
	n, err := r.src.ReadAt(p, r.pos)
	if n < len(p) {
		return fmt.Errorf("%w: read %d bytes at 0x%X: %v", ErrOutOfRange, len(p), r.pos, err)
	}
	r.pos += int64(n)
	return nil
}

// ReadBytes は n バイトを新しいスライスに読み込みます
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.remaining() {
		return nil, fmt.Errorf("%w: read %d bytes at 0x%X", ErrOutOfRange, n, r.pos)
	}
	p := make([]byte, n)
	if err := r.readInto(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadByte は1バイトを読み込みます
func (r *Reader) ReadByte() (byte, error) {
	if err := r.readInto(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadInt8 は符号付き1バイトを読み込みます
func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

// ReadUint16 はリトルエンディアンの uint16 を読み込みます
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.readInto(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

// ReadInt16 はリトルエンディアンの int16 を読み込みます
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 はリトルエンディアンの uint32 を読み込みます
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.readInto(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// ReadInt32 はリトルエンディアンの int32 を読み込みます
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 はリトルエンディアンの uint64 を読み込みます
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.readInto(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// ReadInt64 はリトルエンディアンの int64 を読み込みます
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 は IEEE 754 単精度浮動小数点数を読み込みます
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 は IEEE 754 倍精度浮動小数点数を読み込みます
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadCompressedInt は圧縮整数を読み込みます。
// 先頭の符号付きバイトが -128 の場合、続く int32 が値になります。
func (r *Reader) ReadCompressedInt() (int32, error) {
	sb, err := r.ReadInt8()
	if err != nil {
		return 0, err
	}
	if sb == math.MinInt8 {
		return r.ReadInt32()
	}
	return int32(sb), nil
}

// ReadCompressedLong は64ビットの圧縮整数を読み込みます
func (r *Reader) ReadCompressedLong() (int64, error) {
	sb, err := r.ReadInt8()
	if err != nil {
		return 0, err
	}
	if sb == math.MinInt8 {
		return r.ReadInt64()
	}
	return int64(sb), nil
}

// ReadString は暗号化された文字列を読み込みます。
// 長さが正ならUTF-16、負なら8ビット文字列です。
func (r *Reader) ReadString() (string, error) {
	sb, err := r.ReadInt8()
	if err != nil {
		return "", err
	}

	switch {
	case sb > 0:
		n := int64(sb)
		if sb == math.MaxInt8 {
			l, err := r.ReadInt32()
			if err != nil {
				return "", err
			}
			n = int64(l)
		}
		if n <= 0 {
			return "", nil
		}
		return r.readWideString(n)
	case sb < 0:
		n := -int64(sb)
		if sb == math.MinInt8 {
			l, err := r.ReadInt32()
			if err != nil {
				return "", err
			}
			n = int64(l)
		}
		if n <= 0 {
			return "", nil
		}
		return r.readNarrowString(n)
	}
	return "", nil
}

// readWideString は n 文字のUTF-16文字列を復号します
func (r *Reader) readWideString(n int64) (string, error) {
	if n*2 > r.remaining() {
		return "", fmt.Errorf("%w: string length %d at 0x%X", ErrOutOfRange, n, r.pos)
	}
	raw, err := r.ReadBytes(int(n * 2))
	if err != nil {
		return "", err
	}
	key := r.key.Bytes(len(raw))
	mask := uint16(0xAAAA)
	for i := 0; i < len(raw); i += 2 {
		v := binary.LittleEndian.Uint16(raw[i:])
		v ^= mask ^ (uint16(key[i+1])<<8 | uint16(key[i]))
		binary.LittleEndian.PutUint16(raw[i:], v)
		mask++
	}
	out, err := utf16LE.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// readNarrowString は n バイトの8ビット文字列を復号します（各バイトはU+0000〜U+00FF）
func (r *Reader) readNarrowString(n int64) (string, error) {
	if n > r.remaining() {
		return "", fmt.Errorf("%w: string length %d at 0x%X", ErrOutOfRange, n, r.pos)
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	key := r.key.Bytes(len(raw))
	mask := byte(0xAA)
	for i := range raw {
		raw[i] ^= mask ^ key[i]
		mask++
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ReadStringAt は offset の位置にある文字列を読み込み、カーソルを元に戻します
func (r *Reader) ReadStringAt(offset int64) (string, error) {
	saved := r.pos
	if err := r.Seek(offset); err != nil {
		return "", err
	}
	s, err := r.ReadString()
	r.pos = saved
	return s, err
}

// ReadStringBlock はタグ付き文字列を読み込みます。
// 0x00/0x73 はインライン、0x01/0x1B は base + int32 の位置を参照します。
// それ以外のタグは空文字列になります。
func (r *Reader) ReadStringBlock(base int64) (string, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	switch tag {
	case 0x00, 0x73:
		return r.ReadString()
	case 0x01, 0x1B:
		off, err := r.ReadInt32()
		if err != nil {
			return "", err
		}
		return r.ReadStringAt(base + int64(off))
	}
	return "", nil
}

// ReadOffset は暗号化されたオフセットを読み込み復号します
func (r *Reader) ReadOffset() (uint32, error) {
	pos := uint32(r.pos)
	enc, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return crypto.DecryptOffset(pos, r.fstart, r.hash, enc), nil
}

// ReadCString はNUL終端の文字列を読み込みます
func (r *Reader) ReadCString() (string, error) {
	var out []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(out)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// readBlockAt はロックを保持したまま offset から fn を実行し、カーソルを元に戻します
func (r *Reader) readBlockAt(offset int64, fn func(r *Reader) error) error {
	r.lock()
	defer r.unlock()
	saved := r.pos
	defer func() { r.pos = saved }()
	if err := r.Seek(offset); err != nil {
		return err
	}
	return fn(r)
}
