package nx

import (
	"fmt"
	"io"
)

// Output はNXファイルの書き込み先です。*os.File が実装しています。
// 順次書き込みの後、リンクの書き換えとヘッダーの書き込みに ReadAt / WriteAt を使用します。
type Output interface {
	io.Writer
	io.WriterAt
	io.ReaderAt
}

// Buffer はメモリ上の Output です
type Buffer struct {
	data []byte
}

// NewBuffer は空の Buffer を作成します
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write は末尾に p を追加します
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteAt は off の位置に p を書き込みます。必要に応じて0で拡張します。
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	if end := off + int64(len(p)); end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	return copy(b.data[off:], p), nil
}

// ReadAt は off の位置から p に読み込みます
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes は書き込まれたデータを返します
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len は書き込まれたバイト数を返します
func (b *Buffer) Len() int {
	return len(b.data)
}
