package wz

import (
	"io"

	"golang.org/x/exp/mmap"
)

// Source はWZファイル全体へのランダムアクセスを提供します
type Source interface {
	io.ReaderAt
	Len() int
}

// OpenFileSource はファイルを読み取り専用でメモリマップします。
// 返される値は io.Closer も実装します。
func OpenFileSource(path string) (*mmap.ReaderAt, error) {
	return mmap.Open(path)
}

// memorySource はメモリ上のバイト列を Source として扱います
type memorySource []byte

// NewMemorySource はバイト列から Source を作成します
func NewMemorySource(data []byte) Source {
	return memorySource(data)
}

// Len はデータ長を返します
func (m memorySource) Len() int {
	return len(m)
}

// ReadAt は off の位置から p にデータを読み込みます
func (m memorySource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOutOfRange
	}
	if off >= int64(len(m)) {
		return 0, io.EOF
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
