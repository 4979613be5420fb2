package nx

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Node はNXファイルから読み込んだノードレコードです
type Node struct {
	ID         uint32
	NameID     uint32
	FirstChild uint32
	ChildCount uint16
	Type       Type
	Payload    [8]byte
}

// Int は Int64 ノードの値を返します
func (n Node) Int() int64 {
	return int64(binary.LittleEndian.Uint64(n.Payload[:]))
}

// Float は Double ノードの値を返します
func (n Node) Float() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(n.Payload[:]))
}

// StringID は String ノードの文字列 ID を返します
func (n Node) StringID() uint32 {
	return binary.LittleEndian.Uint32(n.Payload[:])
}

// Vector は Vector ノードの座標を返します
func (n Node) Vector() (x, y int32) {
	return int32(binary.LittleEndian.Uint32(n.Payload[:])), int32(binary.LittleEndian.Uint32(n.Payload[4:]))
}

// Bitmap は Bitmap ノードのビットマップ ID と幅・高さを返します
func (n Node) Bitmap() (id uint32, width, height int) {
	return binary.LittleEndian.Uint32(n.Payload[:]),
		int(binary.LittleEndian.Uint16(n.Payload[4:])),
		int(binary.LittleEndian.Uint16(n.Payload[6:]))
}

// Audio は Audio ノードのサウンド ID とバイト数を返します
func (n Node) Audio() (id uint32, length int) {
	return binary.LittleEndian.Uint32(n.Payload[:]), int(binary.LittleEndian.Uint32(n.Payload[4:]))
}

// File は読み込み用に開いたNXファイルです
type File struct {
	Header Header
	r      io.ReaderAt
}

// Parse は r のヘッダーを読み込みます。ノードや文字列は必要になったときに読み込みます。
func Parse(r io.ReaderAt) (*File, error) {
	b := make([]byte, HeaderSize)
	if _, err := r.ReadAt(b, 0); err != nil {
		if err == io.EOF {
			return nil, ErrInvalidMagic
		}
		return nil, err
	}
	f := &File{r: r}
	if err := f.Header.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	if f.Header.Nodes.Count == 0 {
		return nil, fmt.Errorf("%w: ノードがありません", ErrOutOfRange)
	}
	return f, nil
}

// readAt は off から n バイト読み込みます
func (f *File) readAt(off uint64, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := f.r.ReadAt(b, int64(off)); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: offset 0x%X", ErrOutOfRange, off)
		}
		return nil, err
	}
	return b, nil
}

// offset はオフセット配列の id 番目を返します
func (f *File) offset(t Table, id uint32) (uint64, error) {
	if id >= t.Count {
		return 0, fmt.Errorf("%w: id %d (件数 %d)", ErrOutOfRange, id, t.Count)
	}
	b, err := f.readAt(t.Offset+uint64(id)*8, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Root はルートノードを返します
func (f *File) Root() (Node, error) {
	return f.Node(0)
}

// Node は id のノードを返します
func (f *File) Node(id uint32) (Node, error) {
	if id >= f.Header.Nodes.Count {
		return Node{}, fmt.Errorf("%w: node %d", ErrOutOfRange, id)
	}
	b, err := f.readAt(f.Header.Nodes.Offset+uint64(id)*NodeSize, NodeSize)
	if err != nil {
		return Node{}, err
	}
	n := Node{
		ID:         id,
		NameID:     binary.LittleEndian.Uint32(b),
		FirstChild: binary.LittleEndian.Uint32(b[4:]),
		ChildCount: binary.LittleEndian.Uint16(b[8:]),
		Type:       Type(binary.LittleEndian.Uint16(b[10:])),
	}
	copy(n.Payload[:], b[12:])
	return n, nil
}

// Children は n の子ノードを返します
func (f *File) Children(n Node) ([]Node, error) {
	children := make([]Node, 0, n.ChildCount)
	for i := uint32(0); i < uint32(n.ChildCount); i++ {
		c, err := f.Node(n.FirstChild + i)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

// Name はノード名を返します
func (f *File) Name(n Node) (string, error) {
	return f.String(n.NameID)
}

// String は id の文字列を返します
func (f *File) String(id uint32) (string, error) {
	off, err := f.offset(f.Header.Strings, id)
	if err != nil {
		return "", err
	}
	lb, err := f.readAt(off, 2)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint16(lb))
	if n == 0 {
		return "", nil
	}
	b, err := f.readAt(off+2, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Get は n からの相対パス（"/" 区切り）でノードを探します。
// 子ノードは名前順に並んでいるため二分探索します。
func (f *File) Get(n Node, path string) (Node, bool, error) {
	cur := n
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		next, ok, err := f.child(cur, seg)
		if err != nil || !ok {
			return Node{}, false, err
		}
		cur = next
	}
	return cur, true, nil
}

// child は n の子から名前が name のノードを二分探索します
func (f *File) child(n Node, name string) (Node, bool, error) {
	lo, hi := 0, int(n.ChildCount)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c, err := f.Node(n.FirstChild + uint32(mid))
		if err != nil {
			return Node{}, false, err
		}
		cn, err := f.Name(c)
		if err != nil {
			return Node{}, false, err
		}
		switch cmp := CompareNames(cn, name); {
		case cmp == 0:
			return c, true, nil
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return Node{}, false, nil
}

// Bitmap は id の LZ4 圧縮データを返します。ビットマップがない場合は空です。
func (f *File) Bitmap(id uint32) ([]byte, error) {
	off, err := f.offset(f.Header.Bitmaps, id)
	if err != nil {
		return nil, err
	}
	lb, err := f.readAt(off, 4)
	if err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(lb))
	if n == 0 {
		return nil, nil
	}
	return f.readAt(off+4, n)
}

// BitmapPixels は Bitmap ノードのピクセル列（BGRA）を展開して返します。
// ビットマップがない場合は nil を返します。
func (f *File) BitmapPixels(n Node) ([]byte, error) {
	id, width, height := n.Bitmap()
	data, err := f.Bitmap(id)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	pix := make([]byte, width*height*4)
	m, err := lz4.UncompressBlock(data, pix)
	if err != nil {
		return nil, fmt.Errorf("ビットマップ %d の展開に失敗しました: %w", id, err)
	}
	return pix[:m], nil
}

// Sound は Audio ノードの生データを返します
func (f *File) Sound(n Node) ([]byte, error) {
	id, length := n.Audio()
	off, err := f.offset(f.Header.Sounds, id)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	return f.readAt(off, length)
}

// Walk は n 以下のノードを深さ優先で訪問します。
// fn が false を返すとそのノードの子は訪問しません。
func (f *File) Walk(n Node, fn func(n Node, depth int) (bool, error)) error {
	return f.walk(n, 0, fn)
}

func (f *File) walk(n Node, depth int, fn func(n Node, depth int) (bool, error)) error {
	descend, err := fn(n, depth)
	if err != nil || !descend {
		return err
	}
	children, err := f.Children(n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := f.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
