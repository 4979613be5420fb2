package nx

import (
	"github.com/zeebo/blake3"

	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// stringTable は重複を除いた文字列の一覧です。空文字列は常に ID 0 です。
type stringTable struct {
	ids  map[string]uint32
	list []string
}

func newStringTable() *stringTable {
	t := &stringTable{ids: make(map[string]uint32)}
	t.add("")
	return t
}

// add は文字列を登録して ID を返します。登録済みなら既存の ID を返します。
func (t *stringTable) add(s string) uint32 {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := uint32(len(t.list))
	t.ids[s] = id
	t.list = append(t.list, s)
	return id
}

// bitmapEntry はビットマップテーブルの要素です
type bitmapEntry struct {
	node   wz.NodeID
	canvas *wz.Canvas
}

// soundEntry はサウンドテーブルの要素です
type soundEntry struct {
	node  wz.NodeID
	sound *wz.Sound
}

// linkEntry は後で書き換えるリンクのノードです
type linkEntry struct {
	node   wz.NodeID
	offset int64 // レコード先頭の位置
}

// blobIndex は同一内容のデータを1か所に書き込むための索引です
type blobIndex map[[32]byte]uint64

// lookup は data と同じ内容のデータが書き込まれていればそのオフセットを返します
func (b blobIndex) lookup(data []byte) ([32]byte, uint64, bool) {
	sum := blake3.Sum256(data)
	off, ok := b[sum]
	return sum, off, ok
}
