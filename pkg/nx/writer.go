package nx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// Type はノードレコードのデータ種類です
type Type uint16

const (
	TypeNone   Type = 0
	TypeInt64  Type = 1
	TypeDouble Type = 2
	TypeString Type = 3
	TypeVector Type = 4
	TypeBitmap Type = 5
	TypeAudio  Type = 6
)

// Logger は警告の出力先です
type Logger interface {
	Printf(format string, a ...any)
}

// Options は書き込みの設定です
type Options struct {
	Compressor  Compressor // nil の場合は LZ4Compressor
	Workers     int        // ビットマップを並列に変換するゴルーチン数（0以下は CPU 数）
	Logger      Logger
	StringLinks bool // リンクを "uol_<パス>" の文字列ノードとして書き込む

	// Callback は進捗報告用のコールバック関数で、false を返すと処理を中断します
	Callback func(string, interface{}) bool
	User     interface{}
}

// Stats は書き込み結果の統計です
type Stats struct {
	Nodes           int
	Strings         int
	Bitmaps         int
	MissingBitmaps  int
	Sounds          int
	Links           int
	UnresolvedLinks int
	BitmapBytes     int64
	SoundBytes      int64
	Size            int64
}

// writer はNXファイルの書き込み状態です
type writer struct {
	out  Output
	bw   *bufio.Writer
	pos  int64
	tree *wz.Tree
	opts Options

	header  Header
	strings *stringTable
	bitmaps []bitmapEntry
	sounds  []soundEntry
	links   []linkEntry
	ids     map[wz.NodeID]uint32
	stats   Stats
	rec     [NodeSize]byte
}

// Write は tree のルート以下をNX形式で out に書き込みます。
// ルートから到達できるイメージはすべて解析され、キャンバスとサウンドのキャッシュは書き込み後に破棄されます。
func Write(out Output, tree *wz.Tree, opts Options) (*Stats, error) {
	if opts.Compressor == nil {
		opts.Compressor = LZ4Compressor{}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	w := &writer{
		out:     out,
		bw:      bufio.NewWriterSize(out, 1<<20),
		tree:    tree,
		opts:    opts,
		strings: newStringTable(),
		ids:     make(map[wz.NodeID]uint32),
	}
	if err := w.run(); err != nil {
		return nil, err
	}
	return &w.stats, nil
}

func (w *writer) run() error {
	if err := w.write(make([]byte, HeaderSize)); err != nil {
		return err
	}

	steps := []struct {
		msg string
		fn  func() error
	}{
		{"ノードを書き込んでいます", w.writeNodes},
		{"文字列を書き込んでいます", w.writeStrings},
		{"ビットマップを書き込んでいます", w.writeBitmaps},
		{"サウンドを書き込んでいます", w.writeSounds},
	}
	for _, s := range steps {
		if !w.progress(s.msg) {
			return ErrAborted
		}
		if err := s.fn(); err != nil {
			return err
		}
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}

	if !w.progress("リンクを解決しています") {
		return ErrAborted
	}
	if err := w.patchLinks(); err != nil {
		return err
	}

	hb, _ := w.header.MarshalBinary()
	if _, err := w.out.WriteAt(hb, 0); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗しました: %w", err)
	}
	w.stats.Size = w.pos
	return nil
}

// progress はコールバックに進捗を通知します
func (w *writer) progress(msg string) bool {
	if w.opts.Callback == nil {
		return true
	}
	return w.opts.Callback(msg, w.opts.User)
}

func (w *writer) logf(format string, a ...any) {
	if w.opts.Logger != nil {
		w.opts.Logger.Printf(format, a...)
	}
}

// write は末尾にデータを追加します
func (w *writer) write(p []byte) error {
	n, err := w.bw.Write(p)
	w.pos += int64(n)
	return err
}

// align は pos が n の倍数になるまで0を書き込みます
func (w *writer) align(n int64) error {
	if pad := (n - w.pos%n) % n; pad > 0 {
		return w.write(make([]byte, pad))
	}
	return nil
}

// writeOffsets は8バイト境界にオフセット配列を書き込み、その位置を返します
func (w *writer) writeOffsets(offsets []uint64) (uint64, error) {
	if err := w.align(8); err != nil {
		return 0, err
	}
	start := uint64(w.pos)
	b := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(b[i*8:], off)
	}
	return start, w.write(b)
}

// writeNodes はルートから階層ごとにノードレコードを書き込みます。
// 子ノードは親ごとに名前の序数順に並べ、親の訪問順に連結して次の階層にします。
func (w *writer) writeNodes() error {
	if err := w.align(4); err != nil {
		return err
	}
	w.header.Nodes.Offset = uint64(w.pos)

	root := w.tree.Root()
	rn := w.tree.Node(root)
	rn.Name = strings.TrimSuffix(rn.Name, ".wz")

	level := []wz.NodeID{root}
	written := 0
	for len(level) > 0 {
		nextChild := uint32(written + len(level))
		var next []wz.NodeID
		for _, id := range level {
			children, err := w.sortedChildren(id)
			if err != nil {
				return err
			}
			if len(children) > math.MaxUint16 {
				return fmt.Errorf("%w: %s (%d)", ErrTooManyChildren, w.tree.Path(id), len(children))
			}
			w.ids[id] = uint32(len(w.ids))
			if err := w.writeNode(id, nextChild, uint16(len(children))); err != nil {
				return err
			}
			nextChild += uint32(len(children))
			next = append(next, children...)
		}
		written += len(level)
		level = next
	}

	w.header.Nodes.Count = uint32(written)
	w.stats.Nodes = written
	return nil
}

// sortedChildren は名前を整えた子ノードを CompareNames の順に並べて返します
func (w *writer) sortedChildren(id wz.NodeID) ([]wz.NodeID, error) {
	n := w.tree.Node(id)
	if !n.Kind.IsContainer() {
		return nil, nil
	}
	children, err := w.tree.Children(id)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(children)
	for _, c := range sorted {
		cn := w.tree.Node(c)
		cn.Name = strings.TrimSuffix(cn.Name, ".wz")
	}
	slices.SortStableFunc(sorted, func(a, b wz.NodeID) int {
		return CompareNames(w.tree.Node(a).Name, w.tree.Node(b).Name)
	})
	return sorted, nil
}

// writeNode は1ノード分のレコードを書き込みます。
// 値が参照する文字列はノード名より先に登録します。
func (w *writer) writeNode(id wz.NodeID, firstChild uint32, childCount uint16) error {
	n := w.tree.Node(id)
	rec := w.rec[:]
	clear(rec)
	payload := rec[12:]
	typ := TypeNone

	switch n.Kind {
	case wz.KindInt16, wz.KindInt32, wz.KindInt64:
		typ = TypeInt64
		binary.LittleEndian.PutUint64(payload, uint64(n.Int))
	case wz.KindFloat, wz.KindDouble:
		typ = TypeDouble
		binary.LittleEndian.PutUint64(payload, math.Float64bits(n.Float))
	case wz.KindString:
		typ = TypeString
		binary.LittleEndian.PutUint32(payload, w.strings.add(n.Text))
	case wz.KindVector:
		typ = TypeVector
		binary.LittleEndian.PutUint32(payload, uint32(n.X))
		binary.LittleEndian.PutUint32(payload[4:], uint32(n.Y))
	case wz.KindCanvas:
		typ = TypeBitmap
		var width, height int
		if n.Canvas != nil {
			width, height = n.Canvas.Width, n.Canvas.Height
		}
		binary.LittleEndian.PutUint32(payload, uint32(len(w.bitmaps)))
		binary.LittleEndian.PutUint16(payload[4:], uint16(width))
		binary.LittleEndian.PutUint16(payload[6:], uint16(height))
		w.bitmaps = append(w.bitmaps, bitmapEntry{node: id, canvas: n.Canvas})
	case wz.KindSound:
		typ = TypeAudio
		var length int
		if n.Sound != nil {
			length = n.Sound.Length
		}
		binary.LittleEndian.PutUint32(payload, uint32(len(w.sounds)))
		binary.LittleEndian.PutUint32(payload[4:], uint32(length))
		w.sounds = append(w.sounds, soundEntry{node: id, sound: n.Sound})
	case wz.KindLink:
		if w.opts.StringLinks {
			typ = TypeString
			binary.LittleEndian.PutUint32(payload, w.strings.add("uol_"+n.Text))
			break
		}
		// 名前以外は書き換えるまで0のまま
		binary.LittleEndian.PutUint32(rec, w.strings.add(n.Name))
		w.links = append(w.links, linkEntry{node: id, offset: w.pos})
		w.stats.Links++
		return w.write(rec)
	}

	binary.LittleEndian.PutUint32(rec, w.strings.add(n.Name))
	binary.LittleEndian.PutUint32(rec[4:], firstChild)
	binary.LittleEndian.PutUint16(rec[8:], childCount)
	binary.LittleEndian.PutUint16(rec[10:], uint16(typ))
	return w.write(rec)
}

// writeStrings は文字列テーブルを書き込みます
func (w *writer) writeStrings() error {
	offsets := make([]uint64, len(w.strings.list))
	var lb [2]byte
	for i, s := range w.strings.list {
		if len(s) > math.MaxUint16 {
			return fmt.Errorf("%w: %d バイト", ErrStringTooLong, len(s))
		}
		if err := w.align(2); err != nil {
			return err
		}
		offsets[i] = uint64(w.pos)
		binary.LittleEndian.PutUint16(lb[:], uint16(len(s)))
		if err := w.write(lb[:]); err != nil {
			return err
		}
		if err := w.write([]byte(s)); err != nil {
			return err
		}
	}
	start, err := w.writeOffsets(offsets)
	if err != nil {
		return err
	}
	w.header.Strings = Table{Count: uint32(len(offsets)), Offset: start}
	w.stats.Strings = len(offsets)
	return nil
}

// writeBitmaps はビットマップを並列に展開・圧縮し、ID 順に書き込みます。
// 同時に保持するのは workers×2 件までです。
func (w *writer) writeBitmaps() error {
	offsets := make([]uint64, len(w.bitmaps))
	index := make(blobIndex)
	window := w.opts.Workers * 2

	for start := 0; start < len(w.bitmaps); start += window {
		end := min(start+window, len(w.bitmaps))
		blobs := make([][]byte, end-start)

		var g errgroup.Group
		g.SetLimit(w.opts.Workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				blobs[i-start] = w.encodeBitmap(w.bitmaps[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, blob := range blobs {
			if len(blob) == 0 {
				w.stats.MissingBitmaps++
			}
			off, err := w.writeBlob(index, blob, true)
			if err != nil {
				return err
			}
			offsets[start+i] = off
		}
		if !w.progress(fmt.Sprintf("ビットマップ %d/%d", end, len(w.bitmaps))) {
			return ErrAborted
		}
	}

	tableOffset, err := w.writeOffsets(offsets)
	if err != nil {
		return err
	}
	w.header.Bitmaps = Table{Count: uint32(len(offsets)), Offset: tableOffset}
	w.stats.Bitmaps = len(offsets)
	return nil
}

// encodeBitmap はキャンバスを BGRA に展開して圧縮します。
// 展開できない場合は nil を返します（長さ0のエントリになります）。
func (w *writer) encodeBitmap(e bitmapEntry) []byte {
	if e.canvas == nil {
		return nil
	}
	defer e.canvas.Discard()
	pix, err := e.canvas.Pixels()
	if err != nil {
		// 未対応の形式は Canvas 側で警告済み
		if !wz.IsUnsupported(err) {
			w.logf("警告: ビットマップを読み込めません: %s: %v\n", w.tree.Path(e.node), err)
		}
		return nil
	}
	out := w.opts.Compressor.Compress(pix)
	if len(out) == 0 {
		w.logf("警告: ビットマップを圧縮できません: %s\n", w.tree.Path(e.node))
	}
	return out
}

// writeBlob は8バイト境界にデータを書き込み、その位置を返します。
// 同じ内容のデータが書き込み済みの場合は既存の位置を返します。
// lengthPrefix が true の場合は u32 の長さを前に付けます。
func (w *writer) writeBlob(index blobIndex, data []byte, lengthPrefix bool) (uint64, error) {
	sum, off, ok := index.lookup(data)
	if ok {
		return off, nil
	}
	if err := w.align(8); err != nil {
		return 0, err
	}
	off = uint64(w.pos)
	if lengthPrefix {
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], uint32(len(data)))
		if err := w.write(lb[:]); err != nil {
			return 0, err
		}
		w.stats.BitmapBytes += int64(len(data))
	} else {
		w.stats.SoundBytes += int64(len(data))
	}
	if err := w.write(data); err != nil {
		return 0, err
	}
	index[sum] = off
	return off, nil
}

// writeSounds はサウンドの生データを ID 順に書き込みます
func (w *writer) writeSounds() error {
	offsets := make([]uint64, len(w.sounds))
	index := make(blobIndex)
	for i, e := range w.sounds {
		data := w.soundBytes(e)
		off, err := w.writeBlob(index, data, false)
		if err != nil {
			return err
		}
		offsets[i] = off
	}
	tableOffset, err := w.writeOffsets(offsets)
	if err != nil {
		return err
	}
	w.header.Sounds = Table{Count: uint32(len(offsets)), Offset: tableOffset}
	w.stats.Sounds = len(offsets)
	return nil
}

// soundBytes はサウンドの生データを返します。読み込めない場合は宣言長の0バイト列です。
func (w *writer) soundBytes(e soundEntry) []byte {
	if e.sound == nil {
		return nil
	}
	defer e.sound.Discard()
	data, err := e.sound.Bytes()
	if err != nil {
		w.logf("警告: サウンドを読み込めません: %s: %v\n", w.tree.Path(e.node), err)
		return make([]byte, e.sound.Length)
	}
	return data
}

// patchLinks はリンクのレコードを参照先レコードの名前以外の16バイトで上書きします。
// 解決できないリンクと Null を指すリンクはそのまま残します。
func (w *writer) patchLinks() error {
	var tail [NodeSize - 4]byte
	for _, l := range w.links {
		target, err := w.tree.Resolve(l.node)
		if err != nil {
			w.logf("警告: リンクを解決できません: %s: %v\n", w.tree.Path(l.node), err)
			w.stats.UnresolvedLinks++
			continue
		}
		tn := w.tree.Node(target)
		if tn.Kind == wz.KindNull {
			continue
		}
		id, ok := w.ids[target]
		if !ok {
			w.logf("警告: リンク先が出力に含まれていません: %s\n", w.tree.Path(l.node))
			w.stats.UnresolvedLinks++
			continue
		}
		src := int64(w.header.Nodes.Offset) + int64(id)*NodeSize + 4
		if _, err := w.out.ReadAt(tail[:], src); err != nil && err != io.EOF {
			return fmt.Errorf("リンク先のレコードを読み込めません: %w", err)
		}
		if _, err := w.out.WriteAt(tail[:], l.offset+4); err != nil {
			return fmt.Errorf("リンクの書き換えに失敗しました: %w", err)
		}
	}
	return nil
}
