package wz

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// テスト用のWZエンコーダー

const testFStart = 60

type wzWriter struct {
	buf []byte
	key *crypto.Keystream
}

func newWriter(v crypto.Variant) *wzWriter {
	return &wzWriter{key: crypto.NewVariantKeystream(v)}
}

func (w *wzWriter) pos() int64 { return int64(len(w.buf)) }

func (w *wzWriter) u8(b byte) { w.buf = append(w.buf, b) }

func (w *wzWriter) raw(p []byte) { w.buf = append(w.buf, p...) }

func (w *wzWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *wzWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *wzWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *wzWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// cint は圧縮整数を書き込みます。-126〜126 は1バイト、それ以外は 0x80 + int32 です。
func (w *wzWriter) cint(v int32) {
	if v >= -126 && v <= 126 {
		w.u8(byte(int8(v)))
		return
	}
	w.u8(0x80)
	w.i32(v)
}

func (w *wzWriter) clong(v int64) {
	if v >= -126 && v <= 126 {
		w.u8(byte(int8(v)))
		return
	}
	w.u8(0x80)
	w.u64(uint64(v))
}

// str は暗号化文字列を書き込みます。0x7F を超える文字を含む場合はUTF-16で書き込みます。
func (w *wzWriter) str(s string) {
	if s == "" {
		w.u8(0)
		return
	}
	wide := false
	for _, r := range s {
		if r > 0x7F {
			wide = true
			break
		}
	}
	if !wide {
		n := len(s)
		if n >= 128 {
			w.u8(0x80)
			w.i32(int32(n))
		} else {
			w.u8(byte(int8(-n)))
		}
		key := w.key.Bytes(n)
		mask := byte(0xAA)
		for i := 0; i < n; i++ {
			w.u8(s[i] ^ mask ^ key[i])
			mask++
		}
		return
	}

	units := utf16.Encode([]rune(s))
	n := len(units)
	if n >= 127 {
		w.u8(0x7F)
		w.i32(int32(n))
	} else {
		w.u8(byte(n))
	}
	key := w.key.Bytes(n * 2)
	mask := uint16(0xAAAA)
	for i, u := range units {
		k := uint16(key[i*2+1])<<8 | uint16(key[i*2])
		w.u16(u ^ mask ^ k)
		mask++
	}
}

// patch32 は pos の位置の4バイトを書き換えます
func (w *wzWriter) patch32(pos int64, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[pos:], v)
}

// 以下、イメージ本体の書き込み

func (w *wzWriter) name(s string) {
	w.u8(0x00)
	w.str(s)
}

func (w *wzWriter) propNull(name string) {
	w.name(name)
	w.u8(tagNull)
}

func (w *wzWriter) propShort(name string, v int16) {
	w.name(name)
	w.u8(tagInt16)
	w.u16(uint16(v))
}

func (w *wzWriter) propInt(name string, v int32) {
	w.name(name)
	w.u8(tagInt32)
	w.cint(v)
}

func (w *wzWriter) propLong(name string, v int64) {
	w.name(name)
	w.u8(tagInt64)
	w.clong(v)
}

func (w *wzWriter) propFloat(name string, v float32) {
	w.name(name)
	w.u8(tagFloat)
	if v == 0 {
		w.u8(0x00)
		return
	}
	w.u8(0x80)
	w.u32(math.Float32bits(v))
}

func (w *wzWriter) propDouble(name string, v float64) {
	w.name(name)
	w.u8(tagDouble)
	w.u64(math.Float64bits(v))
}

func (w *wzWriter) propString(name, v string) {
	w.name(name)
	w.u8(tagString)
	w.u8(0x00)
	w.str(v)
}

// extended は拡張プロパティをサイズ付きで書き込みます
func (w *wzWriter) extended(name, kind string, body func()) {
	w.name(name)
	w.u8(tagExtended)
	sizePos := w.pos()
	w.u32(0)
	start := w.pos()
	w.u8(0x73)
	w.str(kind)
	body()
	w.patch32(sizePos, uint32(w.pos()-start))
}

func (w *wzWriter) propSub(name string, count int32, body func()) {
	w.extended(name, extProperty, func() {
		w.u16(0)
		w.cint(count)
		body()
	})
}

func (w *wzWriter) propVector(name string, x, y int32) {
	w.extended(name, extVector, func() {
		w.cint(x)
		w.cint(y)
	})
}

func (w *wzWriter) propLink(name, path string) {
	w.extended(name, extLink, func() {
		w.u8(0)
		w.u8(0)
		w.str(path)
	})
}

func (w *wzWriter) propConvex(name string, points [][2]int32) {
	w.extended(name, extConvex, func() {
		w.cint(int32(len(points)))
		for _, p := range points {
			w.u8(0x73)
			w.str(extVector)
			w.cint(p[0])
			w.cint(p[1])
		}
	})
}

// propCanvas はキャンバスを書き込みます。children が nil でなければ子プロパティ一覧を持ちます。
func (w *wzWriter) propCanvas(name string, width, height int32, format int32, data []byte, count int32, children func()) {
	w.extended(name, extCanvas, func() {
		w.u8(0)
		if children != nil {
			w.u8(1)
			w.u16(0)
			w.cint(count)
			children()
		} else {
			w.u8(0)
		}
		w.cint(width)
		w.cint(height)
		w.cint(format)
		w.u8(0)
		w.u32(0)
		w.i32(int32(len(data) + 1))
		w.u8(0)
		w.raw(data)
	})
}

func (w *wzWriter) propSound(name string, data []byte, ms int32, desc []byte) {
	w.extended(name, extSound, func() {
		w.u8(0)
		w.cint(int32(len(data)))
		w.cint(ms)
		w.raw(soundMarker[:])
		w.u8(byte(len(desc)))
		w.raw(desc)
		w.raw(data)
	})
}

// testEntry はテスト用アーカイブのディレクトリエントリです
type testEntry struct {
	name     string
	dir      bool
	children []testEntry

	// イメージの場合のプロパティ数と本体。rawImage を指定するとイメージ全体をそのバイト列にする
	props    int32
	body     func(w *wzWriter)
	rawImage []byte
}

func dirEntry(name string, children ...testEntry) testEntry {
	return testEntry{name: name, dir: true, children: children}
}

func imgEntry(name string, props int32, body func(w *wzWriter)) testEntry {
	return testEntry{name: name, props: props, body: body}
}

type fixup struct {
	pos   int64 // 暗号化オフセットの位置
	size  int64 // サイズフィールドの位置
	entry testEntry
}

// buildArchive はエントリからWZファイルを組み立てます
func buildArchive(t *testing.T, v crypto.Variant, version int, root []testEntry) []byte {
	t.Helper()
	w := newWriter(v)
	hash := crypto.VersionHash(version)

	w.raw([]byte(Magic))
	w.u64(0)
	w.u32(testFStart)
	w.raw([]byte("test archive"))
	w.u8(0)
	for w.pos() < testFStart {
		w.u8(0)
	}
	w.u16(crypto.VersionCheck(hash))

	var images []fixup
	var offsets []struct {
		pos    int64
		target int64
	}

	var writeDir func(entries []testEntry)
	writeDir = func(entries []testEntry) {
		w.cint(int32(len(entries)))
		var dirs []fixup
		for _, e := range entries {
			if e.dir {
				w.u8(entryDirectory)
			} else {
				w.u8(entryImage)
			}
			w.str(e.name)
			w.u8(0x80)
			sizePos := w.pos()
			w.i32(0)
			w.cint(0)
			f := fixup{pos: w.pos(), size: sizePos, entry: e}
			w.u32(0)
			if e.dir {
				dirs = append(dirs, f)
			} else {
				images = append(images, f)
			}
		}
		for _, d := range dirs {
			offsets = append(offsets, struct{ pos, target int64 }{d.pos, w.pos()})
			writeDir(d.entry.children)
		}
	}
	writeDir(root)

	for _, img := range images {
		start := w.pos()
		offsets = append(offsets, struct{ pos, target int64 }{img.pos, start})
		if img.entry.rawImage != nil {
			w.raw(img.entry.rawImage)
		} else {
			w.u8(0x73)
			w.str(extProperty)
			w.u16(0)
			w.cint(img.entry.props)
			if img.entry.body != nil {
				img.entry.body(w)
			}
		}
		w.patch32(img.size, uint32(w.pos()-start))
	}

	for _, o := range offsets {
		w.patch32(o.pos, crypto.EncryptOffset(uint32(o.pos), testFStart, hash, uint32(o.target)))
	}
	binary.LittleEndian.PutUint64(w.buf[4:], uint64(len(w.buf)-testFStart))
	return w.buf
}

// openTest は組み立てたアーカイブを開きます
func openTest(t *testing.T, data []byte, v crypto.Variant, version int, logger Logger) *Archive {
	t.Helper()
	a, err := OpenSource("Test.wz", NewMemorySource(data), Options{Variant: v, Version: version, Logger: logger})
	if err != nil {
		t.Fatalf("OpenSource() error = %v", err)
	}
	return a
}

// testLogger は警告を記録します
type testLogger struct {
	lines []string
}

func (l *testLogger) Printf(format string, a ...any) {
	l.lines = append(l.lines, format)
}

// mustGet はパスのノードを返します
func mustGet(t *testing.T, tree *Tree, path string) NodeID {
	t.Helper()
	id, err := tree.Get(tree.Root(), path)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", path, err)
	}
	if id == NoNode {
		t.Fatalf("Get(%q) = NoNode", path)
	}
	return id
}

// writeTemp は一時ディレクトリにファイルを作成します
func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
