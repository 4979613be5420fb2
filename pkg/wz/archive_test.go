package wz

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// sampleEntries はすべての値の種類を含むアーカイブです
func sampleEntries() []testEntry {
	return []testEntry{
		imgEntry("Basic.img", 9, func(w *wzWriter) {
			w.propNull("null")
			w.propShort("short", -300)
			w.propInt("int", 70000)
			w.propLong("long", 1<<40)
			w.propFloat("float", 1.5)
			w.propFloat("zero", 0)
			w.propDouble("double", 3.25)
			w.propString("string", "こんにちは")
			w.propSub("sub", 2, func() {
				w.propVector("origin", -3, 12)
				w.propConvex("shape", [][2]int32{{1, 2}, {3, 4}})
			})
		}),
		dirEntry("Map",
			imgEntry("000010000.img", 1, func(w *wzWriter) {
				w.propSub("info", 1, func() {
					w.propString("bgm", "Bgm00/GoPicnic")
				})
			}),
			dirEntry("Empty"),
		),
		imgEntry("Last.img", 0, nil),
	}
}

func TestOpenSource_ExplicitVersion(t *testing.T) {
	data := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	a := openTest(t, data, crypto.VariantGMS, 83, nil)
	defer a.Close()

	if a.Version != 83 {
		t.Errorf("Version = %d, want 83", a.Version)
	}
	if a.Hash != crypto.VersionHash(83) {
		t.Errorf("Hash = %d, want %d", a.Hash, crypto.VersionHash(83))
	}
	if a.Header.FStart != testFStart {
		t.Errorf("FStart = %d, want %d", a.Header.FStart, testFStart)
	}
	if a.Header.Comment != "test archive" {
		t.Errorf("Comment = %q, want %q", a.Header.Comment, "test archive")
	}

	tree := a.Tree()
	if got := tree.Node(tree.Root()).Name; got != "Test.wz" {
		t.Errorf("ルート名 = %q, want %q", got, "Test.wz")
	}

	bgm, ok := tree.StringValue(mustGet(t, tree, "Map/000010000.img/info/bgm"))
	if !ok || bgm != "Bgm00/GoPicnic" {
		t.Errorf("bgm = %q (%v), want %q", bgm, ok, "Bgm00/GoPicnic")
	}
}

func TestOpenSource_Values(t *testing.T) {
	data := buildArchive(t, crypto.VariantEMS, 95, sampleEntries())
	a := openTest(t, data, crypto.VariantEMS, 95, nil)
	tree := a.Tree()

	intTests := []struct {
		path string
		kind Kind
		want int64
	}{
		{"Basic.img/short", KindInt16, -300},
		{"Basic.img/int", KindInt32, 70000},
		{"Basic.img/long", KindInt64, 1 << 40},
	}
	for _, tt := range intTests {
		t.Run(tt.path, func(t *testing.T) {
			id := mustGet(t, tree, tt.path)
			if k := tree.Node(id).Kind; k != tt.kind {
				t.Errorf("Kind = %v, want %v", k, tt.kind)
			}
			got, ok := tree.IntValue(id)
			if !ok || got != tt.want {
				t.Errorf("IntValue() = %d (%v), want %d", got, ok, tt.want)
			}
		})
	}

	floatTests := []struct {
		path string
		kind Kind
		want float64
	}{
		{"Basic.img/float", KindFloat, 1.5},
		{"Basic.img/zero", KindFloat, 0},
		{"Basic.img/double", KindDouble, 3.25},
	}
	for _, tt := range floatTests {
		t.Run(tt.path, func(t *testing.T) {
			id := mustGet(t, tree, tt.path)
			if k := tree.Node(id).Kind; k != tt.kind {
				t.Errorf("Kind = %v, want %v", k, tt.kind)
			}
			got, ok := tree.FloatValue(id)
			if !ok || got != tt.want {
				t.Errorf("FloatValue() = %v (%v), want %v", got, ok, tt.want)
			}
		})
	}

	if s, ok := tree.StringValue(mustGet(t, tree, "Basic.img/string")); !ok || s != "こんにちは" {
		t.Errorf("StringValue() = %q (%v)", s, ok)
	}
	if _, ok := tree.Value(mustGet(t, tree, "Basic.img/null")); ok {
		t.Error("Null の Value() が ok=true")
	}

	x, y, ok := tree.VectorValue(mustGet(t, tree, "Basic.img/sub/origin"))
	if !ok || x != -3 || y != 12 {
		t.Errorf("VectorValue() = (%d, %d, %v), want (-3, 12, true)", x, y, ok)
	}

	shape := mustGet(t, tree, "Basic.img/sub/shape")
	if k := tree.Node(shape).Kind; k != KindConvex {
		t.Fatalf("Kind = %v, want Convex2D", k)
	}
	points, err := tree.Children(shape)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("Convex の要素数 = %d, want 2", len(points))
	}
	for i, p := range points {
		n := tree.Node(p)
		if n.Name != "shape" || n.Kind != KindVector {
			t.Errorf("points[%d] = %q (%v), want \"shape\" (Vector2D)", i, n.Name, n.Kind)
		}
	}
	if n := tree.Node(points[1]); n.X != 3 || n.Y != 4 {
		t.Errorf("points[1] = (%d, %d), want (3, 4)", n.X, n.Y)
	}
}

func TestOpenSource_BruteForce(t *testing.T) {
	tests := []struct {
		name    string
		variant crypto.Variant
		version int
	}{
		{"GMS v83", crypto.VariantGMS, 83},
		{"EMS v55", crypto.VariantEMS, 55},
		{"暗号化なし v176", crypto.VariantBMS, 176},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildArchive(t, tt.variant, tt.version, sampleEntries())
			a := openTest(t, data, tt.variant, -1, nil)
			if a.Version != tt.version {
				t.Errorf("Version = %d, want %d", a.Version, tt.version)
			}
			if _, err := a.Tree().Get(a.Tree().Root(), "Basic.img/int"); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		})
	}
}

func TestOpenSource_BruteForceNoImages(t *testing.T) {
	// イメージがない場合は候補を検証できない
	data := buildArchive(t, crypto.VariantGMS, 83, []testEntry{dirEntry("Empty")})
	_, err := OpenSource("Test.wz", NewMemorySource(data), Options{Variant: crypto.VariantGMS, Version: -1})
	if !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("OpenSource() error = %v, want ErrVersionNotFound", err)
	}
}

func TestOpenSource_VersionCheckMismatch(t *testing.T) {
	data := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	binary.LittleEndian.PutUint16(data[testFStart:], crypto.VersionCheck(crypto.VersionHash(83))^0x55)

	logger := &testLogger{}
	a := openTest(t, data, crypto.VariantGMS, 83, logger)
	if a.Hash != crypto.VersionHash(83) {
		t.Errorf("Hash = %d, want %d", a.Hash, crypto.VersionHash(83))
	}
	if len(logger.lines) != 1 {
		t.Errorf("警告の数 = %d, want 1", len(logger.lines))
	}
}

func TestOpenSource_Errors(t *testing.T) {
	valid := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "PKG5")

	badEntry := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	// ルートディレクトリ最初のエントリの種類
	badEntry[testFStart+3] = 7

	tests := []struct {
		name    string
		data    []byte
		variant crypto.Variant
		want    error
	}{
		{"シグネチャ不一致", badMagic, crypto.VariantGMS, ErrInvalidMagic},
		{"短すぎるファイル", []byte("PK"), crypto.VariantGMS, ErrInvalidMagic},
		{"generate バリアント", valid, crypto.VariantGenerate, ErrGenerateVariant},
		{"不明なエントリ種類", badEntry, crypto.VariantGMS, ErrMalformedEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenSource("Test.wz", NewMemorySource(tt.data), Options{Variant: tt.variant, Version: 83})
			if !errors.Is(err, tt.want) {
				t.Errorf("OpenSource() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenSource_IndirectEntry(t *testing.T) {
	// 種類2のエントリは fstart + オフセットの位置に種類と名前を持つ
	w := newWriter(crypto.VariantGMS)
	hash := crypto.VersionHash(83)
	w.raw([]byte(Magic))
	w.u64(0)
	w.u32(testFStart)
	for w.pos() < testFStart {
		w.u8(0)
	}
	w.u16(crypto.VersionCheck(hash))

	w.cint(3)
	w.u8(entrySkip)
	w.raw(make([]byte, 10))

	w.u8(entryIndirect)
	namePos := w.pos()
	w.i32(0)
	w.cint(0)
	w.cint(0)
	offPos := w.pos()
	w.u32(0)

	w.u8(entryImage)
	w.str("Direct.img")
	w.cint(0)
	w.cint(0)
	off2Pos := w.pos()
	w.u32(0)

	strPos := w.pos()
	w.u8(entryImage)
	w.str("Indirect.img")

	img := w.pos()
	w.u8(0x73)
	w.str(extProperty)
	w.u16(0)
	w.cint(1)
	w.propInt("v", 7)

	w.patch32(namePos, uint32(strPos-testFStart))
	w.patch32(offPos, crypto.EncryptOffset(uint32(offPos), testFStart, hash, uint32(img)))
	w.patch32(off2Pos, crypto.EncryptOffset(uint32(off2Pos), testFStart, hash, uint32(img)))

	a := openTest(t, w.buf, crypto.VariantGMS, -1, nil)
	tree := a.Tree()
	children, _ := tree.Children(tree.Root())
	if len(children) != 2 {
		t.Fatalf("子の数 = %d, want 2", len(children))
	}
	names := []string{tree.Node(children[0]).Name, tree.Node(children[1]).Name}
	if names[0] != "Indirect.img" || names[1] != "Direct.img" {
		t.Errorf("子の名前 = %v, want [Indirect.img Direct.img]", names)
	}
	if v, ok := tree.IntValue(mustGet(t, tree, "Indirect.img/v")); !ok || v != 7 {
		t.Errorf("IntValue() = %d (%v), want 7", v, ok)
	}
}

func TestTree_Invariant(t *testing.T) {
	data := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	a := openTest(t, data, crypto.VariantGMS, 83, nil)
	tree := a.Tree()

	maxDepth := 0
	err := tree.Walk(tree.Root(), func(id NodeID, depth int) (bool, error) {
		if depth > maxDepth {
			maxDepth = depth
		}
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for id := NodeID(1); int(id) < tree.Len(); id++ {
		n := tree.Node(id)
		count := 0
		for _, c := range tree.Node(n.Parent).children {
			if c == id {
				count++
			}
		}
		if count != 1 {
			t.Errorf("%s は親の子一覧に %d 回含まれています", tree.Path(id), count)
		}

		steps := 0
		for cur := id; cur != tree.Root(); cur = tree.Node(cur).Parent {
			steps++
			if steps > maxDepth {
				t.Fatalf("%s からルートまで %d 段より多い", tree.Path(id), maxDepth)
			}
		}
	}
	if tree.Node(tree.Root()).Parent != NoNode {
		t.Error("ルートが親を持っています")
	}
}

func TestTree_LazyImage(t *testing.T) {
	data := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	a := openTest(t, data, crypto.VariantGMS, 83, nil)
	tree := a.Tree()

	img, err := tree.Child(tree.Root(), "basic.IMG")
	if err != nil || img == NoNode {
		t.Fatalf("Child() = %d, %v", img, err)
	}
	n := tree.Node(img)
	if n.Loaded() || n.ChildCount() != 0 {
		t.Fatalf("アクセス前に解析されています (Loaded=%v, ChildCount=%d)", n.Loaded(), n.ChildCount())
	}
	if size, _ := n.ImageSize(); size <= 0 {
		t.Errorf("ImageSize() = %d", size)
	}

	before := tree.Len()
	children, err := tree.Children(img)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 9 {
		t.Errorf("子の数 = %d, want 9", len(children))
	}
	if !n.Loaded() {
		t.Error("Children() 後も未解析です")
	}

	// 2回目は再解析しない
	after := tree.Len()
	if _, err := tree.Children(img); err != nil {
		t.Fatal(err)
	}
	if tree.Len() != after || after <= before {
		t.Errorf("Len() = %d → %d → %d", before, after, tree.Len())
	}
}

func TestTree_MalformedImage(t *testing.T) {
	tests := []struct {
		name  string
		entry testEntry
		want  error
	}{
		{
			name:  "先頭タグ不一致",
			entry: testEntry{name: "Bad.img", rawImage: []byte{0x00, 0x00, 0x00, 0x00}},
			want:  ErrMalformedImage,
		},
		{
			name: "不明なプロパティ型",
			entry: imgEntry("Bad.img", 1, func(w *wzWriter) {
				w.name("x")
				w.u8(7)
			}),
			want: ErrMalformedEntry,
		},
		{
			name: "浮動小数点のフラグ不正",
			entry: imgEntry("Bad.img", 1, func(w *wzWriter) {
				w.name("f")
				w.u8(tagFloat)
				w.u8(0x42)
			}),
			want: ErrMalformedEntry,
		},
		{
			name: "不明な拡張プロパティ",
			entry: imgEntry("Bad.img", 1, func(w *wzWriter) {
				w.extended("x", "Shape2D#Unknown", func() {})
			}),
			want: ErrMalformedEntry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []testEntry{imgEntry("Good.img", 0, nil), tt.entry}
			data := buildArchive(t, crypto.VariantGMS, 83, entries)
			a := openTest(t, data, crypto.VariantGMS, 83, nil)
			tree := a.Tree()
			img, _ := tree.Child(tree.Root(), "Bad.img")
			_, err := tree.Children(img)
			if !errors.Is(err, tt.want) {
				t.Errorf("Children() error = %v, want %v", err, tt.want)
			}
			if !IsMalformed(err) {
				t.Errorf("IsMalformed(%v) = false", err)
			}
		})
	}
}

func TestTree_MalformedImageRollback(t *testing.T) {
	// 解析に失敗したイメージの子はツリーに残さない
	entries := []testEntry{
		imgEntry("Good.img", 0, nil),
		imgEntry("Bad.img", 3, func(w *wzWriter) {
			w.propInt("a", 1)
			w.propInt("b", 2)
			w.name("x")
			w.u8(7)
		}),
	}
	data := buildArchive(t, crypto.VariantGMS, 83, entries)
	tree := openTest(t, data, crypto.VariantGMS, 83, nil).Tree()
	img, _ := tree.Child(tree.Root(), "Bad.img")

	before := tree.Len()
	for i := 0; i < 2; i++ {
		if _, err := tree.Children(img); !errors.Is(err, ErrMalformedEntry) {
			t.Fatalf("Children() (%d 回目) error = %v, want %v", i+1, err, ErrMalformedEntry)
		}
		if tree.Len() != before {
			t.Errorf("Len() (%d 回目) = %d, want %d", i+1, tree.Len(), before)
		}
		if n := tree.Node(img); n.ChildCount() != 0 || n.Loaded() {
			t.Errorf("ChildCount() = %d, Loaded() = %v, want 0, false", n.ChildCount(), n.Loaded())
		}
	}
}

func TestTree_ExtendedResync(t *testing.T) {
	// 宣言サイズより手前で読み終えた拡張プロパティは末尾まで読み飛ばす
	entries := []testEntry{imgEntry("A.img", 2, func(w *wzWriter) {
		w.name("v")
		w.u8(tagExtended)
		sizePos := w.pos()
		w.u32(0)
		start := w.pos()
		w.u8(0x73)
		w.str(extVector)
		w.cint(1)
		w.cint(2)
		w.raw([]byte{0xDE, 0xAD})
		w.patch32(sizePos, uint32(w.pos()-start))
		w.propInt("after", 9)
	})}
	data := buildArchive(t, crypto.VariantGMS, 83, entries)
	a := openTest(t, data, crypto.VariantGMS, 83, nil)
	tree := a.Tree()
	if v, ok := tree.IntValue(mustGet(t, tree, "A.img/after")); !ok || v != 9 {
		t.Errorf("IntValue() = %d (%v), want 9", v, ok)
	}
}

func TestDirParser_TooDeep(t *testing.T) {
	entry := imgEntry("Leaf.img", 0, nil)
	for i := 0; i <= maxDirDepth+1; i++ {
		entry = dirEntry("d", entry)
	}
	data := buildArchive(t, crypto.VariantGMS, 83, []testEntry{entry})
	_, err := OpenSource("Test.wz", NewMemorySource(data), Options{Variant: crypto.VariantGMS, Version: 83})
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("OpenSource() error = %v, want ErrTooDeep", err)
	}
}

func TestOpen_File(t *testing.T) {
	data := buildArchive(t, crypto.VariantGMS, 83, sampleEntries())
	path := writeTemp(t, "Sample.wz", data)

	a, err := Open(path, Options{Variant: crypto.VariantGMS, Version: 83})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if a.Name != "Sample.wz" {
		t.Errorf("Name = %q, want %q", a.Name, "Sample.wz")
	}
	if v, ok := a.Tree().IntValue(mustGet(t, a.Tree(), "Basic.img/int")); !ok || v != 70000 {
		t.Errorf("IntValue() = %d (%v)", v, ok)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("2回目の Close() error = %v", err)
	}

	if _, err := Open(path+".missing", Options{}); err == nil {
		t.Error("存在しないファイルで Open() が成功しました")
	}
}

func TestSound_FromArchive(t *testing.T) {
	desc := pcmDescriptor()
	payload := []byte("ID3 fake mp3 payload")
	entries := []testEntry{imgEntry("Bgm.img", 2, func(w *wzWriter) {
		w.propSound("track", payload, 1500, desc)
		w.propInt("after", 1)
	})}
	data := buildArchive(t, crypto.VariantGMS, 83, entries)
	a := openTest(t, data, crypto.VariantGMS, 83, nil)
	tree := a.Tree()

	id := mustGet(t, tree, "Bgm.img/track")
	s := tree.Node(id).Sound
	if s == nil {
		t.Fatal("Sound が nil です")
	}
	if s.Length != len(payload) || s.Duration != 1500*time.Millisecond {
		t.Errorf("Length = %d, Duration = %v", s.Length, s.Duration)
	}
	if len(s.Header) != len(soundMarker)+1+len(desc) {
		t.Errorf("len(Header) = %d, want %d", len(s.Header), len(soundMarker)+1+len(desc))
	}
	if s.Format == nil || !s.Format.IsPCM() || s.Format.SamplesPerSec != 44100 {
		t.Errorf("Format = %+v", s.Format)
	}

	got, err := tree.ByteValue(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("ByteValue() = %q, want %q", got, payload)
	}
	if v, ok := tree.IntValue(mustGet(t, tree, "Bgm.img/after")); !ok || v != 1 {
		t.Errorf("サウンドの後のプロパティ = %d (%v)", v, ok)
	}
}
