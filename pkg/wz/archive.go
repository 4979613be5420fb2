// Package wz はWZアーカイブ（PKG1 形式）を読み込むためのパッケージです。
//
// ディレクトリ構造はアーカイブを開いた時点で解析され、イメージのプロパティは
// 最初にアクセスされたときに解析されます。キャンバスとサウンドのデータは
// Canvas.Pixels / Sound.Bytes が呼ばれるまで読み込まれません。
//
// 基本的な使い方:
//
//	a, err := wz.Open("Map.wz", wz.Options{Variant: crypto.VariantGMS, Version: -1})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	tree := a.Tree()
//	id, _ := tree.Get(tree.Root(), "Map/Map0/000010000.img/info/bgm")
//	bgm, _ := tree.StringValue(id)
package wz

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// Magic はWZファイルのシグネチャです
const Magic = "PKG1"

// Options はアーカイブを開く際の設定です
type Options struct {
	Variant crypto.Variant // IV の種類
	Version int            // 実バージョン番号（-1 の場合は総当たり）
	Logger  Logger         // 警告の出力先（nil の場合は出力しない）
}

// Header はWZファイルのヘッダー情報です
type Header struct {
	Magic      string
	Size       uint64 // データ部のバイト数
	FStart     uint32 // データ開始位置
	Comment    string
	EncVersion uint16 // 暗号化されたバージョン値
}

// Archive は開いたWZアーカイブです
type Archive struct {
	Name    string
	Header  Header
	Version int    // 確定した実バージョン番号
	Hash    uint32 // バージョンハッシュ

	tree   *Tree
	r      *Reader
	closer io.Closer
	logger Logger
}

// Open はWZファイルをメモリマップして開きます
func Open(path string, opts Options) (*Archive, error) {
	src, err := OpenFileSource(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	a, err := OpenSource(filepath.Base(path), src, opts)
	if err != nil {
		src.Close()
		return nil, err
	}
	a.closer = src
	return a, nil
}

// OpenSource は Source からアーカイブを開きます。name はルートノードの名前になります。
func OpenSource(name string, src Source, opts Options) (*Archive, error) {
	if opts.Variant == crypto.VariantGenerate {
		return nil, ErrGenerateVariant
	}
	key := crypto.NewVariantKeystream(opts.Variant)
	r := NewReader(src, key)

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		Name:   name,
		Header: header,
		r:      r,
		logger: opts.Logger,
	}

	if opts.Version < 0 {
		if err := a.bruteForce(); err != nil {
			return nil, err
		}
	} else {
		if err := a.parseWithVersion(opts.Version); err != nil {
			return nil, err
		}
	}

	a.tree.SetLogger(opts.Logger)
	a.tree.load = a.loadImage
	return a, nil
}

// readHeader はファイル先頭のヘッダーを読み込み、カーソルをルートディレクトリの先頭に移動します
func readHeader(r *Reader) (Header, error) {
	var h Header
	magic, err := r.ReadBytes(4)
	if err != nil {
		return h, fmt.Errorf("%w: %w", ErrInvalidMagic, err)
	}
	if string(magic) != Magic {
		return h, ErrInvalidMagic
	}
	h.Magic = string(magic)

	if h.Size, err = r.ReadUint64(); err != nil {
		return h, err
	}
	if h.FStart, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.Comment, err = r.ReadCString(); err != nil {
		return h, err
	}
	if err := r.Seek(int64(h.FStart)); err != nil {
		return h, err
	}
	if h.EncVersion, err = r.ReadUint16(); err != nil {
		return h, err
	}
	return h, nil
}

// parseWithVersion は指定された実バージョン番号でディレクトリを解析します
func (a *Archive) parseWithVersion(version int) error {
	hash, ok := crypto.MatchVersion(a.Header.EncVersion, version)
	if !ok && a.logger != nil {
		a.logger.Printf("警告: バージョン %d の検査値がヘッダーと一致しません (0x%04X)\n", version, a.Header.EncVersion)
	}
	tree, err := a.parseTree(hash)
	if err != nil {
		return err
	}
	a.Version = version
	a.Hash = hash
	a.tree = tree
	return nil
}

// bruteForce は実バージョン番号を総当たりで探します。
// 検査値が一致し、ディレクトリが解析でき、最初のイメージの先頭バイトが
// 0x73 または 0x1B であれば、その候補を採用します。
func (a *Archive) bruteForce() error {
	start := a.r.Pos()
	for v := 0; v <= crypto.MaxRealVersion; v++ {
		hash, ok := crypto.MatchVersion(a.Header.EncVersion, v)
		if !ok || hash == 0 {
			continue
		}
		tree, err := a.parseTree(hash)
		if err != nil {
			a.r.pos = start
			continue
		}
		if !a.validImage(tree) {
			a.r.pos = start
			continue
		}
		a.Version = v
		a.Hash = hash
		a.tree = tree
		return nil
	}
	return ErrVersionNotFound
}

// parseTree は hash を使ってルートディレクトリ以下を解析します
func (a *Archive) parseTree(hash uint32) (*Tree, error) {
	a.r.SetHeader(a.Header.FStart, hash)
	if err := a.r.Seek(int64(a.Header.FStart) + 2); err != nil {
		return nil, err
	}
	tree := NewTree(a.Name)
	p := newDirParser(a.r, tree)
	if err := p.parse(tree.Root(), 0); err != nil {
		return nil, err
	}
	return tree, nil
}

// validImage は最初のイメージの先頭バイトを確認します
func (a *Archive) validImage(tree *Tree) bool {
	id := firstImage(tree, tree.Root())
	if id == NoNode {
		return false
	}
	b, err := a.peekByte(tree.nodes[id].image.offset)
	if err != nil {
		return false
	}
	return b == 0x73 || b == 0x1B
}

// peekByte は offset の1バイトを読み込みます（カーソルは移動しません）
func (a *Archive) peekByte(offset int64) (byte, error) {
	var b byte
	err := a.r.readBlockAt(offset, func(r *Reader) error {
		var err error
		b, err = r.ReadByte()
		return err
	})
	return b, err
}

// firstImage は直下のイメージを優先して深さ優先で最初のイメージを探します
func firstImage(t *Tree, dir NodeID) NodeID {
	children := t.nodes[dir].children
	for _, c := range children {
		if t.nodes[c].Kind == KindImage {
			return c
		}
	}
	for _, c := range children {
		if t.nodes[c].Kind == KindDirectory {
			if id := firstImage(t, c); id != NoNode {
				return id
			}
		}
	}
	return NoNode
}

// Tree はノードツリーを返します
func (a *Archive) Tree() *Tree {
	return a.tree
}

// Keystream はアーカイブの鍵ストリームを返します
func (a *Archive) Keystream() *crypto.Keystream {
	return a.r.Keystream()
}

// Close はファイルを閉じます
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// loadImage はイメージのプロパティ一覧を解析してツリーに追加します
func (a *Archive) loadImage(t *Tree, id NodeID) error {
	n := t.nodes[id]
	return a.r.readBlockAt(n.image.offset, func(r *Reader) error {
		pos := r.Pos()
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		if tag != 0x73 {
			return &EntryError{Offset: pos, What: "image header", Tag: int(tag), Err: ErrMalformedImage}
		}
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		reserved, err := r.ReadUint16()
		if err != nil {
			return err
		}
		if name != "Property" || reserved != 0 {
			return &EntryError{Offset: pos, What: "image header", Tag: -1, Err: ErrMalformedImage}
		}
		p := &propertyParser{r: r, t: t, base: n.image.offset, logger: a.logger}
		before := len(t.nodes)
		if err := p.parseList(id); err != nil {
			// 途中まで追加されたノードはアリーナごと破棄する
			clear(t.nodes[before:])
			t.nodes = t.nodes[:before]
			n.children = nil
			return err
		}
		return nil
	})
}

// IsMalformed はアーカイブの破損（または暗号鍵の誤り）によるエラーかどうかを返します
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedEntry) || errors.Is(err, ErrMalformedImage)
}

// IsUnsupported は未対応のピクセル形式によるエラーかどうかを返します
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}
