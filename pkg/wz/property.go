package wz

import (
	"fmt"

	"github.com/shiroemons/go-wz2nx/pkg/texture"
)

// プロパティの型タグ
const (
	tagNull     = 0
	tagInt16    = 2
	tagInt32    = 3
	tagFloat    = 4
	tagDouble   = 5
	tagString   = 8
	tagExtended = 9
	tagInt16Alt = 11
	tagInt32Alt = 19
	tagInt64    = 20
)

// 拡張プロパティの正規名
const (
	extProperty = "Property"
	extCanvas   = "Canvas"
	extVector   = "Shape2D#Vector2D"
	extConvex   = "Shape2D#Convex2D"
	extSound    = "Sound_DX8"
	extLink     = "UOL"
)

// propertyParser はイメージ内のプロパティ一覧を解析します。
// base はイメージ先頭のオフセットで、参照文字列の起点になります。
type propertyParser struct {
	r      *Reader
	t      *Tree
	base   int64
	logger Logger
}

// parseList は件数付きのプロパティ一覧を読み込み parent に追加します
func (p *propertyParser) parseList(parent NodeID) error {
	r := p.r
	pos := r.Pos()
	count, err := r.ReadCompressedInt()
	if err != nil {
		return err
	}
	if count < 0 || int64(count) > r.remaining() {
		return &EntryError{Offset: pos, What: fmt.Sprintf("property count %d", count), Tag: -1, Err: ErrMalformedEntry}
	}

	for i := 0; i < int(count); i++ {
		name, err := r.ReadStringBlock(p.base)
		if err != nil {
			return err
		}
		if err := p.parseValue(parent, name); err != nil {
			return err
		}
	}
	return nil
}

// parseValue は型タグと値を読み込みます
func (p *propertyParser) parseValue(parent NodeID, name string) error {
	r := p.r
	pos := r.Pos()
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}

	n := &Node{Name: name}
	switch tag {
	case tagNull:
		n.Kind = KindNull
	case tagInt16, tagInt16Alt:
		v, err := r.ReadInt16()
		if err != nil {
			return err
		}
		n.Kind, n.Int = KindInt16, int64(v)
	case tagInt32, tagInt32Alt:
		v, err := r.ReadCompressedInt()
		if err != nil {
			return err
		}
		n.Kind, n.Int = KindInt32, int64(v)
	case tagInt64:
		v, err := r.ReadCompressedLong()
		if err != nil {
			return err
		}
		n.Kind, n.Int = KindInt64, v
	case tagFloat:
		flag, err := r.ReadByte()
		if err != nil {
			return err
		}
		n.Kind = KindFloat
		switch flag {
		case 0x80:
			v, err := r.ReadFloat32()
			if err != nil {
				return err
			}
			n.Float = float64(v)
		case 0x00:
		default:
			return malformed(pos, fmt.Sprintf("float property %q", name), int(flag))
		}
	case tagDouble:
		v, err := r.ReadFloat64()
		if err != nil {
			return err
		}
		n.Kind, n.Float = KindDouble, v
	case tagString:
		v, err := r.ReadStringBlock(p.base)
		if err != nil {
			return err
		}
		n.Kind, n.Text = KindString, v
	case tagExtended:
		size, err := r.ReadUint32()
		if err != nil {
			return err
		}
		end := r.Pos() + int64(size)
		if err := p.parseExtended(parent, name); err != nil {
			return err
		}
		// 拡張プロパティの読み込み量が宣言サイズと異なる場合は末尾に合わせる
		if r.Pos() != end {
			return r.Seek(end)
		}
		return nil
	default:
		return malformed(pos, fmt.Sprintf("property %q", name), int(tag))
	}
	p.t.Add(parent, n)
	return nil
}

// parseExtended は正規名で種類が決まる拡張プロパティを読み込みます
func (p *propertyParser) parseExtended(parent NodeID, name string) error {
	r := p.r
	pos := r.Pos()
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}

	var kind string
	switch tag {
	case 0x01, 0x1B:
		off, err := r.ReadInt32()
		if err != nil {
			return err
		}
		if kind, err = r.ReadStringAt(p.base + int64(off)); err != nil {
			return err
		}
	case 0x00, 0x73:
		if kind, err = r.ReadString(); err != nil {
			return err
		}
	default:
		return malformed(pos, fmt.Sprintf("extended property %q", name), int(tag))
	}

	switch kind {
	case extProperty:
		if err := r.Skip(2); err != nil {
			return err
		}
		id := p.t.Add(parent, &Node{Name: name, Kind: KindSubProperty})
		return p.parseList(id)

	case extCanvas:
		if err := r.Skip(1); err != nil {
			return err
		}
		hasList, err := r.ReadByte()
		if err != nil {
			return err
		}
		n := &Node{Name: name, Kind: KindCanvas}
		id := p.t.Add(parent, n)
		if hasList == 1 {
			if err := r.Skip(2); err != nil {
				return err
			}
			if err := p.parseList(id); err != nil {
				return err
			}
		}
		c, err := p.parseCanvas()
		if err != nil {
			return err
		}
		n.Canvas = c
		return nil

	case extVector:
		x, err := r.ReadCompressedInt()
		if err != nil {
			return err
		}
		y, err := r.ReadCompressedInt()
		if err != nil {
			return err
		}
		p.t.Add(parent, &Node{Name: name, Kind: KindVector, X: x, Y: y})
		return nil

	case extConvex:
		cpos := r.Pos()
		count, err := r.ReadCompressedInt()
		if err != nil {
			return err
		}
		if count < 0 || int64(count) > r.remaining() {
			return &EntryError{Offset: cpos, What: fmt.Sprintf("convex count %d", count), Tag: -1, Err: ErrMalformedEntry}
		}
		id := p.t.Add(parent, &Node{Name: name, Kind: KindConvex})
		// 要素は名前を持たないため、Convex 自身の名前を引き継ぐ
		for i := 0; i < int(count); i++ {
			if err := p.parseExtended(id, name); err != nil {
				return err
			}
		}
		return nil

	case extSound:
		s, err := parseSound(r, p.logger)
		if err != nil {
			return err
		}
		p.t.Add(parent, &Node{Name: name, Kind: KindSound, Sound: s})
		return nil

	case extLink:
		if err := r.Skip(1); err != nil {
			return err
		}
		lpos := r.Pos()
		ltag, err := r.ReadByte()
		if err != nil {
			return err
		}
		var path string
		switch ltag {
		case 0:
			path, err = r.ReadString()
		case 1:
			var off int32
			if off, err = r.ReadInt32(); err == nil {
				path, err = r.ReadStringAt(p.base + int64(off))
			}
		default:
			return malformed(lpos, fmt.Sprintf("link %q", name), int(ltag))
		}
		if err != nil {
			return err
		}
		p.t.Add(parent, NewLinkNode(name, path))
		return nil
	}

	return &EntryError{Offset: pos, What: fmt.Sprintf("extended property %q (%q)", name, kind), Tag: -1, Err: ErrMalformedEntry}
}

// parseCanvas はキャンバスのメタデータを読み込み、圧縮データを読み飛ばします
func (p *propertyParser) parseCanvas() (*Canvas, error) {
	r := p.r
	pos := r.Pos()
	width, err := r.ReadCompressedInt()
	if err != nil {
		return nil, err
	}
	height, err := r.ReadCompressedInt()
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, &EntryError{Offset: pos, What: fmt.Sprintf("canvas size %dx%d", width, height), Tag: -1, Err: ErrMalformedEntry}
	}
	fa, err := r.ReadCompressedInt()
	if err != nil {
		return nil, err
	}
	fb, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(4); err != nil {
		return nil, err
	}

	offset := r.Pos()
	l, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	if n := int64(l) - 1; n > 0 {
		if err := r.Skip(n); err != nil {
			return nil, err
		}
	}

	return &Canvas{
		Width:  int(width),
		Height: int(height),
		Format: texture.Format(int(fa) + int(fb)),
		src:    r,
		offset: offset,
		key:    r.Keystream(),
		logger: p.logger,
	}, nil
}
