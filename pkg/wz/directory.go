package wz

import "fmt"

// maxDirDepth はディレクトリの入れ子の上限です
const maxDirDepth = 64

// ディレクトリエントリの種類
const (
	entrySkip      = 1 // 内容を持たないエントリ
	entryIndirect  = 2 // 名前が文字列テーブルにある
	entryDirectory = 3
	entryImage     = 4
)

// dirParser はディレクトリエントリを解析します
type dirParser struct {
	r       *Reader
	t       *Tree
	visited map[int64]bool
}

func newDirParser(r *Reader, t *Tree) *dirParser {
	return &dirParser{r: r, t: t, visited: make(map[int64]bool)}
}

// subdir は解析待ちのサブディレクトリです
type subdir struct {
	id     NodeID
	offset int64
}

// parse はカーソル位置から parent のエントリを読み込みます。
// 同じ階層のエントリをすべて読んだ後でサブディレクトリを順に解析します。
func (p *dirParser) parse(parent NodeID, depth int) error {
	if depth > maxDirDepth {
		return fmt.Errorf("%w: %s", ErrTooDeep, p.t.Path(parent))
	}
	r := p.r
	pos := r.Pos()
	count, err := r.ReadCompressedInt()
	if err != nil {
		return err
	}
	if count < 0 || int64(count) > r.remaining() {
		return &EntryError{Offset: pos, What: fmt.Sprintf("directory entry count %d", count), Tag: -1, Err: ErrMalformedEntry}
	}

	var dirs []subdir
	for i := 0; i < int(count); i++ {
		entryPos := r.Pos()
		typ, err := r.ReadByte()
		if err != nil {
			return err
		}

		var name string
		switch typ {
		case entrySkip:
			// int32 + int16 + オフセット
			if err := r.Skip(10); err != nil {
				return err
			}
			continue
		case entryIndirect:
			off, err := r.ReadInt32()
			if err != nil {
				return err
			}
			saved := r.Pos()
			if err := r.Seek(int64(r.fstart) + int64(off)); err != nil {
				return err
			}
			if typ, err = r.ReadByte(); err != nil {
				return err
			}
			if typ != entryDirectory && typ != entryImage {
				return malformed(entryPos, "indirect directory entry", int(typ))
			}
			if name, err = r.ReadString(); err != nil {
				return err
			}
			if err := r.Seek(saved); err != nil {
				return err
			}
		case entryDirectory, entryImage:
			if name, err = r.ReadString(); err != nil {
				return err
			}
		default:
			return malformed(entryPos, "directory entry", int(typ))
		}

		size, err := r.ReadCompressedInt()
		if err != nil {
			return err
		}
		if _, err := r.ReadCompressedInt(); err != nil { // チェックサム
			return err
		}
		off, err := r.ReadOffset()
		if err != nil {
			return err
		}
		if int64(off) >= r.Len() {
			return &EntryError{Offset: entryPos, What: fmt.Sprintf("entry %q offset 0x%X", name, off), Tag: -1, Err: ErrOutOfRange}
		}

		if typ == entryDirectory {
			id := p.t.Add(parent, &Node{Name: name, Kind: KindDirectory})
			dirs = append(dirs, subdir{id: id, offset: int64(off)})
		} else {
			p.t.Add(parent, NewImageNode(name, int64(off), size))
		}
	}

	for _, d := range dirs {
		if p.visited[d.offset] {
			return &EntryError{Offset: d.offset, What: fmt.Sprintf("directory %q revisited", p.t.Path(d.id)), Tag: -1, Err: ErrMalformedEntry}
		}
		p.visited[d.offset] = true
		if err := r.Seek(d.offset); err != nil {
			return err
		}
		if err := p.parse(d.id, depth+1); err != nil {
			return err
		}
	}
	return nil
}
