// Package nx はNXアーカイブ（PKG5 形式）の書き込みと読み込みを行うパッケージです。
//
// ファイル構成:
//
//	ヘッダー (52バイト)
//	ノードテーブル (20バイト × ノード数, 4バイト境界)
//	文字列 (u16 長さ + UTF-8, 2バイト境界) + オフセット配列 (u64, 8バイト境界)
//	ビットマップ (u32 長さ + LZ4, 8バイト境界) + オフセット配列
//	サウンド (生データ, 8バイト境界) + オフセット配列
package nx

import (
	"encoding/binary"
	"errors"
)

// Magic はNXファイルのシグネチャです
const Magic = "PKG5"

// HeaderSize はヘッダーのバイト数です
const HeaderSize = 52

// NodeSize はノードレコードのバイト数です
const NodeSize = 20

var (
	// ErrInvalidMagic はファイル先頭が PKG5 でない場合のエラー
	ErrInvalidMagic = errors.New("NXファイルではありません（PKG5 シグネチャがありません）")

	// ErrTooManyChildren は子ノード数が65535を超える場合のエラー
	ErrTooManyChildren = errors.New("子ノードが多すぎます")

	// ErrStringTooLong は文字列が65535バイトを超える場合のエラー
	ErrStringTooLong = errors.New("文字列が長すぎます")

	// ErrOutOfRange は ID やオフセットが範囲外の場合のエラー
	ErrOutOfRange = errors.New("範囲外です")

	// ErrAborted はコールバックにより処理が中断された場合のエラー
	ErrAborted = errors.New("処理が中断されました")
)

// Table は配列の要素数と先頭オフセットです
type Table struct {
	Count  uint32
	Offset uint64
}

// Header はNXファイルのヘッダーです
type Header struct {
	Nodes   Table
	Strings Table
	Bitmaps Table
	Sounds  Table
}

// MarshalBinary はヘッダーを52バイトに変換します
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b, Magic)
	pos := 4
	for _, t := range h.tables() {
		binary.LittleEndian.PutUint32(b[pos:], t.Count)
		binary.LittleEndian.PutUint64(b[pos+4:], t.Offset)
		pos += 12
	}
	return b, nil
}

// UnmarshalBinary は52バイトのヘッダーを読み込みます
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize || string(b[:4]) != Magic {
		return ErrInvalidMagic
	}
	pos := 4
	for _, t := range []*Table{&h.Nodes, &h.Strings, &h.Bitmaps, &h.Sounds} {
		t.Count = binary.LittleEndian.Uint32(b[pos:])
		t.Offset = binary.LittleEndian.Uint64(b[pos+4:])
		pos += 12
	}
	return nil
}

func (h Header) tables() [4]Table {
	return [4]Table{h.Nodes, h.Strings, h.Bitmaps, h.Sounds}
}
