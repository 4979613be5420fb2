package wz

import (
	"errors"
	"fmt"

	"github.com/shiroemons/go-wz2nx/pkg/texture"
)

var (
	// ErrInvalidMagic はファイル先頭が PKG1 でない場合のエラー
	ErrInvalidMagic = errors.New("WZファイルではありません（PKG1 シグネチャがありません）")

	// ErrVersionNotFound はバージョンハッシュの総当たりで有効な候補が見つからない場合のエラー
	ErrVersionNotFound = errors.New("有効なバージョンハッシュが見つかりませんでした")

	// ErrGenerateVariant は IV 推測モードで解析しようとした場合のエラー
	ErrGenerateVariant = errors.New("generate バリアントでは解析できません")

	// ErrMalformedEntry は不明なタグや拡張プロパティ名を検出した場合のエラー
	ErrMalformedEntry = errors.New("不正なエントリです（アーカイブの破損または暗号鍵の誤り）")

	// ErrMalformedImage はイメージのヘッダーが不正な場合のエラー
	ErrMalformedImage = errors.New("不正なイメージヘッダーです")

	// ErrUnsupportedFormat は未対応のピクセル形式の場合のエラー
	ErrUnsupportedFormat = texture.ErrUnsupportedFormat

	// ErrPayloadLength はペイロード長が不正な場合のエラー（IV の誤りが多い）
	ErrPayloadLength = errors.New("ペイロード長が不正です（IVが誤っている可能性があります）")

	// ErrLinkUnresolved はリンクの参照先が見つからない場合のエラー
	ErrLinkUnresolved = errors.New("リンクの参照先が見つかりません")

	// ErrLinkCycle はリンクが循環している場合のエラー
	ErrLinkCycle = errors.New("リンクが循環しています")

	// ErrTooDeep はディレクトリの入れ子が深すぎる場合のエラー
	ErrTooDeep = errors.New("ディレクトリの入れ子が深すぎます")

	// ErrOutOfRange は読み込み位置がファイル範囲外の場合のエラー
	ErrOutOfRange = errors.New("読み込み位置がファイル範囲外です")
)

// EntryError は解析中のエントリ位置を含むエラー
type EntryError struct {
	Offset int64  // エラーを検出した位置
	What   string // 解析していた対象
	Tag    int    // 不明なタグ値（該当しない場合は -1）
	Err    error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *EntryError) Error() string {
	if e.Tag >= 0 {
		return fmt.Sprintf("%s (offset 0x%X, tag 0x%02X): %v", e.What, e.Offset, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s (offset 0x%X): %v", e.What, e.Offset, e.Err)
}

// Unwrap は元のエラーを返します
func (e *EntryError) Unwrap() error {
	return e.Err
}

// malformed は ErrMalformedEntry を包んだ EntryError を作成します
func malformed(offset int64, what string, tag int) *EntryError {
	return &EntryError{
		Offset: offset,
		What:   what,
		Tag:    tag,
		Err:    ErrMalformedEntry,
	}
}
