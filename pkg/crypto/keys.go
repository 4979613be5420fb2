// Package crypto はWZアーカイブで使用される鍵ストリーム・オフセット暗号・バージョンハッシュを提供します。
package crypto

import (
	"errors"
	"fmt"
	"strings"
)

// OffsetConstant はオフセット復号で減算される定数です
const OffsetConstant uint32 = 0x581C3F6D

// userKey は鍵ストリーム生成に使用する AES-256 鍵です。
// 元の128バイト鍵から16バイトおきに取り出した値を4バイト境界に配置したものです。
var userKey = [32]byte{
	0x13, 0x00, 0x00, 0x00,
	0x08, 0x00, 0x00, 0x00,
	0x06, 0x00, 0x00, 0x00,
	0xB4, 0x00, 0x00, 0x00,
	0x1B, 0x00, 0x00, 0x00,
	0x0F, 0x00, 0x00, 0x00,
	0x33, 0x00, 0x00, 0x00,
	0x52, 0x00, 0x00, 0x00,
}

// UserKey は AES-256 鍵のコピーを返します
func UserKey() [32]byte {
	return userKey
}

// Variant はアーカイブの地域バリアント（IVの選択）を表します
type Variant int

const (
	VariantGMS      Variant = iota // グローバル版
	VariantEMS                     // ヨーロッパ版
	VariantBMS                     // 暗号化なし
	VariantClassic                 // 旧クライアント（暗号化なし）
	VariantGenerate                // IV を推測するモード（解析不可）
)

var (
	// ErrUnknownVariant はバリアント名が不明な場合のエラー
	ErrUnknownVariant = errors.New("不明な暗号バリアントです")
)

var variantNames = []string{"gms", "ems", "bms", "classic", "generate"}

// IV はバリアントに対応する4バイトの初期化ベクタを返します
func (v Variant) IV() [4]byte {
	switch v {
	case VariantGMS:
		return [4]byte{0x4D, 0x23, 0xC7, 0x2B}
	case VariantEMS:
		return [4]byte{0xB9, 0x7D, 0x63, 0xE9}
	default:
		return [4]byte{}
	}
}

// String はバリアント名を返します
func (v Variant) String() string {
	if v >= 0 && int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant は名前からバリアントを取得します。
// "none" と "" は BMS と同じく暗号化なしとして扱います。
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gms":
		return VariantGMS, nil
	case "ems":
		return VariantEMS, nil
	case "bms", "none", "":
		return VariantBMS, nil
	case "classic":
		return VariantClassic, nil
	case "generate":
		return VariantGenerate, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
}

// VariantNames はCLIのヘルプ表示用にバリアント名の一覧を返します
func VariantNames() []string {
	names := make([]string, len(variantNames))
	copy(names, variantNames)
	return names
}
