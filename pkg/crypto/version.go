package crypto

import "strconv"

// MaxRealVersion はバージョン総当たりで試す最大のバージョン番号です
const MaxRealVersion = 32767

// VersionHash は実バージョン番号からバージョンハッシュを計算します。
// 10進表記の各文字について hash = hash*32 + 文字コード + 1 を繰り返します。
func VersionHash(realVersion int) uint32 {
	var hash uint32
	for _, ch := range strconv.Itoa(realVersion) {
		hash = hash*32 + uint32(ch) + 1
	}
	return hash
}

// VersionCheck はバージョンハッシュからヘッダーに格納される検査バイトを計算します
func VersionCheck(hash uint32) uint16 {
	b0 := hash & 0xFF
	b1 := (hash >> 8) & 0xFF
	b2 := (hash >> 16) & 0xFF
	b3 := (hash >> 24) & 0xFF
	return uint16(0xFF ^ b3 ^ b2 ^ b1 ^ b0)
}

// MatchVersion は実バージョン番号が暗号化バージョン値と一致するか確認し、一致した場合はハッシュを返します
func MatchVersion(encVersion uint16, realVersion int) (uint32, bool) {
	hash := VersionHash(realVersion)
	return hash, VersionCheck(hash) == encVersion
}
