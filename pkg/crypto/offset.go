package crypto

import "math/bits"

// offsetKey はオフセットの格納位置から XOR 鍵を計算します
func offsetKey(pos, fstart, hash uint32) uint32 {
	t := (pos - fstart) ^ 0xFFFFFFFF
	t *= hash
	t -= OffsetConstant
	return bits.RotateLeft32(t, int(t&0x1F))
}

// DecryptOffset は pos の位置に格納された暗号化オフセット enc を復号します。
// 計算はすべて32ビット符号なし整数のラップアラウンドに従います。
func DecryptOffset(pos, fstart, hash, enc uint32) uint32 {
	return (offsetKey(pos, fstart, hash) ^ enc) + fstart*2
}

// EncryptOffset は DecryptOffset の逆変換です。
// pos に書き込むと offset に復号される値を返します。
func EncryptOffset(pos, fstart, hash, offset uint32) uint32 {
	return (offset - fstart*2) ^ offsetKey(pos, fstart, hash)
}
