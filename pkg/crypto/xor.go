package crypto

// XOR はデータの各バイトを key の同じ位置のバイトで XOR します。
// key が data より短い場合、残りのバイトはそのままです。
func XOR(data []byte, key []byte) {
	n := len(data)
	if len(key) < n {
		n = len(key)
	}
	for i := 0; i < n; i++ {
		data[i] ^= key[i]
	}
}
