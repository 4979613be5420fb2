package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"sync"
)

// batchSize は鍵ストリームを一度に生成するバイト数です
const batchSize = 4096

// Keystream は IV とユーザー鍵から生成される WZ の鍵ストリームです。
// 生成済みのバイトは再計算されず、バッファは伸長のみ行われます。
// 複数のゴルーチンから同時に使用できます。
type Keystream struct {
	mu    sync.Mutex
	iv    [4]byte
	block cipher.Block // nil の場合は暗号化なし（全バイト0）
	keys  []byte
}

// NewKeystream は指定された IV の鍵ストリームを作成します。
// IV をリトルエンディアンの int32 として読んだ値が 0 の場合、鍵ストリームは常に 0 になります。
func NewKeystream(iv [4]byte) *Keystream {
	k := &Keystream{iv: iv}
	if binary.LittleEndian.Uint32(iv[:]) == 0 {
		return k
	}
	block, err := aes.NewCipher(userKey[:])
	if err != nil {
		// 32バイト鍵では発生しない
		panic(err)
	}
	k.block = block
	return k
}

// NewVariantKeystream はバリアントの IV から鍵ストリームを作成します
func NewVariantKeystream(v Variant) *Keystream {
	return NewKeystream(v.IV())
}

// Encrypted は鍵ストリームが0以外の値を生成するかどうかを返します
func (k *Keystream) Encrypted() bool {
	return k.block != nil
}

// IV は初期化ベクタを返します
func (k *Keystream) IV() [4]byte {
	return k.iv
}

// At は index 番目の鍵ストリームバイトを返します
func (k *Keystream) At(index int) byte {
	if index < 0 {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ensure(index + 1)
	return k.keys[index]
}

// Bytes は先頭 n バイトの鍵ストリームを返します。
// 返されるスライスは共有されるため変更してはいけません。
func (k *Keystream) Bytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ensure(n)
	return k.keys[:n:n]
}

// XOR は data の各バイトを鍵ストリームの先頭から XOR します
func (k *Keystream) XOR(data []byte) {
	if k.block == nil || len(data) == 0 {
		return
	}
	XOR(data, k.Bytes(len(data)))
}

// Len は生成済みのバイト数を返します
func (k *Keystream) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.keys)
}

// ensure は少なくとも size バイトが生成されている状態にします。
// 呼び出し側で mu を保持している必要があります。
func (k *Keystream) ensure(size int) {
	if len(k.keys) >= size {
		return
	}
	newSize := (size + batchSize - 1) / batchSize * batchSize
	keys := make([]byte, newSize)
	start := copy(keys, k.keys)

	if k.block == nil {
		k.keys = keys
		return
	}

	if start == 0 {
		// 最初のブロックは IV を4回繰り返したものを暗号化する
		for i := 0; i < 16; i += 4 {
			copy(keys[i:i+4], k.iv[:])
		}
		k.block.Encrypt(keys[0:16], keys[0:16])
		start = 16
	}

	// 以降のブロックは直前の16バイトを暗号化したもの
	for i := start; i < newSize; i += 16 {
		k.block.Encrypt(keys[i:i+16], keys[i-16:i])
	}
	k.keys = keys
}
