package nx

import (
	"unicode/utf16"
	"unicode/utf8"
)

// CompareNames は子ノードの並び順で a と b を比較します。
// UTF-16 のコード単位を先頭から比べるため、U+10000 以上の文字は U+E000〜U+FFFF より前に並びます。
func CompareNames(a, b string) int {
	for len(a) > 0 && len(b) > 0 {
		ra, na := utf8.DecodeRuneInString(a)
		rb, nb := utf8.DecodeRuneInString(b)
		if ra != rb {
			if ka, kb := unitKey(ra), unitKey(rb); ka < kb {
				return -1
			} else if ka > kb {
				return 1
			}
		}
		a, b = a[na:], b[nb:]
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// unitKey は r の UTF-16 コード単位列を比較用の整数にします
func unitKey(r rune) uint32 {
	if r < 0x10000 {
		return uint32(r) << 16
	}
	hi, lo := utf16.EncodeRune(r)
	return uint32(hi)<<16 | uint32(lo)
}
