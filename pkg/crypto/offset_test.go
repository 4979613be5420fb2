package crypto

import (
	"math/rand/v2"
	"testing"
)

func TestOffset_Bijection(t *testing.T) {
	rng := rand.New(rand.NewPCG(83, 0x581C3F6D))

	params := []struct {
		name   string
		fstart uint32
		hash   uint32
	}{
		{name: "v83", fstart: 60, hash: VersionHash(83)},
		{name: "v176", fstart: 0x3C, hash: VersionHash(176)},
		{name: "大きなfstart", fstart: 0x12345, hash: VersionHash(32767)},
	}

	for _, p := range params {
		t.Run(p.name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				pos := p.fstart + uint32(rng.IntN(1<<24))
				offset := uint32(rng.Int64N(1 << 31))
				enc := EncryptOffset(pos, p.fstart, p.hash, offset)
				if got := DecryptOffset(pos, p.fstart, p.hash, enc); got != offset {
					t.Fatalf("pos=%d offset=%d: DecryptOffset = %d", pos, offset, got)
				}
			}
		})
	}
}

func TestOffset_DependsOnPosition(t *testing.T) {
	hash := VersionHash(83)
	a := EncryptOffset(100, 60, hash, 4096)
	b := EncryptOffset(104, 60, hash, 4096)
	if a == b {
		t.Errorf("異なる位置で同じ暗号値になった: 0x%08X", a)
	}
}

func TestVersionHash(t *testing.T) {
	tests := []struct {
		name      string
		version   int
		wantHash  uint32
		wantCheck uint16
	}{
		// '0' = 48 → 49
		{name: "0", version: 0, wantHash: 49, wantCheck: 0xFF ^ 49},
		// '8' = 56 → 57, '3' = 51 → 57*32+52 = 1876 (0x0754)
		{name: "83", version: 83, wantHash: 1876, wantCheck: 0xAC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := VersionHash(tt.version)
			if hash != tt.wantHash {
				t.Errorf("VersionHash(%d) = %d, want %d", tt.version, hash, tt.wantHash)
			}
			if check := VersionCheck(hash); check != tt.wantCheck {
				t.Errorf("VersionCheck(%d) = 0x%02X, want 0x%02X", hash, check, tt.wantCheck)
			}
			if _, ok := MatchVersion(tt.wantCheck, tt.version); !ok {
				t.Errorf("MatchVersion(0x%02X, %d) = false", tt.wantCheck, tt.version)
			}
		})
	}
}
