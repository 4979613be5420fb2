package wz

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// soundMarker はサウンドヘッダー先頭の GUID 列です
var soundMarker = [...]byte{
	0x02,
	0x83, 0xEB, 0x36, 0xE4, 0x4F, 0x52, 0xCE, 0x11, 0x9F, 0x53, 0x00, 0x20, 0xAF, 0x0B, 0xA7, 0x70,
	0x8B, 0xEB, 0x36, 0xE4, 0x4F, 0x52, 0xCE, 0x11, 0x9F, 0x53, 0x00, 0x20, 0xAF, 0x0B, 0xA7, 0x70,
	0x00,
	0x01,
	0x81, 0x9F, 0x58, 0x05, 0x56, 0xC3, 0xCE, 0x11, 0xBF, 0x01, 0x00, 0xAA, 0x00, 0x55, 0x59, 0x5A,
}

// waveFormatSize は WAVEFORMATEX 構造体のバイト数です
const waveFormatSize = 18

// 音声フォーマットタグ
const (
	WaveFormatPCM uint16 = 0x0001
	WaveFormatMP3 uint16 = 0x0055
)

// ErrSoundHeader はサウンドヘッダーの解析に失敗した場合のエラー
var ErrSoundHeader = errors.New("サウンドヘッダーの解析に失敗しました")

// WaveFormat はサウンドヘッダー内の WAVEFORMATEX です
type WaveFormat struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraSize      uint16
	Extra          []byte
	Encrypted      bool // 鍵ストリームで暗号化されていた
}

// IsMP3 は MPEG Layer-3 かどうかを返します
func (w *WaveFormat) IsMP3() bool {
	return w.FormatTag == WaveFormatMP3
}

// IsPCM はリニア PCM かどうかを返します
func (w *WaveFormat) IsPCM() bool {
	return w.FormatTag == WaveFormatPCM
}

// Sound は埋め込み音声データです。
// データは最初に Bytes が呼ばれたときに読み込まれ、Discard まで保持されます。
type Sound struct {
	Length   int           // 音声データのバイト数（ヘッダーを含まない）
	Duration time.Duration // 再生時間
	Header   []byte        // GUID 列 + フォーマット記述子
	Format   *WaveFormat   // 解析できなかった場合は nil

	src    *Reader
	offset int64
	data   []byte

	mu     sync.Mutex
	cached []byte
}

// NewSound はメモリ上の音声データから Sound を作成します
func NewSound(data []byte, duration time.Duration, header []byte) *Sound {
	return &Sound{
		Length:   len(data),
		Duration: duration,
		Header:   header,
		data:     data,
	}
}

// Bytes は音声の生データを返します
func (s *Sound) Bytes() ([]byte, error) {
	if s.src == nil {
		return s.data, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	var out []byte
	err := s.src.readBlockAt(s.offset, func(r *Reader) error {
		var err error
		out, err = r.ReadBytes(s.Length)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cached = out
	return out, nil
}

// Discard はキャッシュした音声データを破棄します
func (s *Sound) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// parseSound はカーソル位置から Sound_DX8 を読み込みます
func parseSound(r *Reader, logger Logger) (*Sound, error) {
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	length, err := r.ReadCompressedInt()
	if err != nil {
		return nil, err
	}
	ms, err := r.ReadCompressedInt()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: sound length %d", ErrPayloadLength, length)
	}

	headerOffset := r.Pos()
	if err := r.Skip(int64(len(soundMarker))); err != nil {
		return nil, err
	}
	formatLen, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if err := r.Seek(headerOffset); err != nil {
		return nil, err
	}
	header, err := r.ReadBytes(len(soundMarker) + 1 + int(formatLen))
	if err != nil {
		return nil, err
	}

	s := &Sound{
		Length:   int(length),
		Duration: time.Duration(ms) * time.Millisecond,
		Header:   header,
		src:      r,
		offset:   r.Pos(),
	}
	if wf, err := parseWaveFormat(header[len(soundMarker)+1:], r.Keystream()); err == nil {
		s.Format = wf
	} else if logger != nil {
		logger.Printf("警告: %v\n", err)
	}

	if err := r.Skip(int64(length)); err != nil {
		return nil, err
	}
	return s, nil
}

// parseWaveFormat はフォーマット記述子を解析します。
// 宣言サイズと実サイズが一致しない場合は鍵ストリームで復号して再試行します。
func parseWaveFormat(desc []byte, key *crypto.Keystream) (*WaveFormat, error) {
	if len(desc) < waveFormatSize {
		return nil, fmt.Errorf("%w: 記述子が短すぎます (%d バイト)", ErrSoundHeader, len(desc))
	}
	wf := decodeWaveFormat(desc)
	if waveFormatSize+int(wf.ExtraSize) != len(desc) {
		plain := append([]byte(nil), desc...)
		key.XOR(plain)
		wf = decodeWaveFormat(plain)
		if waveFormatSize+int(wf.ExtraSize) != len(plain) {
			return nil, ErrSoundHeader
		}
		wf.Encrypted = true
	}
	return wf, nil
}

// decodeWaveFormat は WAVEFORMATEX をリトルエンディアンで読み込みます
func decodeWaveFormat(b []byte) *WaveFormat {
	wf := &WaveFormat{
		FormatTag:      binary.LittleEndian.Uint16(b[0:]),
		Channels:       binary.LittleEndian.Uint16(b[2:]),
		SamplesPerSec:  binary.LittleEndian.Uint32(b[4:]),
		AvgBytesPerSec: binary.LittleEndian.Uint32(b[8:]),
		BlockAlign:     binary.LittleEndian.Uint16(b[12:]),
		BitsPerSample:  binary.LittleEndian.Uint16(b[14:]),
		ExtraSize:      binary.LittleEndian.Uint16(b[16:]),
	}
	if len(b) > waveFormatSize {
		wf.Extra = append([]byte(nil), b[waveFormatSize:]...)
	}
	return wf
}
