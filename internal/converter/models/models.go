// Package models はwz2nxコマンドで使用するデータモデルを定義します
package models

import (
	"time"

	"github.com/shiroemons/go-wz2nx/pkg/crypto"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
)

// Job は1つの .wz ファイルの変換ジョブを表します
type Job struct {
	Input   string
	Output  string // 出力する .nx ファイルのパス
	Variant crypto.Variant
	Version int // 実バージョン番号（-1 は総当たり）
}

// ArchiveInfo は開いたアーカイブの情報を表します
type ArchiveInfo struct {
	Name    string
	Size    int64
	Comment string
	Version int
	Hash    uint32
}

// Result は変換結果を表します
type Result struct {
	Job      Job
	Archive  ArchiveInfo
	Stats    *nx.Stats // ドライランの場合は nil
	Kinds    map[string]int
	Duration time.Duration
	Err      error
}

// Entry はアーカイブ最上位のエントリを表します
type Entry struct {
	Name     string
	Kind     string
	Size     int32 // イメージのバイト数（ディレクトリは0）
	Children int   // ディレクトリの子エントリ数
}
