// Package interfaces はwz2nxコマンドで使用するインターフェースを定義します
package interfaces

import (
	"context"
	"io"

	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// FileSystem はファイルシステム操作のインターフェース
type FileSystem interface {
	FileExists(filename string) bool
	ReadFile(filename string) ([]byte, error)
	MkdirAll(path string, perm uint32) error
	Create(name string) (OutputFile, error)
	Remove(name string) error
	Stat(name string) (FileInfo, error)
	ReadDir(dirname string) ([]DirEntry, error)
	Getwd() (string, error)
}

// OutputFile は .nx ファイルの書き込み先です
type OutputFile interface {
	nx.Output
	io.Closer
}

// FileInfo はファイル情報のインターフェース
type FileInfo interface {
	Name() string
	IsDir() bool
	Size() int64
}

// DirEntry はディレクトリエントリのインターフェース
type DirEntry interface {
	Name() string
	IsDir() bool
}

// Converter は .wz ファイルを変換するインターフェースです
type Converter interface {
	// Convert は job.Input を変換して out に書き込みます
	Convert(ctx context.Context, job models.Job, out nx.Output) (*models.Result, error)
	// Inspect は出力せずにすべてのイメージを解析します
	Inspect(ctx context.Context, job models.Job) (*models.Result, error)
	// List は最上位のエントリを返します
	List(ctx context.Context, job models.Job) ([]models.Entry, error)
}

// Archive は開いた変換元アーカイブのインターフェース
type Archive interface {
	Tree() *wz.Tree
	Info() models.ArchiveInfo
	Close() error
}

// ArchiveOpener はアーカイブを開くためのインターフェース
type ArchiveOpener interface {
	Open(job models.Job, logger Logger) (Archive, error)
}

// Serializer はツリーをNX形式で書き込むインターフェース
type Serializer interface {
	Write(out nx.Output, tree *wz.Tree, opts nx.Options) (*nx.Stats, error)
}

// WzFileFinder は.wzファイルを検索するインターフェースです
type WzFileFinder interface {
	Find() ([]string, error)
}

// Logger はログ出力のインターフェース
type Logger interface {
	Printf(format string, a ...any)
}
