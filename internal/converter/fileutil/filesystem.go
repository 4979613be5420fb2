package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
)

// OSFileSystem は実際のOSファイルシステムを使用する実装
type OSFileSystem struct{}

// NewOSFileSystem は新しいOSFileSystemを作成します
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// FileExists はファイルが存在するか確認します
func (fs *OSFileSystem) FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// ReadFile はファイルを読み込みます
func (fs *OSFileSystem) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// MkdirAll はディレクトリを作成します
func (fs *OSFileSystem) MkdirAll(path string, perm uint32) error {
	if err := os.MkdirAll(path, os.FileMode(perm)); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDirectory, err)
	}
	return nil
}

// Create は書き込み用のファイルを作成します。*os.File は nx.Output を満たします。
func (fs *OSFileSystem) Create(name string) (interfaces.OutputFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFile, err)
	}
	return f, nil
}

// Remove はファイルを削除します
func (fs *OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// Stat はファイル情報を取得します
func (fs *OSFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadDir はディレクトリを読み込みます
func (fs *OSFileSystem) ReadDir(dirname string) ([]interfaces.DirEntry, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}

	result := make([]interfaces.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = entry
	}
	return result, nil
}

// Getwd は現在の作業ディレクトリを取得します
func (fs *OSFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// WzFileFinder は.wzファイルの検索を行います（FileSystemを使用）
type WzFileFinder struct {
	fs interfaces.FileSystem
}

// NewWzFileFinder は新しいWzFileFinderを作成します
func NewWzFileFinder(fs interfaces.FileSystem) *WzFileFinder {
	return &WzFileFinder{fs: fs}
}

// Find はカレントディレクトリの.wzファイルを名前順で返します
func (f *WzFileFinder) Find() ([]string, error) {
	currentDir, err := f.fs.Getwd()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGetCurrentDirectory, err)
	}
	return f.findInDir(currentDir)
}

// findInDir は指定されたディレクトリ内の.wzファイルを検索します
func (f *WzFileFinder) findInDir(dir string) ([]string, error) {
	files, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadDirectory, dir, err)
	}

	var wzFiles []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if WzFilePattern.MatchString(file.Name()) {
			wzFiles = append(wzFiles, filepath.Join(dir, file.Name()))
		}
	}
	sort.Strings(wzFiles)
	return wzFiles, nil
}
