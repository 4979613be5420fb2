// Package mocks はテスト用のモック実装を提供します
package mocks

import (
	"errors"
	"path/filepath"

	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
)

// MockFileSystem はテスト用のファイルシステムモック
type MockFileSystem struct {
	Files       map[string][]byte
	Dirs        map[string]bool
	Created     map[string]*MockFile
	Removed     []string
	WorkingDir  string
	Error       error
	CreateError error
}

// NewMockFileSystem は新しいMockFileSystemを作成します
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:      make(map[string][]byte),
		Dirs:       make(map[string]bool),
		Created:    make(map[string]*MockFile),
		WorkingDir: "/test/dir",
	}
}

// FileExists はファイルが存在するか確認します
func (fs *MockFileSystem) FileExists(filename string) bool {
	if _, exists := fs.Files[filename]; exists {
		return true
	}
	_, exists := fs.Created[filename]
	return exists
}

// ReadFile はファイルを読み込みます
func (fs *MockFileSystem) ReadFile(filename string) ([]byte, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}
	data, exists := fs.Files[filename]
	if !exists {
		return nil, errors.New("file not found")
	}
	return data, nil
}

// MkdirAll はディレクトリを作成します
func (fs *MockFileSystem) MkdirAll(path string, perm uint32) error {
	if fs.Error != nil {
		return fs.Error
	}
	fs.Dirs[path] = true
	return nil
}

// Create はメモリ上のファイルを作成します
func (fs *MockFileSystem) Create(name string) (interfaces.OutputFile, error) {
	if fs.CreateError != nil {
		return nil, fs.CreateError
	}
	f := &MockFile{Buffer: nx.NewBuffer()}
	fs.Created[name] = f
	return f, nil
}

// Remove はファイルを削除します
func (fs *MockFileSystem) Remove(name string) error {
	if _, exists := fs.Created[name]; !exists {
		return errors.New("file not found")
	}
	delete(fs.Created, name)
	fs.Removed = append(fs.Removed, name)
	return nil
}

// Stat はファイル情報を取得します
func (fs *MockFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}
	if data, exists := fs.Files[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}
	if f, exists := fs.Created[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), size: int64(f.Len())}, nil
	}
	if _, exists := fs.Dirs[name]; exists {
		return &MockFileInfo{name: filepath.Base(name), isDir: true}, nil
	}
	return nil, errors.New("file not found")
}

// ReadDir はディレクトリを読み込みます
func (fs *MockFileSystem) ReadDir(dirname string) ([]interfaces.DirEntry, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}

	var entries []interfaces.DirEntry
	for path := range fs.Files {
		if filepath.Dir(path) == dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path)})
		}
	}
	for path := range fs.Dirs {
		if filepath.Dir(path) == dirname && path != dirname {
			entries = append(entries, &MockDirEntry{name: filepath.Base(path), isDir: true})
		}
	}
	if len(entries) == 0 && !fs.Dirs[dirname] {
		return nil, errors.New("directory not found")
	}
	return entries, nil
}

// Getwd は現在の作業ディレクトリを返します
func (fs *MockFileSystem) Getwd() (string, error) {
	if fs.Error != nil {
		return "", fs.Error
	}
	return fs.WorkingDir, nil
}

// MockFile はメモリ上の出力ファイル
type MockFile struct {
	*nx.Buffer
	Closed bool
}

// Close はファイルを閉じます
func (f *MockFile) Close() error {
	f.Closed = true
	return nil
}

// MockFileInfo はテスト用のFileInfo実装
type MockFileInfo struct {
	name  string
	isDir bool
	size  int64
}

// Name はファイル名を返します
func (fi *MockFileInfo) Name() string {
	return fi.name
}

// IsDir はディレクトリかどうかを返します
func (fi *MockFileInfo) IsDir() bool {
	return fi.isDir
}

// Size はファイルサイズを返します
func (fi *MockFileInfo) Size() int64 {
	return fi.size
}

// MockDirEntry はテスト用のDirEntry実装
type MockDirEntry struct {
	name  string
	isDir bool
}

// Name はエントリ名を返します
func (de *MockDirEntry) Name() string {
	return de.name
}

// IsDir はディレクトリかどうかを返します
func (de *MockDirEntry) IsDir() bool {
	return de.isDir
}
