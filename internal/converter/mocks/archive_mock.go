package mocks

import (
	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// MockArchive はメモリ上のツリーを持つアーカイブのモック
type MockArchive struct {
	TreeValue *wz.Tree
	InfoValue models.ArchiveInfo
	Closed    bool
}

// Tree はツリーを返します
func (a *MockArchive) Tree() *wz.Tree {
	return a.TreeValue
}

// Info はアーカイブ情報を返します
func (a *MockArchive) Info() models.ArchiveInfo {
	return a.InfoValue
}

// Close はアーカイブを閉じます
func (a *MockArchive) Close() error {
	a.Closed = true
	return nil
}

// MockArchiveOpener はArchiveOpenerのモック実装です
type MockArchiveOpener struct {
	Archive   *MockArchive
	Error     error
	OpenCount int
	LastJob   models.Job
}

// Open はモック実装です
func (m *MockArchiveOpener) Open(job models.Job, logger interfaces.Logger) (interfaces.Archive, error) {
	m.OpenCount++
	m.LastJob = job
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Archive, nil
}

// MockSerializer はSerializerのモック実装です
type MockSerializer struct {
	Stats *nx.Stats
	// Data は書き込むデータです（空の場合は何も書き込みません）
	Data  []byte
	Error error
	Opts  nx.Options
}

// Write はモック実装です
func (m *MockSerializer) Write(out nx.Output, tree *wz.Tree, opts nx.Options) (*nx.Stats, error) {
	m.Opts = opts
	if len(m.Data) > 0 {
		if _, err := out.Write(m.Data); err != nil {
			return nil, err
		}
	}
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Stats, nil
}
