package archive

import (
	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// DefaultArchiveOpener は .wz ファイルをメモリマップして開く実装
type DefaultArchiveOpener struct{}

// Open はジョブの設定でアーカイブを開きます
func (o *DefaultArchiveOpener) Open(job models.Job, logger interfaces.Logger) (interfaces.Archive, error) {
	a, err := wz.Open(job.Input, wz.Options{
		Variant: job.Variant,
		Version: job.Version,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &wzArchive{Archive: a}, nil
}

// wzArchive は wz.Archive に Info を追加したもの
type wzArchive struct {
	*wz.Archive
}

// Info はアーカイブ情報を返します
func (a *wzArchive) Info() models.ArchiveInfo {
	return models.ArchiveInfo{
		Name:    a.Name,
		Size:    int64(a.Header.Size),
		Comment: a.Header.Comment,
		Version: a.Version,
		Hash:    a.Hash,
	}
}

// DefaultSerializer は nx.Write を使用する実装
type DefaultSerializer struct{}

// Write はツリーをNX形式で書き込みます
func (s *DefaultSerializer) Write(out nx.Output, tree *wz.Tree, opts nx.Options) (*nx.Stats, error) {
	return nx.Write(out, tree, opts)
}
