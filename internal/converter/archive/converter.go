// Package archive は .wz アーカイブの変換を行います
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shiroemons/go-wz2nx/internal/converter/config"
	cerrors "github.com/shiroemons/go-wz2nx/internal/converter/errors"
	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// Options は変換の設定です
type Options struct {
	Workers     int
	StringLinks bool
	Verify      bool // 書き込み後にNXファイルを読み直して確認する
}

// Converter は .wz ファイルをNXファイルに変換します
type Converter struct {
	logger     *config.DebugLogger
	opener     interfaces.ArchiveOpener
	serializer interfaces.Serializer
	opts       Options
}

// NewConverter は新しいConverterを作成します
func NewConverter(logger *config.DebugLogger, opts Options) *Converter {
	return &Converter{
		logger:     logger,
		opener:     &DefaultArchiveOpener{},
		serializer: &DefaultSerializer{},
		opts:       opts,
	}
}

// NewConverterWithOpener は新しいConverterをオープナー付きで作成します
func NewConverterWithOpener(logger *config.DebugLogger, opener interfaces.ArchiveOpener, serializer interfaces.Serializer, opts Options) *Converter {
	return &Converter{
		logger:     logger,
		opener:     opener,
		serializer: serializer,
		opts:       opts,
	}
}

// open はコンテキストを確認してアーカイブを開きます
func (c *Converter) open(ctx context.Context, job models.Job) (interfaces.Archive, error) {
	// コンテキストのキャンセルチェック
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.logger.Printf("アーカイブファイル %s を開いています（%s）...\n", job.Input, job.Variant)
	a, err := c.opener.Open(job, c.logger.Warner())
	if err != nil {
		return nil, cerrors.NewArchiveError("open", job.Input, err)
	}
	info := a.Info()
	c.logger.Printf("バージョン %d（ハッシュ 0x%08X）, %s\n", info.Version, info.Hash, humanize.Bytes(uint64(info.Size)))
	return a, nil
}

// Convert は job.Input を変換して out に書き込みます
func (c *Converter) Convert(ctx context.Context, job models.Job, out nx.Output) (*models.Result, error) {
	start := time.Now()
	a, err := c.open(ctx, job)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	stats, err := c.serializer.Write(out, a.Tree(), nx.Options{
		Workers:     c.opts.Workers,
		Logger:      c.logger.Warner(),
		StringLinks: c.opts.StringLinks,
		Callback:    c.progress,
		User:        ctx,
	})
	if err != nil {
		if errors.Is(err, nx.ErrAborted) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cerrors.NewArchiveError("write", job.Output, err)
	}

	if c.opts.Verify {
		if err := c.verify(out, a, stats); err != nil {
			return nil, cerrors.NewArchiveError("verify", job.Output, fmt.Errorf("%w: %w", cerrors.ErrVerifyFailed, err))
		}
	}

	c.logger.Printf("%s ノード, %s 文字列, %s ビットマップ, %s サウンドを書き込みました（%s）\n",
		humanize.Comma(int64(stats.Nodes)), humanize.Comma(int64(stats.Strings)),
		humanize.Comma(int64(stats.Bitmaps)), humanize.Comma(int64(stats.Sounds)),
		humanize.Bytes(uint64(stats.Size)))

	return &models.Result{
		Job:      job,
		Archive:  a.Info(),
		Stats:    stats,
		Duration: time.Since(start),
	}, nil
}

// progress は nx.Write の進捗コールバックです。User にはコンテキストが渡されます。
func (c *Converter) progress(msg string, user interface{}) bool {
	if ctx, ok := user.(context.Context); ok && ctx.Err() != nil {
		return false
	}
	c.logger.Printf("  %s\n", msg)
	return true
}

// verify は書き込んだNXファイルのヘッダーとルートノードを確認します
func (c *Converter) verify(out nx.Output, a interfaces.Archive, stats *nx.Stats) error {
	f, err := nx.Parse(out)
	if err != nil {
		return err
	}
	if int(f.Header.Nodes.Count) != stats.Nodes {
		return fmt.Errorf("%w: %d != %d", ErrNodeCountMismatch, f.Header.Nodes.Count, stats.Nodes)
	}
	root, err := f.Root()
	if err != nil {
		return err
	}
	name, err := f.Name(root)
	if err != nil {
		return err
	}
	tree := a.Tree()
	rn := tree.Node(tree.Root())
	children, err := tree.Children(tree.Root())
	if err != nil {
		return err
	}
	if name != strings.TrimSuffix(rn.Name, ".wz") || int(root.ChildCount) != len(children) {
		return fmt.Errorf("%w: %q (%d)", ErrRootMismatch, name, root.ChildCount)
	}
	c.logger.Printf("出力ファイルを確認しました\n")
	return nil
}

// Inspect は出力せずにすべてのイメージを解析し、種類ごとのノード数を返します
func (c *Converter) Inspect(ctx context.Context, job models.Job) (*models.Result, error) {
	start := time.Now()
	a, err := c.open(ctx, job)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	tree := a.Tree()
	kinds := make(map[string]int)
	err = tree.Walk(tree.Root(), func(id wz.NodeID, depth int) (bool, error) {
		n := tree.Node(id)
		if n.Kind == wz.KindImage {
			// コンテキストのキャンセルチェック
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			default:
			}
		}
		kinds[n.Kind.String()]++
		return true, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cerrors.NewArchiveError("parse", job.Input, err)
	}

	return &models.Result{
		Job:      job,
		Archive:  a.Info(),
		Kinds:    kinds,
		Duration: time.Since(start),
	}, nil
}

// List は最上位のエントリを返します
func (c *Converter) List(ctx context.Context, job models.Job) ([]models.Entry, error) {
	a, err := c.open(ctx, job)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	tree := a.Tree()
	children, err := tree.Children(tree.Root())
	if err != nil {
		return nil, cerrors.NewArchiveError("parse", job.Input, err)
	}
	entries := make([]models.Entry, 0, len(children))
	for _, id := range children {
		n := tree.Node(id)
		size, _ := n.ImageSize()
		entries = append(entries, models.Entry{
			Name:     n.Name,
			Kind:     n.Kind.String(),
			Size:     size,
			Children: n.ChildCount(),
		})
	}
	return entries, nil
}
