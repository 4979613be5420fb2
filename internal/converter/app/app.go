// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shiroemons/go-wz2nx/internal/converter/archive"
	"github.com/shiroemons/go-wz2nx/internal/converter/config"
	cerrors "github.com/shiroemons/go-wz2nx/internal/converter/errors"
	"github.com/shiroemons/go-wz2nx/internal/converter/fileutil"
	"github.com/shiroemons/go-wz2nx/internal/converter/interfaces"
	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/crypto"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config    *config.Config
	logger    *config.DebugLogger
	converter interfaces.Converter
	finder    interfaces.WzFileFinder
	fs        interfaces.FileSystem
	out       io.Writer
}

// Options はAppの設定オプション
type Options struct {
	FileSystem   interfaces.FileSystem
	Converter    interfaces.Converter
	WzFileFinder interfaces.WzFileFinder
	Logger       *config.DebugLogger
	Output       io.Writer
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(cfg *config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = config.NewDebugLogger(cfg.DebugMode)
	}

	// デフォルトのファイルシステムを設定
	fs := opts.FileSystem
	if fs == nil {
		fs = fileutil.NewOSFileSystem()
	}

	// デフォルトのConverterを設定
	var converter interfaces.Converter
	if opts.Converter != nil {
		converter = opts.Converter
	} else {
		converter = archive.NewConverter(logger, archive.Options{
			Workers:     cfg.Workers,
			StringLinks: cfg.StringLinks,
			Verify:      true,
		})
	}

	// デフォルトのWzFileFinderを設定
	var finder interfaces.WzFileFinder
	if opts.WzFileFinder != nil {
		finder = opts.WzFileFinder
	} else {
		finder = fileutil.NewWzFileFinder(fs)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return &App{
		config:    cfg,
		logger:    logger,
		converter: converter,
		finder:    finder,
		fs:        fs,
		out:       out,
	}
}

// Run はアプリケーションを実行します
func (a *App) Run(ctx context.Context) error {
	jobs, err := a.buildJobs()
	if err != nil {
		return err
	}

	var failed []error
	converted := 0
	for _, job := range jobs {
		// コンテキストのキャンセルチェック
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		switch {
		case a.config.List:
			err = a.listJob(ctx, job)
		case a.config.DryRun:
			err = a.inspectJob(ctx, job)
		default:
			err = a.convertJob(ctx, job)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warnf("エラー: %v\n", err)
			failed = append(failed, err)
			continue
		}
		converted++
	}

	if len(jobs) > 1 {
		fmt.Fprintf(a.out, "%d 件中 %d 件を処理しました\n", len(jobs), converted)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", ErrJobsFailed, errors.Join(failed...))
	}
	return nil
}

// buildJobs はジョブファイルまたは入力ファイルからジョブの一覧を作成します
func (a *App) buildJobs() ([]models.Job, error) {
	if a.config.JobFile != "" {
		return a.loadJobs(a.config.JobFile)
	}

	inputs := a.config.Inputs
	if len(inputs) == 0 {
		found, err := a.finder.Find()
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			a.logger.Printf("%d 個の .wz ファイルを自動検出しました\n", len(found))
		}
		inputs = found
	}
	if len(inputs) == 0 {
		return nil, cerrors.ErrNoInputFiles
	}

	variant, err := parseVariant(a.config.Variant)
	if err != nil {
		return nil, err
	}
	jobs := make([]models.Job, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, models.Job{
			Input:   in,
			Output:  fileutil.OutputPath(a.config.OutputDir, in, ""),
			Variant: variant,
			Version: a.config.GameVersion,
		})
	}
	return jobs, nil
}

// loadJobs はジョブファイルを読み込みます。各ジョブの省略された項目は既定値で補います。
func (a *App) loadJobs(path string) ([]models.Job, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadJobFile, err)
	}
	jf, err := config.ParseJobFile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadJobFile, err)
	}
	jf.Apply(a.config)

	// 相対パスはジョブファイルのディレクトリを基準にする
	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	jobs := make([]models.Job, 0, len(jf.Jobs))
	for _, spec := range jf.Jobs {
		name := a.config.Variant
		if spec.Variant != "" {
			name = spec.Variant
		}
		variant, err := parseVariant(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Input, err)
		}
		version := a.config.GameVersion
		if spec.Version != nil {
			version = *spec.Version
		}
		input := resolve(spec.Input)
		jobs = append(jobs, models.Job{
			Input:   input,
			Output:  fileutil.OutputPath(resolve(a.config.OutputDir), input, resolve(spec.Output)),
			Variant: variant,
			Version: version,
		})
	}
	return jobs, nil
}

// parseVariant はバリアント名を解析します
func parseVariant(name string) (crypto.Variant, error) {
	v, err := crypto.ParseVariant(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidVariant, err)
	}
	return v, nil
}

// convertJob は1つのジョブを変換します。失敗した場合は出力ファイルを削除します。
func (a *App) convertJob(ctx context.Context, job models.Job) error {
	if err := a.fs.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return cerrors.NewConvertError(job.Input, err)
	}
	f, err := a.fs.Create(job.Output)
	if err != nil {
		return cerrors.NewConvertError(job.Input, fmt.Errorf("%w: %w", ErrCreateOutput, err))
	}

	res, err := a.converter.Convert(ctx, job, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		// 途中まで書き込まれたファイルは無効なので削除する
		if rmErr := a.fs.Remove(job.Output); rmErr != nil {
			a.logger.Warnf("警告: 出力ファイルを削除できませんでした: %s: %v\n", job.Output, rmErr)
		}
		if ctx.Err() != nil {
			return err
		}
		return cerrors.NewConvertError(job.Input, err)
	}

	s := res.Stats
	fmt.Fprintf(a.out, "%s → %s（%s, %s ノード, %s）\n",
		filepath.Base(job.Input), job.Output, humanize.Bytes(uint64(s.Size)),
		humanize.Comma(int64(s.Nodes)), res.Duration.Round(time.Millisecond))
	if s.UnresolvedLinks > 0 || s.MissingBitmaps > 0 {
		a.logger.Warnf("警告: %s: 未解決のリンク %d 件, 欠落したビットマップ %d 件\n",
			filepath.Base(job.Input), s.UnresolvedLinks, s.MissingBitmaps)
	}
	return nil
}

// inspectJob は出力せずにアーカイブを解析し、種類ごとのノード数を表示します
func (a *App) inspectJob(ctx context.Context, job models.Job) error {
	res, err := a.converter.Inspect(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return cerrors.NewConvertError(job.Input, err)
	}

	fmt.Fprintf(a.out, "%s: バージョン %d（ハッシュ 0x%08X）\n", filepath.Base(job.Input), res.Archive.Version, res.Archive.Hash)
	kinds := make([]string, 0, len(res.Kinds))
	for k := range res.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(a.out, "  %-10s %s\n", k, humanize.Comma(int64(res.Kinds[k])))
	}
	return nil
}

// listJob は最上位のエントリを表示します
func (a *App) listJob(ctx context.Context, job models.Job) error {
	entries, err := a.converter.List(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return cerrors.NewConvertError(job.Input, err)
	}

	fmt.Fprintf(a.out, "%s:\n", filepath.Base(job.Input))
	for _, e := range entries {
		switch e.Kind {
		case "Image":
			fmt.Fprintf(a.out, "  %-30s %10s\n", e.Name, humanize.Bytes(uint64(e.Size)))
		default:
			fmt.Fprintf(a.out, "  %-30s %10s\n", e.Name+"/", fmt.Sprintf("%d 件", e.Children))
		}
	}
	return nil
}
