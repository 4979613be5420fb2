// Package config はwz2nxコマンドの設定管理を行います
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const Version = "0.1.0"

// Config はアプリケーションの設定を保持します
type Config struct {
	Inputs      []string // 入力する .wz ファイル（空の場合は自動検出）
	OutputDir   string
	Variant     string // gms / ems / bms / classic / none / generate
	GameVersion int    // 実バージョン番号（-1 は総当たり）
	JobFile     string
	Workers     int
	DebugMode   bool
	DryRun      bool
	List        bool
	StringLinks bool
	ShowVersion bool
}

// ParseFlags はコマンドライン引数を解析して設定を返します
func ParseFlags() *Config {
	cfg, err := Parse(os.Args[1:], os.Stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	return cfg
}

// Parse は args を解析します。使い方とエラーは out に出力します。
func Parse(args []string, out io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("wz2nx", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "使用方法: wz2nx [オプション] [ファイル.wz ...]\n")
		fmt.Fprintln(out, "オプション:")
		fs.PrintDefaults()
	}

	// 出力ディレクトリ
	fs.StringVarP(&cfg.OutputDir, "output", "o", ".", "output directory for the generated .nx files")

	// 暗号バリアントとバージョン
	fs.StringVarP(&cfg.Variant, "variant", "c", "gms", "cipher variant (gms, ems, bms, classic, none)")
	fs.IntVarP(&cfg.GameVersion, "version-number", "g", -1, "game version (-1 to detect by brute force)")

	// ジョブファイル
	fs.StringVarP(&cfg.JobFile, "jobs", "j", "", "YAML job file")

	fs.IntVarP(&cfg.Workers, "workers", "w", 0, "number of workers for bitmap conversion (0 = number of CPUs)")
	fs.BoolVarP(&cfg.DebugMode, "debug", "d", false, "enable debug output")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "parse archives without writing output files")
	fs.BoolVarP(&cfg.List, "list", "l", false, "list the top level entries of each archive")
	fs.BoolVar(&cfg.StringLinks, "string-links", false, "write links as \"uol_<path>\" string nodes")
	fs.BoolVarP(&cfg.ShowVersion, "version", "v", false, "show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Inputs = fs.Args()
	return cfg, nil
}

// HandleVersion はバージョン表示を処理します
func HandleVersion(showVersion bool) {
	if showVersion {
		fmt.Printf("wz2nx version %s\n", Version)
		os.Exit(0)
	}
}

// DebugLogger はデバッグ出力を管理します
type DebugLogger struct {
	enabled bool
	out     io.Writer
	warn    io.Writer
}

// NewDebugLogger は新しいDebugLoggerを作成します
func NewDebugLogger(enabled bool) *DebugLogger {
	return &DebugLogger{enabled: enabled, out: os.Stdout, warn: os.Stderr}
}

// NewDebugLoggerWithWriters は出力先を指定してDebugLoggerを作成します
func NewDebugLoggerWithWriters(enabled bool, out, warn io.Writer) *DebugLogger {
	return &DebugLogger{enabled: enabled, out: out, warn: warn}
}

// Printf はデバッグモードが有効な場合のみメッセージを表示します
func (d *DebugLogger) Printf(format string, a ...any) {
	if d.enabled {
		fmt.Fprintf(d.out, format, a...)
	}
}

// Enabled はデバッグモードが有効かどうかを返します
func (d *DebugLogger) Enabled() bool {
	return d.enabled
}

// Warnf は警告を標準エラー出力に表示します（デバッグモードに関係なく表示）
func (d *DebugLogger) Warnf(format string, a ...any) {
	fmt.Fprintf(d.warn, format, a...)
}

// Warner は警告を出力する Printf を持つ値を返します。
// pkg/wz や pkg/nx に警告の出力先として渡します。
func (d *DebugLogger) Warner() *Warner {
	return &Warner{logger: d}
}

// Warner は DebugLogger.Warnf に転送するロガーです
type Warner struct {
	logger *DebugLogger
}

// Printf は警告を出力します
func (w *Warner) Printf(format string, a ...any) {
	w.logger.Warnf(format, a...)
}
