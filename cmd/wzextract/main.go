package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/shiroemons/go-wz2nx/internal/converter/config"
	"github.com/shiroemons/go-wz2nx/pkg/crypto"
	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

var (
	extractFlag = flag.BoolP("extract", "x", false, "extract canvases and sounds")
	listFlag    = flag.BoolP("list", "l", false, "list top-level entries")
	outputDir   = flag.StringP("output", "o", ".", "output directory")
	variantName = flag.StringP("variant", "c", "gms", "IV variant (gms, ems, bms, classic)")
	gameVersion = flag.IntP("version-number", "g", -1, "game version (-1 to detect)")
	workerCount = flag.IntP("workers", "w", 4, "number of concurrent extraction workers")
	debugFlag   = flag.BoolP("debug", "d", false, "debug mode (show more info)")
)

func main() {
	flag.Parse()

	// 引数チェック
	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("使用方法: wzextract [オプション] <WZファイル> [パス...]")
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	filename := args[0]
	logger := config.NewDebugLogger(*debugFlag)

	variant, err := crypto.ParseVariant(*variantName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := wz.Open(filename, wz.Options{
		Variant: variant,
		Version: *gameVersion,
		Logger:  logger.Warner(),
	})
	if err != nil {
		if *debugFlag {
			fmt.Fprintf(os.Stderr, "エラー詳細:\n%+v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		}
		os.Exit(1)
	}
	defer archive.Close()

	fmt.Printf("%s を開きました (バージョン %d, %s)\n", filename, archive.Version, humanize.Bytes(archive.Header.Size))

	// リストを表示する
	if *listFlag {
		if err := listArchive(os.Stdout, archive.Tree()); err != nil {
			fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
			os.Exit(1)
		}
	}

	// 抽出対象のパス (WZファイル名の後の引数)
	paths := args[1:]
	if !*extractFlag && len(paths) == 0 {
		return
	}
	if len(paths) > 0 {
		fmt.Printf("%d 個の指定されたパスを抽出中...\n", len(paths))
	} else {
		fmt.Println("アーカイブ内の全キャンバスとサウンドを抽出中...")
	}

	jobs, notFound, err := collectJobs(archive.Tree(), paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
	logger.Printf("抽出対象: %d 件\n", len(jobs))

	result, extractErr := extractAll(ctx, jobs, *outputDir, *workerCount, logger)
	if extractErr != nil {
		fmt.Fprintf(os.Stderr, "抽出処理中にエラーが発生しました: %v\n", extractErr)
	}

	if len(notFound) > 0 {
		fmt.Fprintf(os.Stderr, "\n警告: 指定されたパスのうち、以下は見つかりませんでした:\n")
		for _, p := range notFound {
			fmt.Fprintf(os.Stderr, "- %s\n", p)
		}
	}

	fmt.Printf("\n%d 個のファイルを抽出しました (%s", result.Files, humanize.Bytes(uint64(result.Bytes)))
	if result.Skipped > 0 {
		fmt.Printf(", 未対応 %d 件", result.Skipped)
	}
	fmt.Println(")")
	if extractErr != nil && result.Files == 0 {
		stop()
		os.Exit(1)
	}
}
