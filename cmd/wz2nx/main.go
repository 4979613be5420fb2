package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiroemons/go-wz2nx/internal/converter/app"
	"github.com/shiroemons/go-wz2nx/internal/converter/config"
)

func main() {
	// コマンドライン引数の解析
	cfg := config.ParseFlags()

	// バージョン表示の処理
	config.HandleVersion(cfg.ShowVersion)

	// Ctrl+C で変換を中断する
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// アプリケーションの実行
	application := app.New(cfg)
	if err := application.Run(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(1)
	}
}
