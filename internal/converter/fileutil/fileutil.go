// Package fileutil はファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// WzFilePattern は .wz ファイルのパターン（大文字小文字を区別しない）
	WzFilePattern = regexp.MustCompile(`(?i)^[^.].*\.wz$`)
)

// FileExists はファイルが存在するか確認します
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// GenerateOutputFilename は入力ファイル名から出力ファイル名を生成します
func GenerateOutputFilename(inputPath string) string {
	baseName := filepath.Base(inputPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))

	// Base.wz → Base.nx
	return baseName + ".nx"
}

// OutputPath は出力ディレクトリと入力ファイルから出力パスを返します。
// output が指定されている場合はそれを優先します。
func OutputPath(outputDir, inputPath, output string) string {
	if output != "" {
		return output
	}
	return filepath.Join(outputDir, GenerateOutputFilename(inputPath))
}
