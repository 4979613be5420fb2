// Package errors はカスタムエラータイプを提供します
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrFileNotFound はファイルが見つからない場合のエラー
	ErrFileNotFound = errors.New("ファイルが見つかりません")

	// ErrNoInputFiles は入力ファイルがない場合のエラー
	ErrNoInputFiles = errors.New("変換する .wz ファイルがありません")

	// ErrVerifyFailed は出力したNXファイルの検証に失敗した場合のエラー
	ErrVerifyFailed = errors.New("出力ファイルの検証に失敗しました")
)

// ArchiveError はアーカイブ関連のエラー
type ArchiveError struct {
	Op   string // 実行していた操作
	Path string // ファイルパス
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError は新しいArchiveErrorを作成します
func NewArchiveError(op, path string, err error) *ArchiveError {
	return &ArchiveError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// ConvertError は変換ジョブのエラー
type ConvertError struct {
	File string // 入力ファイル名
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ConvertError) Error() string {
	return fmt.Sprintf("%sの変換エラー: %v", e.File, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ConvertError) Unwrap() error {
	return e.Err
}

// NewConvertError は新しいConvertErrorを作成します
func NewConvertError(file string, err error) *ConvertError {
	return &ConvertError{
		File: file,
		Err:  err,
	}
}
