package app

import "errors"

var (
	// ErrLoadJobFile はジョブファイルの読み込みに失敗した場合のエラー
	ErrLoadJobFile = errors.New("ジョブファイルの読み込みに失敗しました")

	// ErrInvalidVariant は暗号バリアントの指定が不正な場合のエラー
	ErrInvalidVariant = errors.New("暗号バリアントの指定が不正です")

	// ErrCreateOutput は出力ファイルを作成できない場合のエラー
	ErrCreateOutput = errors.New("出力ファイルを作成できませんでした")

	// ErrJobsFailed は一部のジョブが失敗した場合のエラー
	ErrJobsFailed = errors.New("変換に失敗したファイルがあります")
)
