package archive

import "errors"

var (
	// ErrRootMismatch は出力したNXファイルのルートが元のツリーと一致しない場合のエラー
	ErrRootMismatch = errors.New("出力ファイルのルートノードが一致しません")

	// ErrNodeCountMismatch は出力したNXファイルのノード数が一致しない場合のエラー
	ErrNodeCountMismatch = errors.New("出力ファイルのノード数が一致しません")
)
