package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shiroemons/go-wz2nx/pkg/wz"
)

// 抽出ジョブを表す構造体
type extractJob struct {
	path   string // ルートからの相対パス（拡張子なし）
	canvas *wz.Canvas
	sound  *wz.Sound
}

// 抽出結果
type extractResult struct {
	Files   int
	Bytes   int64
	Skipped int // 未対応のピクセル形式
}

// logger は抽出処理のログ出力先です
type logger interface {
	Printf(format string, a ...any)
	Warnf(format string, a ...any)
}

// listArchive はルート直下のエントリを表示します
func listArchive(w io.Writer, tree *wz.Tree) error {
	children, err := tree.Children(tree.Root())
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "アーカイブ内のエントリ一覧:")
	fmt.Fprintln(w, "----------------------------")
	fmt.Fprintf(w, "%-32s %-10s %10s\n", "名前", "種類", "サイズ")
	fmt.Fprintln(w, "----------------------------")
	if len(children) == 0 {
		fmt.Fprintln(w, "エントリがありません")
		return nil
	}
	for _, id := range children {
		n := tree.Node(id)
		size := "-"
		if s, ok := n.ImageSize(); ok {
			size = fmt.Sprint(s)
		}
		fmt.Fprintf(w, "%-32s %-10s %10s\n", n.Name, n.Kind, size)
	}
	fmt.Fprintln(w, "----------------------------")
	return nil
}

// collectJobs は paths 以下のキャンバスとサウンドを集めます。
// paths が空の場合はツリー全体が対象です。
func collectJobs(tree *wz.Tree, paths []string) (jobs []extractJob, notFound []string, err error) {
	roots := []wz.NodeID{tree.Root()}
	if len(paths) > 0 {
		roots = roots[:0]
		for _, p := range paths {
			id, err := tree.Get(tree.Root(), p)
			if err != nil {
				return nil, nil, err
			}
			if id == wz.NoNode {
				notFound = append(notFound, p)
				continue
			}
			roots = append(roots, id)
		}
	}

	for _, root := range roots {
		err := tree.Walk(root, func(id wz.NodeID, _ int) (bool, error) {
			n := tree.Node(id)
			switch {
			case n.Kind == wz.KindCanvas && n.Canvas != nil:
				jobs = append(jobs, extractJob{path: relativePath(tree, id), canvas: n.Canvas})
			case n.Kind == wz.KindSound && n.Sound != nil:
				jobs = append(jobs, extractJob{path: relativePath(tree, id), sound: n.Sound})
			}
			return n.Kind.IsContainer(), nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return jobs, notFound, nil
}

// relativePath はルート名を除いたパスを返します
func relativePath(tree *wz.Tree, id wz.NodeID) string {
	p := tree.Path(id)
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// extractAll はジョブを並列に処理して outDir に書き出します。
// 失敗したジョブがあっても残りの処理は続け、最初のエラーを返します。
func extractAll(ctx context.Context, jobs []extractJob, outDir string, workers int, log logger) (extractResult, error) {
	if workers <= 0 {
		workers = 4 // デフォルトのワーカー数
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return extractResult{}, fmt.Errorf("出力ディレクトリを作成できません: %w", err)
	}

	var (
		mu       sync.Mutex // result と firstErr を保護
		result   extractResult
		firstErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := extractOne(job, outDir)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Files++
				result.Bytes += n
				log.Printf("成功: %s\n", job.path)
			case wz.IsUnsupported(err):
				result.Skipped++
				log.Printf("スキップ: %s (%v)\n", job.path, err)
			default:
				log.Warnf("抽出に失敗しました: %s - %v\n", job.path, err)
				if firstErr == nil {
					firstErr = fmt.Errorf("抽出エラー: %s (%w)", job.path, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, firstErr
}

// extractOne はジョブを1件ファイルに書き出し、書き込んだバイト数を返します
func extractOne(job extractJob, outDir string) (int64, error) {
	var (
		ext   string
		write func(w io.Writer) error
	)
	switch {
	case job.canvas != nil:
		pix, err := job.canvas.Pixels()
		if err != nil {
			return 0, err
		}
		defer job.canvas.Discard()
		ext = ".png"
		write = func(w io.Writer) error {
			return writePNG(w, job.canvas.Width, job.canvas.Height, pix)
		}
	case job.sound != nil:
		data, err := job.sound.Bytes()
		if err != nil {
			return 0, err
		}
		defer job.sound.Discard()
		ext = soundExt(job.sound)
		write = func(w io.Writer) error {
			if ext == ".wav" {
				return writeWAV(w, job.sound.Format, data)
			}
			_, err := w.Write(data)
			return err
		}
	default:
		return 0, nil
	}

	outPath := filepath.Join(outDir, filepath.FromSlash(job.path)+ext)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return 0, fmt.Errorf("ディレクトリを作成できません: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}

	// バッファ付きライターを使用
	cw := &countingWriter{w: f}
	bw := bufio.NewWriter(cw)
	werr := write(bw)
	if werr == nil {
		werr = bw.Flush()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(outPath) // 失敗したらファイルを削除
		return 0, werr
	}
	return cw.n, nil
}

// soundExt はサウンド形式に応じた拡張子を返します
func soundExt(s *wz.Sound) string {
	switch {
	case s.Format == nil:
		return ".bin"
	case s.Format.IsMP3():
		return ".mp3"
	case s.Format.IsPCM():
		return ".wav"
	default:
		return ".bin"
	}
}

// writePNG は BGRA のピクセル列を PNG として書き出します
func writePNG(w io.Writer, width, height int, bgra []byte) error {
	if len(bgra) < width*height*4 {
		return fmt.Errorf("ピクセル数が不足しています: %d バイト (%dx%d)", len(bgra), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height*4; i += 4 {
		img.Pix[i] = bgra[i+2]
		img.Pix[i+1] = bgra[i+1]
		img.Pix[i+2] = bgra[i]
		img.Pix[i+3] = bgra[i+3]
	}
	return png.Encode(w, img)
}

// writeWAV は PCM データに RIFF ヘッダーを付けて書き出します
func writeWAV(w io.Writer, f *wz.WaveFormat, data []byte) error {
	hdr := make([]byte, 44)
	copy(hdr, "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+len(data)))
	copy(hdr[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], f.FormatTag)
	binary.LittleEndian.PutUint16(hdr[22:], f.Channels)
	binary.LittleEndian.PutUint32(hdr[24:], f.SamplesPerSec)
	binary.LittleEndian.PutUint32(hdr[28:], f.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(hdr[32:], f.BlockAlign)
	binary.LittleEndian.PutUint16(hdr[34:], f.BitsPerSample)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(len(data)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
