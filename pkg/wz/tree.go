package wz

import (
	"fmt"
	"strings"
)

// Logger は致命的でない警告の出力先です
type Logger interface {
	Printf(format string, a ...any)
}

// loadFunc は未解析イメージの子ノードを読み込む関数です
type loadFunc func(t *Tree, id NodeID) error

// Tree はノードをIDで管理するアリーナ形式のツリーです。
// ルートは常に ID 0 のディレクトリで、親を持ちません。
type Tree struct {
	nodes  []*Node
	load   loadFunc
	logger Logger
}

// NewTree はルートディレクトリだけを持つツリーを作成します
func NewTree(rootName string) *Tree {
	return &Tree{
		nodes: []*Node{{Name: rootName, Kind: KindDirectory, Parent: NoNode}},
	}
}

// SetLogger は警告の出力先を設定します
func (t *Tree) SetLogger(logger Logger) {
	t.logger = logger
}

// logf は警告を出力します
func (t *Tree) logf(format string, a ...any) {
	if t.logger != nil {
		t.logger.Printf(format, a...)
	}
}

// Root はルートノードのIDを返します
func (t *Tree) Root() NodeID {
	return 0
}

// Len はノード数を返します
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node は id のノードを返します。範囲外の場合は nil です。
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Add は parent の末尾に子ノードを追加し、そのIDを返します
func (t *Tree) Add(parent NodeID, n *Node) NodeID {
	id := NodeID(len(t.nodes))
	n.Parent = parent
	if n.Kind == KindLink && n.link == nil {
		n.link = &linkState{}
	}
	t.nodes = append(t.nodes, n)
	if p := t.Node(parent); p != nil {
		p.children = append(p.children, id)
	}
	return id
}

// Children は id の子ノードを挿入順で返します。
// 未解析のイメージはこの時点で解析されます。返されたスライスは変更してはいけません。
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	n := t.Node(id)
	if n == nil {
		return nil, fmt.Errorf("%w: node %d", ErrOutOfRange, id)
	}
	if err := t.ensureLoaded(id); err != nil {
		return nil, err
	}
	return n.children, nil
}

// ensureLoaded はイメージが未解析なら解析します。解析済みなら何もしません。
func (t *Tree) ensureLoaded(id NodeID) error {
	n := t.nodes[id]
	if n.image == nil || n.image.loaded {
		return nil
	}
	if t.load == nil {
		n.image.loaded = true
		return nil
	}
	if err := t.load(t, id); err != nil {
		return fmt.Errorf("イメージ %s の解析に失敗しました: %w", t.Path(id), err)
	}
	n.image.loaded = true
	return nil
}

// Child は id の子から名前が一致するノードを探します（大文字小文字は区別しません）。
// 見つからない場合は NoNode を返します。
func (t *Tree) Child(id NodeID, name string) (NodeID, error) {
	n := t.Node(id)
	if n == nil || !n.Kind.IsContainer() {
		return NoNode, nil
	}
	children, err := t.Children(id)
	if err != nil {
		return NoNode, err
	}
	for _, c := range children {
		if strings.EqualFold(t.nodes[c].Name, name) {
			return c, nil
		}
	}
	return NoNode, nil
}

// Get は id からの相対パス（"/" 区切り）でノードを探します
func (t *Tree) Get(id NodeID, path string) (NodeID, error) {
	cur := id
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if seg == ".." {
			cur = t.nodes[cur].Parent
			if cur == NoNode {
				return NoNode, nil
			}
			continue
		}
		next, err := t.Child(cur, seg)
		if err != nil || next == NoNode {
			return NoNode, err
		}
		cur = next
	}
	return cur, nil
}

// Path はルートからのパスを返します（ログ表示用）
func (t *Tree) Path(id NodeID) string {
	var parts []string
	for cur := id; cur != NoNode; {
		n := t.Node(cur)
		if n == nil {
			break
		}
		parts = append(parts, n.Name)
		cur = n.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Depth はルートからの深さを返します（ルートは0）
func (t *Tree) Depth(id NodeID) int {
	depth := 0
	for cur := t.nodes[id].Parent; cur != NoNode; cur = t.nodes[cur].Parent {
		depth++
	}
	return depth
}

// Walk は id 以下のノードを深さ優先で訪問します。
// fn が false を返すとそのノードの子は訪問しません。
func (t *Tree) Walk(id NodeID, fn func(id NodeID, depth int) (bool, error)) error {
	return t.walk(id, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(id NodeID, depth int) (bool, error)) error {
	descend, err := fn(id, depth)
	if err != nil || !descend {
		return err
	}
	children, err := t.Children(id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
