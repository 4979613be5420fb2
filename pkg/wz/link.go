package wz

import (
	"errors"
	"fmt"
	"strings"
)

// maxLinkSteps はリンクの連鎖をたどる最大回数です
const maxLinkSteps = 64

const (
	linkUnresolved = iota
	linkResolving
	linkResolved
)

// Resolve はリンクの連鎖をたどり、リンク以外のノードを返します。
// リンク以外のノードを渡した場合はそのまま返します。
func (t *Tree) Resolve(id NodeID) (NodeID, error) {
	cur := id
	for step := 0; step < maxLinkSteps; step++ {
		n := t.Node(cur)
		if n == nil {
			return NoNode, fmt.Errorf("%w: node %d", ErrLinkUnresolved, cur)
		}
		if n.Kind != KindLink {
			return cur, nil
		}
		next, err := t.resolveLink(cur)
		if err != nil {
			return NoNode, err
		}
		cur = next
	}
	t.logf("警告: リンクが循環しています: %s\n", t.Path(id))
	return NoNode, fmt.Errorf("%w: %s", ErrLinkCycle, t.Path(id))
}

// LinkTarget はリンクを1段階だけ解決した参照先を返します
func (t *Tree) LinkTarget(id NodeID) (NodeID, error) {
	n := t.Node(id)
	if n == nil || n.Kind != KindLink {
		return id, nil
	}
	return t.resolveLink(id)
}

// resolveLink はリンクのパスを1段階解決し、結果をキャッシュします
func (t *Tree) resolveLink(id NodeID) (NodeID, error) {
	n := t.nodes[id]
	st := n.link
	if st == nil {
		st = &linkState{}
		n.link = st
	}
	switch st.state {
	case linkResolved:
		return st.target, st.err
	case linkResolving:
		return NoNode, fmt.Errorf("%w: %s", ErrLinkCycle, t.Path(id))
	}

	st.state = linkResolving
	target, err := t.walkLink(id)
	st.state = linkResolved
	st.target = target
	st.err = err
	return target, err
}

// walkLink はリンクの親を起点にパスをたどります
func (t *Tree) walkLink(id NodeID) (NodeID, error) {
	n := t.nodes[id]
	target, ok, err := t.walkPath(n.Parent, n.Text)
	if err != nil {
		return NoNode, err
	}
	if ok {
		return target, nil
	}

	// 一部地域のデータはパスの階層が1つ不足しているため、"../" を補って一度だけ再試行する
	target, ok, err = t.walkPath(n.Parent, "../"+n.Text)
	if err != nil {
		return NoNode, err
	}
	if ok {
		return target, nil
	}
	t.logf("警告: リンクを解決できません: %s -> %s\n", t.Path(id), n.Text)
	return NoNode, fmt.Errorf("%w: %s -> %s", ErrLinkUnresolved, t.Path(id), n.Text)
}

// walkPath は scope から "/" 区切りのパスをたどります。
// 途中でたどれなくなった場合は ok=false を返します。
func (t *Tree) walkPath(scope NodeID, path string) (NodeID, bool, error) {
	cur := scope
	for _, seg := range strings.Split(path, "/") {
		if cur == NoNode {
			return NoNode, false, nil
		}
		// 途中のリンクは参照先をスコープとして扱う
		if t.nodes[cur].Kind == KindLink {
			next, err := t.Resolve(cur)
			if err != nil {
				if isCycle(err) {
					return NoNode, false, err
				}
				return NoNode, false, nil
			}
			cur = next
		}
		if seg == ".." {
			cur = t.nodes[cur].Parent
			continue
		}
		next, err := t.Child(cur, seg)
		if err != nil {
			return NoNode, false, err
		}
		cur = next
	}
	if cur == NoNode {
		return NoNode, false, nil
	}
	return cur, true, nil
}

// isCycle はリンクの循環によるエラーかどうかを返します
func isCycle(err error) bool {
	return errors.Is(err, ErrLinkCycle)
}

// AsLink はリンクノードのパスを返します
func (t *Tree) AsLink(id NodeID) (string, bool) {
	n := t.Node(id)
	if n == nil || n.Kind != KindLink {
		return "", false
	}
	return n.Text, true
}

// Value はリンクを解決した値ノードを返します。
// 解決できないリンクは Null として扱います（ok=false）。警告は最初の解決時に一度だけ出力されます。
func (t *Tree) Value(id NodeID) (*Node, bool) {
	target, err := t.Resolve(id)
	if err != nil {
		return nil, false
	}
	n := t.nodes[target]
	if n.Kind == KindNull {
		return n, false
	}
	return n, true
}

// IntValue は整数値を返します
func (t *Tree) IntValue(id NodeID) (int64, bool) {
	n, ok := t.Value(id)
	if !ok || !n.Kind.IsInteger() {
		return 0, false
	}
	return n.Int, true
}

// FloatValue は浮動小数点値を返します
func (t *Tree) FloatValue(id NodeID) (float64, bool) {
	n, ok := t.Value(id)
	if !ok || !n.Kind.IsFloat() {
		return 0, false
	}
	return n.Float, true
}

// StringValue は文字列値を返します
func (t *Tree) StringValue(id NodeID) (string, bool) {
	n, ok := t.Value(id)
	if !ok || n.Kind != KindString {
		return "", false
	}
	return n.Text, true
}

// VectorValue はベクトル値を返します
func (t *Tree) VectorValue(id NodeID) (x, y int32, ok bool) {
	n, ok := t.Value(id)
	if !ok || n.Kind != KindVector {
		return 0, 0, false
	}
	return n.X, n.Y, true
}

// AsPropertyList はリンクを解決したうえで子ノードの一覧を返します。
// コンテナ以外の場合は ok=false です。
func (t *Tree) AsPropertyList(id NodeID) ([]NodeID, bool, error) {
	n, ok := t.Value(id)
	if !ok || !n.Kind.IsContainer() {
		return nil, false, nil
	}
	target, _ := t.Resolve(id)
	children, err := t.Children(target)
	if err != nil {
		return nil, false, err
	}
	return children, true, nil
}

// ByteValue はキャンバスのピクセル列（BGRA）またはサウンドの生データを返します
func (t *Tree) ByteValue(id NodeID) ([]byte, error) {
	n, ok := t.Value(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLinkUnresolved, t.Path(id))
	}
	switch {
	case n.Kind == KindCanvas && n.Canvas != nil:
		return n.Canvas.Pixels()
	case n.Kind == KindSound && n.Sound != nil:
		return n.Sound.Bytes()
	}
	return nil, fmt.Errorf("%s はバイト列を持ちません (%s)", t.Path(id), n.Kind)
}
