package wz

import "fmt"

// Kind はノードの種類です
type Kind uint8

const (
	KindDirectory Kind = iota
	KindImage
	KindNull
	KindInt16
	KindInt32
	KindInt64
	KindFloat
	KindDouble
	KindString
	KindVector
	KindSubProperty
	KindConvex
	KindCanvas
	KindSound
	KindLink
)

var kindNames = [...]string{
	KindDirectory:   "Directory",
	KindImage:       "Image",
	KindNull:        "Null",
	KindInt16:       "Int16",
	KindInt32:       "Int32",
	KindInt64:       "Int64",
	KindFloat:       "Float",
	KindDouble:      "Double",
	KindString:      "String",
	KindVector:      "Vector2D",
	KindSubProperty: "Property",
	KindConvex:      "Convex2D",
	KindCanvas:      "Canvas",
	KindSound:       "Sound",
	KindLink:        "UOL",
}

// String は種類名を返します
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsContainer は子ノードを持つ種類かどうかを返します
func (k Kind) IsContainer() bool {
	switch k {
	case KindDirectory, KindImage, KindSubProperty, KindConvex, KindCanvas:
		return true
	}
	return false
}

// IsInteger は整数値を持つ種類かどうかを返します
func (k Kind) IsInteger() bool {
	return k == KindInt16 || k == KindInt32 || k == KindInt64
}

// IsFloat は浮動小数点値を持つ種類かどうかを返します
func (k Kind) IsFloat() bool {
	return k == KindFloat || k == KindDouble
}

// NodeID はツリー内のノード番号です
type NodeID int32

// NoNode は存在しないノードを表します
const NoNode NodeID = -1

// Node はツリーの要素です。値は Kind に応じたフィールドに格納されます。
type Node struct {
	Name   string
	Kind   Kind
	Parent NodeID

	Int   int64   // Int16 / Int32 / Int64
	Float float64 // Float / Double（Float は float32 から拡張）
	Text  string  // String の値、Link のパス
	X, Y  int32   // Vector2D

	Canvas *Canvas
	Sound  *Sound

	children []NodeID
	image    *imageState
	link     *linkState
}

// imageState はイメージの遅延解析状態です
type imageState struct {
	offset int64
	size   int32
	loaded bool
}

// linkState はリンク解決結果のキャッシュです
type linkState struct {
	state  int
	target NodeID
	err    error
}

// NewImageNode は未解析のイメージノードを作成します。
// Tree.Children が最初に呼ばれたときに offset から解析されます。
func NewImageNode(name string, offset int64, size int32) *Node {
	return &Node{
		Name:  name,
		Kind:  KindImage,
		image: &imageState{offset: offset, size: size},
	}
}

// NewLinkNode はリンクノードを作成します
func NewLinkNode(name, path string) *Node {
	return &Node{
		Name: name,
		Kind: KindLink,
		Text: path,
		link: &linkState{},
	}
}

// ImageOffset はイメージのファイル内オフセットを返します
func (n *Node) ImageOffset() (int64, bool) {
	if n.image == nil {
		return 0, false
	}
	return n.image.offset, true
}

// ImageSize はディレクトリに記録されたイメージのバイト数を返します
func (n *Node) ImageSize() (int32, bool) {
	if n.image == nil {
		return 0, false
	}
	return n.image.size, true
}

// Loaded はイメージが解析済みかどうかを返します。イメージ以外は常に true です。
func (n *Node) Loaded() bool {
	return n.image == nil || n.image.loaded
}

// ChildCount は現在保持している子ノード数を返します（未解析イメージは0）
func (n *Node) ChildCount() int {
	return len(n.children)
}
