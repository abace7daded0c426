package related

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FieldPath is a bracket-notation field name split into segments:
// "user[avatar]" is ["user", "avatar"]. An empty segment ("files[]")
// appends to a list instead of keying into a map.
type FieldPath []string

// ParseFieldPath splits name on "[" and strips the closing "]" of every
// segment after the first.
func ParseFieldPath(name string) FieldPath {
	segments := strings.Split(name, "[")
	for i := 1; i < len(segments); i++ {
		segments[i] = strings.TrimSuffix(segments[i], "]")
	}
	return FieldPath(segments)
}

// String renders the path back in bracket notation.
func (p FieldPath) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p[0])
	for _, seg := range p[1:] {
		b.WriteByte('[')
		b.WriteString(seg)
		b.WriteByte(']')
	}
	return b.String()
}

// Kind tags the variant held by a Node.
type Kind uint8

const (
	KindMap Kind = iota + 1
	KindList
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Node is one element of a FieldTree: a map (named children plus anonymous
// items appended with "[]"), a list of anonymous items, or a leaf attachment.
type Node struct {
	kind     Kind
	keys     []string
	children map[string]*Node
	items    []*Node
	leaf     *Attachment
}

// NewMap returns an empty map node.
func NewMap() *Node {
	return &Node{kind: KindMap, children: make(map[string]*Node)}
}

// NewList returns an empty list node.
func NewList() *Node {
	return &Node{kind: KindList}
}

// NewLeaf wraps a in a leaf node.
func NewLeaf(a *Attachment) *Node {
	return &Node{kind: KindLeaf, leaf: a}
}

// Kind returns the node variant.
func (n *Node) Kind() Kind {
	if n == nil {
		return 0
	}
	return n.kind
}

// Attachment returns the leaf value, or nil for maps and lists.
func (n *Node) Attachment() *Attachment {
	if n == nil {
		return nil
	}
	return n.leaf
}

// Keys returns the named children in insertion order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Child returns the named child or nil.
func (n *Node) Child(key string) *Node {
	if n == nil || n.kind != KindMap {
		return nil
	}
	return n.children[key]
}

// Items returns the anonymous items in append order.
func (n *Node) Items() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, len(n.items))
	copy(out, n.items)
	return out
}

// Len returns the number of direct children (named and anonymous).
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.keys) + len(n.items)
}

// Leaves returns every attachment below n, depth first:
// named children in insertion order, then anonymous items.
func (n *Node) Leaves() []*Attachment {
	var out []*Attachment
	n.walk(func(a *Attachment) { out = append(out, a) })
	return out
}

func (n *Node) walk(fn func(*Attachment)) {
	if n == nil {
		return
	}
	if n.kind == KindLeaf {
		if n.leaf != nil {
			fn(n.leaf)
		}
		return
	}
	for _, key := range n.keys {
		n.children[key].walk(fn)
	}
	for _, item := range n.items {
		item.walk(fn)
	}
}

func (n *Node) set(key string, child *Node) {
	if _, ok := n.children[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Merge places value at path below tree and returns the resulting node.
// An empty path yields a leaf, replacing whatever was there. A leaf found
// on the way is replaced by a fresh container, so deeper paths always win.
// A list that receives a named key becomes a map that keeps its items.
// tree may be nil and is modified in place when it is already a container.
func Merge(tree *Node, path FieldPath, value *Attachment) *Node {
	if len(path) == 0 {
		return NewLeaf(value)
	}

	key, rest := path[0], path[1:]

	if key == "" {
		if tree == nil || tree.kind == KindLeaf {
			tree = NewList()
		}
		tree.items = append(tree.items, Merge(nil, rest, value))
		return tree
	}

	if tree == nil || tree.kind != KindMap {
		m := NewMap()
		if tree != nil && tree.kind == KindList {
			m.items = tree.items
		}
		tree = m
	}
	tree.set(key, Merge(tree.children[key], rest, value))
	return tree
}

// MarshalJSON encodes maps as objects (anonymous items keyed by their
// position), lists as arrays and leaves as attachments.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}

	switch n.kind {
	case KindLeaf:
		return json.Marshal(n.leaf)
	case KindList:
		if len(n.items) == 0 {
			return []byte("[]"), nil
		}
		return json.Marshal(n.items)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(i int, key string, child *Node) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := child.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	i := 0
	for _, key := range n.keys {
		if err := write(i, key, n.children[key]); err != nil {
			return nil, err
		}
		i++
	}
	for idx, item := range n.items {
		if err := write(i, strconv.Itoa(idx), item); err != nil {
			return nil, err
		}
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FieldTree holds named attachments in the nesting described by their
// bracket-notation form names. The root is always a map.
type FieldTree struct {
	root *Node
}

// NewFieldTree returns an empty tree.
func NewFieldTree() *FieldTree {
	return &FieldTree{root: NewMap()}
}

// Set merges a at the path parsed from name.
func (t *FieldTree) Set(name string, a *Attachment) {
	t.SetPath(ParseFieldPath(name), a)
}

// SetPath merges a at path.
func (t *FieldTree) SetPath(path FieldPath, a *Attachment) {
	if len(path) == 0 {
		return
	}
	t.root = Merge(t.root, path, a)
}

// Root returns the root map node.
func (t *FieldTree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Lookup returns the node at name, or nil. A trailing "[]" returns the
// container itself; a numeric segment addresses an anonymous item.
func (t *FieldTree) Lookup(name string) *Node {
	if t == nil {
		return nil
	}

	node := t.root
	path := ParseFieldPath(name)
	for i, seg := range path {
		if seg == "" {
			if i == len(path)-1 {
				return node
			}
			return nil
		}
		if child := node.Child(seg); child != nil {
			node = child
			continue
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || node == nil || idx >= len(node.items) {
			return nil
		}
		node = node.items[idx]
	}
	return node
}

// Get returns the attachment stored exactly at name, or nil.
func (t *FieldTree) Get(name string) *Attachment {
	return t.Lookup(name).Attachment()
}

// Leaves returns every attachment in the tree.
func (t *FieldTree) Leaves() []*Attachment {
	return t.Root().Leaves()
}

// Len returns the number of top-level entries.
func (t *FieldTree) Len() int {
	return t.Root().Len()
}

// MarshalJSON encodes the tree from its root.
func (t *FieldTree) MarshalJSON() ([]byte, error) {
	return t.Root().MarshalJSON()
}
