package mnode

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cubefs/metatree/common/stringpool"
	"github.com/cubefs/metatree/proto"
)

// Sink is the append-only line sink a subtree serializes itself into.
// Writers of the metadata log implement it.
type Sink interface {
	WriteLine(line string) error
}

// Node is one entity of the metadata tree: an internal path node, a storage
// group boundary or a measurement leaf. The kind set is closed; all
// implementations live in this package.
type Node interface {
	Name() string
	SetName(name string)
	Parent() Node
	SetParent(parent Node)

	HasChild(name string) bool
	AddChild(name string, child Node)
	DeleteChild(name string)
	GetChild(name string) (Node, bool)
	AddAlias(alias string, child Node) bool
	DeleteAliasChild(alias string)
	ChildCount() int
	RangeChildren(f func(name string, child Node) bool)
	ChildSnapshot() []Node

	FullPath() string
	PartialPath() proto.PartialPath
	LeafCount() int
	Type() proto.NodeType
	SerializeTo(sink Sink) error

	writeLine(sink Sink, childCount int) error
}

// Internal is the base node kind. Both child maps start out nil and are
// allocated on first insertion; most nodes are leaves and never pay for
// either map.
type Internal struct {
	name   string
	parent Node

	fullPath atomic.Pointer[string]
	children atomic.Pointer[sync.Map]
	aliases  atomic.Pointer[sync.Map]
}

func NewInternal(parent Node, name string) *Internal {
	return &Internal{name: name, parent: parent}
}

func (n *Internal) Name() string {
	return n.name
}

// SetName renames the node's own segment and drops the cached full path.
// Cached paths of attached descendants are not touched; callers renaming a
// live subtree rebuild those nodes themselves.
func (n *Internal) SetName(name string) {
	n.name = name
	n.fullPath.Store(nil)
}

func (n *Internal) Parent() Node {
	return n.parent
}

func (n *Internal) SetParent(parent Node) {
	n.parent = parent
	n.fullPath.Store(nil)
}

func (n *Internal) HasChild(name string) bool {
	_, ok := n.GetChild(name)
	return ok
}

// AddChild registers child under name. If the name is already taken the
// existing child is kept; first writer wins.
func (n *Internal) AddChild(name string, child Node) {
	n.ensureChildren().LoadOrStore(name, child)
}

func (n *Internal) DeleteChild(name string) {
	if m := n.children.Load(); m != nil {
		m.Delete(name)
	}
}

// GetChild resolves name against the primary children first, then the alias
// table. A primary child shadows an alias of the same name.
func (n *Internal) GetChild(name string) (Node, bool) {
	if m := n.children.Load(); m != nil {
		if v, ok := m.Load(name); ok {
			return v.(Node), true
		}
	}
	if m := n.aliases.Load(); m != nil {
		if v, ok := m.Load(name); ok {
			return v.(Node), true
		}
	}
	return nil, false
}

// AddAlias maps alias onto child, which the caller must already have
// registered as a primary child. The result reports whether alias resolves
// to child afterwards: registering the same pair again succeeds, an alias
// held by a different node fails and keeps the old mapping.
func (n *Internal) AddAlias(alias string, child Node) bool {
	actual, _ := n.ensureAliases().LoadOrStore(alias, child)
	return actual.(Node) == child
}

func (n *Internal) DeleteAliasChild(alias string) {
	if m := n.aliases.Load(); m != nil {
		m.Delete(alias)
	}
}

func (n *Internal) ChildCount() int {
	count := 0
	n.RangeChildren(func(string, Node) bool {
		count++
		return true
	})
	return count
}

// RangeChildren calls f for every primary child until f returns false.
// Aliases are not visited. Iteration order is unspecified.
func (n *Internal) RangeChildren(f func(name string, child Node) bool) {
	if m := n.children.Load(); m != nil {
		m.Range(func(k, v interface{}) bool {
			return f(k.(string), v.(Node))
		})
	}
}

// ChildSnapshot captures the primary children at one point in time.
func (n *Internal) ChildSnapshot() []Node {
	var children []Node
	n.RangeChildren(func(_ string, child Node) bool {
		children = append(children, child)
		return true
	})
	return children
}

// FullPath returns the dotted path from the root down to this node. It is
// computed at most once, interned through stringpool.Default and cached, so
// equal paths anywhere in the tree share one backing string. Concurrent
// first calls may each build the path; they converge on the same interned
// instance.
func (n *Internal) FullPath() string {
	if p := n.fullPath.Load(); p != nil {
		return *p
	}
	path := stringpool.Default.Intern(strings.Join(n.segments(), proto.PathSeparator))
	n.fullPath.Store(&path)
	return path
}

// PartialPath returns the ordered root-to-node segment sequence.
func (n *Internal) PartialPath() proto.PartialPath {
	return proto.NewPartialPath(n.segments()...)
}

// LeafCount sums the measurement leaves below this node. A node whose child
// map was never allocated counts zero; the measurement kind overrides this
// to count itself.
func (n *Internal) LeafCount() int {
	count := 0
	n.RangeChildren(func(_ string, child Node) bool {
		count += child.LeafCount()
		return true
	})
	return count
}

func (n *Internal) Type() proto.NodeType {
	return proto.NodeTypeInternal
}

func (n *Internal) SerializeTo(sink Sink) error {
	return serializeSubtree(n, sink)
}

func (n *Internal) writeLine(sink Sink, childCount int) error {
	return writeNodeLine(sink,
		strconv.Itoa(int(proto.NodeTypeInternal)),
		n.name,
		strconv.Itoa(childCount))
}

func (n *Internal) segments() []string {
	segs := make([]string, 0, 8)
	var node Node = n
	for node != nil {
		segs = append(segs, node.Name())
		node = node.Parent()
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs
}

func (n *Internal) ensureChildren() *sync.Map {
	if m := n.children.Load(); m != nil {
		return m
	}
	m := &sync.Map{}
	if n.children.CompareAndSwap(nil, m) {
		return m
	}
	return n.children.Load()
}

func (n *Internal) ensureAliases() *sync.Map {
	if m := n.aliases.Load(); m != nil {
		return m
	}
	m := &sync.Map{}
	if n.aliases.CompareAndSwap(nil, m) {
		return m
	}
	return n.aliases.Load()
}
