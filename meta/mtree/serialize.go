package mtree

import (
	"io"

	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/meta/mnode"
	"github.com/cubefs/metatree/proto"
)

// Source yields the lines of a serialized tree in file order.
type Source interface {
	ReadLine() (string, error)
}

// SerializeTo writes the whole tree in post order. With sorted set siblings
// are visited in name order, making the output byte stable.
func (t *Tree) SerializeTo(sink mnode.Sink, sorted bool) error {
	if sorted {
		return mnode.SerializeSorted(t.root, sink)
	}
	return t.root.SerializeTo(sink)
}

// Deserialize rebuilds a tree from post order lines. A line carrying child
// count k adopts the k most recently completed nodes off the stack; after
// the final line exactly the root must remain. Any mismatch, a torn tail
// included, is corruption.
func Deserialize(source Source) (*Tree, error) {
	var stack []mnode.Node
	for {
		line, err := source.ReadLine()
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, apierrors.ErrCorruptedSnapshot
		}
		if err != nil {
			return nil, err
		}

		node, childCount, err := mnode.ParseLine(line)
		if err != nil {
			return nil, err
		}
		if childCount > len(stack) {
			return nil, apierrors.ErrCorruptedSnapshot
		}
		for _, child := range stack[len(stack)-childCount:] {
			child.SetParent(node)
			node.AddChild(child.Name(), child)
			if m, ok := child.(*mnode.Measurement); ok && m.Alias() != "" {
				node.AddAlias(m.Alias(), m)
			}
		}
		stack = append(stack[:len(stack)-childCount], node)
	}

	if len(stack) != 1 {
		return nil, apierrors.ErrCorruptedSnapshot
	}
	root, ok := stack[0].(*mnode.Internal)
	if !ok || root.Name() != proto.RootNodeName {
		return nil, apierrors.ErrCorruptedSnapshot
	}
	return &Tree{root: root}, nil
}
