package mnode

import (
	"fmt"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cubefs/metatree/proto"
)

func TestNodeChildren(t *testing.T) {
	root := NewInternal(nil, proto.RootNodeName)
	require.False(t, root.HasChild("a"))
	require.Equal(t, 0, root.ChildCount())
	_, ok := root.GetChild("a")
	require.False(t, ok)
	// deleting on a node that never grew a map is a no-op
	root.DeleteChild("a")
	root.DeleteAliasChild("a")

	a := NewInternal(root, "a")
	b := NewInternal(root, "b")
	root.AddChild("a", a)
	root.AddChild("b", b)

	got, ok := root.GetChild("a")
	require.True(t, ok)
	require.Equal(t, Node(a), got)
	got, ok = root.GetChild("b")
	require.True(t, ok)
	require.Equal(t, Node(b), got)
	require.True(t, root.HasChild("a"))
	require.Equal(t, 2, root.ChildCount())

	// first writer wins
	other := NewInternal(root, "a")
	root.AddChild("a", other)
	got, _ = root.GetChild("a")
	require.Equal(t, Node(a), got)

	names := make(map[string]bool)
	root.RangeChildren(func(name string, child Node) bool {
		names[name] = true
		require.Equal(t, name, child.Name())
		return true
	})
	require.Equal(t, map[string]bool{"a": true, "b": true}, names)
	require.Len(t, root.ChildSnapshot(), 2)

	root.DeleteChild("a")
	require.False(t, root.HasChild("a"))
	require.Equal(t, 1, root.ChildCount())
	root.DeleteChild("a")
	require.Equal(t, 1, root.ChildCount())
}

func TestNodeAlias(t *testing.T) {
	device := NewInternal(nil, "d1")
	temp := NewMeasurement(device, "s1", proto.MeasurementSchema{}, "temperature")
	device.AddChild("s1", temp)

	require.True(t, device.AddAlias("temperature", temp))
	// same pair again is idempotent success
	require.True(t, device.AddAlias("temperature", temp))

	got, ok := device.GetChild("temperature")
	require.True(t, ok)
	require.Equal(t, Node(temp), got)

	// a different node can not steal a taken alias
	hum := NewMeasurement(device, "s2", proto.MeasurementSchema{}, "")
	device.AddChild("s2", hum)
	require.False(t, device.AddAlias("temperature", hum))
	got, _ = device.GetChild("temperature")
	require.Equal(t, Node(temp), got)

	// a primary child shadows an alias of the same name
	s3 := NewMeasurement(device, "temperature", proto.MeasurementSchema{}, "")
	device.AddChild("temperature", s3)
	got, _ = device.GetChild("temperature")
	require.Equal(t, Node(s3), got)
	device.DeleteChild("temperature")
	got, _ = device.GetChild("temperature")
	require.Equal(t, Node(temp), got)

	device.DeleteAliasChild("temperature")
	_, ok = device.GetChild("temperature")
	require.False(t, ok)
	require.True(t, device.HasChild("s1"))
}

func buildChain(names ...string) []*Internal {
	nodes := make([]*Internal, len(names))
	for i, name := range names {
		if i == 0 {
			nodes[i] = NewInternal(nil, name)
			continue
		}
		nodes[i] = NewInternal(nodes[i-1], name)
		nodes[i-1].AddChild(name, nodes[i])
	}
	return nodes
}

func TestNodeFullPath(t *testing.T) {
	chain := buildChain(proto.RootNodeName, "a", "b", "c")
	leaf := chain[len(chain)-1]

	require.Equal(t, "root.a.b.c", leaf.FullPath())
	require.Equal(t, "root.a.b.c", leaf.FullPath())
	require.Equal(t, "root.a.b", chain[2].FullPath())
	require.Equal(t, []string{"root", "a", "b", "c"}, leaf.PartialPath().Segments())

	// the same path built in a second tree shares one backing string
	otherLeaf := buildChain(proto.RootNodeName, "a", "b", "c")[3]
	first := leaf.FullPath()
	second := otherLeaf.FullPath()
	require.Same(t, unsafe.StringData(first), unsafe.StringData(second))
}

func TestNodeRename(t *testing.T) {
	chain := buildChain(proto.RootNodeName, "sg1", "d1")
	device := chain[2]
	require.Equal(t, "root.sg1.d1", device.FullPath())

	device.SetName("d2")
	require.Equal(t, "d2", device.Name())
	require.Equal(t, "root.sg1.d2", device.FullPath())

	newParent := buildChain(proto.RootNodeName, "sg2")[1]
	device.SetParent(newParent)
	require.Equal(t, "root.sg2.d2", device.FullPath())
	require.Equal(t, Node(newParent), device.Parent())
}

func TestNodeLeafCount(t *testing.T) {
	root := NewInternal(nil, proto.RootNodeName)
	require.Equal(t, 0, root.LeafCount())

	sg1 := NewInternal(root, "sg1")
	root.AddChild("sg1", sg1)
	d1 := NewInternal(sg1, "d1")
	sg1.AddChild("d1", d1)
	s1 := NewMeasurement(d1, "s1", proto.MeasurementSchema{}, "")
	d1.AddChild("s1", s1)

	require.Equal(t, 1, root.LeafCount())
	require.Equal(t, 1, sg1.LeafCount())
	require.Equal(t, 1, s1.LeafCount())
	require.Equal(t, 0, NewInternal(nil, "lonely").LeafCount())

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("s%d", i+2)
		d1.AddChild(name, NewMeasurement(d1, name, proto.MeasurementSchema{}, ""))
	}
	require.Equal(t, 4, root.LeafCount())
}

func TestNodeKinds(t *testing.T) {
	root := NewInternal(nil, proto.RootNodeName)
	sg := NewStorageGroup(root, "sg1", proto.TTLInfinite)
	root.AddChild("sg1", sg)
	m := NewMeasurement(sg, "s1", proto.MeasurementSchema{DataType: proto.DataTypeDouble}, "temp")
	sg.AddChild("s1", m)

	require.Equal(t, proto.NodeTypeInternal, root.Type())
	require.Equal(t, proto.NodeTypeStorageGroup, sg.Type())
	require.Equal(t, proto.NodeTypeMeasurement, m.Type())

	require.Equal(t, proto.TTLInfinite, sg.TTL())
	sg.SetTTL(86400000)
	require.Equal(t, int64(86400000), sg.TTL())

	require.Equal(t, "temp", m.Alias())
	require.Equal(t, proto.DataTypeDouble, m.Schema().DataType)
	require.Equal(t, TagFileOffsetNone, m.Offset())
	m.SetOffset(4096)
	require.Equal(t, int64(4096), m.Offset())

	// kind behavior flows through the interface
	var node Node = sg
	require.Equal(t, proto.NodeTypeStorageGroup, node.Type())
	require.Equal(t, "root.sg1.s1", m.FullPath())
}

func TestNodeConcurrent(t *testing.T) {
	root := NewInternal(nil, proto.RootNodeName)

	workers := 8
	var wg sync.WaitGroup
	wg.Add(workers)
	candidates := make([]*Internal, workers)
	for i := 0; i < workers; i++ {
		candidates[i] = NewInternal(root, "shared")
		go func(i int) {
			defer wg.Done()
			root.AddChild("shared", candidates[i])
			root.AddChild(fmt.Sprintf("own-%d", i), NewInternal(root, fmt.Sprintf("own-%d", i)))
		}(i)
	}
	wg.Wait()

	require.Equal(t, workers+1, root.ChildCount())
	winner, ok := root.GetChild("shared")
	require.True(t, ok)
	found := false
	for _, c := range candidates {
		if Node(c) == winner {
			found = true
		}
	}
	require.True(t, found)

	// concurrent first materializations converge on one interned string
	leaf := NewInternal(root, "leaf")
	root.AddChild("leaf", leaf)
	paths := make([]string, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			paths[i] = leaf.FullPath()
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		require.Equal(t, paths[0], paths[i])
		require.Same(t, unsafe.StringData(paths[0]), unsafe.StringData(paths[i]))
	}
}
