package mtree

import (
	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/meta/mnode"
	"github.com/cubefs/metatree/proto"
)

// Tree is the metadata tree rooted at a single internal node named root.
// Lookups are lock free and safe under concurrent mutation; mutations rely
// on the nodes' insert-if-absent semantics and are expected to be serialized
// by the owning manager.
type Tree struct {
	root *mnode.Internal
}

func NewTree() *Tree {
	return &Tree{root: mnode.NewInternal(nil, proto.RootNodeName)}
}

func (t *Tree) Root() mnode.Node {
	return t.root
}

// SetStorageGroup creates a storage group at path, creating missing
// ancestors as internal nodes. Storage groups never nest: an ancestor that
// already is one fails the call, and any existing node at the terminal
// segment is a conflict.
func (t *Tree) SetStorageGroup(path proto.PartialPath, ttl int64) error {
	if !path.FromRoot() || path.Len() < 2 {
		return apierrors.ErrIllegalPath
	}

	cur := mnode.Node(t.root)
	for i := 1; i < path.Len()-1; i++ {
		seg := path.Seg(i)
		child, ok := cur.GetChild(seg)
		if !ok {
			cur.AddChild(seg, mnode.NewInternal(cur, seg))
			child, _ = cur.GetChild(seg)
		}
		if child.Type() == proto.NodeTypeStorageGroup {
			return apierrors.ErrStorageGroupNesting
		}
		cur = child
	}

	name := path.Seg(path.Len() - 1)
	if existing, ok := cur.GetChild(name); ok {
		if existing.Type() == proto.NodeTypeStorageGroup {
			return apierrors.ErrStorageGroupAlreadySet
		}
		return apierrors.ErrPathAlreadyExists
	}
	sg := mnode.NewStorageGroup(cur, name, ttl)
	cur.AddChild(name, sg)
	if stored, _ := cur.GetChild(name); stored != mnode.Node(sg) {
		if stored.Type() == proto.NodeTypeStorageGroup {
			return apierrors.ErrStorageGroupAlreadySet
		}
		return apierrors.ErrPathAlreadyExists
	}
	return nil
}

// DeleteStorageGroup detaches the storage group subtree at path and prunes
// internal ancestors left childless.
func (t *Tree) DeleteStorageGroup(path proto.PartialPath) error {
	node, err := t.GetNode(path)
	if err != nil {
		return err
	}
	sg, ok := node.(*mnode.StorageGroup)
	if !ok {
		return apierrors.ErrStorageGroupNotSet
	}

	parent := sg.Parent()
	parent.DeleteChild(sg.Name())
	t.pruneUpward(parent)
	return nil
}

// CreateTimeseries creates a measurement leaf at path. The path must run
// through a storage group; device levels below it are created as internal
// nodes on demand. A non empty alias is registered on the leaf's parent.
func (t *Tree) CreateTimeseries(path proto.PartialPath, schema proto.MeasurementSchema, alias string) error {
	if !path.FromRoot() || path.Len() < 3 {
		return apierrors.ErrIllegalPath
	}

	cur := mnode.Node(t.root)
	sgSeen := false
	for i := 1; i < path.Len()-1; i++ {
		seg := path.Seg(i)
		child, ok := cur.GetChild(seg)
		if !ok {
			// levels above the storage group are never created implicitly
			if !sgSeen {
				return apierrors.ErrStorageGroupNotSet
			}
			cur.AddChild(seg, mnode.NewInternal(cur, seg))
			child, _ = cur.GetChild(seg)
		}
		if child.Type() == proto.NodeTypeStorageGroup {
			sgSeen = true
		}
		cur = child
	}
	if !sgSeen {
		return apierrors.ErrStorageGroupNotSet
	}

	name := path.Seg(path.Len() - 1)
	if cur.HasChild(name) {
		return apierrors.ErrPathAlreadyExists
	}
	if alias != "" && cur.HasChild(alias) {
		return apierrors.ErrAliasAlreadyExists
	}
	m := mnode.NewMeasurement(cur, name, schema, alias)
	cur.AddChild(name, m)
	if stored, _ := cur.GetChild(name); stored != mnode.Node(m) {
		return apierrors.ErrPathAlreadyExists
	}
	if alias != "" && !cur.AddAlias(alias, m) {
		cur.DeleteChild(name)
		return apierrors.ErrAliasAlreadyExists
	}
	return nil
}

// DeleteTimeseries removes the measurement at path together with its alias
// entry, then prunes internal ancestors left childless. The storage group
// itself survives even when emptied.
func (t *Tree) DeleteTimeseries(path proto.PartialPath) error {
	node, err := t.GetNode(path)
	if err != nil {
		return err
	}
	m, ok := node.(*mnode.Measurement)
	if !ok {
		return apierrors.ErrPathNotFound
	}

	parent := m.Parent()
	parent.DeleteChild(m.Name())
	if m.Alias() != "" {
		parent.DeleteAliasChild(m.Alias())
	}
	t.pruneUpward(parent)
	return nil
}

// GetNode resolves path to a node, following aliases on any level.
func (t *Tree) GetNode(path proto.PartialPath) (mnode.Node, error) {
	if !path.FromRoot() {
		return nil, apierrors.ErrIllegalPath
	}
	cur := mnode.Node(t.root)
	for i := 1; i < path.Len(); i++ {
		child, ok := cur.GetChild(path.Seg(i))
		if !ok {
			return nil, apierrors.ErrPathNotFound
		}
		cur = child
	}
	return cur, nil
}

func (t *Tree) PathExists(path proto.PartialPath) bool {
	_, err := t.GetNode(path)
	return err == nil
}

// GetStorageGroupPath returns the full path of the storage group governing
// path, walking existing nodes only.
func (t *Tree) GetStorageGroupPath(path proto.PartialPath) (string, error) {
	if !path.FromRoot() {
		return "", apierrors.ErrIllegalPath
	}
	cur := mnode.Node(t.root)
	for i := 1; i < path.Len(); i++ {
		child, ok := cur.GetChild(path.Seg(i))
		if !ok {
			break
		}
		if child.Type() == proto.NodeTypeStorageGroup {
			return child.FullPath(), nil
		}
		cur = child
	}
	return "", apierrors.ErrStorageGroupNotSet
}

// CollectMeasurements returns every measurement matching pattern. A "*"
// segment matches exactly one level; once the pattern is exhausted the whole
// matched subtree is collected. Misses yield an empty result, not an error.
func (t *Tree) CollectMeasurements(pattern proto.PartialPath) ([]*mnode.Measurement, error) {
	if !pattern.FromRoot() {
		return nil, apierrors.ErrIllegalPath
	}
	var out []*mnode.Measurement
	collectMeasurements(t.root, pattern, 1, &out)
	return out, nil
}

// CollectTimeseriesPaths returns the full paths of every measurement
// matching pattern.
func (t *Tree) CollectTimeseriesPaths(pattern proto.PartialPath) ([]string, error) {
	measurements, err := t.CollectMeasurements(pattern)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(measurements))
	for _, m := range measurements {
		paths = append(paths, m.FullPath())
	}
	return paths, nil
}

// CollectStorageGroups returns every storage group node in unspecified
// order.
func (t *Tree) CollectStorageGroups() []*mnode.StorageGroup {
	var out []*mnode.StorageGroup
	var walk func(node mnode.Node)
	walk = func(node mnode.Node) {
		if sg, ok := node.(*mnode.StorageGroup); ok {
			// storage groups never nest
			out = append(out, sg)
			return
		}
		node.RangeChildren(func(_ string, child mnode.Node) bool {
			walk(child)
			return true
		})
	}
	walk(t.root)
	return out
}

func (t *Tree) CollectStorageGroupPaths() []string {
	groups := t.CollectStorageGroups()
	paths := make([]string, 0, len(groups))
	for _, sg := range groups {
		paths = append(paths, sg.FullPath())
	}
	return paths
}

func (t *Tree) LeafCount() int {
	return t.root.LeafCount()
}

// NodeCount counts every node of the tree, the root included.
func (t *Tree) NodeCount() int {
	count := 0
	var walk func(node mnode.Node)
	walk = func(node mnode.Node) {
		count++
		node.RangeChildren(func(_ string, child mnode.Node) bool {
			walk(child)
			return true
		})
	}
	walk(t.root)
	return count
}

// pruneUpward removes internal nodes left childless by a delete. Storage
// groups and the root survive even when empty.
func (t *Tree) pruneUpward(node mnode.Node) {
	for node != nil && node.Parent() != nil {
		if node.Type() != proto.NodeTypeInternal || node.ChildCount() > 0 {
			return
		}
		parent := node.Parent()
		parent.DeleteChild(node.Name())
		node = parent
	}
}

func collectMeasurements(node mnode.Node, pattern proto.PartialPath, depth int, out *[]*mnode.Measurement) {
	if depth >= pattern.Len() {
		collectSubtreeMeasurements(node, out)
		return
	}
	seg := pattern.Seg(depth)
	if seg == proto.PathWildcard {
		node.RangeChildren(func(_ string, child mnode.Node) bool {
			collectMeasurements(child, pattern, depth+1, out)
			return true
		})
		return
	}
	if child, ok := node.GetChild(seg); ok {
		collectMeasurements(child, pattern, depth+1, out)
	}
}

func collectSubtreeMeasurements(node mnode.Node, out *[]*mnode.Measurement) {
	if m, ok := node.(*mnode.Measurement); ok {
		*out = append(*out, m)
		return
	}
	node.RangeChildren(func(_ string, child mnode.Node) bool {
		collectSubtreeMeasurements(child, out)
		return true
	})
}
