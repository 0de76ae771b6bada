package proto

import (
	"strings"

	apierrors "github.com/cubefs/metatree/errors"
)

// PartialPath is an ordered sequence of path segments leading from the tree
// root down to one node. Values are immutable; deriving operations return a
// new path backed by its own segment array.
type PartialPath struct {
	segs []string
}

func NewPartialPath(segs ...string) PartialPath {
	owned := make([]string, len(segs))
	copy(owned, segs)
	return PartialPath{segs: owned}
}

// ParsePath splits path on the separator. Empty paths and paths with empty
// segments are rejected. Segment content is not validated further, that is
// the caller's concern.
func ParsePath(path string) (PartialPath, error) {
	if path == "" {
		return PartialPath{}, apierrors.ErrIllegalPath
	}
	segs := strings.Split(path, PathSeparator)
	for _, seg := range segs {
		if seg == "" {
			return PartialPath{}, apierrors.ErrIllegalPath
		}
	}
	return PartialPath{segs: segs}, nil
}

func (p PartialPath) String() string {
	return strings.Join(p.segs, PathSeparator)
}

// Segments returns a copy of the segment sequence.
func (p PartialPath) Segments() []string {
	segs := make([]string, len(p.segs))
	copy(segs, p.segs)
	return segs
}

func (p PartialPath) Len() int {
	return len(p.segs)
}

func (p PartialPath) Seg(i int) string {
	return p.segs[i]
}

// Append derives a path one level deeper. The receiver is left untouched.
func (p PartialPath) Append(seg string) PartialPath {
	segs := make([]string, len(p.segs)+1)
	copy(segs, p.segs)
	segs[len(p.segs)] = seg
	return PartialPath{segs: segs}
}

// Parent derives the path with the last segment removed. The parent of a
// single-segment path is the empty path.
func (p PartialPath) Parent() PartialPath {
	if len(p.segs) <= 1 {
		return PartialPath{}
	}
	segs := make([]string, len(p.segs)-1)
	copy(segs, p.segs[:len(p.segs)-1])
	return PartialPath{segs: segs}
}

// Tail returns the last segment, or an empty string for the empty path.
func (p PartialPath) Tail() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

func (p PartialPath) Equal(other PartialPath) bool {
	if len(p.segs) != len(other.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != other.segs[i] {
			return false
		}
	}
	return true
}

// StartsWith reports whether prefix is an ancestor-or-self path of p.
func (p PartialPath) StartsWith(prefix PartialPath) bool {
	if len(prefix.segs) > len(p.segs) {
		return false
	}
	for i := range prefix.segs {
		if p.segs[i] != prefix.segs[i] {
			return false
		}
	}
	return true
}

func (p PartialPath) FromRoot() bool {
	return len(p.segs) > 0 && p.segs[0] == RootNodeName
}
