package mnode

import (
	"strconv"

	"github.com/cubefs/metatree/proto"
)

// StorageGroup marks the boundary under which all descendants share one
// retention policy. Storage groups never nest.
type StorageGroup struct {
	*Internal

	ttl int64
}

// NewStorageGroup creates a storage group node. ttl is the data retention in
// milliseconds; proto.TTLInfinite keeps data forever.
func NewStorageGroup(parent Node, name string, ttl int64) *StorageGroup {
	return &StorageGroup{
		Internal: NewInternal(parent, name),
		ttl:      ttl,
	}
}

func (s *StorageGroup) TTL() int64 {
	return s.ttl
}

func (s *StorageGroup) SetTTL(ttl int64) {
	s.ttl = ttl
}

func (s *StorageGroup) Type() proto.NodeType {
	return proto.NodeTypeStorageGroup
}

func (s *StorageGroup) SerializeTo(sink Sink) error {
	return serializeSubtree(s, sink)
}

func (s *StorageGroup) writeLine(sink Sink, childCount int) error {
	return writeNodeLine(sink,
		strconv.Itoa(int(proto.NodeTypeStorageGroup)),
		s.Name(),
		strconv.FormatInt(s.ttl, 10),
		strconv.Itoa(childCount))
}
