package mnode

import (
	"sort"
	"strconv"
	"strings"

	apierrors "github.com/cubefs/metatree/errors"
	"github.com/cubefs/metatree/proto"
	"github.com/cubefs/metatree/util"
)

const lineBufferSize = 64

// Field counts of the three line layouts. The count field is always last so
// reconstruction can pop children without knowing the kind first.
const (
	internalLineFields     = 3
	storageGroupLineFields = 4
	measurementLineFields  = 8
)

// serializeSubtree writes the subtree rooted at n in post order: every child
// subtree first, then n's own line carrying the child count observed at the
// start. Sibling order follows map iteration and is not deterministic.
func serializeSubtree(n Node, sink Sink) error {
	children := n.ChildSnapshot()
	for _, child := range children {
		if err := child.SerializeTo(sink); err != nil {
			return err
		}
	}
	return n.writeLine(sink, len(children))
}

// SerializeSorted writes the subtree like Node.SerializeTo but visits
// siblings in ascending name order, producing byte-stable output for an
// unchanged tree.
func SerializeSorted(n Node, sink Sink) error {
	children := n.ChildSnapshot()
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name() < children[j].Name()
	})
	for _, child := range children {
		if err := SerializeSorted(child, sink); err != nil {
			return err
		}
	}
	return n.writeLine(sink, len(children))
}

func writeNodeLine(sink Sink, fields ...string) error {
	buf := util.GetBufferWriter(lineBufferSize)
	defer util.PutBufferWriter(buf)

	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(field)
	}
	return sink.WriteLine(buf.String())
}

// ParseLine decodes one snapshot line into a detached node shell plus the
// number of children the node owned when the line was written. The shell has
// neither parent nor children; reconstruction attaches both.
func ParseLine(line string) (Node, int, error) {
	fields := strings.Split(line, ",")
	if len(fields) < internalLineFields || fields[1] == "" {
		return nil, 0, apierrors.ErrCorruptedSnapshot
	}
	typ, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return nil, 0, apierrors.ErrCorruptedSnapshot
	}
	childCount, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || childCount < 0 {
		return nil, 0, apierrors.ErrCorruptedSnapshot
	}

	switch proto.NodeType(typ) {
	case proto.NodeTypeInternal:
		if len(fields) != internalLineFields {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		return NewInternal(nil, fields[1]), childCount, nil

	case proto.NodeTypeStorageGroup:
		if len(fields) != storageGroupLineFields {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		ttl, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		return NewStorageGroup(nil, fields[1], ttl), childCount, nil

	case proto.NodeTypeMeasurement:
		if len(fields) != measurementLineFields {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		dataType, err1 := strconv.ParseUint(fields[3], 10, 8)
		encoding, err2 := strconv.ParseUint(fields[4], 10, 8)
		compression, err3 := strconv.ParseUint(fields[5], 10, 8)
		offset, err4 := strconv.ParseInt(fields[6], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		schema := proto.MeasurementSchema{
			DataType:    proto.DataType(dataType),
			Encoding:    proto.Encoding(encoding),
			Compression: proto.Compression(compression),
		}
		if !schema.Valid() {
			return nil, 0, apierrors.ErrCorruptedSnapshot
		}
		measurement := NewMeasurement(nil, fields[1], schema, fields[2])
		measurement.SetOffset(offset)
		return measurement, childCount, nil

	default:
		return nil, 0, apierrors.ErrCorruptedSnapshot
	}
}
