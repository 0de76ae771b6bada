package mnode

import (
	"strconv"

	"github.com/cubefs/metatree/proto"
)

// TagFileOffsetNone marks a measurement without tag file content.
const TagFileOffsetNone int64 = -1

// Measurement is the leaf kind: one sensor series with its storage schema
// and an optional alias registered on the parent.
type Measurement struct {
	*Internal

	schema proto.MeasurementSchema
	alias  string
	offset int64
}

func NewMeasurement(parent Node, name string, schema proto.MeasurementSchema, alias string) *Measurement {
	return &Measurement{
		Internal: NewInternal(parent, name),
		schema:   schema,
		alias:    alias,
		offset:   TagFileOffsetNone,
	}
}

func (m *Measurement) Schema() proto.MeasurementSchema {
	return m.schema
}

func (m *Measurement) Alias() string {
	return m.alias
}

func (m *Measurement) SetAlias(alias string) {
	m.alias = alias
}

func (m *Measurement) Offset() int64 {
	return m.offset
}

func (m *Measurement) SetOffset(offset int64) {
	m.offset = offset
}

// LeafCount of a measurement is itself, whatever hangs below it.
func (m *Measurement) LeafCount() int {
	return 1
}

func (m *Measurement) Type() proto.NodeType {
	return proto.NodeTypeMeasurement
}

func (m *Measurement) SerializeTo(sink Sink) error {
	return serializeSubtree(m, sink)
}

func (m *Measurement) writeLine(sink Sink, childCount int) error {
	return writeNodeLine(sink,
		strconv.Itoa(int(proto.NodeTypeMeasurement)),
		m.Name(),
		m.alias,
		strconv.Itoa(int(m.schema.DataType)),
		strconv.Itoa(int(m.schema.Encoding)),
		strconv.Itoa(int(m.schema.Compression)),
		strconv.FormatInt(m.offset, 10),
		strconv.Itoa(childCount))
}
