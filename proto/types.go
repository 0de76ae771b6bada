// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package proto

// NodeType tags the kind of a metadata tree node in the serialized snapshot.
// The values are part of the durable encoding and must stay stable across
// versions so that old snapshots remain readable.
type NodeType uint8

const (
	NodeTypeInternal NodeType = iota
	NodeTypeStorageGroup
	NodeTypeMeasurement
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeInternal:
		return "internal"
	case NodeTypeStorageGroup:
		return "storage_group"
	case NodeTypeMeasurement:
		return "measurement"
	default:
		return "unknown"
	}
}

// DataType is the point value type of a measurement.
type DataType uint8

const (
	DataTypeBoolean DataType = iota
	DataTypeInt32
	DataTypeInt64
	DataTypeFloat
	DataTypeDouble
	DataTypeText
)

func (t DataType) Valid() bool {
	return t <= DataTypeText
}

func (t DataType) String() string {
	switch t {
	case DataTypeBoolean:
		return "boolean"
	case DataTypeInt32:
		return "int32"
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat:
		return "float"
	case DataTypeDouble:
		return "double"
	case DataTypeText:
		return "text"
	default:
		return "unknown"
	}
}

// Encoding is the on-disk encoding of a measurement's points.
type Encoding uint8

const (
	EncodingPlain Encoding = iota
	EncodingDictionary
	EncodingRLE
	EncodingDiff
	EncodingBitmap
	EncodingGorilla
)

func (e Encoding) Valid() bool {
	return e <= EncodingGorilla
}

func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "plain"
	case EncodingDictionary:
		return "dictionary"
	case EncodingRLE:
		return "rle"
	case EncodingDiff:
		return "diff"
	case EncodingBitmap:
		return "bitmap"
	case EncodingGorilla:
		return "gorilla"
	default:
		return "unknown"
	}
}

// Compression is the block compression of a measurement's points.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionGzip
	CompressionLZ4
)

func (c Compression) Valid() bool {
	return c <= CompressionLZ4
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// MeasurementSchema describes how the points of one measurement are stored.
type MeasurementSchema struct {
	DataType    DataType    `json:"data_type"`
	Encoding    Encoding    `json:"encoding"`
	Compression Compression `json:"compression"`
}

func (s MeasurementSchema) Valid() bool {
	return s.DataType.Valid() && s.Encoding.Valid() && s.Compression.Valid()
}
