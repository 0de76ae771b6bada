package proto

const (
	// PathSeparator joins segment names into full paths. Path parsing splits
	// on the same character, so the two sides must never diverge.
	PathSeparator = "."

	// RootNodeName is the name of the tree root and the required first
	// segment of every path.
	RootNodeName = "root"

	// PathWildcard matches exactly one segment in a query path.
	PathWildcard = "*"
)

// Operation codes of the metadata operation log. The codes are part of the
// durable format and must stay stable across versions.
const (
	OpCreateTimeseries   = "0"
	OpDeleteTimeseries   = "1"
	OpSetStorageGroup    = "2"
	OpDeleteStorageGroup = "3"
)

// TTLInfinite keeps a storage group's data forever.
const TTLInfinite = int64(1<<63 - 1)
