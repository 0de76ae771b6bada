package meta

type (
	// Stats is the point-in-time shape of the metadata tree.
	Stats struct {
		Series        int `json:"series"`
		StorageGroups int `json:"storage_groups"`
		Nodes         int `json:"nodes"`
		InternedPaths int `json:"interned_paths"`
	}

	// NodeInfo describes one tree node. The TTL field is filled for storage
	// groups only, the schema fields for measurements only.
	NodeInfo struct {
		Path       string `json:"path"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		ChildCount int    `json:"child_count"`
		LeafCount  int    `json:"leaf_count"`

		TTL int64 `json:"ttl,omitempty"`

		Alias       string `json:"alias,omitempty"`
		DataType    string `json:"data_type,omitempty"`
		Encoding    string `json:"encoding,omitempty"`
		Compression string `json:"compression,omitempty"`
	}

	TimeseriesInfo struct {
		Path         string `json:"path"`
		Alias        string `json:"alias,omitempty"`
		StorageGroup string `json:"storage_group,omitempty"`
		DataType     string `json:"data_type"`
		Encoding     string `json:"encoding"`
		Compression  string `json:"compression"`
		Offset       int64  `json:"offset"`
	}

	StorageGroupInfo struct {
		Path        string `json:"path"`
		TTL         int64  `json:"ttl"`
		SeriesCount int    `json:"series_count"`
	}
)

type (
	SetStorageGroupArgs struct {
		Path string `json:"path"`
		TTL  int64  `json:"ttl"`
	}
	DeleteStorageGroupArgs struct {
		Path string `json:"path"`
	}
	CreateTimeseriesArgs struct {
		Path        string `json:"path"`
		Alias       string `json:"alias"`
		DataType    uint8  `json:"data_type"`
		Encoding    uint8  `json:"encoding"`
		Compression uint8  `json:"compression"`
	}
	DeleteTimeseriesArgs struct {
		Path string `json:"path"`
	}
	GetNodeArgs struct {
		Path string `json:"path"`
	}
	ListTimeseriesArgs struct {
		Path string `json:"path"`
	}
	StorageGroupOfArgs struct {
		Path string `json:"path"`
	}
	StorageGroupOfResult struct {
		StorageGroup string `json:"storage_group"`
	}
)
