package index

const (
	KDTreeIndex IndexType = "kdtree"
	FLATIndex   IndexType = "flat"
)

// Compression selects the codec for saved index blobs
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

const (
	DEFAULT_INDEX_TYPE  = KDTreeIndex
	DEFAULT_COMPRESSION = CompressionZstd
)
