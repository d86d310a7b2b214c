// Package metrics provides the Prometheus collectors for birdobs components.
package metrics

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation label values
const (
	OpFetchAll = "fetch_all"
	OpImport   = "import"
	OpMigrate  = "migrate"
	OpPing     = "ping"
	OpExport   = "export"
	OpClear    = "clear"
)

// Loader cache result label values
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared" // joined an in-flight fetch
)

// Histogram bucket parameters
const (
	// BucketStart1ms starts 1ms histograms
	BucketStart1ms = 0.001
	// BucketStart10ms starts 10ms histograms
	BucketStart10ms = 0.01
	// BucketFactor2 is the common exponential growth factor
	BucketFactor2 = 2
	// BucketFactor10 grows buckets by orders of magnitude
	BucketFactor10 = 10
	// BucketCount12 defines 12 exponential buckets
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets
	BucketCount15 = 15
	// BucketCount7 defines 7 exponential buckets
	BucketCount7 = 7
)
