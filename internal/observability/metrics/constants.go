// Package metrics provides the Prometheus collectors of the weather display.
// Every Record/Update method is safe to call on a nil receiver so components
// run unchanged when metrics are disabled.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the first bucket of 1ms..~1s histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms is the first bucket of 10ms..~40s histograms.
	BucketStart10ms = 0.01
	// BucketStart100ms is the first bucket of 100ms..~100s histograms.
	BucketStart100ms = 0.1
	// BucketStart64B is the first bucket of payload size histograms.
	BucketStart64B = 64.0

	BucketFactor2 = 2

	BucketCount10 = 10
	BucketCount12 = 12
)
