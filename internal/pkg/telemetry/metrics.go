package telemetry

// SampleRatio is the fraction of root traces kept.
const SampleRatio = 0.25

// Span attribute keys shared across packages.
const (
	AttrRouteID = "route.id"
	AttrScanID  = "scan.id"
)
