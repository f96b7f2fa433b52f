package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/para-cebu/para/internal/core/domain"
	"github.com/para-cebu/para/internal/core/ports"
	"github.com/para-cebu/para/internal/pkg/geospatial"
	"github.com/para-cebu/para/internal/pkg/metrics"
	"github.com/para-cebu/para/internal/pkg/telemetry"
)

// DefaultMaxDistanceMeters is the proximity radius used when a request leaves it unset.
const DefaultMaxDistanceMeters = 100.0

// ScanOptions tunes the route scanner.
type ScanOptions struct {
	MaxDistanceMeters float64
	// IterationDelay is slept between routes to pace requests to the
	// geometry provider.
	IterationDelay time.Duration
}

// ScanService finds catalog routes that pass near both ends of a trip.
type ScanService struct {
	catalog    ports.RouteCatalog
	geometries *GeometryService
	proximity  *ProximityTester
	publisher  ports.EventPublisher
	reporter   ports.ErrorReporter
	opts       ScanOptions
}

// NewScanService creates a new ScanService. publisher and reporter may be nil.
func NewScanService(
	catalog ports.RouteCatalog,
	geometries *GeometryService,
	publisher ports.EventPublisher,
	reporter ports.ErrorReporter,
	opts ScanOptions,
) *ScanService {
	if opts.MaxDistanceMeters <= 0 {
		opts.MaxDistanceMeters = DefaultMaxDistanceMeters
	}
	if opts.IterationDelay < 0 {
		opts.IterationDelay = 0
	}
	return &ScanService{
		catalog:    catalog,
		geometries: geometries,
		proximity:  NewProximityTester(geometries),
		publisher:  publisher,
		reporter:   reporter,
		opts:       opts,
	}
}

// FindNearbyRoutes scans the catalog in order and returns every route that
// passes within req.MaxDistanceMeters of both req.Origin and req.Destination.
//
// Cancelling ctx stops the scan and returns the matches found so far with a
// nil error. Only a catalog failure returns an error (*domain.CatalogFetchError).
// onProgress, if non-nil, receives a non-decreasing percentage that ends at
// 100 exactly once for completed and cancelled scans.
func (s *ScanService) FindNearbyRoutes(ctx context.Context, req domain.ScanRequest, onProgress func(int)) ([]domain.MatchResult, error) {
	id := req.ScanID
	if id == "" {
		id = uuid.NewString()
	}
	run := &scanRun{
		id:       id,
		state:    domain.ScanIdle,
		started:  time.Now(),
		progress: &progressReporter{fn: onProgress},
	}
	maxDist := req.MaxDistanceMeters
	if maxDist <= 0 {
		maxDist = s.opts.MaxDistanceMeters
	}

	ctx, span := tracer.Start(ctx, "ScanService.FindNearbyRoutes", trace.WithAttributes(
		attribute.String(telemetry.AttrScanID, run.id),
		attribute.Float64("scan.max_distance_m", maxDist),
	))
	defer span.End()

	log := slog.Default().With("scan_id", run.id)
	metrics.ActiveScans.Inc()
	defer metrics.ActiveScans.Dec()

	run.state = domain.ScanScanning
	routes, err := s.catalog.FetchAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before the catalog arrived.
			return s.finish(ctx, run, span, log, domain.ScanCancelled, "cancelled", nil), nil
		}
		cerr := &domain.CatalogFetchError{Err: err}
		run.state = domain.ScanFailed
		metrics.ScansTotal.WithLabelValues("failed").Inc()
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Error())
		log.Error("route scan failed", "error", cerr)
		s.report(ctx, cerr, run.id)
		return nil, cerr
	}
	run.total = len(routes)
	span.SetAttributes(attribute.Int("scan.routes_total", run.total))

	if run.total == 0 {
		return s.finish(ctx, run, span, log, domain.ScanCompleted, "completed", []domain.MatchResult{}), nil
	}

	log.Debug("scanning routes", "routes", run.total, "max_distance_m", maxDist,
		"origin", req.Origin, "destination", req.Destination)

	// Used as the distance of a match whose geometry is not available.
	straightLine := geospatial.Distance(req.Origin, req.Destination)

	matches, unexpected := s.scanRoutes(ctx, run, routes, req, maxDist, straightLine)
	if matches == nil {
		matches = []domain.MatchResult{}
	}

	switch {
	case unexpected != nil:
		log.Error("route scan stopped by unexpected error", "error", unexpected, "scanned", run.scanned)
		span.RecordError(unexpected)
		s.report(ctx, unexpected, run.id)
		return s.finish(ctx, run, span, log, domain.ScanCompleted, "recovered", matches), nil
	case ctx.Err() != nil:
		return s.finish(ctx, run, span, log, domain.ScanCancelled, "cancelled", matches), nil
	default:
		return s.finish(ctx, run, span, log, domain.ScanCompleted, "completed", matches), nil
	}
}

// scanRoutes runs the per-route loop. A panic inside the loop is recovered and
// returned as unexpected; matches holds everything appended before it.
func (s *ScanService) scanRoutes(
	ctx context.Context,
	run *scanRun,
	routes []domain.RouteDescriptor,
	req domain.ScanRequest,
	maxDist, straightLine float64,
) (matches []domain.MatchResult, unexpected error) {
	defer func() {
		if r := recover(); r != nil {
			unexpected = fmt.Errorf("scan panic: %v", r)
		}
	}()

	for i, route := range routes {
		if ctx.Err() != nil {
			return matches, nil
		}

		run.progress.report(percent(i+1, run.total))

		if err := s.pause(ctx); err != nil {
			return matches, nil
		}

		if m, ok := s.matchRoute(ctx, route, req, maxDist, straightLine); ok {
			matches = append(matches, m)
		}
		run.scanned = i + 1
	}
	return matches, nil
}

func (s *ScanService) matchRoute(
	ctx context.Context,
	route domain.RouteDescriptor,
	req domain.ScanRequest,
	maxDist, straightLine float64,
) (domain.MatchResult, bool) {
	if !s.proximity.PassesNear(ctx, route.RouteID, req.Origin, maxDist) {
		return domain.MatchResult{}, false
	}
	if !s.proximity.PassesNear(ctx, route.RouteID, req.Destination, maxDist) {
		return domain.MatchResult{}, false
	}
	return domain.MatchResult{
		RouteDescriptor:  route,
		Distance:         s.estimateDistance(ctx, route.RouteID, req, straightLine),
		OriginLabel:      req.OriginLabel,
		DestinationLabel: req.DestinationLabel,
	}, true
}

// estimateDistance is the distance from the origin to its nearest route point
// plus the distance from the destination to its nearest route point. It is
// not a length along the route.
func (s *ScanService) estimateDistance(ctx context.Context, routeID string, req domain.ScanRequest, fallback float64) float64 {
	points, err := s.geometries.Geometry(ctx, routeID)
	if err != nil {
		return fallback
	}
	toOrigin, ok := geospatial.MinDistance(points, req.Origin)
	if !ok {
		return fallback
	}
	toDestination, _ := geospatial.MinDistance(points, req.Destination)
	return toOrigin + toDestination
}

func (s *ScanService) pause(ctx context.Context) error {
	if s.opts.IterationDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.opts.IterationDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *ScanService) finish(
	ctx context.Context,
	run *scanRun,
	span trace.Span,
	log *slog.Logger,
	state domain.ScanState,
	outcome string,
	matches []domain.MatchResult,
) []domain.MatchResult {
	run.state = state
	run.progress.finish()

	elapsed := time.Since(run.started)
	metrics.ScansTotal.WithLabelValues(outcome).Inc()
	metrics.ScanDuration.Observe(elapsed.Seconds())
	metrics.ScanMatches.Observe(float64(len(matches)))
	span.SetAttributes(
		attribute.String("scan.state", string(state)),
		attribute.Int("scan.matches", len(matches)),
	)
	log.Info("route scan finished", "state", state, "scanned", run.scanned,
		"routes", run.total, "matches", len(matches), "elapsed", elapsed.String())

	s.publishSummary(ctx, &domain.ScanSummary{
		ScanID:        run.id,
		State:         state,
		RoutesScanned: run.scanned,
		RoutesTotal:   run.total,
		Matches:       len(matches),
		DurationMs:    elapsed.Milliseconds(),
		FinishedAt:    time.Now().UTC(),
	})
	return matches
}

func (s *ScanService) publishSummary(ctx context.Context, summary *domain.ScanSummary) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.publisher.PublishScanCompleted(pubCtx, summary); err != nil {
		slog.Warn("publish scan summary", "scan_id", summary.ScanID, "error", err)
	}
}

func (s *ScanService) report(ctx context.Context, err error, scanID string) {
	if s.reporter == nil {
		return
	}
	s.reporter.CaptureError(ctx, err, map[string]string{"component": "scanner", "scan_id": scanID})
}

type scanRun struct {
	id       string
	state    domain.ScanState
	started  time.Time
	total    int
	scanned  int
	progress *progressReporter
}

// progressReporter forwards percentages to a callback, never decreasing and
// emitting 100 at most once.
type progressReporter struct {
	fn   func(int)
	last int
	done bool
}

func (p *progressReporter) report(v int) {
	if p.fn == nil || p.done {
		return
	}
	if v < p.last {
		v = p.last
	}
	if v >= 100 {
		v = 100
		p.done = true
	}
	p.last = v
	p.fn(v)
}

func (p *progressReporter) finish() {
	p.report(100)
}

func percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
