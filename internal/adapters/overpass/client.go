package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/para-cebu/para/internal/core/domain"
)

// DefaultURL is the public Overpass API interpreter endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter"

const maxResponseBytes = 32 << 20

var (
	ErrInvalidRelationID = errors.New("overpass: relation id must be numeric")
	ErrNoGeometry        = errors.New("overpass: relation has no way geometry")
)

// Client implements ports.GeometryProvider against the Overpass API, treating
// route ids as OSM relation ids.
type Client struct {
	url        string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates an Overpass client. An empty url uses DefaultURL.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "para-route-matcher/1.0",
	}
}

// relationQuery selects the relation, recurses down to its ways and nodes,
// and asks for inline way geometry.
func relationQuery(relationID int64) string {
	return fmt.Sprintf("[out:json][timeout:25];\nrelation(%d);\n>>;\nout geom;", relationID)
}

// FetchSegments returns the way geometries of a route relation in member order.
func (c *Client) FetchSegments(ctx context.Context, routeID string) ([][]domain.Coordinate, error) {
	relationID, err := strconv.ParseInt(strings.TrimSpace(routeID), 10, 64)
	if err != nil || relationID <= 0 {
		return nil, ErrInvalidRelationID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(relationQuery(relationID)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("overpass: HTTP %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	segments := payload.segments(relationID)
	if len(segments) == 0 {
		return nil, ErrNoGeometry
	}
	return segments, nil
}
