package overpass_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/para-cebu/para/internal/adapters/overpass"
	"github.com/para-cebu/para/internal/core/domain"
)

const relationBody = `{
  "elements": [
    {"type": "node", "id": 9, "lat": 10.0, "lon": 123.0},
    {"type": "way", "id": 2, "geometry": [{"lat": 10.32, "lon": 123.92}, {"lat": 10.33, "lon": 123.93}]},
    {"type": "way", "id": 1, "geometry": [{"lat": 10.30, "lon": 123.90}, {"lat": 10.31, "lon": 123.91}]},
    {"type": "way", "id": 3, "geometry": [{"lat": 11.0, "lon": 124.0}]},
    {"type": "relation", "id": 777, "members": [
      {"type": "way", "ref": 1, "role": ""},
      {"type": "node", "ref": 9, "role": "stop"},
      {"type": "way", "ref": 3, "role": "platform"},
      {"type": "way", "ref": 2, "role": "forward"}
    ]}
  ]
}`

func newServer(t *testing.T, status int, body string, gotQuery *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			b, _ := io.ReadAll(r.Body)
			*gotQuery = string(b)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSegments_MemberOrder(t *testing.T) {
	var query string
	srv := newServer(t, http.StatusOK, relationBody, &query)
	c := overpass.NewClient(srv.URL, 5*time.Second)

	segs, err := c.FetchSegments(context.Background(), "777")
	require.NoError(t, err)

	assert.Contains(t, query, "relation(777);")
	assert.Contains(t, query, "out geom;")
	require.Len(t, segs, 2, "platform way must be skipped")
	assert.Equal(t, []domain.Coordinate{{Lat: 10.30, Lon: 123.90}, {Lat: 10.31, Lon: 123.91}}, segs[0])
	assert.Equal(t, []domain.Coordinate{{Lat: 10.32, Lon: 123.92}, {Lat: 10.33, Lon: 123.93}}, segs[1])
}

func TestFetchSegments_BackwardWaysAndJoins(t *testing.T) {
	body := `{"elements":[
	  {"type":"way","id":1,"geometry":[{"lat":10.30,"lon":123.90},{"lat":10.31,"lon":123.91}]},
	  {"type":"way","id":2,"geometry":[{"lat":10.32,"lon":123.92},{"lat":10.31,"lon":123.91}]},
	  {"type":"way","id":3,"geometry":[{"lat":10.50,"lon":124.00},{"lat":10.51,"lon":124.01}]},
	  {"type":"way","id":4,"geometry":[{"lat":11.0,"lon":124.0}]},
	  {"type":"way","id":5,"geometry":[{"lat":12.0,"lon":125.0}]},
	  {"type":"relation","id":88,"members":[
	    {"type":"way","ref":1,"role":""},
	    {"type":"way","ref":2,"role":"backward"},
	    {"type":"way","ref":4,"role":"platform_entry_only"},
	    {"type":"way","ref":5,"role":"platform_exit_only"},
	    {"type":"way","ref":3,"role":"forward"}
	  ]}
	]}`
	c := overpass.NewClient(newServer(t, http.StatusOK, body, nil).URL, time.Second)

	segs, err := c.FetchSegments(context.Background(), "88")
	require.NoError(t, err)
	require.Len(t, segs, 2, "contiguous ways join; platform roles are skipped")
	assert.Equal(t, []domain.Coordinate{
		{Lat: 10.30, Lon: 123.90}, {Lat: 10.31, Lon: 123.91}, {Lat: 10.32, Lon: 123.92},
	}, segs[0])
	assert.Equal(t, []domain.Coordinate{{Lat: 10.50, Lon: 124.00}, {Lat: 10.51, Lon: 124.01}}, segs[1])
}

func TestFetchSegments_FallbackToElementOrder(t *testing.T) {
	body := `{"elements":[
	  {"type":"way","id":5,"geometry":[{"lat":1,"lon":2}]},
	  {"type":"way","id":4,"geometry":[{"lat":3,"lon":4}]}
	]}`
	c := overpass.NewClient(newServer(t, http.StatusOK, body, nil).URL, time.Second)

	segs, err := c.FetchSegments(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, 1.0, segs[0][0].Lat)
	assert.Equal(t, 3.0, segs[1][0].Lat)
}

func TestFetchSegments_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("non numeric id", func(t *testing.T) {
		c := overpass.NewClient("http://127.0.0.1:1", time.Second)
		_, err := c.FetchSegments(ctx, "1; out;")
		assert.ErrorIs(t, err, overpass.ErrInvalidRelationID)
	})

	t.Run("http error", func(t *testing.T) {
		c := overpass.NewClient(newServer(t, http.StatusTooManyRequests, "slow down", nil).URL, time.Second)
		_, err := c.FetchSegments(ctx, "1")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "429"))
	})

	t.Run("malformed json", func(t *testing.T) {
		c := overpass.NewClient(newServer(t, http.StatusOK, "<html>", nil).URL, time.Second)
		_, err := c.FetchSegments(ctx, "1")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		c := overpass.NewClient(newServer(t, http.StatusOK, `{"elements":[]}`, nil).URL, time.Second)
		_, err := c.FetchSegments(ctx, "1")
		assert.ErrorIs(t, err, overpass.ErrNoGeometry)
	})

	t.Run("cancelled", func(t *testing.T) {
		c := overpass.NewClient(newServer(t, http.StatusOK, relationBody, nil).URL, time.Second)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.FetchSegments(cctx, "777")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
