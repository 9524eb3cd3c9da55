package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"walkumentary/pkg/cache"
	"walkumentary/pkg/config"
	"walkumentary/pkg/db"
	"walkumentary/pkg/request"
	"walkumentary/pkg/store"
	"walkumentary/pkg/tracker"
)

func newRequestClient(t *testing.T) *request.Client {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "geocode_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	cfg := &config.CacheConfig{
		Hourly:  config.Duration(2 * time.Hour),
		Daily:   config.Duration(2 * config.Day),
		Monthly: config.Duration(35 * config.Day),
	}
	c := cache.New(store.NewSQLiteStore(d), cfg)
	return request.New(c, tracker.New(nil), 10*time.Second)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(newRequestClient(t), config.GeocodeConfig{
		BaseURL:      baseURL,
		UserAgent:    "Walkumentary/1.0 (contact@walkumentary.app)",
		RadiusMeters: 2000,
	})
}

func TestSearch(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Walkumentary/") {
			t.Errorf("User-Agent = %q", ua)
		}
		q := r.URL.Query()
		if q.Get("format") != "jsonv2" || q.Get("bounded") != "1" {
			t.Errorf("unexpected query params: %v", q)
		}
		if !strings.Contains(q.Get("q"), "Bethesda Terrace") {
			t.Errorf("q = %q", q.Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.7740","lon":"-73.9708","display_name":"Bethesda Terrace, Central Park","importance":0.45,"type":"attraction","class":"tourism"}]`))
	}))
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	res, err := c.Search(context.Background(), "Bethesda Terrace, New York", 40.7829, -73.9654)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.Lat != 40.7740 || res.Lon != -73.9708 {
		t.Errorf("coords = %v, %v", res.Lat, res.Lon)
	}
	if res.Importance != 0.45 {
		t.Errorf("importance = %v", res.Importance)
	}
}

func TestSearchNoResult(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	res, err := c.Search(context.Background(), "Nowhere Special", 40.0, -73.0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")
	res, err := c.Search(context.Background(), "   ", 40.0, -73.0)
	if err != nil || res != nil {
		t.Errorf("blank query should be a silent miss, got %v, %v", res, err)
	}
}

func TestCacheKeyDistinguishesLocations(t *testing.T) {
	nyc := cacheKey("Main Square", 40.7829, -73.9654)
	krakow := cacheKey("Main Square", 50.0617, 19.9373)
	if nyc == krakow {
		t.Errorf("cache keys collide across cities: %s", nyc)
	}
	if !strings.HasPrefix(nyc, "geocode:main square:") {
		t.Errorf("key = %s", nyc)
	}
}

func TestViewbox(t *testing.T) {
	vb := viewbox(40.0, -73.0, 2000)
	parts := strings.Split(vb, ",")
	if len(parts) != 4 {
		t.Fatalf("viewbox = %q", vb)
	}
}
