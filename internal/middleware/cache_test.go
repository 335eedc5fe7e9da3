package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cinegate/theatre-booking/internal/config"
)

func TestEncodeDecodePayload(t *testing.T) {
	t.Parallel()

	hdr := http.Header{
		"Content-Type": {"application/json"},
		"X-Custom":     {"a", "b"},
	}
	body := []byte(`{"items":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(bs)
	if !ok {
		t.Fatal("decode reported failure")
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !reflect.DeepEqual(gotHdr, hdr) {
		t.Fatalf("headers = %#v, want %#v", gotHdr, hdr)
	}
	if string(gotBody) != string(body) {
		t.Fatalf("body = %q, want %q", gotBody, body)
	}
}

func TestDecodePayloadRejectsTruncated(t *testing.T) {
	t.Parallel()

	for _, bs := range [][]byte{nil, {1, 2, 3}, make([]byte, 8)} {
		if _, _, _, ok := decodePayload(bs); len(bs) < 8 && ok {
			t.Fatalf("decode accepted %d-byte payload", len(bs))
		}
	}
	// Header length pointing past the end must be rejected.
	bad, err := encodePayload(200, http.Header{}, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	bad[7] = 0xFF
	if _, _, _, ok := decodePayload(bad); ok {
		t.Fatal("decode accepted payload with oversized header length")
	}
}

func TestCacheKeyStrategies(t *testing.T) {
	t.Parallel()

	newCtx := func(target string) echo.Context {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/showtimes/:id/seats")
		return c
	}

	base := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	k1 := cacheKey(base, newCtx("/v1/showtimes/1/seats?x=1"))
	k2 := cacheKey(base, newCtx("/v1/showtimes/1/seats?x=2"))
	if k1 == k2 {
		t.Error("route_query keys should differ when the query differs")
	}

	routeOnly := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
	k3 := cacheKey(routeOnly, newCtx("/v1/showtimes/1/seats?x=1"))
	k4 := cacheKey(routeOnly, newCtx("/v1/showtimes/1/seats?x=2"))
	if k3 != k4 {
		t.Error("route keys should ignore the query string")
	}
}

func TestRedisCacheDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	mw := NewRedisCache(config.CacheConfig{Enabled: false}, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("pass-through failed: called=%v status=%d", called, rec.Code)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Error("disabled cache must not set X-Cache")
	}
}
