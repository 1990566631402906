package value_test

import (
	"math"
	"testing"

	"github.com/mickamy/voltgo/value"
)

func TestGeographyPointEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	p, err := value.NewGeographyPoint(-71.0589, 42.3601)
	if err != nil {
		t.Fatalf("new point: %v", err)
	}
	got := value.DecodePoint(value.EncodePoint(p))
	if !got.Equals(p) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestGeographyPointRejectsOutOfRangeCoordinates(t *testing.T) {
	t.Parallel()

	if _, err := value.NewGeographyPoint(181, 0); err == nil {
		t.Fatal("expected error for longitude 181")
	}
	if _, err := value.NewGeographyPoint(0, 91); err == nil {
		t.Fatal("expected error for latitude 91")
	}
}

func TestGeographyPolygonRoundTripPreservesRingShape(t *testing.T) {
	t.Parallel()

	outer := []value.GeographyPoint{
		{Lng: 0, Lat: 0},
		{Lng: 1, Lat: 0},
		{Lng: 1, Lat: 1},
		{Lng: 0, Lat: 0}, // closing duplicate
	}
	poly := value.Polygon{Rings: [][]value.GeographyPoint{outer}}

	encoded := value.EncodeGeography(poly)
	decoded, err := value.DecodeGeography(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !poly.ApproximatelyEqual(decoded, 1e-9) {
		t.Fatalf("got %+v, want %+v", decoded, poly)
	}
	if len(decoded.Rings[0]) != len(outer) {
		t.Fatalf("ring length = %d, want %d", len(decoded.Rings[0]), len(outer))
	}
}

func TestGeographyPolygonWithHoleReversesInnerRing(t *testing.T) {
	t.Parallel()

	outer := []value.GeographyPoint{
		{Lng: 0, Lat: 0}, {Lng: 4, Lat: 0}, {Lng: 4, Lat: 4}, {Lng: 0, Lat: 4}, {Lng: 0, Lat: 0},
	}
	hole := []value.GeographyPoint{
		{Lng: 1, Lat: 1}, {Lng: 2, Lat: 1}, {Lng: 2, Lat: 2}, {Lng: 1, Lat: 1},
	}
	poly := value.Polygon{Rings: [][]value.GeographyPoint{outer, hole}}

	decoded, err := value.DecodeGeography(value.EncodeGeography(poly))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !poly.ApproximatelyEqual(decoded, 1e-9) {
		t.Fatalf("got %+v, want %+v", decoded, poly)
	}
}

func TestNullGeographyEncodesAsLengthMinusOne(t *testing.T) {
	t.Parallel()

	encoded := value.EncodeGeography(value.NullGeography)
	if string(encoded) != string([]byte{0xff, 0xff, 0xff, 0xff}) {
		t.Fatalf("got %v, want int32(-1)", encoded)
	}
	decoded, err := value.DecodeGeography(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.IsNull() {
		t.Fatal("decoded polygon is not null")
	}
}

// TestGeographyWireFormatMatchesRealLayout builds the expected bytes by
// hand, the way Geography.cpp's serializeTo actually lays a one-ring
// triangle out on the wire: a 4-byte content length, the
// int8(0);int8(1);int8(0) header, int32 numRings, per ring int8(0);
// int32 numPoints then numPoints XYZ triples, a 38-byte ring trailer,
// and a 33-byte polygon trailer. This catches the truncated layout a
// pure round-trip test can't.
func TestGeographyWireFormatMatchesRealLayout(t *testing.T) {
	t.Parallel()

	outer := []value.GeographyPoint{
		{Lng: 0, Lat: 0},
		{Lng: 1, Lat: 0},
		{Lng: 1, Lat: 1},
		{Lng: 0, Lat: 0}, // closing duplicate
	}
	poly := value.Polygon{Rings: [][]value.GeographyPoint{outer}}

	appendI32 := func(dst []byte, v int32) []byte {
		var b [4]byte
		b[0] = byte(uint32(v) >> 24)
		b[1] = byte(uint32(v) >> 16)
		b[2] = byte(uint32(v) >> 8)
		b[3] = byte(uint32(v))
		return append(dst, b[:]...)
	}
	appendF64 := func(dst []byte, v float64) []byte {
		bits := math.Float64bits(v)
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[7-i] = byte(bits)
			bits >>= 8
		}
		return append(dst, b[:]...)
	}

	pts := outer[:len(outer)-1] // drop the closing duplicate vertex
	numPoints := int32(len(pts))

	var content []byte
	content = append(content, 0, 1, 0) // fixed header
	content = appendI32(content, 1)    // numRings
	content = append(content, 0)       // ring tag byte
	content = appendI32(content, numPoints)
	for _, p := range pts {
		lngRad := p.Lng * math.Pi / 180
		latRad := p.Lat * math.Pi / 180
		cosLat := math.Cos(latRad)
		content = appendF64(content, cosLat*math.Cos(lngRad))
		content = appendF64(content, cosLat*math.Sin(lngRad))
		content = appendF64(content, math.Sin(latRad))
	}
	content = append(content, make([]byte, 38)...) // ring trailer
	content = append(content, make([]byte, 33)...) // polygon trailer

	var want []byte
	want = appendI32(want, int32(len(content)))
	want = append(want, content...)

	got := value.EncodeGeography(poly)
	if string(got) != string(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	decoded, err := value.DecodeGeography(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !poly.ApproximatelyEqual(decoded, 1e-9) {
		t.Fatalf("decoded %+v, want %+v", decoded, poly)
	}
}

func TestGeographyPointPoleEqualsRegardlessOfLongitude(t *testing.T) {
	t.Parallel()

	north1 := value.GeographyPoint{Lng: 10, Lat: 90}
	north2 := value.GeographyPoint{Lng: -170, Lat: 90}
	if !north1.Equals(north2) {
		t.Fatal("expected both north-pole points to be equal regardless of longitude")
	}
}

func TestGeographyPointAntimeridianEquals(t *testing.T) {
	t.Parallel()

	a := value.GeographyPoint{Lng: 180, Lat: 5}
	b := value.GeographyPoint{Lng: -180, Lat: 5}
	if !a.Equals(b) {
		t.Fatal("expected +180 and -180 longitude to be equal")
	}
}
