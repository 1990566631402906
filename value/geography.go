package value

import (
	"math"

	"github.com/mickamy/voltgo/errs"
)

// GeographyPoint is a longitude/latitude pair: longitude in
// [-180, +180], latitude in [-90, +90].
type GeographyPoint struct {
	Lng float64
	Lat float64
}

// NullGeographyPoint is the sentinel pair denoting SQL NULL.
var NullGeographyPoint = GeographyPoint{Lng: 360.0, Lat: 360.0}

// NewGeographyPoint validates the coordinate range before constructing
// a point.
func NewGeographyPoint(lng, lat float64) (GeographyPoint, error) {
	if lng < -180 || lng > 180 {
		return GeographyPoint{}, errs.New(errs.CoordinateOutOfRange, "longitude out of [-180, 180]")
	}
	if lat < -90 || lat > 90 {
		return GeographyPoint{}, errs.New(errs.CoordinateOutOfRange, "latitude out of [-90, 90]")
	}
	return GeographyPoint{Lng: lng, Lat: lat}, nil
}

// IsNull reports whether p is the NULL sentinel.
func (p GeographyPoint) IsNull() bool {
	return p.Lng == NullGeographyPoint.Lng && p.Lat == NullGeographyPoint.Lat
}

// Equals treats both poles as a single point regardless of longitude,
// and treats longitude +180 and -180 as equal.
func (p GeographyPoint) Equals(o GeographyPoint) bool {
	if p.Lat == 90 && o.Lat == 90 {
		return true
	}
	if p.Lat == -90 && o.Lat == -90 {
		return true
	}
	if p.Lat != o.Lat {
		return false
	}
	pl, ol := normalizeLng180(p.Lng), normalizeLng180(o.Lng)
	return pl == ol
}

func normalizeLng180(lng float64) float64 {
	if lng == -180 {
		return 180
	}
	return lng
}

// ApproximatelyEqual compares within an absolute epsilon on each axis,
// applying the same pole/antimeridian conventions as Equals.
func (p GeographyPoint) ApproximatelyEqual(o GeographyPoint, eps float64) bool {
	if math.Abs(p.Lat-90) < eps && math.Abs(o.Lat-90) < eps {
		return true
	}
	if math.Abs(p.Lat+90) < eps && math.Abs(o.Lat+90) < eps {
		return true
	}
	if math.Abs(p.Lat-o.Lat) > eps {
		return false
	}
	pl, ol := normalizeLng180(p.Lng), normalizeLng180(o.Lng)
	return math.Abs(pl-ol) < eps
}

// EncodePoint serializes a point as two big-endian doubles: (longitude,
// latitude).
func EncodePoint(p GeographyPoint) [16]byte {
	var out [16]byte
	putFloat64(out[0:8], p.Lng)
	putFloat64(out[8:16], p.Lat)
	return out
}

// DecodePoint parses the wire form of a point.
func DecodePoint(b [16]byte) GeographyPoint {
	return GeographyPoint{Lng: getFloat64(b[0:8]), Lat: getFloat64(b[8:16])}
}

func putFloat64(dst []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		dst[7-i] = byte(bits)
		bits >>= 8
	}
}

func getFloat64(src []byte) float64 {
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = bits<<8 | uint64(src[i])
	}
	return math.Float64frombits(bits)
}

// Polygon is an ordered sequence of closed rings: Rings[0] is the outer
// boundary, Rings[1:] are holes. Each ring's first and last vertex are
// equal.
type Polygon struct {
	Rings [][]GeographyPoint
}

// NullGeography is the zero-ring sentinel polygon denoting SQL NULL.
var NullGeography = Polygon{Rings: nil}

// IsNull reports whether g has no rings.
func (g Polygon) IsNull() bool { return len(g.Rings) == 0 }

// ApproximatelyEqual compares two polygons ring-by-ring, point-by-point.
func (g Polygon) ApproximatelyEqual(o Polygon, eps float64) bool {
	if len(g.Rings) != len(o.Rings) {
		return false
	}
	for i := range g.Rings {
		a, b := g.Rings[i], o.Rings[i]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if !a[j].ApproximatelyEqual(b[j], eps) {
				return false
			}
		}
	}
	return true
}

// lngLatToXYZ converts a geodetic point to a unit-sphere XYZ triple.
func lngLatToXYZ(p GeographyPoint) (x, y, z float64) {
	lngRad := p.Lng * math.Pi / 180
	latRad := p.Lat * math.Pi / 180
	cosLat := math.Cos(latRad)
	return cosLat * math.Cos(lngRad), cosLat * math.Sin(lngRad), math.Sin(latRad)
}

// xyzToLngLat converts a unit-sphere XYZ triple back to a geodetic
// point.
func xyzToLngLat(x, y, z float64) GeographyPoint {
	lat := math.Asin(clamp(z, -1, 1)) * 180 / math.Pi
	lng := math.Atan2(y, x) * 180 / math.Pi
	return GeographyPoint{Lng: lng, Lat: lat}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncodeGeography serializes a polygon in the wire form
// Geography::serializeTo/Ring::serializeTo produce: a 4-byte content
// length, then int8(0);int8(1);int8(0), int32 numRings, each ring as
// int8(0); int32 numPoints (the ring's distinct point count, excluding
// the closing duplicate vertex); numPoints * (x,y,z unit-sphere
// doubles); 38 zero bytes, and finally 33 trailing zero bytes. A null
// polygon is just int32(-1).
//
// Ring 0 is written in the order the caller supplied it (minus the
// closing duplicate). Every inner ring is written through
// mirrorKeepingFirst, matching Ring::serializeTo's reverseit pass,
// which leaves the ring's first point fixed and walks the rest
// backward from the closing duplicate.
func EncodeGeography(g Polygon) []byte {
	if g.IsNull() {
		buf := make([]byte, 4)
		putInt32(buf, -1)
		return buf
	}

	content := []byte{0, 1, 0}
	ringCount := make([]byte, 4)
	putInt32(ringCount, int32(len(g.Rings)))
	content = append(content, ringCount...)

	for i, ring := range g.Rings {
		pts := ring
		if len(pts) > 0 {
			pts = pts[:len(pts)-1] // drop the closing duplicate vertex
		}
		wireOrder := pts
		if i > 0 {
			wireOrder = mirrorKeepingFirst(pts)
		}

		content = append(content, 0) // ring tag byte
		head := make([]byte, 4)
		putInt32(head, int32(len(wireOrder)))
		content = append(content, head...)

		for _, p := range wireOrder {
			x, y, z := lngLatToXYZ(p)
			var xyz [24]byte
			putFloat64(xyz[0:8], x)
			putFloat64(xyz[8:16], y)
			putFloat64(xyz[16:24], z)
			content = append(content, xyz[:]...)
		}
		content = append(content, make([]byte, 38)...) // ring trailer
	}
	content = append(content, make([]byte, 33)...) // polygon trailer

	out := make([]byte, 4+len(content))
	putInt32(out[0:4], int32(len(content)))
	copy(out[4:], content)
	return out
}

// DecodeGeography parses the EncodeGeography wire form, restoring each
// ring's closing duplicate vertex and un-mirroring inner rings.
func DecodeGeography(data []byte) (Polygon, error) {
	if len(data) < 4 {
		return Polygon{}, errs.New(errs.UnsupportedType, "geography payload too short")
	}
	size := getInt32(data[0:4])
	if size == -1 {
		return NullGeography, nil
	}
	if size < 0 || 4+int(size) > len(data) {
		return Polygon{}, errs.New(errs.UnsupportedType, "geography payload length out of range")
	}
	body := data[4 : 4+int(size)]
	if len(body) < 7 {
		return Polygon{}, errs.New(errs.UnsupportedType, "geography header truncated")
	}
	// body[0:3] is the fixed int8(0);int8(1);int8(0) header.
	numRings := getInt32(body[3:7])
	off := 7

	rings := make([][]GeographyPoint, 0, numRings)
	for i := int32(0); i < numRings; i++ {
		if off+1+4 > len(body) {
			return Polygon{}, errs.New(errs.UnsupportedType, "geography ring header truncated")
		}
		off++ // ring tag byte
		numPoints := getInt32(body[off : off+4])
		off += 4
		if numPoints < 0 || off+int(numPoints)*24+38 > len(body) {
			return Polygon{}, errs.New(errs.UnsupportedType, "geography ring body truncated")
		}

		wireOrder := make([]GeographyPoint, numPoints)
		for j := int32(0); j < numPoints; j++ {
			x := getFloat64(body[off : off+8])
			y := getFloat64(body[off+8 : off+16])
			z := getFloat64(body[off+16 : off+24])
			off += 24
			wireOrder[j] = xyzToLngLat(x, y, z)
		}
		off += 38 // ring trailer

		pts := wireOrder
		if i > 0 {
			pts = mirrorKeepingFirst(wireOrder)
		}
		if len(pts) > 0 {
			pts = append(pts, pts[0]) // restore the closing duplicate vertex
		}
		rings = append(rings, pts)
	}
	// off+33 should equal len(body) (the polygon trailer); unparsed.
	return Polygon{Rings: rings}, nil
}

// mirrorKeepingFirst leaves pts[0] fixed and reverses the rest,
// matching Ring::serializeTo's reverseit pass (which writes the
// closing duplicate first, then walks backward to index 1) and
// Ring::reverse's un-reversal on decode (which reverses every point
// except the first and the closing duplicate). The transform is its
// own inverse, so the same helper serves both directions.
func mirrorKeepingFirst(pts []GeographyPoint) []GeographyPoint {
	if len(pts) == 0 {
		return pts
	}
	out := make([]GeographyPoint, len(pts))
	out[0] = pts[0]
	for i := 1; i < len(pts); i++ {
		out[i] = pts[len(pts)-i]
	}
	return out
}

func putInt32(dst []byte, v int32) {
	u := uint32(v)
	dst[0] = byte(u >> 24)
	dst[1] = byte(u >> 16)
	dst[2] = byte(u >> 8)
	dst[3] = byte(u)
}

func getInt32(src []byte) int32 {
	return int32(uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3]))
}
