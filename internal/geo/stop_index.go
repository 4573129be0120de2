package geo

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"
)

// IndexedPoint is one entry of a PointIndex: a position tagged with the
// route it belongs to and the stop id within that route. Ref is an opaque
// caller-owned handle for the route.
type IndexedPoint struct {
	Ref      int
	RouteKey string
	StopID   int
	Coordinate
}

// PointIndex is an R-tree over stop positions across all routes. It is
// built once and is safe for concurrent readers.
type PointIndex struct {
	tree   rtree.RTreeG[IndexedPoint]
	extent CoordinateBounds
}

// NewPointIndex builds an index over points.
func NewPointIndex(points []IndexedPoint) *PointIndex {
	idx := &PointIndex{}
	for i, p := range points {
		pt := [2]float64{p.Lon, p.Lat}
		idx.tree.Insert(pt, pt, p)
		if i == 0 {
			idx.extent = CoordinateBounds{MinLat: p.Lat, MaxLat: p.Lat, MinLon: p.Lon, MaxLon: p.Lon}
			continue
		}
		idx.extent.MinLat = math.Min(idx.extent.MinLat, p.Lat)
		idx.extent.MaxLat = math.Max(idx.extent.MaxLat, p.Lat)
		idx.extent.MinLon = math.Min(idx.extent.MinLon, p.Lon)
		idx.extent.MaxLon = math.Max(idx.extent.MaxLon, p.Lon)
	}
	return idx
}

// Bounds is the smallest box containing every indexed point. It is the
// zero box for an empty index.
func (idx *PointIndex) Bounds() CoordinateBounds {
	return idx.extent
}

// Len reports the number of indexed points.
func (idx *PointIndex) Len() int {
	return idx.tree.Len()
}

// Match is a point found by Within, with its distance from the query.
type Match struct {
	IndexedPoint
	DistanceKm float64
}

// Within returns every point within radiusKm of c, closest first.
func (idx *PointIndex) Within(c Coordinate, radiusKm float64) []Match {
	bounds := CalculateBounds(c.Lat, c.Lon, radiusKm)
	if idx.tree.Len() == 0 || IsOutOfBounds(bounds, idx.extent) {
		return nil
	}
	min := [2]float64{bounds.MinLon, bounds.MinLat}
	max := [2]float64{bounds.MaxLon, bounds.MaxLat}

	var matches []Match
	idx.tree.Search(min, max, func(_, _ [2]float64, p IndexedPoint) bool {
		d := DistanceKm(c, p.Coordinate)
		if d <= radiusKm {
			matches = append(matches, Match{IndexedPoint: p, DistanceKm: d})
		}
		return true
	})

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		if matches[i].RouteKey != matches[j].RouteKey {
			return matches[i].RouteKey < matches[j].RouteKey
		}
		return matches[i].StopID < matches[j].StopID
	})
	return matches
}
