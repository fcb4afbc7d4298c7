// Package spatial answers nearest-point and range queries over a fixed set
// of host candidate positions.
//
// An Index is immutable. It goes stale as soon as the mesh it was built
// from is edited and must then be rebuilt.
package spatial

import (
	gomath "math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Faultbox/modgrow/internal/mesh"
	"github.com/Faultbox/modgrow/pkg/math"
)

// Point is an indexed position.
type Point struct {
	ID  mesh.VertexID
	Pos math.Vec3
}

// Neighbor is a query result.
type Neighbor struct {
	Point
	Dist float64
}

// Index is a k-d tree over points.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// New builds an index over points. The slice is not retained.
func New(points []Point) *Index {
	s := make(sites, len(points))
	for i, p := range points {
		s[i] = site{id: p.ID, p: [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z}}
	}
	idx := &Index{n: len(s)}
	if len(s) > 0 {
		idx.tree = kdtree.New(s, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return idx.n }

// Nearest returns the indexed point closest to q. ok is false only when the
// index is empty.
func (idx *Index) Nearest(q math.Vec3) (n Neighbor, ok bool) {
	if idx.tree == nil {
		return Neighbor{}, false
	}
	c, d2 := idx.tree.Nearest(query(q))
	s := c.(site)
	return s.neighbor(d2), true
}

// InSphere returns every indexed point within r of c, nearest first. Equal
// distances are ordered by identifier.
func (idx *Index) InSphere(c math.Vec3, r float64) []Neighbor {
	if idx.tree == nil || r < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(r * r)
	idx.tree.NearestSet(keep, query(c))

	out := make([]Neighbor, 0, keep.Len())
	for _, cd := range keep.Heap {
		// the keeper seeds its heap with a nil sentinel at the radius
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd.Comparable.(site).neighbor(cd.Dist))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type site struct {
	id mesh.VertexID
	p  [3]float64
}

func query(v math.Vec3) site {
	return site{id: mesh.InvalidVertex, p: [3]float64{v.X, v.Y, v.Z}}
}

func (s site) neighbor(d2 float64) Neighbor {
	return Neighbor{
		Point: Point{ID: s.id, Pos: math.Vec3{X: s.p[0], Y: s.p[1], Z: s.p[2]}},
		Dist:  gomath.Sqrt(d2),
	}
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.p[d] - c.(site).p[d]
}

func (s site) Dims() int { return 3 }

// Distance is squared, as kdtree expects.
func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	var sum float64
	for d := range s.p {
		diff := s.p[d] - q.p[d]
		sum += diff * diff
	}
	return sum
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Pivot(d kdtree.Dim) int                { return plane{dim: d, sites: s}.Pivot() }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

// plane orders sites along one axis for median partitioning.
type plane struct {
	dim kdtree.Dim
	sites
}

func (p plane) Less(i, j int) bool { return p.sites[i].p[p.dim] < p.sites[j].p[p.dim] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.sites[i], p.sites[j] = p.sites[j], p.sites[i] }
