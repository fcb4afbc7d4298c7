// Package graph provides the complete compatibility graph used to compare
// the internal geometry of two equally sized vertex lists.
//
// Node i always stands for the i-th element of the list the graph was built
// from. Removing a node hides it from stars but keeps its index.
package graph

import (
	gomath "math"

	"github.com/pkg/errors"

	"github.com/Faultbox/modgrow/pkg/math"
)

// ErrSizeMismatch is returned when two graphs with different node counts
// are combined.
var ErrSizeMismatch = errors.New("graphs differ in node count")

// Cost is an edge weight that can be summed, differenced and ordered.
type Cost[C any] interface {
	Add(C) C
	Sub(C) C
	Less(C) bool
}

// Edge joins two distinct nodes.
type Edge struct {
	U, V int
}

// Graph is a complete graph with symmetric edge costs.
type Graph[C Cost[C]] struct {
	n       int
	costs   []C
	present []bool
}

// New returns a graph with n present nodes and zero costs.
func New[C Cost[C]](n int) *Graph[C] {
	g := &Graph[C]{
		n:       n,
		costs:   make([]C, n*n),
		present: make([]bool, n),
	}
	for i := range g.present {
		g.present[i] = true
	}
	return g
}

// NodeCount returns the number of node indices, removed ones included.
func (g *Graph[C]) NodeCount() int { return g.n }

// Present returns the number of nodes not yet removed.
func (g *Graph[C]) Present() int {
	c := 0
	for _, p := range g.present {
		if p {
			c++
		}
	}
	return c
}

// Exists reports whether node is in range and not removed.
func (g *Graph[C]) Exists(node int) bool {
	return node >= 0 && node < g.n && g.present[node]
}

// RemoveNode marks node absent.
func (g *Graph[C]) RemoveNode(node int) {
	if node >= 0 && node < g.n {
		g.present[node] = false
	}
}

// Cost returns the cost of edge e.
func (g *Graph[C]) Cost(e Edge) C {
	return g.costs[e.U*g.n+e.V]
}

// SetCost sets the cost of e in both directions.
func (g *Graph[C]) SetCost(e Edge, c C) {
	g.costs[e.U*g.n+e.V] = c
	g.costs[e.V*g.n+e.U] = c
}

// Star returns the edges from node to every other present node.
func (g *Graph[C]) Star(node int) []Edge {
	if !g.Exists(node) {
		return nil
	}
	out := make([]Edge, 0, g.n-1)
	for v := 0; v < g.n; v++ {
		if v != node && g.present[v] {
			out = append(out, Edge{U: node, V: v})
		}
	}
	return out
}

// StarCost sums the costs over the star of node.
func (g *Graph[C]) StarCost(node int) C {
	var sum C
	for _, e := range g.Star(node) {
		sum = sum.Add(g.Cost(e))
	}
	return sum
}

// Edges returns every edge between present nodes once, U < V.
func (g *Graph[C]) Edges() []Edge {
	var out []Edge
	for u := 0; u < g.n; u++ {
		if !g.present[u] {
			continue
		}
		for v := u + 1; v < g.n; v++ {
			if g.present[v] {
				out = append(out, Edge{U: u, V: v})
			}
		}
	}
	return out
}

// Difference returns a graph whose edge costs are a's minus b's. Nodes
// absent from either input are absent from the result.
func Difference[C Cost[C]](a, b *Graph[C]) (*Graph[C], error) {
	if a.n != b.n {
		return nil, errors.Wrapf(ErrSizeMismatch, "difference of %d and %d nodes", a.n, b.n)
	}
	d := New[C](a.n)
	for i := range d.costs {
		d.costs[i] = a.costs[i].Sub(b.costs[i])
	}
	for i := range d.present {
		d.present[i] = a.present[i] && b.present[i]
	}
	return d, nil
}

// EdgeCost pairs the distance between two vertices with the angle between
// their normals. Distance dominates the ordering; angle breaks ties.
type EdgeCost struct {
	Dist  float64
	Angle float64
}

func (c EdgeCost) Add(o EdgeCost) EdgeCost { return EdgeCost{c.Dist + o.Dist, c.Angle + o.Angle} }
func (c EdgeCost) Sub(o EdgeCost) EdgeCost { return EdgeCost{c.Dist - o.Dist, c.Angle - o.Angle} }

// Less orders costs lexicographically.
func (c EdgeCost) Less(o EdgeCost) bool {
	if c.Dist != o.Dist {
		return c.Dist < o.Dist
	}
	return c.Angle < o.Angle
}

// Scalar is a plain number cost.
type Scalar float64

func (s Scalar) Add(o Scalar) Scalar { return s + o }
func (s Scalar) Sub(o Scalar) Scalar { return s - o }
func (s Scalar) Less(o Scalar) bool  { return s < o }

// Prune removes, one at a time, the present node whose star cost is
// greatest until target nodes remain. Ties remove the lowest index. It
// returns the surviving nodes in ascending order and the sum of their star
// costs, which counts every surviving edge twice.
func Prune[C Cost[C]](g *Graph[C], target int) ([]int, C) {
	for g.Present() > target {
		worst := -1
		var worstCost C
		for i := 0; i < g.n; i++ {
			if !g.present[i] {
				continue
			}
			if s := g.StarCost(i); worst < 0 || worstCost.Less(s) {
				worst, worstCost = i, s
			}
		}
		g.RemoveNode(worst)
	}

	var kept []int
	var total C
	for i := 0; i < g.n; i++ {
		if g.present[i] {
			kept = append(kept, i)
			total = total.Add(g.StarCost(i))
		}
	}
	return kept, total
}

// Build creates the compatibility graph over parallel position and unit
// normal lists.
func Build(positions, normals []math.Vec3) (*Graph[EdgeCost], error) {
	if len(positions) != len(normals) {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d positions and %d normals", len(positions), len(normals))
	}
	g := New[EdgeCost](len(positions))
	for u := range positions {
		for v := u + 1; v < len(positions); v++ {
			g.SetCost(Edge{U: u, V: v}, EdgeCost{
				Dist:  positions[u].Distance(positions[v]),
				Angle: math.Angle(normals[u], normals[v]),
			})
		}
	}
	return g, nil
}

// Normalize divides distances by the largest distance in g and angles by
// pi, so both components lie in [0, 1].
func Normalize(g *Graph[EdgeCost]) {
	maxDist := 0.0
	for _, c := range g.costs {
		maxDist = gomath.Max(maxDist, c.Dist)
	}
	for i, c := range g.costs {
		if maxDist > 0 {
			c.Dist /= maxDist
		}
		c.Angle /= gomath.Pi
		g.costs[i] = c
	}
}
